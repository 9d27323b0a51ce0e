package algorithm

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha512"
	"fmt"
	"io"
	"math/big"

	"github.com/bali-nebula/go-digital-notary/notaryerr"
)

const (
	moduleV1 = "algorithm/v1"

	// ivSize is the GCM nonce length in bytes (96 bits).
	ivSize = 12
	// sharedSecretSize is the number of leading bytes of the raw ECDH
	// shared secret used as the AES-256 key. P-256 ECDH always yields a
	// 32-byte x-coordinate, so this never truncates in practice; the
	// slice is explicit so a future curve swap cannot silently grow the
	// derived key without a corresponding spec change. No HKDF is
	// applied — this is the documented key-derivation step, not a
	// shortcut.
	sharedSecretSize = 32
)

// v1 is the P-256 / SHA-512 / AES-256-GCM algorithm suite (spec.md §4.1).
type v1 struct{}

// V1 is the shared instance of the v1 algorithm suite.
var V1 Suite = v1{}

func (v1) Version() string { return "v1" }

func (v1) Digest(data []byte) []byte {
	sum := sha512.Sum512(data)
	return sum[:]
}

func (v1) GenerateKey() (public, private []byte, err error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, notaryerr.New(moduleV1, "GenerateKey", notaryerr.StorageError, err)
	}
	pub := elliptic.Marshal(elliptic.P256(), key.X, key.Y)
	priv := key.D.FillBytes(make([]byte, 32))
	return pub, priv, nil
}

func (v1) Sign(private []byte, data []byte) ([]byte, error) {
	key, err := privateKeyFromBytes(private)
	if err != nil {
		return nil, notaryerr.New(moduleV1, "Sign", notaryerr.UninitializedKey, err)
	}
	digest := sha512.Sum512(data)
	sig, err := ecdsa.SignASN1(rand.Reader, key, digest[:])
	if err != nil {
		return nil, notaryerr.New(moduleV1, "Sign", notaryerr.StorageError, err)
	}
	return sig, nil
}

func (v1) Verify(public []byte, data []byte, signature []byte) bool {
	x, y := elliptic.Unmarshal(elliptic.P256(), public)
	if x == nil {
		return false
	}
	pub := &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}
	digest := sha512.Sum512(data)
	return ecdsa.VerifyASN1(pub, digest[:], signature)
}

func (v1) Encrypt(recipientPublic []byte, plaintext []byte) (ephemeralPublic, iv, tag, ciphertext []byte, err error) {
	recipientKey, err := ecdhPublicKeyFromBytes(recipientPublic)
	if err != nil {
		return nil, nil, nil, nil, notaryerr.New(moduleV1, "Encrypt", notaryerr.MalformedComponent, err)
	}

	ephemeralPriv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, nil, nil, notaryerr.New(moduleV1, "Encrypt", notaryerr.StorageError, err)
	}

	shared, err := ephemeralPriv.ECDH(recipientKey)
	if err != nil {
		return nil, nil, nil, nil, notaryerr.New(moduleV1, "Encrypt", notaryerr.StorageError, err)
	}
	symmetricKey := shared[:sharedSecretSize]

	gcm, err := newGCM(symmetricKey)
	if err != nil {
		return nil, nil, nil, nil, notaryerr.New(moduleV1, "Encrypt", notaryerr.StorageError, err)
	}

	nonce := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, nil, nil, notaryerr.New(moduleV1, "Encrypt", notaryerr.StorageError, err)
	}

	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	ct := sealed[:len(sealed)-gcm.Overhead()]
	authTag := sealed[len(sealed)-gcm.Overhead():]

	return ephemeralPriv.PublicKey().Bytes(), nonce, authTag, ct, nil
}

func (v1) Decrypt(private []byte, ephemeralPublic, iv, tag, ciphertext []byte) ([]byte, error) {
	recipientPriv, err := ecdhPrivateKeyFromBytes(private)
	if err != nil {
		return nil, notaryerr.New(moduleV1, "Decrypt", notaryerr.UninitializedKey, err)
	}
	ephemeralPub, err := ecdh.P256().NewPublicKey(ephemeralPublic)
	if err != nil {
		return nil, notaryerr.New(moduleV1, "Decrypt", notaryerr.MalformedComponent, err)
	}

	shared, err := recipientPriv.ECDH(ephemeralPub)
	if err != nil {
		return nil, notaryerr.New(moduleV1, "Decrypt", notaryerr.StorageError, err)
	}
	symmetricKey := shared[:sharedSecretSize]

	gcm, err := newGCM(symmetricKey)
	if err != nil {
		return nil, notaryerr.New(moduleV1, "Decrypt", notaryerr.StorageError, err)
	}

	sealed := append(append([]byte{}, ciphertext...), tag...)
	plaintext, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, notaryerr.New(moduleV1, "Decrypt", notaryerr.AuthenticationFailed, err)
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func privateKeyFromBytes(private []byte) (*ecdsa.PrivateKey, error) {
	curve := elliptic.P256()
	d := new(big.Int).SetBytes(private)
	if d.Sign() == 0 {
		return nil, fmt.Errorf("private scalar is zero")
	}
	x, y := curve.ScalarBaseMult(private)
	return &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{Curve: curve, X: x, Y: y},
		D:         d,
	}, nil
}

func ecdhPublicKeyFromBytes(public []byte) (*ecdh.PublicKey, error) {
	return ecdh.P256().NewPublicKey(public)
}

func ecdhPrivateKeyFromBytes(private []byte) (*ecdh.PrivateKey, error) {
	return ecdh.P256().NewPrivateKey(private)
}
