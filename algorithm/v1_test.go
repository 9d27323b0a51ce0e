package algorithm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bali-nebula/go-digital-notary/algorithm"
)

func TestV1SignVerifyRoundTrip(t *testing.T) {
	pub, priv, err := algorithm.V1.GenerateKey()
	require.NoError(t, err)

	data := []byte("the canonical bytes of some document")
	sig, err := algorithm.V1.Sign(priv, data)
	require.NoError(t, err)

	assert.True(t, algorithm.V1.Verify(pub, data, sig))
}

func TestV1VerifyRejectsTamperedData(t *testing.T) {
	pub, priv, err := algorithm.V1.GenerateKey()
	require.NoError(t, err)

	sig, err := algorithm.V1.Sign(priv, []byte("original"))
	require.NoError(t, err)

	assert.False(t, algorithm.V1.Verify(pub, []byte("tampered"), sig))
}

func TestV1VerifyRejectsWrongKey(t *testing.T) {
	_, priv, err := algorithm.V1.GenerateKey()
	require.NoError(t, err)
	otherPub, _, err := algorithm.V1.GenerateKey()
	require.NoError(t, err)

	data := []byte("some bytes")
	sig, err := algorithm.V1.Sign(priv, data)
	require.NoError(t, err)

	assert.False(t, algorithm.V1.Verify(otherPub, data, sig))
}

func TestV1EncryptDecryptRoundTrip(t *testing.T) {
	pub, priv, err := algorithm.V1.GenerateKey()
	require.NoError(t, err)

	plaintext := []byte("This is a test of the encrypted message...")
	ephemeralPub, iv, tag, ciphertext, err := algorithm.V1.Encrypt(pub, plaintext)
	require.NoError(t, err)

	out, err := algorithm.V1.Decrypt(priv, ephemeralPub, iv, tag, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, out)
}

func TestV1DecryptFailsOnTamperedCiphertext(t *testing.T) {
	pub, priv, err := algorithm.V1.GenerateKey()
	require.NoError(t, err)

	ephemeralPub, iv, tag, ciphertext, err := algorithm.V1.Encrypt(pub, []byte("secret message"))
	require.NoError(t, err)

	tampered := append([]byte{}, ciphertext...)
	tampered[0] ^= 0xFF

	_, err = algorithm.V1.Decrypt(priv, ephemeralPub, iv, tag, tampered)
	assert.Error(t, err)
}

func TestV1DecryptFailsOnTamperedTag(t *testing.T) {
	pub, priv, err := algorithm.V1.GenerateKey()
	require.NoError(t, err)

	ephemeralPub, iv, tag, ciphertext, err := algorithm.V1.Encrypt(pub, []byte("secret message"))
	require.NoError(t, err)

	tampered := append([]byte{}, tag...)
	tampered[0] ^= 0xFF

	_, err = algorithm.V1.Decrypt(priv, ephemeralPub, iv, tampered, ciphertext)
	assert.Error(t, err)
}

func TestV1DigestIsDeterministic(t *testing.T) {
	data := []byte("repeatable input")
	assert.Equal(t, algorithm.V1.Digest(data), algorithm.V1.Digest(data))
}
