// Package algorithm implements the notary protocol's algorithm suites
// and the registry that dispatches between them (spec.md §4.1, §4.5).
package algorithm

// Suite is a named, versioned bundle of digest/sign/verify/encrypt/
// decrypt algorithms. The notary core and SSM are polymorphic over this
// interface so a new protocol version can be added without touching
// either.
type Suite interface {
	// Version is the protocol version string this suite implements,
	// e.g. "v1".
	Version() string

	// Digest returns the cryptographic hash of data.
	Digest(data []byte) []byte

	// GenerateKey returns a fresh (public, private) key pair as raw
	// octets suitable for storage and for Sign/Verify/Encrypt/Decrypt.
	GenerateKey() (public, private []byte, err error)

	// Sign returns a detached signature over data using the private
	// scalar.
	Sign(private []byte, data []byte) ([]byte, error)

	// Verify reports whether signature is a valid signature over data
	// under public. It never returns an error for a bad signature —
	// only false.
	Verify(public []byte, data []byte, signature []byte) bool

	// Encrypt authenticated-encrypts plaintext for the holder of the
	// private key matching recipientPublic.
	Encrypt(recipientPublic []byte, plaintext []byte) (ephemeralPublic, iv, tag, ciphertext []byte, err error)

	// Decrypt reverses Encrypt using the recipient's private scalar. It
	// fails with AuthenticationFailed on a tag mismatch.
	Decrypt(private []byte, ephemeralPublic, iv, tag, ciphertext []byte) ([]byte, error)
}
