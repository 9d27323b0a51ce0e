package notary_test

import (
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bali-nebula/go-digital-notary/algorithm"
	"github.com/bali-nebula/go-digital-notary/notary"
	"github.com/bali-nebula/go-digital-notary/notaryerr"
	"github.com/bali-nebula/go-digital-notary/ssm"
	"github.com/bali-nebula/go-digital-notary/values"
)

func newCore(t *testing.T) (*notary.Core, *ssm.Module) {
	t.Helper()
	dir := t.TempDir()
	registry := algorithm.NewDefaultRegistry()
	module := ssm.New(dir, "acme", registry, logr.Discard())
	_, err := module.GenerateKey()
	require.NoError(t, err)
	return notary.New(module, registry), module
}

func newComponent() *values.Catalog {
	component := values.NewCatalog().
		Set("$amount", values.Quote("100"))
	component.WithParameters(values.NewCatalog().
		Set("$tag", values.NewTag()).
		Set("$version", values.InitialVersion()).
		Set("$permissions", values.Name("/bali/permissions/public/v1")).
		Set("$previous", values.NONE))
	return component
}

func TestNotarizeProducesVerifiableDocument(t *testing.T) {
	core, module := newCore(t)
	component := newComponent()

	document, err := core.Notarize(component)
	require.NoError(t, err)

	certificate, ok := module.GetCertificate()
	require.True(t, ok)

	valid, err := core.DocumentValid(document, certificate)
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestNotarizeRejectsComponentMissingParameters(t *testing.T) {
	core, _ := newCore(t)
	component := values.NewCatalog().Set("$amount", values.Quote("100"))

	_, err := core.Notarize(component)
	require.Error(t, err)
	assert.True(t, notaryerr.Is(err, notaryerr.MalformedComponent))
}

func TestDocumentValidFailsOnTamperedSignature(t *testing.T) {
	core, module := newCore(t)
	component := newComponent()

	document, err := core.Notarize(component)
	require.NoError(t, err)
	certificate, ok := module.GetCertificate()
	require.True(t, ok)

	signature, ok := document.GetBinary("$signature")
	require.True(t, ok)
	tampered := append([]byte(nil), signature...)
	tampered[0] ^= 0xFF
	document.Set("$signature", values.Binary(tampered))

	valid, err := core.DocumentValid(document, certificate)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestCiteAndCitationMatchesRoundTrip(t *testing.T) {
	core, _ := newCore(t)
	document, err := core.Notarize(newComponent())
	require.NoError(t, err)

	citation, err := core.Cite(document)
	require.NoError(t, err)

	matches, err := core.CitationMatches(citation, document)
	require.NoError(t, err)
	assert.True(t, matches)
}

func TestCitationMatchesFailsOnDifferentDocument(t *testing.T) {
	core, _ := newCore(t)
	documentA, err := core.Notarize(newComponent())
	require.NoError(t, err)
	documentB, err := core.Notarize(newComponent())
	require.NoError(t, err)

	citation, err := core.Cite(documentA)
	require.NoError(t, err)

	matches, err := core.CitationMatches(citation, documentB)
	require.NoError(t, err)
	assert.False(t, matches)
}

func TestEncryptDecryptComponentRoundTrip(t *testing.T) {
	core, module := newCore(t)
	certificate, ok := module.GetCertificate()
	require.True(t, ok)

	secret := values.NewCatalog().Set("$message", values.Quote("hello"))

	aem, err := core.EncryptComponent(secret, certificate)
	require.NoError(t, err)

	recovered, err := core.DecryptComponent(aem)
	require.NoError(t, err)

	recoveredBytes, err := values.CanonicalBytes(recovered)
	require.NoError(t, err)
	secretBytes, err := values.CanonicalBytes(secret)
	require.NoError(t, err)
	assert.Equal(t, secretBytes, recoveredBytes)
}

func TestDecryptComponentFailsOnTamperedCiphertext(t *testing.T) {
	core, module := newCore(t)
	certificate, ok := module.GetCertificate()
	require.True(t, ok)

	secret := values.NewCatalog().Set("$message", values.Quote("hello"))
	aem, err := core.EncryptComponent(secret, certificate)
	require.NoError(t, err)

	ciphertext, ok := aem.GetBinary("$ciphertext")
	require.True(t, ok)
	tampered := append([]byte(nil), ciphertext...)
	tampered[0] ^= 0xFF
	aem.Set("$ciphertext", values.Binary(tampered))

	_, err = core.DecryptComponent(aem)
	assert.Error(t, err)
}

func TestChainValidAcceptsGenesisCertificate(t *testing.T) {
	core, module := newCore(t)
	certificate, ok := module.GetCertificate()
	require.True(t, ok)

	valid, err := core.ChainValid(certificate, func(*values.Catalog) (*values.Catalog, bool) {
		return nil, false
	})
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestChainValidWalksRotationBackToGenesis(t *testing.T) {
	dir := t.TempDir()
	registry := algorithm.NewDefaultRegistry()
	module := ssm.New(dir, "acme", registry, logr.Discard())
	_, err := module.GenerateKey()
	require.NoError(t, err)
	genesis, ok := module.GetCertificate()
	require.True(t, ok)

	rotated, err := module.RotateKey()
	require.NoError(t, err)

	core := notary.New(module, registry)

	resolve := func(citation *values.Catalog) (*values.Catalog, bool) {
		matches, err := core.CitationMatches(citation, genesis)
		if err == nil && matches {
			return genesis, true
		}
		return nil, false
	}

	valid, err := core.ChainValid(rotated, resolve)
	require.NoError(t, err)
	assert.True(t, valid)
}
