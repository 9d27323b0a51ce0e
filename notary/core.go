// Package notary implements the notarization protocol: building and
// validating notarized Documents, Citations, and AEMs, and orchestrating
// the security module that holds the signing key (spec.md §4.4).
package notary

import (
	"crypto/subtle"

	"github.com/bali-nebula/go-digital-notary/algorithm"
	"github.com/bali-nebula/go-digital-notary/notaryerr"
	"github.com/bali-nebula/go-digital-notary/ssm"
	"github.com/bali-nebula/go-digital-notary/values"
)

const module = "notary"

var (
	documentType = values.Name("/bali/notary/Document/v1")
	aemType      = values.Name("/bali/notary/AEM/v1")
)

// requiredComponentParameters are the four parameters spec.md §4.4
// requires on every component handed to Notarize.
var requiredComponentParameters = []string{"$tag", "$version", "$permissions", "$previous"}

// Core is the notary core: it builds and validates notarized documents,
// citations, and AEMs, orchestrating an ssm.Module for every operation
// that needs the private key.
type Core struct {
	module   *ssm.Module
	registry *algorithm.Registry
}

// New returns a Core backed by module and registry.
func New(module *ssm.Module, registry *algorithm.Registry) *Core {
	return &Core{module: module, registry: registry}
}

// Notarize wraps component in a signed Document envelope, citing the
// module's current certificate. component must already carry the four
// required parameters; Notarize fails with MalformedComponent otherwise,
// before any SSM state is touched.
func (c *Core) Notarize(component *values.Catalog) (*values.Catalog, error) {
	if err := validateComponent(component); err != nil {
		return nil, err
	}

	citation, ok := c.module.GetCitation()
	if !ok {
		return nil, notaryerr.New(module, "Notarize", notaryerr.UninitializedKey, nil)
	}
	protocol, ok := citation.GetVersion("$protocol")
	if !ok {
		return nil, notaryerr.New(module, "Notarize", notaryerr.StorageError, errMissingAttribute("$protocol"))
	}

	document := values.NewCatalog().
		Set("$component", component).
		Set("$protocol", protocol).
		Set("$timestamp", values.Now()).
		Set("$certificate", citation)
	document.WithParameters(values.NewCatalog().Set("$type", documentType))

	signableBytes, err := values.CanonicalBytes(document)
	if err != nil {
		return nil, notaryerr.New(module, "Notarize", notaryerr.StorageError, err)
	}
	signature, err := c.module.Sign(signableBytes)
	if err != nil {
		return nil, err
	}
	document.Set("$signature", values.Binary(signature))

	return document, nil
}

// Cite digests document's canonical bytes (using the suite named by the
// document's own $protocol) and returns a Citation to it.
func (c *Core) Cite(document *values.Catalog) (*values.Catalog, error) {
	protocol, ok := document.GetVersion("$protocol")
	if !ok {
		return nil, notaryerr.New(module, "Cite", notaryerr.MalformedComponent, errMissingAttribute("$protocol"))
	}
	suite, ok := c.registry.Get(protocol.String())
	if !ok {
		return nil, notaryerr.New(module, "Cite", notaryerr.UnsupportedProtocol, nil)
	}
	component, ok := document.GetCatalog("$component")
	if !ok {
		return nil, notaryerr.New(module, "Cite", notaryerr.MalformedComponent, errMissingAttribute("$component"))
	}
	params := component.Parameters()
	if params == nil {
		return nil, notaryerr.New(module, "Cite", notaryerr.MalformedComponent, errMissingAttribute("component parameters"))
	}
	tag, ok := params.GetTag("$tag")
	if !ok {
		return nil, notaryerr.New(module, "Cite", notaryerr.MalformedComponent, errMissingAttribute("$tag"))
	}
	version, ok := params.GetVersion("$version")
	if !ok {
		return nil, notaryerr.New(module, "Cite", notaryerr.MalformedComponent, errMissingAttribute("$version"))
	}

	documentBytes, err := values.CanonicalBytes(document)
	if err != nil {
		return nil, notaryerr.New(module, "Cite", notaryerr.StorageError, err)
	}
	digest := suite.Digest(documentBytes)

	citation := values.NewCatalog().
		Set("$protocol", protocol).
		Set("$timestamp", values.Now()).
		Set("$tag", tag).
		Set("$version", version).
		Set("$digest", values.Binary(digest))
	citation.WithParameters(values.NewCatalog().Set("$type", values.Name("/bali/notary/Citation/v1")))
	return citation, nil
}

// CitationMatches recomputes document's digest and compares it against
// citation's $digest in constant time.
func (c *Core) CitationMatches(citation, document *values.Catalog) (bool, error) {
	recomputed, err := c.Cite(document)
	if err != nil {
		return false, err
	}
	want, ok := citation.GetBinary("$digest")
	if !ok {
		return false, nil
	}
	got, ok := recomputed.GetBinary("$digest")
	if !ok {
		return false, nil
	}
	if len(want) != len(got) {
		return false, nil
	}
	return subtle.ConstantTimeCompare(want, got) == 1, nil
}

// DocumentValid reports whether document's $signature verifies under the
// public key published inside certificate's $component. It dispatches to
// the algorithm suite named by document's own $protocol; every
// recoverable mismatch (missing fields, bad signature) yields false, nil.
// Only a protocol absent from the registry is an error.
func (c *Core) DocumentValid(document, certificate *values.Catalog) (bool, error) {
	protocol, ok := document.GetVersion("$protocol")
	if !ok {
		return false, nil
	}
	suite, ok := c.registry.Get(protocol.String())
	if !ok {
		return false, notaryerr.New(module, "DocumentValid", notaryerr.UnsupportedProtocol, nil)
	}
	signature, ok := document.GetBinary("$signature")
	if !ok {
		return false, nil
	}
	signable := document.Without("$signature")
	signableBytes, err := values.CanonicalBytes(signable)
	if err != nil {
		return false, nil
	}
	publicKey, ok := extractPublicKey(certificate)
	if !ok {
		return false, nil
	}
	return suite.Verify(publicKey, signableBytes, signature), nil
}

// EncryptComponent authenticated-encrypts component for the holder of
// the private key matching certificate's public key.
func (c *Core) EncryptComponent(component *values.Catalog, certificate *values.Catalog) (*values.Catalog, error) {
	publicKey, ok := extractPublicKey(certificate)
	if !ok {
		return nil, notaryerr.New(module, "EncryptComponent", notaryerr.MalformedComponent, errMissingAttribute("$component.$publicKey"))
	}
	protocol, ok := certificate.GetVersion("$protocol")
	if !ok {
		return nil, notaryerr.New(module, "EncryptComponent", notaryerr.MalformedComponent, errMissingAttribute("$protocol"))
	}
	suite, ok := c.registry.Get(protocol.String())
	if !ok {
		return nil, notaryerr.New(module, "EncryptComponent", notaryerr.UnsupportedProtocol, nil)
	}

	plaintext, err := values.CanonicalBytes(component)
	if err != nil {
		return nil, notaryerr.New(module, "EncryptComponent", notaryerr.StorageError, err)
	}
	seed, iv, tag, ciphertext, err := suite.Encrypt(publicKey, plaintext)
	if err != nil {
		return nil, err
	}

	aem := values.NewCatalog().
		Set("$protocol", protocol).
		Set("$timestamp", values.Now()).
		Set("$seed", values.Binary(seed)).
		Set("$iv", values.Binary(iv)).
		Set("$auth", values.Binary(tag)).
		Set("$ciphertext", values.Binary(ciphertext))
	aem.WithParameters(values.NewCatalog().Set("$type", aemType))
	return aem, nil
}

// DecryptComponent decrypts aem via the module's active private key and
// parses the recovered bytes back into a Value. It fails with
// UnsupportedProtocol if aem.$protocol does not match the module's
// current protocol.
func (c *Core) DecryptComponent(aem *values.Catalog) (values.Value, error) {
	protocol, ok := aem.GetVersion("$protocol")
	if !ok {
		return nil, notaryerr.New(module, "DecryptComponent", notaryerr.MalformedComponent, errMissingAttribute("$protocol"))
	}
	citation, ok := c.module.GetCitation()
	if !ok {
		return nil, notaryerr.New(module, "DecryptComponent", notaryerr.UninitializedKey, nil)
	}
	current, ok := citation.GetVersion("$protocol")
	if !ok || protocol.String() != current.String() {
		return nil, notaryerr.New(module, "DecryptComponent", notaryerr.UnsupportedProtocol, nil)
	}

	plaintext, err := c.module.Decrypt(aem)
	if err != nil {
		return nil, err
	}
	return values.Parse(plaintext)
}

func extractPublicKey(certificate *values.Catalog) ([]byte, bool) {
	component, ok := certificate.GetCatalog("$component")
	if !ok {
		return nil, false
	}
	publicKey, ok := component.GetBinary("$publicKey")
	if !ok {
		return nil, false
	}
	return []byte(publicKey), true
}

func validateComponent(component *values.Catalog) error {
	params := component.Parameters()
	if params == nil {
		return notaryerr.New(module, "Notarize", notaryerr.MalformedComponent, errMissingAttribute("component parameters"))
	}
	for _, key := range requiredComponentParameters {
		if _, ok := params.Get(key); !ok {
			return notaryerr.New(module, "Notarize", notaryerr.MalformedComponent, errMissingAttribute(key))
		}
	}
	return nil
}

type missingAttributeError string

func (e missingAttributeError) Error() string { return "missing attribute " + string(e) }

func errMissingAttribute(name string) error { return missingAttributeError(name) }
