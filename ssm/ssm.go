// Package ssm implements the security module abstraction: the sole
// holder of the notary private key (spec.md §4.3). Module is a software
// module backed by keystore.Store. It is a concrete type: notary.Core
// depends on *Module directly, and no interface type for another
// implementation (such as an HSM adapter) is defined.
package ssm

import (
	"sync"

	"github.com/go-logr/logr"

	"github.com/bali-nebula/go-digital-notary/algorithm"
	"github.com/bali-nebula/go-digital-notary/keystore"
	"github.com/bali-nebula/go-digital-notary/notaryerr"
	"github.com/bali-nebula/go-digital-notary/values"
)

const module = "ssm"

// Parameter/type names shared by every certificate, document, citation,
// and key record this module produces.
var (
	certificateType    = values.Name("/bali/notary/Certificate/v1")
	documentType       = values.Name("/bali/notary/Document/v1")
	citationType       = values.Name("/bali/notary/Citation/v1")
	keyRecordType      = values.Name("/bali/notary/NotaryKey/v1")
	defaultPermissions = values.Name("/bali/permissions/public/v1")
)

// Module is the software security module: the sole holder of the
// private key for one account. It is not safe for concurrent use by
// multiple goroutines beyond the serialization its own mutex provides,
// and it is not safe for two processes to share the same configuration
// directory (spec.md §5) — that remains a documented deployment
// constraint the module does not defend against.
type Module struct {
	mu sync.Mutex

	store     *keystore.Store
	registry  *algorithm.Registry
	accountID string
	log       logr.Logger

	active      bool
	tag         values.Tag
	version     values.Version
	protocol    string
	privateKey  []byte
	publicKey   []byte
	certificate *values.Catalog
	citation    *values.Catalog
}

// New constructs a Module rooted at {configDir}/{accountId}, dispatching
// through registry. A nil registry defaults to
// algorithm.NewDefaultRegistry(). A zero logr.Logger discards log
// output, matching the Options{Log: logr.Discard()}-by-default pattern
// this is grounded on.
func New(configDir, accountID string, registry *algorithm.Registry, logger logr.Logger) *Module {
	if registry == nil {
		registry = algorithm.NewDefaultRegistry()
	}
	return &Module{
		store:     keystore.New(configDir, accountID),
		registry:  registry,
		accountID: accountID,
		log:       logger,
	}
}

// NewDefault constructs a Module with the default algorithm registry and
// a discarding logger.
func NewDefault(configDir, accountID string) *Module {
	return New(configDir, accountID, algorithm.NewDefaultRegistry(), logr.Discard())
}

// Active reports whether the module currently holds a private key.
func (m *Module) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Initialize loads any persisted key and certificate. Calling it twice
// is equivalent to calling it once (property 9): a second call while
// already Active is a no-op.
func (m *Module) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active {
		return nil
	}
	if !m.store.Exists() {
		m.log.V(1).Info("initialize: no persisted key", "account", m.accountID)
		return nil
	}

	keyRecord, err := m.store.LoadKeyRecord()
	if err != nil {
		return notaryerr.New(module, "Initialize", notaryerr.StorageError, err)
	}
	certDoc, err := m.store.LoadCertificate()
	if err != nil {
		return notaryerr.New(module, "Initialize", notaryerr.StorageError, err)
	}

	protocolVersion, ok := keyRecord.GetVersion("$protocol")
	if !ok {
		return notaryerr.New(module, "Initialize", notaryerr.StorageError, errMissingAttribute("$protocol"))
	}
	pub, ok := keyRecord.GetBinary("$publicKey")
	if !ok {
		return notaryerr.New(module, "Initialize", notaryerr.StorageError, errMissingAttribute("$publicKey"))
	}
	priv, ok := keyRecord.GetBinary("$privateKey")
	if !ok {
		return notaryerr.New(module, "Initialize", notaryerr.StorageError, errMissingAttribute("$privateKey"))
	}
	citationVal, ok := keyRecord.Get("$certificate")
	if !ok {
		return notaryerr.New(module, "Initialize", notaryerr.StorageError, errMissingAttribute("$certificate"))
	}

	params := certDoc.Parameters()
	if params == nil {
		return notaryerr.New(module, "Initialize", notaryerr.StorageError, errMissingAttribute("certificate parameters"))
	}
	component, ok := certDoc.GetCatalog("$component")
	if !ok {
		return notaryerr.New(module, "Initialize", notaryerr.StorageError, errMissingAttribute("$component"))
	}
	certParams := component.Parameters()
	if certParams == nil {
		return notaryerr.New(module, "Initialize", notaryerr.StorageError, errMissingAttribute("certificate component parameters"))
	}
	tag, ok := certParams.GetTag("$tag")
	if !ok {
		return notaryerr.New(module, "Initialize", notaryerr.StorageError, errMissingAttribute("$tag"))
	}
	version, ok := certParams.GetVersion("$version")
	if !ok {
		return notaryerr.New(module, "Initialize", notaryerr.StorageError, errMissingAttribute("$version"))
	}

	citation, ok := citationVal.(*values.Catalog)
	if !ok {
		return notaryerr.New(module, "Initialize", notaryerr.StorageError, errMissingAttribute("$certificate citation"))
	}

	m.protocol = protocolVersion.String()
	m.publicKey = []byte(pub)
	m.privateKey = []byte(priv)
	m.certificate = certDoc
	m.citation = citation
	m.tag = tag
	m.version = version
	m.active = true

	m.log.Info("initialize: loaded key", "account", m.accountID, "tag", tag.String(), "version", version.String())
	return nil
}

// GetCertificate returns the current notary certificate Document, or
// (nil, false) if the module is Uninitialized.
func (m *Module) GetCertificate() (*values.Catalog, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active {
		return nil, false
	}
	return m.certificate, true
}

// GetCitation returns a Citation to the current certificate, or
// (nil, false) if the module is Uninitialized.
func (m *Module) GetCitation() (*values.Catalog, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active {
		return nil, false
	}
	return m.citation, true
}

// GenerateKey creates the first notary key and a self-signed genesis
// certificate. It fails with AlreadyInitialized if a key is already
// present; callers must use RotateKey instead.
func (m *Module) GenerateKey() (*values.Catalog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active {
		return nil, notaryerr.New(module, "GenerateKey", notaryerr.AlreadyInitialized, nil)
	}
	return m.generateOrRotate(false)
}

// RotateKey replaces the current key with a fresh one, issuing a new
// certificate signed by the OLD key and chained via $previous to the old
// certificate's citation (spec.md §4.3 step 6). It fails with
// UninitializedKey if no key is currently active.
func (m *Module) RotateKey() (*values.Catalog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active {
		return nil, notaryerr.New(module, "RotateKey", notaryerr.UninitializedKey, nil)
	}
	return m.generateOrRotate(true)
}

// generateOrRotate implements the ten-step generation/rotation algorithm
// of spec.md §4.3. The caller holds m.mu.
func (m *Module) generateOrRotate(isRotation bool) (*values.Catalog, error) {
	protocolVersion, suite := m.registry.Preferred()
	protocolValue, err := values.ParseVersion(protocolVersion)
	if err != nil {
		// The registry just handed us its own preferred version string;
		// it must parse under our own grammar. A failure here is a
		// suite misconfiguration, not a caller-recoverable condition.
		panic("ssm: preferred protocol version is not a valid version token: " + protocolVersion)
	}

	pubNew, privNew, err := suite.GenerateKey()
	if err != nil {
		return nil, notaryerr.New(module, "generateOrRotate", notaryerr.StorageError, err)
	}

	var tag values.Tag
	var version values.Version
	var previous values.Value = values.NONE
	var signingKey []byte
	var existingCitation *values.Catalog

	if isRotation {
		tag = m.tag
		version = m.version.Next()
		previous = m.citation
		signingKey = m.privateKey
		existingCitation = m.citation
	} else {
		tag = values.NewTag()
		version = values.InitialVersion()
		signingKey = privNew
	}

	now := values.Now()

	certificate := values.NewCatalog().
		Set("$protocol", protocolValue).
		Set("$timestamp", now).
		Set("$accountId", values.Quote(m.accountID)).
		Set("$publicKey", values.Binary(pubNew))
	certificate.WithParameters(values.NewCatalog().
		Set("$type", certificateType).
		Set("$tag", tag).
		Set("$version", version).
		Set("$permissions", defaultPermissions).
		Set("$previous", previous))

	var documentCertificateRef values.Value = values.NONE
	if isRotation {
		documentCertificateRef = existingCitation
	}

	document := values.NewCatalog().
		Set("$component", certificate).
		Set("$protocol", protocolValue).
		Set("$timestamp", now).
		Set("$certificate", documentCertificateRef)
	document.WithParameters(values.NewCatalog().Set("$type", documentType))

	signableBytes, err := values.CanonicalBytes(document)
	if err != nil {
		return nil, notaryerr.New(module, "generateOrRotate", notaryerr.StorageError, err)
	}
	signature, err := suite.Sign(signingKey, signableBytes)
	if err != nil {
		return nil, notaryerr.New(module, "generateOrRotate", notaryerr.StorageError, err)
	}
	document.Set("$signature", values.Binary(signature))

	finalBytes, err := values.CanonicalBytes(document)
	if err != nil {
		return nil, notaryerr.New(module, "generateOrRotate", notaryerr.StorageError, err)
	}
	digest := suite.Digest(finalBytes)

	citation := values.NewCatalog().
		Set("$protocol", protocolValue).
		Set("$timestamp", now).
		Set("$tag", tag).
		Set("$version", version).
		Set("$digest", values.Binary(digest))
	citation.WithParameters(values.NewCatalog().Set("$type", citationType))

	keyRecord := values.NewCatalog().
		Set("$protocol", protocolValue).
		Set("$timestamp", now).
		Set("$accountId", values.Quote(m.accountID)).
		Set("$publicKey", values.Binary(pubNew)).
		Set("$privateKey", values.Binary(privNew)).
		Set("$certificate", citation)
	keyRecord.WithParameters(values.NewCatalog().Set("$type", keyRecordType))

	// Persist atomically before any in-memory state changes (step 9).
	// The key file is committed first and the certificate second,
	// mirroring the teacher's own commit ordering (most sensitive
	// artifact first); a failure partway through leaves disk state the
	// caller must resync via Initialize, never a torn in-memory module.
	if err := m.store.SaveKeyRecord(keyRecord); err != nil {
		return nil, err
	}
	if err := m.store.SaveCertificate(document); err != nil {
		return nil, err
	}

	m.active = true
	m.tag = tag
	m.version = version
	m.protocol = protocolVersion
	m.privateKey = privNew
	m.publicKey = pubNew
	m.certificate = document
	m.citation = citation

	if isRotation {
		m.log.Info("key rotated", "account", m.accountID, "tag", tag.String(), "version", version.String())
	} else {
		m.log.Info("key generated", "account", m.accountID, "tag", tag.String(), "version", version.String())
	}

	return document, nil
}

// ForgetKey zeros the in-memory key material and deletes the persisted
// key and certificate. It is idempotent: forgetting an already-forgotten
// key succeeds.
func (m *Module) ForgetKey() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.privateKey {
		m.privateKey[i] = 0
	}
	m.privateKey = nil
	m.publicKey = nil
	m.certificate = nil
	m.citation = nil
	m.active = false

	if err := m.store.Forget(); err != nil {
		return err
	}
	m.log.Info("key forgotten", "account", m.accountID)
	return nil
}

// Sign returns a detached signature over data using the active private
// key.
func (m *Module) Sign(data []byte) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active {
		return nil, notaryerr.New(module, "Sign", notaryerr.UninitializedKey, nil)
	}
	suite, ok := m.registry.Get(m.protocol)
	if !ok {
		panic("ssm: active key's own protocol is no longer registered: " + m.protocol)
	}
	return suite.Sign(m.privateKey, data)
}

// Decrypt reverses algorithm.Suite.Encrypt using the active private key
// against the AEM record aem.
func (m *Module) Decrypt(aem *values.Catalog) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active {
		return nil, notaryerr.New(module, "Decrypt", notaryerr.UninitializedKey, nil)
	}

	protocolVersion, ok := aem.GetVersion("$protocol")
	if !ok {
		return nil, notaryerr.New(module, "Decrypt", notaryerr.MalformedComponent, errMissingAttribute("$protocol"))
	}
	suite, ok := m.registry.Get(protocolVersion.String())
	if !ok {
		return nil, notaryerr.New(module, "Decrypt", notaryerr.UnsupportedProtocol, nil)
	}

	seed, ok := aem.GetBinary("$seed")
	if !ok {
		return nil, notaryerr.New(module, "Decrypt", notaryerr.MalformedComponent, errMissingAttribute("$seed"))
	}
	iv, ok := aem.GetBinary("$iv")
	if !ok {
		return nil, notaryerr.New(module, "Decrypt", notaryerr.MalformedComponent, errMissingAttribute("$iv"))
	}
	auth, ok := aem.GetBinary("$auth")
	if !ok {
		return nil, notaryerr.New(module, "Decrypt", notaryerr.MalformedComponent, errMissingAttribute("$auth"))
	}
	ciphertext, ok := aem.GetBinary("$ciphertext")
	if !ok {
		return nil, notaryerr.New(module, "Decrypt", notaryerr.MalformedComponent, errMissingAttribute("$ciphertext"))
	}

	return suite.Decrypt(m.privateKey, seed, iv, auth, ciphertext)
}

type missingAttributeError string

func (e missingAttributeError) Error() string { return "missing attribute " + string(e) }

func errMissingAttribute(name string) error { return missingAttributeError(name) }
