// Package keystore provides durable, private storage for one notary
// key and its certificate document (spec.md §4.2). It adapts the
// teacher's staged-write-then-atomic-rename pattern (write-temp, fsync,
// rename) from a PEM/X.509 pair to a canonical-record pair, and wraps
// its I/O-boundary errors with github.com/pkg/errors before handing them
// to notaryerr.New, where the ssm, notary and algorithm packages pass
// causes to notaryerr.New directly — see DESIGN.md.
package keystore

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/bali-nebula/go-digital-notary/notaryerr"
	"github.com/bali-nebula/go-digital-notary/values"
)

const (
	keyFileName  = "NotaryKey"
	certFileName = "NotaryCertificate"

	keyFileMode = 0600
	certFileMode = 0600
	dirMode      = 0700

	module = "keystore"
)

// Store is durable, single-writer storage for exactly one notary key
// and certificate, rooted at {configDir}/{accountId}/.
type Store struct {
	dir string
}

// New returns a Store rooted at the per-account directory
// {configDir}/{accountId}.
func New(configDir, accountID string) *Store {
	return &Store{dir: filepath.Join(configDir, accountID)}
}

// DefaultConfigDir returns "~/.bali/", the default configDir spec.md §6
// specifies, falling back to ".bali" relative to the current directory
// if the user's home cannot be determined.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".bali"
	}
	return filepath.Join(home, ".bali")
}

// Dir returns the store's per-account directory.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) keyPath() string  { return filepath.Join(s.dir, keyFileName) }
func (s *Store) certPath() string { return filepath.Join(s.dir, certFileName) }

// Exists reports whether both the key and certificate files are
// present — absence of either means "no key yet" and the SSM stays
// Uninitialized.
func (s *Store) Exists() bool {
	if _, err := os.Stat(s.keyPath()); err != nil {
		return false
	}
	if _, err := os.Stat(s.certPath()); err != nil {
		return false
	}
	return true
}

// ensureDir creates the per-account directory with owner-only
// permissions, refusing to proceed on platforms that cannot enforce
// POSIX file modes.
func (s *Store) ensureDir() error {
	if !posixModesSupported {
		return notaryerr.New(module, "ensureDir", notaryerr.UnsupportedPlatform,
			errors.New("cannot enforce owner-only file permissions on this platform"))
	}
	if err := os.MkdirAll(s.dir, dirMode); err != nil {
		return notaryerr.New(module, "ensureDir", notaryerr.StorageError, errors.Wrap(err, "create config directory"))
	}
	// MkdirAll does not reliably apply mode to a pre-existing directory;
	// tighten it explicitly.
	if err := os.Chmod(s.dir, dirMode); err != nil {
		return notaryerr.New(module, "ensureDir", notaryerr.StorageError, errors.Wrap(err, "chmod config directory"))
	}
	return nil
}

// SaveKeyRecord atomically persists the NotaryKey record.
func (s *Store) SaveKeyRecord(record *values.Catalog) error {
	if err := s.ensureDir(); err != nil {
		return err
	}
	data, err := values.CanonicalBytes(record)
	if err != nil {
		return notaryerr.New(module, "SaveKeyRecord", notaryerr.StorageError, errors.Wrap(err, "encode key record"))
	}
	if err := writeFileAtomic(s.keyPath(), append(data, '\n'), keyFileMode); err != nil {
		return notaryerr.New(module, "SaveKeyRecord", notaryerr.StorageError, err)
	}
	return nil
}

// LoadKeyRecord reads and parses the NotaryKey record.
func (s *Store) LoadKeyRecord() (*values.Catalog, error) {
	data, err := os.ReadFile(s.keyPath())
	if err != nil {
		return nil, notaryerr.New(module, "LoadKeyRecord", notaryerr.StorageError, errors.Wrap(err, "read key file"))
	}
	v, err := values.Parse(data)
	if err != nil {
		return nil, notaryerr.New(module, "LoadKeyRecord", notaryerr.StorageError, errors.Wrap(err, "parse key file"))
	}
	cat, ok := v.(*values.Catalog)
	if !ok {
		return nil, notaryerr.New(module, "LoadKeyRecord", notaryerr.StorageError, errors.New("key file is not a catalog"))
	}
	return cat, nil
}

// SaveCertificate atomically persists the NotaryCertificate document.
func (s *Store) SaveCertificate(document *values.Catalog) error {
	if err := s.ensureDir(); err != nil {
		return err
	}
	data, err := values.CanonicalBytes(document)
	if err != nil {
		return notaryerr.New(module, "SaveCertificate", notaryerr.StorageError, errors.Wrap(err, "encode certificate document"))
	}
	if err := writeFileAtomic(s.certPath(), append(data, '\n'), certFileMode); err != nil {
		return notaryerr.New(module, "SaveCertificate", notaryerr.StorageError, err)
	}
	return nil
}

// LoadCertificate reads and parses the NotaryCertificate document.
func (s *Store) LoadCertificate() (*values.Catalog, error) {
	data, err := os.ReadFile(s.certPath())
	if err != nil {
		return nil, notaryerr.New(module, "LoadCertificate", notaryerr.StorageError, errors.Wrap(err, "read certificate file"))
	}
	v, err := values.Parse(data)
	if err != nil {
		return nil, notaryerr.New(module, "LoadCertificate", notaryerr.StorageError, errors.Wrap(err, "parse certificate file"))
	}
	cat, ok := v.(*values.Catalog)
	if !ok {
		return nil, notaryerr.New(module, "LoadCertificate", notaryerr.StorageError, errors.New("certificate file is not a catalog"))
	}
	return cat, nil
}

// Export writes the certificate document's canonical bytes to dst. It
// never touches the key file — a certificate is the only artifact safe
// to hand to another party.
func (s *Store) Export(dst io.Writer) error {
	data, err := os.ReadFile(s.certPath())
	if err != nil {
		return notaryerr.New(module, "Export", notaryerr.StorageError, errors.Wrap(err, "read certificate file"))
	}
	if _, err := dst.Write(data); err != nil {
		return notaryerr.New(module, "Export", notaryerr.StorageError, errors.Wrap(err, "write certificate bytes"))
	}
	return nil
}

// ImportCertificate parses a certificate Document previously produced by
// Export from an arbitrary reader. It never touches this Store — the
// caller decides whether and where to keep a peer's certificate.
func ImportCertificate(src io.Reader) (*values.Catalog, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, notaryerr.New(module, "ImportCertificate", notaryerr.StorageError, errors.Wrap(err, "read certificate bytes"))
	}
	v, err := values.Parse(data)
	if err != nil {
		return nil, notaryerr.New(module, "ImportCertificate", notaryerr.MalformedComponent, errors.Wrap(err, "parse certificate bytes"))
	}
	cat, ok := v.(*values.Catalog)
	if !ok {
		return nil, notaryerr.New(module, "ImportCertificate", notaryerr.MalformedComponent, errors.New("certificate bytes are not a catalog"))
	}
	return cat, nil
}

// Forget deletes both the key and certificate files. Missing files are
// not an error: forgetting an already-forgotten key is idempotent.
func (s *Store) Forget() error {
	if err := removeIfExists(s.keyPath()); err != nil {
		return notaryerr.New(module, "Forget", notaryerr.StorageError, err)
	}
	if err := removeIfExists(s.certPath()); err != nil {
		return notaryerr.New(module, "Forget", notaryerr.StorageError, err)
	}
	return nil
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Wrapf(err, "remove %s", path)
	}
	return nil
}

// writeFileAtomic writes data to a temp sibling of path, fsyncs it, and
// renames it into place — adapted directly from the teacher's
// writeFileAtomic in store.go, generalized from PEM bytes to canonical
// record bytes.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmpPath := path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return errors.Wrapf(err, "open %s", tmpPath)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return errors.Wrapf(err, "write %s", tmpPath)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return errors.Wrapf(err, "fsync %s", tmpPath)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.Wrapf(err, "close %s", tmpPath)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return errors.Wrapf(err, "rename %s to %s", tmpPath, path)
	}
	return nil
}
