//go:build !unix

package keystore

// posixModesSupported is false on platforms (e.g. Windows) where a
// requested file mode is not enforced by the kernel. Creating the store
// directory then fails with UnsupportedPlatform, so no key or certificate
// file is written; loading files that already exist is not refused.
const posixModesSupported = false
