//go:build unix

package keystore

// posixModesSupported is true on platforms where os.FileMode's owner-only
// bits (0600/0700) are actually enforced by the kernel.
const posixModesSupported = true
