// Package values is a minimal stand-in for the structured-document value
// framework that the notary core depends on as an external capability:
// deterministic canonical serialization, typed record/value construction,
// and parsing (spec.md §9). The host application is expected to supply
// its own, richer implementation against the same interfaces; this one
// exists so the rest of the module is usable and testable standalone.
package values

import "io"

// Value is anything that can append its canonical textual encoding to a
// writer. Two values representing the same logical content must always
// produce byte-identical canonical output.
type Value interface {
	WriteCanonical(w io.Writer) error
}

// CanonicalBytes renders v's canonical encoding as a byte slice.
func CanonicalBytes(v Value) ([]byte, error) {
	var buf bytesBuffer
	if err := v.WriteCanonical(&buf); err != nil {
		return nil, err
	}
	return buf.bytes(), nil
}

// bytesBuffer avoids importing bytes.Buffer in every call site's hot
// path while keeping this file dependency-free of the rest of the
// package's parser.
type bytesBuffer struct {
	data []byte
}

func (b *bytesBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

func (b *bytesBuffer) bytes() []byte {
	return b.data
}
