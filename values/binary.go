package values

import (
	"fmt"
	"io"
	"strings"
)

// Binary is an octet string, canonically written as single-quoted,
// unpadded base-32 text — the encoding every AEM/signature/key field
// crosses the artifact boundary in (spec.md §4.1).
type Binary []byte

// ParseBinary parses a binary's canonical text form, including the
// surrounding single quotes.
func ParseBinary(s string) (Binary, error) {
	if !strings.HasPrefix(s, "'") || !strings.HasSuffix(s, "'") || len(s) < 2 {
		return nil, fmt.Errorf("binary must be wrapped in single quotes: %q", s)
	}
	data, err := tagEncoding.DecodeString(s[1 : len(s)-1])
	if err != nil {
		return nil, fmt.Errorf("invalid binary %q: %w", s, err)
	}
	return Binary(data), nil
}

func (b Binary) String() string {
	return "'" + tagEncoding.EncodeToString(b) + "'"
}

func (b Binary) WriteCanonical(w io.Writer) error {
	_, err := io.WriteString(w, b.String())
	return err
}
