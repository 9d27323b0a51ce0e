package values

import (
	"encoding/base32"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

// tagEncoding is unpadded RFC 4648 base-32, matching the binary encoding
// used for $publicKey/$signature/etc — tags and binaries share one
// alphabet so canonical bytes never need two decoders.
var tagEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Tag is a stable, randomly generated identifier — the notary key's
// $tag, or a component's owning identifier. Its canonical form is
// "#" followed by unpadded base-32 digits.
type Tag struct {
	text string
}

// NewTag generates a fresh random tag. Grounded on the direct
// uuid.New().String() identifier-generation pattern used elsewhere in
// the example corpus for stable random IDs.
func NewTag() Tag {
	id := uuid.New()
	return Tag{text: tagEncoding.EncodeToString(id[:])}
}

// ParseTag parses a tag's canonical text form, including the leading '#'.
func ParseTag(s string) (Tag, error) {
	if !strings.HasPrefix(s, "#") {
		return Tag{}, fmt.Errorf("tag must start with '#': %q", s)
	}
	return Tag{text: s[1:]}, nil
}

func (t Tag) String() string {
	return "#" + t.text
}

// Equal reports whether two tags denote the same identifier.
func (t Tag) Equal(other Tag) bool {
	return t.text == other.text
}

func (t Tag) WriteCanonical(w io.Writer) error {
	_, err := io.WriteString(w, t.String())
	return err
}
