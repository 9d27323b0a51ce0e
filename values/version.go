package values

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Version is a dotted sequence of non-negative integers, canonically
// written "v1", "v2.3", etc. Ordering is component-wise, left to right,
// per spec.md invariant 2 ("strictly increasing in the value framework's
// version ordering").
type Version struct {
	parts []int
}

// InitialVersion returns the version assigned to the first certificate
// issued by a notary key.
func InitialVersion() Version {
	return Version{parts: []int{1}}
}

// ParseVersion parses a version's canonical text form, including the
// leading 'v'.
func ParseVersion(s string) (Version, error) {
	if !strings.HasPrefix(s, "v") {
		return Version{}, fmt.Errorf("version must start with 'v': %q", s)
	}
	fields := strings.Split(s[1:], ".")
	parts := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("invalid version component %q in %q", f, s)
		}
		parts = append(parts, n)
	}
	if len(parts) == 0 {
		return Version{}, fmt.Errorf("version has no components: %q", s)
	}
	return Version{parts: parts}, nil
}

func (v Version) String() string {
	strs := make([]string, len(v.parts))
	for i, p := range v.parts {
		strs[i] = strconv.Itoa(p)
	}
	return "v" + strings.Join(strs, ".")
}

func (v Version) WriteCanonical(w io.Writer) error {
	_, err := io.WriteString(w, v.String())
	return err
}

// Next returns the version that immediately follows v across a key
// rotation: the leading component is incremented and any sub-components
// are dropped, so rotations always produce v1, v2, v3, ... regardless of
// how a caller may have annotated a prior version with sub-components.
func (v Version) Next() Version {
	if len(v.parts) == 0 {
		return InitialVersion()
	}
	return Version{parts: []int{v.parts[0] + 1}}
}

// Compare returns -1, 0, or 1 as v is less than, equal to, or greater
// than other, comparing components left to right; a shorter sequence
// that is a prefix of a longer one is considered smaller.
func (v Version) Compare(other Version) int {
	for i := 0; i < len(v.parts) || i < len(other.parts); i++ {
		var a, b int
		if i < len(v.parts) {
			a = v.parts[i]
		}
		if i < len(other.parts) {
			b = other.parts[i]
		}
		if a != b {
			if a < b {
				return -1
			}
			return 1
		}
	}
	if len(v.parts) < len(other.parts) {
		return -1
	}
	if len(v.parts) > len(other.parts) {
		return 1
	}
	return 0
}
