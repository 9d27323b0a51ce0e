package values

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// momentLayout is the canonical textual form of a Moment: UTC,
// microsecond precision, RFC 3339.
const momentLayout = "2006-01-02T15:04:05.000000Z"

// Moment is a point in time, always normalized to UTC before encoding.
type Moment struct {
	t time.Time
}

// Now returns the current instant as a Moment.
func Now() Moment {
	return Moment{t: time.Now().UTC()}
}

// NewMoment wraps an existing time.Time as a Moment.
func NewMoment(t time.Time) Moment {
	return Moment{t: t.UTC()}
}

// Time returns the underlying time.Time, in UTC.
func (m Moment) Time() time.Time {
	return m.t
}

// ParseMoment parses a moment's canonical text form, including the
// angle brackets.
func ParseMoment(s string) (Moment, error) {
	if !strings.HasPrefix(s, "<") || !strings.HasSuffix(s, ">") {
		return Moment{}, fmt.Errorf("moment must be wrapped in '<' '>': %q", s)
	}
	t, err := time.Parse(momentLayout, s[1:len(s)-1])
	if err != nil {
		return Moment{}, fmt.Errorf("invalid moment %q: %w", s, err)
	}
	return Moment{t: t.UTC()}, nil
}

func (m Moment) String() string {
	return "<" + m.t.Format(momentLayout) + ">"
}

func (m Moment) WriteCanonical(w io.Writer) error {
	_, err := io.WriteString(w, m.String())
	return err
}
