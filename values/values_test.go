package values_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bali-nebula/go-digital-notary/values"
)

func TestTagRoundTrip(t *testing.T) {
	tag := values.NewTag()
	bytes, err := values.CanonicalBytes(tag)
	require.NoError(t, err)

	parsed, err := values.Parse(bytes)
	require.NoError(t, err)
	asTag, ok := parsed.(values.Tag)
	require.True(t, ok)
	assert.True(t, tag.Equal(asTag))
}

func TestVersionOrdering(t *testing.T) {
	v1 := values.InitialVersion()
	v2 := v1.Next()
	v3 := v2.Next()

	assert.Equal(t, "v1", v1.String())
	assert.Equal(t, "v2", v2.String())
	assert.Equal(t, "v3", v3.String())
	assert.Equal(t, -1, v1.Compare(v2))
	assert.Equal(t, 1, v3.Compare(v2))
	assert.Equal(t, 0, v2.Compare(v2))
}

func TestMomentRoundTrip(t *testing.T) {
	m := values.NewMoment(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	bytes, err := values.CanonicalBytes(m)
	require.NoError(t, err)

	parsed, err := values.Parse(bytes)
	require.NoError(t, err)
	asMoment, ok := parsed.(values.Moment)
	require.True(t, ok)
	assert.True(t, m.Time().Equal(asMoment.Time()))
}

func TestBinaryRoundTrip(t *testing.T) {
	b := values.Binary([]byte{0x01, 0x02, 0xff, 0x00, 0xAB})
	bytes, err := values.CanonicalBytes(b)
	require.NoError(t, err)

	parsed, err := values.Parse(bytes)
	require.NoError(t, err)
	asBinary, ok := parsed.(values.Binary)
	require.True(t, ok)
	assert.Equal(t, []byte(b), []byte(asBinary))
}

func TestCatalogRoundTripAndDeterminism(t *testing.T) {
	cat := values.NewCatalog().
		Set("$foo", values.Quote("bar")).
		Set("$tag", values.NewTag())

	params := values.NewCatalog().
		Set("$type", values.Name("/bali/notary/Certificate/v1")).
		Set("$version", values.InitialVersion())
	cat.WithParameters(params)

	first, err := values.CanonicalBytes(cat)
	require.NoError(t, err)
	second, err := values.CanonicalBytes(cat)
	require.NoError(t, err)
	assert.Equal(t, first, second, "canonical encoding must be deterministic")

	parsed, err := values.Parse(first)
	require.NoError(t, err)
	asCatalog, ok := parsed.(*values.Catalog)
	require.True(t, ok)

	roundTripped, err := values.CanonicalBytes(asCatalog)
	require.NoError(t, err)
	assert.Equal(t, first, roundTripped)
}

func TestCatalogWithoutPreservesOrderAndParameters(t *testing.T) {
	cat := values.NewCatalog().
		Set("$a", values.Quote("1")).
		Set("$signature", values.Binary([]byte{0x01})).
		Set("$b", values.Quote("2"))
	params := values.NewCatalog().Set("$tag", values.NewTag())
	cat.WithParameters(params)

	stripped := cat.Without("$signature")
	assert.Equal(t, []string{"$a", "$b"}, stripped.Keys())
	assert.Same(t, params, stripped.Parameters())
}

func TestNoneSentinel(t *testing.T) {
	bytes, err := values.CanonicalBytes(values.NONE)
	require.NoError(t, err)
	assert.Equal(t, "none", string(bytes))

	parsed, err := values.Parse(bytes)
	require.NoError(t, err)
	assert.True(t, values.IsNone(parsed))
}
