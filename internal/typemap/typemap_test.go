package typemap

import (
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/factgrid/factgrid/internal/catalog"
	"github.com/factgrid/factgrid/internal/edn"
)

func TestColMappingIsTotal(t *testing.T) {
	for _, vt := range catalog.ValueTypes {
		ct := Col(vt)
		require.NotEmpty(t, ct, "no column type for %s", vt)

		back, ok := Value(ct)
		require.True(t, ok, "no value type for %s", ct)
		assert.Equal(t, vt, back, "round trip for %s", vt)
	}
}

func TestSyntheticColTypesMapToRef(t *testing.T) {
	for _, ct := range []ColType{ColPK, ColFK, ColPathFK} {
		vt, ok := Value(ct)
		require.True(t, ok)
		assert.Equal(t, catalog.TypeRef, vt)
	}
}

func TestSentinelRoundTrip(t *testing.T) {
	for _, vt := range catalog.ValueTypes {
		s := Sentinel(vt)
		require.NotNil(t, s, "no sentinel for %s", vt)
		assert.True(t, IsSentinel(vt, s), "sentinel for %s does not self-match", vt)
	}
}

// Sentinels must never collide with the domain values used across the test
// suites, except the documented boolean case.
func TestSentinelAvoidsDomainValues(t *testing.T) {
	tests := []struct {
		vt catalog.ValueType
		v  any
	}{
		{catalog.TypeString, "Los Angeles"},
		{catalog.TypeString, ""},
		{catalog.TypeKeyword, edn.MustKeyword("gender/male")},
		{catalog.TypeKeyword, edn.Symbol("other.symbol")},
		{catalog.TypeLong, int64(0)},
		{catalog.TypeLong, int64(-1)},
		{catalog.TypeRef, int64(17592186045418)},
		{catalog.TypeBigInt, big.NewInt(0)},
		{catalog.TypeFloat, float32(0)},
		{catalog.TypeDouble, float64(0)},
		{catalog.TypeDecimal, apd.New(0, 0)},
		{catalog.TypeInstant, time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)},
		{catalog.TypeUUID, uuid.MustParse("4f1f6a42-3e5b-4fae-aa27-ada7a9a2b10c")},
		{catalog.TypeURI, "https://example.com"},
		{catalog.TypeBytes, []byte{0}},
	}
	for _, tt := range tests {
		assert.False(t, IsSentinel(tt.vt, tt.v), "%s: %v misread as sentinel", tt.vt, tt.v)
	}
}

func TestUnwrapOrNull(t *testing.T) {
	assert.Nil(t, UnwrapOrNull(catalog.TypeString, "factgrid.nil"))
	assert.Equal(t, "Torvalds", UnwrapOrNull(catalog.TypeString, "Torvalds"))
	assert.Nil(t, UnwrapOrNull(catalog.TypeLong, int64(math.MinInt64)))
	assert.Equal(t, int64(42), UnwrapOrNull(catalog.TypeLong, int64(42)))
	assert.Nil(t, UnwrapOrNull(catalog.TypeInstant, time.Unix(0, 0).UTC()))
	assert.Nil(t, UnwrapOrNull(catalog.TypeUUID, uuid.Nil))
	assert.Nil(t, UnwrapOrNull(catalog.TypeBytes, []byte{}))
	assert.Nil(t, UnwrapOrNull(catalog.TypeString, nil))
}

// The boolean sentinel is indistinguishable from a stored false, so boolean
// columns pass through untouched.
func TestUnwrapOrNullLeavesBooleans(t *testing.T) {
	assert.Equal(t, false, UnwrapOrNull(catalog.TypeBoolean, false))
	assert.Equal(t, true, UnwrapOrNull(catalog.TypeBoolean, true))
}

// Applying the unwrap twice must equal applying it once: nil stays nil,
// non-sentinel values keep passing through.
func TestUnwrapOrNullIdempotent(t *testing.T) {
	for _, vt := range catalog.ValueTypes {
		once := UnwrapOrNull(vt, Sentinel(vt))
		twice := UnwrapOrNull(vt, once)
		assert.Equal(t, once, twice, string(vt))
	}
}

func TestSentinelAllocatesFreshMutables(t *testing.T) {
	a := Sentinel(catalog.TypeBigInt).(*big.Int)
	b := Sentinel(catalog.TypeBigInt).(*big.Int)
	require.NotSame(t, a, b)
	a.SetInt64(7)
	assert.True(t, IsSentinel(catalog.TypeBigInt, b))
}
