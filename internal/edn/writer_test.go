package edn

import (
	"math/big"
	"testing"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeyword(t *testing.T) {
	tests := []struct {
		in      string
		want    Keyword
		wantErr bool
	}{
		{in: "artist/name", want: Keyword{Namespace: "artist", Name: "name"}},
		{in: ":artist/name", want: Keyword{Namespace: "artist", Name: "name"}},
		{in: "name", want: Keyword{Name: "name"}},
		{in: "db.sys/ident", want: Keyword{Namespace: "db.sys", Name: "ident"}},
		{in: "group/location/extra", want: Keyword{Namespace: "group", Name: "location/extra"}},
		{in: "", wantErr: true},
		{in: "/name", wantErr: true},
		{in: "artist/", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKeyword(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKeywordString(t *testing.T) {
	assert.Equal(t, ":artist/name", Keyword{Namespace: "artist", Name: "name"}.String())
	assert.Equal(t, ":name", Keyword{Name: "name"}.String())
	assert.Equal(t, "artist/name", Keyword{Namespace: "artist", Name: "name"}.Lexical())
}

func TestKeywordCompare(t *testing.T) {
	a := MustKeyword("artist/name")
	b := MustKeyword("artist/startYear")
	c := MustKeyword("group/location")
	assert.Negative(t, a.Compare(b))
	assert.Negative(t, b.Compare(c))
	assert.Zero(t, a.Compare(a))
	assert.Positive(t, c.Compare(a))
}

func TestMarshalScalars(t *testing.T) {
	ts := time.Date(2015, 4, 18, 23, 2, 3, 120e6, time.UTC)
	id := uuid.MustParse("4f1f6a42-3e5b-4fae-aa27-ada7a9a2b10c")
	dec, _, err := apd.NewFromString("12.75")
	require.NoError(t, err)

	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "nil"},
		{"true", true, "true"},
		{"false", false, "false"},
		{"string", "Los Angeles", `"Los Angeles"`},
		{"escaped", "line\nbreak", `"line\nbreak"`},
		{"int", int64(42), "42"},
		{"negative", int64(-9223372036854775808), "-9223372036854775808"},
		{"float", 1.5, "1.5"},
		{"float-whole", float64(3), "3.0"},
		{"float32", float32(2.5), "2.5"},
		{"bigint", big.NewInt(77), "77N"},
		{"decimal", dec, "12.75M"},
		{"instant", ts, `#inst "2015-04-18T23:02:03.120Z"`},
		{"uuid", id, `#uuid "4f1f6a42-3e5b-4fae-aa27-ada7a9a2b10c"`},
		{"bytes", []byte{0xde, 0xad}, `#bytes "3q0="`},
		{"keyword", MustKeyword("gender/male"), ":gender/male"},
		{"symbol", Symbol("?artist|artist|name"), "?artist|artist|name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalString(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMarshalCollections(t *testing.T) {
	got, err := MarshalString(Vector{Symbol("?e"), MustKeyword("artist/name"), Symbol("?v")})
	require.NoError(t, err)
	assert.Equal(t, "[?e :artist/name ?v]", got)

	got, err = MarshalString(List{Symbol("or"), Vector{Symbol("?e"), MustKeyword("artist/name")}})
	require.NoError(t, err)
	assert.Equal(t, "(or [?e :artist/name])", got)
}

func TestMarshalMapSortsKeys(t *testing.T) {
	m := Map{
		MustKeyword("find"):  Vector{Symbol("?a")},
		MustKeyword("where"): Vector{},
		MustKeyword("limit"): int64(10),
	}
	got, err := MarshalString(m)
	require.NoError(t, err)
	assert.Equal(t, "{:find [?a], :limit 10, :where []}", got)
}

func TestMarshalDeterministic(t *testing.T) {
	m := Map{
		MustKeyword("b"): int64(2),
		MustKeyword("a"): int64(1),
		MustKeyword("c"): Vector{"x", "y"},
	}
	first, err := MarshalString(m)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		again, err := MarshalString(m)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestMarshalNormalizesStrings(t *testing.T) {
	// Decomposed e + combining acute accent normalizes to the composed form.
	decomposed := "Café"
	composed := "Café"
	got, err := MarshalString(decomposed)
	require.NoError(t, err)
	want, err := MarshalString(composed)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestMarshalRejectsUnknownTypes(t *testing.T) {
	type opaque struct{ x int }
	_, err := Marshal(opaque{x: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported value type")
}
