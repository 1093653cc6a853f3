package query

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/factgrid/factgrid/internal/edn"
)

func decode(t *testing.T, src string) *Request {
	t.Helper()
	req, err := DecodeRequest(strings.NewReader(src))
	require.NoError(t, err)
	return req
}

func TestDecodeRequestBasic(t *testing.T) {
	req := decode(t, `
table: artist
fields:
  - column: id
  - column: name
    breakout: true
  - column: group/location
limit: 25
`)

	assert.Equal(t, "artist", req.Table)
	assert.Equal(t, 25, req.Limit)
	require.Len(t, req.Fields, 3)

	assert.Equal(t, IDRef{}, req.Fields[0].Column)
	assert.False(t, req.Fields[0].Breakout)

	assert.Equal(t, AttrRef{Attr: edn.MustKeyword("artist/name")}, req.Fields[1].Column)
	assert.True(t, req.Fields[1].Breakout)

	assert.Equal(t, AttrRef{Attr: edn.MustKeyword("group/location")}, req.Fields[2].Column)
}

func TestDecodeRequestColumnForms(t *testing.T) {
	req := decode(t, `
table: track
fields:
  - fk:
      via: track/artist
      column: artist/name
  - fk:
      via: track/medium
      fk:
        via: medium/release
        column: release/year
  - fk:
      via: track/artist
      column: id
  - rel: covers
`)

	require.Len(t, req.Fields, 4)
	assert.Equal(t, FKRef{
		Via:    edn.MustKeyword("track/artist"),
		Target: AttrRef{Attr: edn.MustKeyword("artist/name")},
	}, req.Fields[0].Column)
	assert.Equal(t, FKRef{
		Via: edn.MustKeyword("track/medium"),
		Target: FKRef{
			Via:    edn.MustKeyword("medium/release"),
			Target: AttrRef{Attr: edn.MustKeyword("release/year")},
		},
	}, req.Fields[1].Column)
	assert.Equal(t, FKRef{Via: edn.MustKeyword("track/artist"), Target: IDRef{}}, req.Fields[2].Column)
	assert.Equal(t, RelRef{Name: "covers"}, req.Fields[3].Column)
}

func TestDecodeRequestFilterTree(t *testing.T) {
	req := decode(t, `
table: user
fields:
  - column: name
  - column: age
filter:
  op: and
  conds:
    - op: ">"
      column: age
      value: 18
    - op: or
      conds:
        - op: contains
          column: name
          value: "Ann"
        - op: not
          cond:
            op: "="
            column: name
            value: "Bob"
`)

	and, ok := req.Filter.(And)
	require.True(t, ok)
	require.Len(t, and.Conds, 2)

	gt, ok := and.Conds[0].(Gt)
	require.True(t, ok)
	assert.Equal(t, AttrRef{Attr: edn.MustKeyword("user/age")}, gt.Column)
	assert.Equal(t, int64(18), gt.Value)

	or, ok := and.Conds[1].(Or)
	require.True(t, ok)
	require.Len(t, or.Conds, 2)

	contains, ok := or.Conds[0].(Contains)
	require.True(t, ok)
	assert.Equal(t, "Ann", contains.Substr)

	not, ok := or.Conds[1].(Not)
	require.True(t, ok)
	eq, ok := not.Cond.(Eq)
	require.True(t, ok)
	assert.Equal(t, "Bob", eq.Value)
}

func TestDecodeRequestComparisonOps(t *testing.T) {
	req := decode(t, `
table: release
fields:
  - column: year
filter:
  op: and
  conds:
    - {op: "=", column: year, value: 1969}
    - {op: "!=", column: year, value: 1970}
    - {op: "<", column: year, value: 1980}
    - {op: "<=", column: year, value: 1980}
    - {op: ">=", column: year, value: 1960}
    - {op: between, column: year, lo: 1960, hi: 1980}
`)

	and := req.Filter.(And)
	require.Len(t, and.Conds, 6)
	assert.IsType(t, Eq{}, and.Conds[0])
	assert.IsType(t, NotEq{}, and.Conds[1])
	assert.IsType(t, Lt{}, and.Conds[2])
	assert.IsType(t, LtEq{}, and.Conds[3])
	assert.IsType(t, GtEq{}, and.Conds[4])

	between := and.Conds[5].(Between)
	assert.Equal(t, int64(1960), between.Lo)
	assert.Equal(t, int64(1980), between.Hi)
}

func TestDecodeRequestTimestampValue(t *testing.T) {
	req := decode(t, `
table: artist
fields:
  - column: born
filter:
  op: "<"
  column: born
  value: 1950-01-01T00:00:00Z
`)

	lt := req.Filter.(Lt)
	ts, ok := lt.Value.(time.Time)
	require.True(t, ok, "yaml timestamps decode to time.Time, got %T", lt.Value)
	assert.Equal(t, 1950, ts.Year())
}

func TestDecodeRequestOrderAndAggregations(t *testing.T) {
	req := decode(t, `
table: artist
fields:
  - column: name
aggregations:
  - op: count
order:
  - column: name
    desc: true
  - column: id
`)

	require.Len(t, req.Aggregations, 1)
	assert.Equal(t, "count", req.Aggregations[0].Op)
	assert.Nil(t, req.Aggregations[0].Column)

	require.Len(t, req.OrderBy, 2)
	assert.True(t, req.OrderBy[0].Desc)
	assert.Equal(t, AttrRef{Attr: edn.MustKeyword("artist/name")}, req.OrderBy[0].Column)
	assert.False(t, req.OrderBy[1].Desc)
	assert.Equal(t, IDRef{}, req.OrderBy[1].Column)
}

func TestDecodeRequestTrunc(t *testing.T) {
	req := decode(t, `
table: track
fields:
  - column: released
    trunc: month
order:
  - column: released
    trunc: month
    desc: true
`)

	require.Len(t, req.Fields, 1)
	assert.Equal(t, "month", req.Fields[0].Trunc)

	require.Len(t, req.OrderBy, 1)
	assert.Equal(t, "month", req.OrderBy[0].Trunc)
	assert.True(t, req.OrderBy[0].Desc)
}

func TestDecodeRequestErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "unknown top-level field",
			src:  "table: artist\nfeilds:\n  - column: name\n",
			want: "field feilds not found",
		},
		{
			name: "unknown filter operator",
			src: `
table: artist
fields:
  - column: name
filter:
  op: like
  column: name
  value: x
`,
			want: "unknown filter operator",
		},
		{
			name: "two column forms at once",
			src: `
table: artist
fields:
  - column: name
    rel: tracks
`,
			want: "exactly one of column, fk, rel",
		},
		{
			name: "fk without target",
			src: `
table: track
fields:
  - fk:
      via: track/artist
`,
			want: "target column is required",
		},
		{
			name: "fk target must be namespaced",
			src: `
table: track
fields:
  - fk:
      via: track/artist
      column: name
`,
			want: "namespaced attribute",
		},
		{
			name: "contains needs string",
			src: `
table: artist
fields:
  - column: name
filter:
  op: contains
  column: name
  value: 7
`,
			want: "must be a string",
		},
		{
			name: "no fields",
			src:  "table: artist\n",
			want: "at least one field",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeRequest(strings.NewReader(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
