package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/factgrid/factgrid/internal/edn"
)

func TestColumnRefString(t *testing.T) {
	tests := []struct {
		name string
		ref  ColumnRef
		want string
	}{
		{"id", IDRef{}, "id"},
		{"attr", AttrRef{Attr: edn.MustKeyword("artist/name")}, "artist/name"},
		{
			"fk",
			FKRef{Via: edn.MustKeyword("track/artist"), Target: AttrRef{Attr: edn.MustKeyword("artist/name")}},
			"track/artist->artist/name",
		},
		{
			"fk chain",
			FKRef{
				Via: edn.MustKeyword("track/medium"),
				Target: FKRef{
					Via:    edn.MustKeyword("medium/release"),
					Target: AttrRef{Attr: edn.MustKeyword("release/year")},
				},
			},
			"track/medium->medium/release->release/year",
		},
		{"fk to id", FKRef{Via: edn.MustKeyword("track/artist"), Target: IDRef{}}, "track/artist->id"},
		{"rel", RelRef{Name: "tracks"}, "tracks"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ref.String())
		})
	}
}

func TestParseColumn(t *testing.T) {
	tests := []struct {
		table   string
		name    string
		want    ColumnRef
		wantErr bool
	}{
		{"artist", "id", IDRef{}, false},
		{"artist", "name", AttrRef{Attr: edn.MustKeyword("artist/name")}, false},
		{"artist", "group/location", AttrRef{Attr: edn.MustKeyword("group/location")}, false},
		{"artist", "", nil, true},
		{"artist", "/name", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := ParseColumn(tt.table, tt.name)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ref)
		})
	}
}

func TestRequestValidate(t *testing.T) {
	name := AttrRef{Attr: edn.MustKeyword("artist/name")}

	tests := []struct {
		name    string
		req     Request
		wantErr string
	}{
		{
			name: "valid",
			req:  Request{Table: "artist", Fields: []FieldRef{{Column: name}}},
		},
		{
			name:    "missing table",
			req:     Request{Fields: []FieldRef{{Column: name}}},
			wantErr: "table is required",
		},
		{
			name:    "no fields",
			req:     Request{Table: "artist"},
			wantErr: "at least one field",
		},
		{
			name: "aggregation only is structurally fine",
			req:  Request{Table: "artist", Aggregations: []Aggregation{{Op: "count"}}},
		},
		{
			name:    "nil field column",
			req:     Request{Table: "artist", Fields: []FieldRef{{}}},
			wantErr: "no column reference",
		},
		{
			name: "nil order column",
			req: Request{
				Table:   "artist",
				Fields:  []FieldRef{{Column: name}},
				OrderBy: []Order{{}},
			},
			wantErr: "no column reference",
		},
		{
			name: "negative limit",
			req: Request{
				Table:  "artist",
				Fields: []FieldRef{{Column: name}},
				Limit:  -1,
			},
			wantErr: "negative limit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
