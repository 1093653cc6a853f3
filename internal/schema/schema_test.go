package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/factgrid/factgrid/internal/catalog"
	"github.com/factgrid/factgrid/internal/edn"
	"github.com/factgrid/factgrid/internal/relcfg"
	"github.com/factgrid/factgrid/internal/typemap"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New([]catalog.Attribute{
		{Ident: edn.MustKeyword("artist/name"), Type: catalog.TypeString, Unique: true},
		{Ident: edn.MustKeyword("artist/startYear"), Type: catalog.TypeLong},
		{Ident: edn.MustKeyword("group/location"), Type: catalog.TypeString},
		{Ident: edn.MustKeyword("track/name"), Type: catalog.TypeString},
		{Ident: edn.MustKeyword("track/artist"), Type: catalog.TypeRef},
		{Ident: edn.MustKeyword("track/tags"), Type: catalog.TypeKeyword, Cardinality: catalog.Many},
		{Ident: edn.MustKeyword("db/ident"), Type: catalog.TypeKeyword, Unique: true},
		{Ident: edn.MustKeyword("db.install/attribute"), Type: catalog.TypeRef, Cardinality: catalog.Many},
	})
	require.NoError(t, err)
	return cat
}

func fieldNames(cols []Field) []string {
	names := make([]string, len(cols))
	for i, f := range cols {
		names[i] = f.Name
	}
	return names
}

func TestTablesExcludeReservedNamespaces(t *testing.T) {
	tables := Tables(testCatalog(t), relcfg.Empty())

	names := make([]string, len(tables))
	for i, tb := range tables {
		names[i] = tb.Name
	}
	assert.Equal(t, []string{"artist", "group", "track"}, names)
}

func TestColumnsNamespaceMatched(t *testing.T) {
	cols, err := Columns(testCatalog(t), relcfg.Empty(), "artist")
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "name", "startYear"}, fieldNames(cols))

	id := cols[0]
	assert.True(t, id.PK)
	assert.Equal(t, catalog.TypeRef, id.Type)
	assert.Equal(t, typemap.ColPK, id.Col)
	assert.True(t, id.Attr.IsZero())

	name := cols[1]
	assert.Equal(t, edn.MustKeyword("artist/name"), name.Attr)
	assert.Equal(t, catalog.TypeString, name.Type)
	assert.Equal(t, typemap.ColText, name.Col)
	assert.False(t, name.PK)
}

func TestColumnsCooccurrence(t *testing.T) {
	co := Cooccurrence{
		"artist": {
			edn.MustKeyword("group/location"),
			edn.MustKeyword("group/location"), // scan may repeat
			edn.MustKeyword("artist/name"),    // own namespace, already present
			edn.MustKeyword("db/ident"),       // reserved, never a field
		},
	}

	cols, err := Columns(testCatalog(t), relcfg.Empty(), "artist", WithCooccurrence(co))
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "startYear", "group/location"}, fieldNames(cols))

	loc := cols[3]
	assert.Equal(t, edn.MustKeyword("group/location"), loc.Attr)
	assert.Equal(t, "group/location", loc.Name)
}

func TestColumnsSchemaOnlyDegradation(t *testing.T) {
	// Without a scan the field set is namespace-matched only.
	cols, err := Columns(testCatalog(t), relcfg.Empty(), "artist")
	require.NoError(t, err)
	assert.NotContains(t, fieldNames(cols), "group/location")
}

func TestColumnsCooccurrenceUnknownAttributeSkipped(t *testing.T) {
	co := Cooccurrence{"artist": {edn.MustKeyword("phantom/attr")}}
	cols, err := Columns(testCatalog(t), relcfg.Empty(), "artist", WithCooccurrence(co))
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "startYear"}, fieldNames(cols))
}

func TestColumnsRelationshipFields(t *testing.T) {
	rels, err := relcfg.New([]relcfg.Relationship{
		{
			Source: "artist",
			Name:   "tracks",
			Dest:   "track",
			Path:   []relcfg.Hop{{Attr: edn.MustKeyword("track/artist"), Reverse: true}},
		},
	})
	require.NoError(t, err)

	cols, err := Columns(testCatalog(t), rels, "artist")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "startYear", "tracks"}, fieldNames(cols))

	tracks := cols[3]
	assert.Equal(t, typemap.ColPathFK, tracks.Col)
	assert.Equal(t, catalog.TypeRef, tracks.Type)
	assert.Equal(t, catalog.Many, tracks.Cardinality)
	require.NotNil(t, tracks.Rel)
	assert.Equal(t, "track", tracks.Rel.Dest)
}

func TestColumnsUnknownTable(t *testing.T) {
	_, err := Columns(testCatalog(t), relcfg.Empty(), "venue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown table "venue"`)

	_, err = Columns(testCatalog(t), relcfg.Empty(), "db")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reserved")
}

// The schema {artist/name, artist/startYear, group/location} observed on
// one entity yields table "artist" with fields name, startYear and
// "group/location", and table "group" with field "location".
func TestSharedEntityNamespaces(t *testing.T) {
	cat, err := catalog.New([]catalog.Attribute{
		{Ident: edn.MustKeyword("artist/name"), Type: catalog.TypeString},
		{Ident: edn.MustKeyword("artist/startYear"), Type: catalog.TypeLong},
		{Ident: edn.MustKeyword("group/location"), Type: catalog.TypeString},
	})
	require.NoError(t, err)

	// One entity carries all three attributes, so each namespace co-occurs
	// with the other's attributes.
	co := Cooccurrence{
		"artist": {edn.MustKeyword("group/location")},
		"group":  {edn.MustKeyword("artist/name"), edn.MustKeyword("artist/startYear")},
	}

	tables := Tables(cat, relcfg.Empty(), WithCooccurrence(co))
	require.Len(t, tables, 2)

	artist := tables[0]
	assert.Equal(t, "artist", artist.Name)
	assert.Equal(t, []string{"id", "name", "startYear", "group/location"}, fieldNames(artist.Fields))

	group := tables[1]
	assert.Equal(t, "group", group.Name)
	assert.Equal(t, []string{"id", "location", "artist/name", "artist/startYear"}, fieldNames(group.Fields))
}

func TestTablesDeterministicOrder(t *testing.T) {
	cat := testCatalog(t)
	first := Tables(cat, relcfg.Empty())
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Tables(cat, relcfg.Empty()))
	}
}

func TestLookup(t *testing.T) {
	cols, err := Columns(testCatalog(t), relcfg.Empty(), "track")
	require.NoError(t, err)

	f, ok := Lookup(cols, "artist")
	require.True(t, ok)
	assert.Equal(t, edn.MustKeyword("track/artist"), f.Attr)
	assert.Equal(t, typemap.ColFK, f.Col)

	_, ok = Lookup(cols, "nope")
	assert.False(t, ok)
}
