package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/factgrid/factgrid/internal/catalog"
	"github.com/factgrid/factgrid/internal/datalog"
	"github.com/factgrid/factgrid/internal/edn"
	"github.com/factgrid/factgrid/internal/typemap"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts.UTC()
}

// Entity ids follow seed order: dylan=1, nico=2, zimmerman=3, anon=4,
// hurricane=5, chelsea=6.
const execSeed = `
entities:
  - id: dylan
    attrs:
      artist/name: "Bob Dylan"
      artist/startYear: 1961
      artist/founded: "1961-03-11T20:00:00Z"
  - id: nico
    attrs:
      artist/name: "Nico"
      artist/startYear: 1965
  - id: zimmerman
    attrs:
      artist/name: "Blind Boy Grunt"
      artist/startYear: 1961
  - id: anon
    attrs:
      artist/startYear: 1970
  - id: hurricane
    attrs:
      track/name: "Hurricane"
      track/artist: "@dylan"
      track/tags: [folk, protest]
  - id: chelsea
    attrs:
      track/name: "Chelsea Girls"
      track/artist: "@nico"
`

func execFacts(t *testing.T) *Facts {
	t.Helper()
	s := openStore(t)
	ctx := context.Background()
	require.NoError(t, s.Seed(ctx, strings.NewReader(execSeed)))
	f, err := s.Snapshot(ctx)
	require.NoError(t, err)
	return f
}

func TestExecutePatternBindsValues(t *testing.T) {
	f := execFacts(t)
	doc := &datalog.Doc{
		Find: []datalog.Var{"?artist|artist|name"},
		Where: []datalog.Clause{
			datalog.Pattern{E: "?artist", A: edn.MustKeyword("artist/name"), V: datalog.Var("?artist|artist|name")},
		},
		Select: []datalog.SelectSpec{
			datalog.SelectVar{Var: "?artist|artist|name"},
		},
	}

	rows, err := f.Execute(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, [][]any{
		{"Bob Dylan"},
		{"Nico"},
		{"Blind Boy Grunt"},
	}, rows)
}

func TestExecuteLiteralValueTakesIndexPath(t *testing.T) {
	f := execFacts(t)
	doc := &datalog.Doc{
		Find: []datalog.Var{"?artist"},
		Where: []datalog.Clause{
			datalog.Pattern{E: "?artist", A: edn.MustKeyword("artist/name"), V: "Nico"},
		},
		Select: []datalog.SelectSpec{
			datalog.SelectField{Var: "?artist", Attr: edn.MustKeyword("artist/startYear"), Type: catalog.TypeLong},
		},
	}

	rows, err := f.Execute(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []any{int64(1965)}, rows[0][0])
}

func TestExecuteBindDefaultKeepsAbsentEntities(t *testing.T) {
	f := execFacts(t)
	doc := &datalog.Doc{
		Find: []datalog.Var{"?artist", "?artist|artist|name"},
		Where: []datalog.Clause{
			datalog.Pattern{E: "?artist", A: edn.MustKeyword("artist/startYear")},
			datalog.BindDefault{
				E:       "?artist",
				A:       edn.MustKeyword("artist/name"),
				Default: typemap.Sentinel(catalog.TypeString),
				To:      "?artist|artist|name",
			},
		},
		Select: []datalog.SelectSpec{
			datalog.SelectVar{Var: "?artist|artist|name"},
		},
	}

	rows, err := f.Execute(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Bob Dylan", rows[0][0])
	// anon has no name, so the sentinel survives as the binding.
	assert.Equal(t, typemap.Sentinel(catalog.TypeString), rows[3][0])
}

func TestExecutePredicates(t *testing.T) {
	f := execFacts(t)
	nameClauses := []datalog.Clause{
		datalog.Pattern{E: "?artist", A: edn.MustKeyword("artist/name"), V: datalog.Var("?name")},
	}
	yearClauses := []datalog.Clause{
		datalog.Pattern{E: "?artist", A: edn.MustKeyword("artist/startYear"), V: datalog.Var("?year")},
	}

	run := func(t *testing.T, where []datalog.Clause, sel datalog.Var) ([][]any, error) {
		t.Helper()
		return f.Execute(context.Background(), &datalog.Doc{
			Find:   []datalog.Var{sel},
			Where:  where,
			Select: []datalog.SelectSpec{datalog.SelectVar{Var: sel}},
		})
	}

	t.Run("greater than", func(t *testing.T) {
		where := append(yearClauses, datalog.Pred{Op: ">", Args: []any{datalog.Var("?year"), int64(1961)}})
		rows, err := run(t, where, "?year")
		require.NoError(t, err)
		assert.Equal(t, [][]any{{int64(1965)}, {int64(1970)}}, rows)
	})

	t.Run("str-includes?", func(t *testing.T) {
		where := append(nameClauses, datalog.Pred{Op: "str-includes?", Args: []any{datalog.Var("?name"), "Boy"}})
		rows, err := run(t, where, "?name")
		require.NoError(t, err)
		assert.Equal(t, [][]any{{"Blind Boy Grunt"}}, rows)
	})

	t.Run("not=", func(t *testing.T) {
		where := append(yearClauses, datalog.Pred{Op: "not=", Args: []any{datalog.Var("?year"), int64(1961)}})
		rows, err := run(t, where, "?year")
		require.NoError(t, err)
		assert.Equal(t, [][]any{{int64(1965)}, {int64(1970)}}, rows)
	})

	t.Run("incomparable operands", func(t *testing.T) {
		where := append(nameClauses, datalog.Pred{Op: "<", Args: []any{datalog.Var("?name"), int64(3)}})
		_, err := run(t, where, "?name")
		require.Error(t, err)
		assert.True(t, IsExec(err))
	})

	t.Run("unbound operand", func(t *testing.T) {
		where := append(nameClauses, datalog.Pred{Op: "=", Args: []any{datalog.Var("?ghost"), int64(3)}})
		_, err := run(t, where, "?name")
		require.Error(t, err)
		assert.True(t, IsExec(err))
	})
}

func TestExecuteDeduplicatesFindTuples(t *testing.T) {
	f := execFacts(t)
	doc := &datalog.Doc{
		Find: []datalog.Var{"?year"},
		Where: []datalog.Clause{
			datalog.Pattern{E: "?artist", A: edn.MustKeyword("artist/startYear"), V: datalog.Var("?year")},
		},
		Select: []datalog.SelectSpec{datalog.SelectVar{Var: "?year"}},
	}

	// Dylan and zimmerman share 1961; set semantics keep one tuple.
	rows, err := f.Execute(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(1961)}, {int64(1965)}, {int64(1970)}}, rows)
}

func TestExecuteOrJoinEmulatesOuterJoin(t *testing.T) {
	f := execFacts(t)
	sentinel := typemap.Sentinel(catalog.TypeKeyword)
	doc := &datalog.Doc{
		Find: []datalog.Var{"?track", "?tag"},
		Where: []datalog.Clause{
			datalog.Pattern{E: "?track", A: edn.MustKeyword("track/name")},
			datalog.OrJoin{
				Unify: []datalog.Var{"?track", "?tag"},
				Branches: []datalog.Clause{
					datalog.Pattern{E: "?track", A: edn.MustKeyword("track/tags"), V: datalog.Var("?tag")},
					datalog.AndGroup{Clauses: []datalog.Clause{
						datalog.Missing{E: "?track", A: edn.MustKeyword("track/tags")},
						datalog.Ground{Value: sentinel, To: "?tag"},
					}},
				},
			},
		},
		Select: []datalog.SelectSpec{datalog.SelectVar{Var: "?tag"}},
	}

	rows, err := f.Execute(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, [][]any{
		{edn.MustKeyword("folk")},
		{edn.MustKeyword("protest")},
		{sentinel},
	}, rows)
}

func TestExecuteNotJoinProvesAbsence(t *testing.T) {
	f := execFacts(t)
	doc := &datalog.Doc{
		Find: []datalog.Var{"?artist"},
		Where: []datalog.Clause{
			datalog.Pattern{E: "?artist", A: edn.MustKeyword("artist/startYear")},
			datalog.NotJoin{
				Vars: []datalog.Var{"?artist"},
				Clauses: []datalog.Clause{
					datalog.Pattern{E: "?track", A: edn.MustKeyword("track/artist"), V: datalog.Var("?artist")},
				},
			},
		},
		Select: []datalog.SelectSpec{datalog.SelectVar{Var: "?artist"}},
	}

	// zimmerman and anon have no tracks referencing them.
	rows, err := f.Execute(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(3)}, {int64(4)}}, rows)
}

func TestExecuteDateTruncPassesRawInstant(t *testing.T) {
	f := execFacts(t)
	doc := &datalog.Doc{
		Find: []datalog.Var{"?artist"},
		Where: []datalog.Clause{
			datalog.Pattern{E: "?artist", A: edn.MustKeyword("artist/name"), V: "Bob Dylan"},
		},
		Select: []datalog.SelectSpec{
			datalog.SelectDateTrunc{
				Of:   datalog.SelectField{Var: "?artist", Attr: edn.MustKeyword("artist/founded"), Type: catalog.TypeInstant},
				Unit: datalog.TruncMonth,
			},
		},
	}

	// Truncation belongs to post-processing; extraction is verbatim.
	rows, err := f.Execute(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []any{mustTime(t, "1961-03-11T20:00:00Z")}, rows[0][0])
}

func TestExecuteUnknownAttribute(t *testing.T) {
	f := execFacts(t)
	doc := &datalog.Doc{
		Find: []datalog.Var{"?e"},
		Where: []datalog.Clause{
			datalog.Pattern{E: "?e", A: edn.MustKeyword("venue/name")},
		},
		Select: []datalog.SelectSpec{datalog.SelectVar{Var: "?e"}},
	}

	_, err := f.Execute(context.Background(), doc)
	require.Error(t, err)
	assert.True(t, IsExec(err))
	assert.Contains(t, err.Error(), "venue/name")
}

func TestExecuteHonorsContext(t *testing.T) {
	f := execFacts(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Execute(ctx, &datalog.Doc{
		Find: []datalog.Var{"?e"},
		Where: []datalog.Clause{
			datalog.Pattern{E: "?e", A: edn.MustKeyword("artist/name")},
		},
		Select: []datalog.SelectSpec{datalog.SelectVar{Var: "?e"}},
	})
	assert.ErrorIs(t, err, context.Canceled)
}
