// Package postprocess turns raw executor rows into final tabular output.
//
// Four transformations apply in fixed order: cartesian expansion of
// multi-valued entity-lookup columns (an empty value set becomes one null,
// emulating a left outer join), sentinel-to-null reversion keyed by each
// column's declared value type, symbolic-identifier resolution for
// reference values, and a stable sort by the compiled order-by specs.
// Expansion runs first because sort keys depend on expanded values;
// sorting runs last so it sees fully substituted values.
//
// The whole pipeline is a pure function of its inputs and is idempotent:
// reprocessing an already processed result changes nothing, because every
// substitution step passes resolved values through unchanged.
package postprocess

import (
	"fmt"
	"time"

	"github.com/factgrid/factgrid/internal/catalog"
	"github.com/factgrid/factgrid/internal/compile"
	"github.com/factgrid/factgrid/internal/datalog"
	"github.com/factgrid/factgrid/internal/edn"
	"github.com/factgrid/factgrid/internal/typemap"
)

// IdentSource resolves an entity id to its symbolic identifier, when the
// entity carries one. The driver backs this with a snapshot of the store's
// ident attribute; resolution must not hit the network per row.
type IdentSource interface {
	Ident(id int64) (edn.Keyword, bool)
}

// NullOrdering is the single configured policy for where nulls sort,
// applied consistently regardless of sort direction.
type NullOrdering int

const (
	NullsLast NullOrdering = iota
	NullsFirst
)

// Option adjusts post-processing.
type Option func(*options)

type options struct {
	nulls NullOrdering
}

// WithNullOrdering sets the null placement policy. The default is
// NullsLast.
func WithNullOrdering(n NullOrdering) Option {
	return func(o *options) { o.nulls = n }
}

// Process applies the full pipeline to raw executor rows. Row i of the
// input is positionally aligned with c.Doc.Select and c.Columns; a row
// that cannot be matched to the compiled metadata aborts the whole query
// with a ProcessError rather than producing partial output. The input
// rows are not mutated.
func Process(rows [][]any, c *compile.Compiled, idents IdentSource, opts ...Option) ([][]any, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if len(c.Columns) != len(c.Doc.Select) {
		return nil, &ProcessError{Row: -1, Column: -1, Message: fmt.Sprintf(
			"compiled metadata disagrees with the document: %d columns, %d select specs",
			len(c.Columns), len(c.Doc.Select))}
	}

	lookup := make([]bool, len(c.Doc.Select))
	units := make([]datalog.TruncUnit, len(c.Doc.Select))
	for i, s := range c.Doc.Select {
		lookup[i] = isLookup(s)
		units[i] = truncUnitOf(s)
	}

	out := make([][]any, 0, len(rows))
	for i, row := range rows {
		if len(row) != len(c.Columns) {
			return nil, &ProcessError{Row: i, Column: -1, Message: fmt.Sprintf(
				"row has %d values, want %d", len(row), len(c.Columns))}
		}
		expanded, err := expand(i, row, lookup)
		if err != nil {
			return nil, err
		}
		out = append(out, expanded...)
	}

	for _, row := range out {
		for j, col := range c.Columns {
			v := typemap.UnwrapOrNull(col.Type, row[j])
			// Sentinels revert before truncation: the epoch-zero sentinel
			// must never masquerade as a real truncated instant.
			if units[j] != "" {
				if t, ok := v.(time.Time); ok {
					v = truncate(t, units[j])
				}
			}
			if col.Type == catalog.TypeRef {
				v = resolveIdent(v, idents)
			}
			row[j] = v
		}
	}

	if err := sortRows(out, c, o.nulls); err != nil {
		return nil, err
	}
	return out, nil
}

// isLookup reports whether a select spec extracts through an entity id,
// the only shape that can deliver a value set per raw row.
func isLookup(s datalog.SelectSpec) bool {
	switch t := s.(type) {
	case datalog.SelectField:
		return true
	case datalog.SelectDateTrunc:
		return isLookup(t.Of)
	default:
		return false
	}
}

// expand computes the cartesian product over the row's value sets. Lookup
// columns may carry a set ([]any); an empty set contributes a single null,
// a scalar contributes itself (which keeps reprocessing idempotent). A set
// in a non-lookup column is a metadata mismatch.
func expand(rowIdx int, row []any, lookup []bool) ([][]any, error) {
	choices := make([][]any, len(row))
	for j, v := range row {
		set, isSet := v.([]any)
		switch {
		case isSet && !lookup[j]:
			return nil, &ProcessError{Row: rowIdx, Column: j, Message: "value set in a direct-binding column"}
		case isSet && len(set) == 0:
			choices[j] = []any{nil}
		case isSet:
			choices[j] = set
		default:
			choices[j] = []any{v}
		}
	}

	out := [][]any{{}}
	for _, vs := range choices {
		next := make([][]any, 0, len(out)*len(vs))
		for _, partial := range out {
			for _, v := range vs {
				row := make([]any, len(partial), len(partial)+1)
				copy(row, partial)
				next = append(next, append(row, v))
			}
		}
		out = next
	}
	return out, nil
}

// resolveIdent substitutes an entity's symbolic identifier for its raw id.
// Unresolvable ids and already resolved values pass through unchanged.
func resolveIdent(v any, idents IdentSource) any {
	if idents == nil {
		return v
	}
	id, ok := v.(int64)
	if !ok {
		return v
	}
	if kw, ok := idents.Ident(id); ok {
		return kw.Lexical()
	}
	return v
}
