package query

import (
	"fmt"
	"strings"

	"github.com/factgrid/factgrid/internal/edn"
)

// ColumnRef identifies one output column of a query.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and enables
// exhaustive type switches in the compiler.
//
// Column reference types:
//   - IDRef: the source table's entity id
//   - AttrRef: a direct attribute value on the source entity
//   - FKRef: a column reached by following a reference-typed attribute
//   - RelRef: a configured custom relationship field
type ColumnRef interface {
	columnRef() // Marker method - seals interface to this package

	// String renders the reference in the request's column grammar,
	// used in error messages and diagnostics.
	String() string
}

// IDRef references the implicit "id" field: the entity id of the source
// table itself.
type IDRef struct{}

func (IDRef) columnRef()     {}
func (IDRef) String() string { return "id" }

// AttrRef references the value of an attribute on the source entity.
//
// The attribute may live in the table's own namespace (field name "name"
// on table "artist" resolves to attribute artist/name) or in a foreign
// namespace reached by co-occurrence (field name "group/location" on table
// "artist" resolves to attribute group/location).
type AttrRef struct {
	Attr edn.Keyword
}

func (AttrRef) columnRef()       {}
func (r AttrRef) String() string { return r.Attr.Lexical() }

// FKRef references a column on the entity reached by following Via, a
// reference-typed attribute on the current entity. Target is resolved
// against the referenced entity, so chains of FKRef walk multiple hops:
//
//	FKRef{Via: track/artist, Target: AttrRef{artist/name}}
//
// projects the artist name of a track's artist.
type FKRef struct {
	Via    edn.Keyword
	Target ColumnRef
}

func (FKRef) columnRef() {}
func (r FKRef) String() string {
	return r.Via.Lexical() + "->" + r.Target.String()
}

// RelRef references a custom relationship field by its configured display
// name on the source table. The column value is the entity id at the end
// of the relationship's path.
type RelRef struct {
	Name string
}

func (RelRef) columnRef()       {}
func (r RelRef) String() string { return r.Name }

// FieldRef is one requested output column.
//
// Breakout selects the projection mechanism: a breakout field is bound and
// projected directly (its value participates in grouping), while a plain
// field is projected through the source entity's id and extracted from the
// entity afterwards. Both yield the same values for single-valued
// attributes; the compiler keeps the distinction because the two forms
// bind different logic variables.
//
// Trunc, when set, truncates an instant-typed column to the named calendar
// unit ("day", "week", "month", "quarter", "year") before projection.
// Truncation forces the breakout mechanism regardless of the flag.
type FieldRef struct {
	Column   ColumnRef
	Breakout bool
	Trunc    string
}

// Aggregation is a requested aggregate over a column. Op names the
// aggregate ("count", "sum", "avg", "min", "max", "distinct"). Column is
// nil for bare counts.
//
// No aggregation currently has a defined translation; the compiler rejects
// any request carrying one rather than mistranslating it.
type Aggregation struct {
	Op     string
	Column ColumnRef
}

// Order is one order-by entry. Column and Trunc must together match a
// requested field; results can only be ordered by projected columns.
type Order struct {
	Column ColumnRef
	Desc   bool
	Trunc  string
}

// Request is a structured query against one inferred table. It is a
// read-only input: the compiler never mutates it, and identical requests
// compile to identical native documents.
type Request struct {
	Table        string
	Fields       []FieldRef
	Filter       Filter
	Aggregations []Aggregation
	OrderBy      []Order
	Limit        int
}

// Validate checks the structural invariants that do not need schema
// knowledge: a named table, at least one field or aggregation, ordering
// only by requested columns' grammar, and a non-negative limit.
func (r *Request) Validate() error {
	if strings.TrimSpace(r.Table) == "" {
		return fmt.Errorf("query: table is required")
	}
	if len(r.Fields) == 0 && len(r.Aggregations) == 0 {
		return fmt.Errorf("query: at least one field or aggregation is required")
	}
	for i, f := range r.Fields {
		if f.Column == nil {
			return fmt.Errorf("query: field %d has no column reference", i)
		}
	}
	for i, o := range r.OrderBy {
		if o.Column == nil {
			return fmt.Errorf("query: order entry %d has no column reference", i)
		}
	}
	if r.Limit < 0 {
		return fmt.Errorf("query: negative limit %d", r.Limit)
	}
	return nil
}
