// Package schema derives tabular structure from the attribute catalog:
// every non-reserved namespace becomes a table, and attributes become its
// fields.
//
// Field membership has two sources. An attribute always belongs to the
// table matching its own namespace. Foreign attributes join a table only
// through co-occurrence: some observed entity carries both the foreign
// attribute and an attribute of the table's namespace. Co-occurrence needs
// a live-data scan, supplied as a precomputed Cooccurrence map; without
// one, inference degrades to namespace-matching only and must be re-run
// (via sync) once data exists. The degradation is documented behavior, not
// a bug: schema-only and schema-plus-data snapshots legitimately produce
// different field sets.
package schema

import (
	"fmt"
	"sort"

	"github.com/factgrid/factgrid/internal/catalog"
	"github.com/factgrid/factgrid/internal/edn"
	"github.com/factgrid/factgrid/internal/relcfg"
	"github.com/factgrid/factgrid/internal/typemap"
)

// Field is one column of an inferred table.
//
// Attr is the zero keyword for the id field and for relationship fields;
// Rel is non-nil only for relationship fields. The display name is the
// attribute's bare local name when the attribute lives in the table's own
// namespace, the full ns/name form for co-occurrence fields, and the
// configured name for relationship fields.
type Field struct {
	Name        string
	Attr        edn.Keyword
	Type        catalog.ValueType
	Cardinality catalog.Cardinality
	Col         typemap.ColType
	PK          bool
	Rel         *relcfg.Relationship
}

// Table is one inferred table: a namespace plus its ordered fields.
type Table struct {
	Name   string
	Fields []Field
}

// Cooccurrence maps a namespace to the foreign attributes observed on
// entities that also carry an attribute of that namespace. Produced by a
// full data scan (the store's Cooccurrence method); passing it is what
// upgrades inference from schema-only to schema-plus-data.
type Cooccurrence map[string][]edn.Keyword

// Option adjusts inference.
type Option func(*options)

type options struct {
	co Cooccurrence
}

// WithCooccurrence supplies the scan result enabling co-occurrence field
// derivation.
func WithCooccurrence(co Cooccurrence) Option {
	return func(o *options) { o.co = co }
}

// Tables infers every table from the catalog: one per non-reserved
// namespace, sorted by name, each with its full ordered field set.
func Tables(cat *catalog.Catalog, rels *relcfg.Config, opts ...Option) []Table {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var tables []Table
	for _, ns := range cat.Namespaces() {
		if catalog.ReservedNamespace(ns) {
			continue
		}
		tables = append(tables, Table{Name: ns, Fields: fields(cat, rels, ns, &o)})
	}
	return tables
}

// Columns returns the ordered fields of one table. Unknown table names
// are errors; a namespace with no attributes is not a table.
func Columns(cat *catalog.Catalog, rels *relcfg.Config, table string, opts ...Option) ([]Field, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if catalog.ReservedNamespace(table) {
		return nil, fmt.Errorf("schema: namespace %q is reserved", table)
	}
	if len(cat.Namespace(table)) == 0 {
		return nil, fmt.Errorf("schema: unknown table %q", table)
	}
	return fields(cat, rels, table, &o), nil
}

// fields assembles a table's columns in their fixed order: the implicit id
// first, then namespace-owned attributes by name, then co-occurrence
// attributes by full identifier, then relationship fields by display name.
func fields(cat *catalog.Catalog, rels *relcfg.Config, table string, o *options) []Field {
	cols := []Field{{
		Name: "id",
		Type: catalog.TypeRef,
		Col:  typemap.ColPK,
		PK:   true,
	}}

	for _, a := range cat.Namespace(table) {
		cols = append(cols, attrField(a, a.Ident.Name))
	}

	for _, attr := range foreignAttrs(cat, table, o.co) {
		a, ok := cat.Attribute(attr)
		if !ok {
			// Scan drift: the data mentions an attribute the snapshot
			// lacks. Skip it; the next sync reconciles.
			continue
		}
		cols = append(cols, attrField(a, a.Ident.Lexical()))
	}

	if rels != nil {
		for _, rel := range rels.ForSource(table) {
			cols = append(cols, Field{
				Name:        rel.Name,
				Type:        catalog.TypeRef,
				Cardinality: catalog.Many,
				Col:         typemap.ColPathFK,
				Rel:         &rel,
			})
		}
	}

	return cols
}

func attrField(a catalog.Attribute, name string) Field {
	return Field{
		Name:        name,
		Attr:        a.Ident,
		Type:        a.Type,
		Cardinality: a.Cardinality,
		Col:         typemap.Col(a.Type),
	}
}

// foreignAttrs filters the co-occurrence scan for a table: deduplicated
// attributes outside the table's own namespace and outside reserved
// namespaces, sorted by full identifier.
func foreignAttrs(cat *catalog.Catalog, table string, co Cooccurrence) []edn.Keyword {
	if len(co) == 0 {
		return nil
	}

	seen := map[string]bool{}
	var out []edn.Keyword
	for _, attr := range co[table] {
		if attr.Namespace == "" || attr.Namespace == table {
			continue
		}
		if catalog.ReservedNamespace(attr.Namespace) {
			continue
		}
		key := attr.Lexical()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, attr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Compare(out[j]) < 0 })
	return out
}

// Lookup finds a field by display name within a table's columns.
func Lookup(cols []Field, name string) (Field, bool) {
	for _, f := range cols {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}
