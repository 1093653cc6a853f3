package compile

import (
	"fmt"
	"strconv"

	"github.com/factgrid/factgrid/internal/catalog"
	"github.com/factgrid/factgrid/internal/datalog"
	"github.com/factgrid/factgrid/internal/edn"
	"github.com/factgrid/factgrid/internal/query"
	"github.com/factgrid/factgrid/internal/relcfg"
	"github.com/factgrid/factgrid/internal/typemap"
)

// ColumnMeta describes one output column of a compiled query: its display
// name, the attribute it projects (the zero keyword for entity-id and
// relationship columns) and the type information the post-processor needs
// to revert sentinels and resolve identifiers.
type ColumnMeta struct {
	Name string
	Attr edn.Keyword
	Type catalog.ValueType
	Col  typemap.ColType
}

// Compiled pairs the native query document with per-column metadata.
// Columns[i] describes the value extracted by Doc.Select[i]; the two lists
// always have the same length and downstream stages correlate them by
// position.
type Compiled struct {
	Doc     *datalog.Doc
	Columns []ColumnMeta
}

// Compile translates a request into a native query document. Identical
// requests against the same catalog and relationship configuration compile
// to byte-identical documents.
func Compile(req *query.Request, cat *catalog.Catalog, rels *relcfg.Config) (*Compiled, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if len(req.Aggregations) > 0 {
		return nil, unsupported("aggregation", "%q has no native translation", req.Aggregations[0].Op)
	}

	b, err := newBuilder(req.Table, cat, rels)
	if err != nil {
		return nil, err
	}

	var (
		cols    []ColumnMeta
		selects []datalog.SelectSpec
		keys    []fieldKey
	)
	for _, f := range req.Fields {
		c, err := b.field(f)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c.meta)
		selects = append(selects, c.spec)
		keys = append(keys, fieldKey{column: f.Column, trunc: f.Trunc})
	}

	if req.Filter != nil {
		clauses, err := b.filter(req.Filter)
		if err != nil {
			return nil, err
		}
		b.where = append(b.where, clauses...)
	}

	var orders []datalog.OrderSpec
	for _, o := range req.OrderBy {
		spec, err := orderSpec(keys, selects, o)
		if err != nil {
			return nil, err
		}
		orders = append(orders, datalog.OrderSpec{Spec: spec, Desc: o.Desc})
	}

	find, err := b.findVars(selects)
	if err != nil {
		return nil, err
	}

	return &Compiled{
		Doc: &datalog.Doc{
			Find:    find,
			Where:   b.where,
			Select:  selects,
			OrderBy: orders,
			Limit:   req.Limit,
		},
		Columns: cols,
	}, nil
}

// fieldKey identifies a requested column for order-by resolution: the
// column reference plus its truncation unit, ignoring the breakout flag.
type fieldKey struct {
	column query.ColumnRef
	trunc  string
}

// bindKey identifies one value binding: the entity variable it hangs off,
// the attribute's full identifier, and the walk direction. One key emits
// one binding clause; later references reuse the variable.
type bindKey struct {
	entity  datalog.Var
	attr    string
	reverse bool
}

type builder struct {
	cat    *catalog.Catalog
	rels   *relcfg.Config
	table  string
	entity datalog.Var

	where []datalog.Clause
	bound map[bindKey]datalog.Var
	taken map[datalog.Var]bool
}

func newBuilder(table string, cat *catalog.Catalog, rels *relcfg.Config) (*builder, error) {
	if catalog.ReservedNamespace(table) {
		return nil, unsupported("table", "namespace %q is reserved", table)
	}
	own := cat.Namespace(table)
	if len(own) == 0 {
		return nil, unsupported("table", "unknown table %q", table)
	}

	b := &builder{
		cat:    cat,
		rels:   rels,
		table:  table,
		entity: datalog.EntityVar(table),
		bound:  map[bindKey]datalog.Var{},
		taken:  map[datalog.Var]bool{},
	}
	b.taken[b.entity] = true

	// Table membership: an entity belongs to the table when it carries any
	// attribute of the table's own namespace. The disjunction keeps
	// membership independent of whichever bindings and filters follow.
	if len(own) == 1 {
		b.where = append(b.where, datalog.Pattern{E: b.entity, A: own[0].Ident})
	} else {
		branches := make([]datalog.Clause, 0, len(own))
		for _, a := range own {
			branches = append(branches, datalog.Pattern{E: b.entity, A: a.Ident})
		}
		b.where = append(b.where, datalog.Or{Branches: branches})
	}
	return b, nil
}

type compiledField struct {
	meta ColumnMeta
	spec datalog.SelectSpec
}

// field compiles one requested column. Datetime truncation wraps the
// column's extraction spec and forces the direct-binding mechanism, since
// truncation exists for grouping.
func (b *builder) field(f query.FieldRef) (compiledField, error) {
	breakout := f.Breakout || f.Trunc != ""
	c, err := b.resolve(f.Column, breakout)
	if err != nil {
		return compiledField{}, err
	}
	if f.Trunc != "" {
		unit := datalog.TruncUnit(f.Trunc)
		if !unit.Valid() {
			return compiledField{}, unsupported("field", "unknown datetime unit %q on column %s", f.Trunc, f.Column)
		}
		if c.meta.Type != catalog.TypeInstant {
			return compiledField{}, unsupported("field", "datetime truncation needs an instant column, %s is %s", f.Column, c.meta.Type)
		}
		c.spec = datalog.SelectDateTrunc{Of: c.spec, Unit: unit}
	}
	return c, nil
}

// resolve compiles a column reference into its extraction spec and column
// metadata. A breakout column binds a logic variable and copies it; a
// plain column is extracted from the entity id after execution, which is
// what lets a single entity project a cardinality-many value set into one
// raw row.
func (b *builder) resolve(ref query.ColumnRef, breakout bool) (compiledField, error) {
	switch r := ref.(type) {
	case query.IDRef:
		return compiledField{
			meta: ColumnMeta{Name: "id", Type: catalog.TypeRef, Col: typemap.ColPK},
			spec: datalog.SelectVar{Var: b.entity},
		}, nil

	case query.AttrRef:
		a, ok := b.cat.Attribute(r.Attr)
		if !ok {
			return compiledField{}, unsupported("field", "unknown attribute %s", r.Attr.Lexical())
		}
		name := r.Attr.Lexical()
		if r.Attr.Namespace == b.table {
			name = r.Attr.Name
		}
		meta := ColumnMeta{Name: name, Attr: a.Ident, Type: a.Type, Col: typemap.Col(a.Type)}
		if breakout {
			v := b.bindValue(b.entity, b.table, a)
			return compiledField{meta: meta, spec: datalog.SelectVar{Var: v}}, nil
		}
		return compiledField{meta: meta, spec: datalog.SelectField{Var: b.entity, Attr: a.Ident, Type: a.Type}}, nil

	case query.FKRef:
		return b.resolveFK(b.entity, b.table, r, breakout, ref.String())

	case query.RelRef:
		rel, ok := b.relationship(r.Name)
		if !ok {
			return compiledField{}, unsupported("relationship", "no relationship named %q on table %q", r.Name, b.table)
		}
		v, _, err := b.walkPath(rel)
		if err != nil {
			return compiledField{}, err
		}
		return compiledField{
			meta: ColumnMeta{Name: r.Name, Type: catalog.TypeRef, Col: typemap.ColPathFK},
			spec: datalog.SelectVar{Var: v},
		}, nil

	default:
		return compiledField{}, unsupported("field", "unhandled column reference %T", ref)
	}
}

// resolveFK walks a foreign-key chain. Every hop binds null-safely, so an
// entity whose chain dead-ends stays in the result set with the sentinel
// propagating through the remaining hops.
func (b *builder) resolveFK(cur datalog.Var, curTable string, r query.FKRef, breakout bool, name string) (compiledField, error) {
	via, ok := b.cat.Attribute(r.Via)
	if !ok {
		return compiledField{}, unsupported("foreign key", "unknown attribute %s", r.Via.Lexical())
	}
	if via.Type != catalog.TypeRef {
		return compiledField{}, unsupported("foreign key", "attribute %s is %s, not a reference", r.Via.Lexical(), via.Type)
	}
	v := b.bindValue(cur, curTable, via)
	next := r.Via.Name

	switch t := r.Target.(type) {
	case query.IDRef:
		return compiledField{
			meta: ColumnMeta{Name: name, Type: catalog.TypeRef, Col: typemap.ColFK},
			spec: datalog.SelectVar{Var: v},
		}, nil

	case query.AttrRef:
		a, ok := b.cat.Attribute(t.Attr)
		if !ok {
			return compiledField{}, unsupported("foreign key", "unknown attribute %s", t.Attr.Lexical())
		}
		meta := ColumnMeta{Name: name, Attr: a.Ident, Type: a.Type, Col: typemap.Col(a.Type)}
		if breakout {
			w := b.bindValue(v, next, a)
			return compiledField{meta: meta, spec: datalog.SelectVar{Var: w}}, nil
		}
		return compiledField{meta: meta, spec: datalog.SelectField{Var: v, Attr: a.Ident, Type: a.Type}}, nil

	case query.FKRef:
		return b.resolveFK(v, next, t, breakout, name)

	default:
		return compiledField{}, unsupported("foreign key", "cannot follow %s", r.Target)
	}
}

func (b *builder) relationship(name string) (relcfg.Relationship, bool) {
	if b.rels == nil {
		return relcfg.Relationship{}, false
	}
	return b.rels.Lookup(b.table, name)
}

// walkPath chains a relationship's hops from the source entity and returns
// the variable holding the destination entity id, with the logical table
// it lands in.
func (b *builder) walkPath(rel relcfg.Relationship) (datalog.Var, string, error) {
	cur, curTable := b.entity, b.table
	for _, hop := range rel.Path {
		a, ok := b.cat.Attribute(hop.Attr)
		if !ok {
			return "", "", unsupported("relationship", "%s: unknown attribute %s", rel.Key(), hop.Attr.Lexical())
		}
		if a.Type != catalog.TypeRef {
			return "", "", unsupported("relationship", "%s: attribute %s is %s, not a reference", rel.Key(), hop.Attr.Lexical(), a.Type)
		}
		if hop.Reverse {
			cur = b.bindReverse(cur, curTable, a)
			curTable = hop.Attr.Namespace
		} else {
			cur = b.bindValue(cur, curTable, a)
			curTable = hop.Attr.Name
		}
	}
	return cur, curTable, nil
}

// bindValue binds the value of attribute a on entity cur, null-safe: an
// entity without the attribute binds the type's placeholder sentinel
// instead of dropping out of the result set. Cardinality-one attributes
// use the fallback-lookup form; cardinality-many attributes need the
// disjunction because a fallback lookup cannot produce a value set.
func (b *builder) bindValue(cur datalog.Var, curTable string, a catalog.Attribute) datalog.Var {
	key := bindKey{entity: cur, attr: a.Ident.Lexical()}
	v, fresh := b.claim(key, datalog.ValueVar(curTable, a.Ident))
	if !fresh {
		return v
	}

	if a.Cardinality == catalog.Many {
		b.where = append(b.where, datalog.OrJoin{
			Unify: []datalog.Var{cur, v},
			Branches: []datalog.Clause{
				datalog.Pattern{E: cur, A: a.Ident, V: v},
				datalog.AndGroup{Clauses: []datalog.Clause{
					datalog.Missing{E: cur, A: a.Ident},
					datalog.Ground{Value: typemap.Sentinel(a.Type), To: v},
				}},
			},
		})
		return v
	}

	b.where = append(b.where, datalog.BindDefault{
		E:       cur,
		A:       a.Ident,
		Default: typemap.Sentinel(a.Type),
		To:      v,
	})
	return v
}

// bindReverse binds the entities referencing cur through attribute a. The
// absence branch proves no referencing entity exists and grounds the
// reference sentinel, keeping rows whose path dead-ends.
func (b *builder) bindReverse(cur datalog.Var, curTable string, a catalog.Attribute) datalog.Var {
	key := bindKey{entity: cur, attr: a.Ident.Lexical(), reverse: true}
	back := edn.Keyword{Namespace: a.Ident.Namespace, Name: "_" + a.Ident.Name}
	v, fresh := b.claim(key, datalog.ValueVar(curTable, back))
	if !fresh {
		return v
	}

	anon := b.claimAnon(cur)
	b.where = append(b.where, datalog.OrJoin{
		Unify: []datalog.Var{cur, v},
		Branches: []datalog.Clause{
			datalog.Pattern{E: v, A: a.Ident, V: cur},
			datalog.AndGroup{Clauses: []datalog.Clause{
				datalog.NotJoin{Vars: []datalog.Var{cur}, Clauses: []datalog.Clause{
					datalog.Pattern{E: anon, A: a.Ident, V: cur},
				}},
				datalog.Ground{Value: typemap.Sentinel(catalog.TypeRef), To: v},
			}},
		},
	})
	return v
}

// claim reserves a variable for a binding key. The natural name follows
// the table|namespace|name convention; on the rare collision between
// distinct keys (two chains landing in the same logical table) a numbered
// suffix keeps the encoding injective. fresh is false when the key is
// already bound, in which case the caller must not re-emit clauses.
func (b *builder) claim(key bindKey, want datalog.Var) (datalog.Var, bool) {
	if v, ok := b.bound[key]; ok {
		return v, false
	}
	v := want
	for i := 2; b.taken[v]; i++ {
		v = datalog.Var(string(want) + "!" + strconv.Itoa(i))
	}
	b.bound[key] = v
	b.taken[v] = true
	return v, true
}

// claimAnon reserves an existential variable derived from base, used
// inside not-join where it binds nothing outward.
func (b *builder) claimAnon(base datalog.Var) datalog.Var {
	v := datalog.Var(string(base) + "!")
	for i := 2; b.taken[v]; i++ {
		v = datalog.Var(string(base) + "!" + strconv.Itoa(i))
	}
	b.taken[v] = true
	return v
}

// findVars assembles the find list: every variable the select specs read,
// in first-use order. The entity id enters only when some spec reads it,
// so a breakout-only query deduplicates to its distinct groups under the
// executor's set semantics.
func (b *builder) findVars(specs []datalog.SelectSpec) ([]datalog.Var, error) {
	var find []datalog.Var
	seen := map[datalog.Var]bool{}

	var add func(s datalog.SelectSpec) error
	add = func(s datalog.SelectSpec) error {
		var v datalog.Var
		switch t := s.(type) {
		case datalog.SelectVar:
			v = t.Var
		case datalog.SelectField:
			v = t.Var
		case datalog.SelectDateTrunc:
			return add(t.Of)
		default:
			return &InvariantError{Reason: fmt.Sprintf("unhandled select spec %T", s)}
		}
		if !b.taken[v] {
			return &InvariantError{Var: v, Reason: "select spec reads an unbound variable"}
		}
		if !seen[v] {
			seen[v] = true
			find = append(find, v)
		}
		return nil
	}

	for _, s := range specs {
		if err := add(s); err != nil {
			return nil, err
		}
	}
	return find, nil
}

// orderSpec resolves an order entry against the requested fields. Sorting
// happens after post-processing over materialized rows, so the sort key
// must be one of the projected columns; the entry reuses that column's
// extraction spec.
func orderSpec(keys []fieldKey, selects []datalog.SelectSpec, o query.Order) (datalog.SelectSpec, error) {
	want := fieldKey{column: o.Column, trunc: o.Trunc}
	for i, k := range keys {
		if k == want {
			return selects[i], nil
		}
	}
	return nil, unsupported("order-by", "column %s is not among the requested fields", o.Column)
}
