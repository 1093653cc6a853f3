package compile

import (
	"github.com/factgrid/factgrid/internal/catalog"
	"github.com/factgrid/factgrid/internal/datalog"
	"github.com/factgrid/factgrid/internal/edn"
	"github.com/factgrid/factgrid/internal/query"
)

// filter compiles a predicate tree into clauses forming one conjunction.
// Operand bindings hoist to the top-level where clause, shared with
// projection; the returned clauses only test already-bound variables, so a
// row missing a filtered attribute stays a candidate until a predicate
// rejects its sentinel.
func (b *builder) filter(f query.Filter) ([]datalog.Clause, error) {
	switch t := f.(type) {
	case query.And:
		var out []datalog.Clause
		for _, c := range t.Conds {
			cs, err := b.filter(c)
			if err != nil {
				return nil, err
			}
			out = append(out, cs...)
		}
		return out, nil

	case query.Or:
		branches := make([]datalog.Clause, 0, len(t.Conds))
		for _, c := range t.Conds {
			cs, err := b.filter(c)
			if err != nil {
				return nil, err
			}
			branches = append(branches, branch(cs))
		}
		return []datalog.Clause{datalog.Or{Branches: branches}}, nil

	case query.Not:
		cs, err := b.filter(t.Cond)
		if err != nil {
			return nil, err
		}
		return []datalog.Clause{datalog.Not{Clauses: cs}}, nil

	case query.Eq:
		return b.cmp("=", t.Column, t.Value)
	case query.NotEq:
		return b.cmp("not=", t.Column, t.Value)
	case query.Lt:
		return b.cmp("<", t.Column, t.Value)
	case query.LtEq:
		return b.cmp("<=", t.Column, t.Value)
	case query.Gt:
		return b.cmp(">", t.Column, t.Value)
	case query.GtEq:
		return b.cmp(">=", t.Column, t.Value)

	case query.Between:
		lo, err := b.cmp(">=", t.Column, t.Lo)
		if err != nil {
			return nil, err
		}
		hi, err := b.cmp("<=", t.Column, t.Hi)
		if err != nil {
			return nil, err
		}
		return append(lo, hi...), nil

	case query.Contains:
		v, vt, err := b.operand(t.Column)
		if err != nil {
			return nil, err
		}
		if vt != catalog.TypeString && vt != catalog.TypeURI {
			return nil, unsupported("filter", "contains needs a string column, %s is %s", t.Column, vt)
		}
		return []datalog.Clause{datalog.Pred{
			Op:   edn.Symbol("str-includes?"),
			Args: []any{v, t.Substr},
		}}, nil

	default:
		return nil, unsupported("filter", "unhandled predicate %T", f)
	}
}

// branch wraps a multi-clause conjunction for use inside a disjunction.
func branch(cs []datalog.Clause) datalog.Clause {
	if len(cs) == 1 {
		return cs[0]
	}
	return datalog.AndGroup{Clauses: cs}
}

func (b *builder) cmp(op string, col query.ColumnRef, val any) ([]datalog.Clause, error) {
	v, vt, err := b.operand(col)
	if err != nil {
		return nil, err
	}
	lit, err := coerce(val, vt)
	if err != nil {
		return nil, err
	}
	return []datalog.Clause{datalog.Pred{
		Op:   edn.Symbol(op),
		Args: []any{v, lit},
	}}, nil
}

// operand resolves a filter column to its bound variable and value type,
// through the same null-safe bindings as breakout projection, so a column
// that is both filtered and projected shares one variable.
func (b *builder) operand(col query.ColumnRef) (datalog.Var, catalog.ValueType, error) {
	switch r := col.(type) {
	case query.IDRef:
		return b.entity, catalog.TypeRef, nil

	case query.AttrRef:
		a, ok := b.cat.Attribute(r.Attr)
		if !ok {
			return "", "", unsupported("filter", "unknown attribute %s", r.Attr.Lexical())
		}
		return b.bindValue(b.entity, b.table, a), a.Type, nil

	case query.FKRef:
		return b.operandFK(b.entity, b.table, r)

	case query.RelRef:
		rel, ok := b.relationship(r.Name)
		if !ok {
			return "", "", unsupported("relationship", "no relationship named %q on table %q", r.Name, b.table)
		}
		v, _, err := b.walkPath(rel)
		return v, catalog.TypeRef, err

	default:
		return "", "", unsupported("filter", "unhandled column reference %T", col)
	}
}

func (b *builder) operandFK(cur datalog.Var, curTable string, r query.FKRef) (datalog.Var, catalog.ValueType, error) {
	via, ok := b.cat.Attribute(r.Via)
	if !ok {
		return "", "", unsupported("foreign key", "unknown attribute %s", r.Via.Lexical())
	}
	if via.Type != catalog.TypeRef {
		return "", "", unsupported("foreign key", "attribute %s is %s, not a reference", r.Via.Lexical(), via.Type)
	}
	v := b.bindValue(cur, curTable, via)

	switch t := r.Target.(type) {
	case query.IDRef:
		return v, catalog.TypeRef, nil

	case query.AttrRef:
		a, ok := b.cat.Attribute(t.Attr)
		if !ok {
			return "", "", unsupported("foreign key", "unknown attribute %s", t.Attr.Lexical())
		}
		return b.bindValue(v, r.Via.Name, a), a.Type, nil

	case query.FKRef:
		return b.operandFK(v, r.Via.Name, t)

	default:
		return "", "", unsupported("foreign key", "cannot follow %s", r.Target)
	}
}
