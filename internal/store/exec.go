package store

import (
	"bytes"
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"

	"github.com/factgrid/factgrid/internal/catalog"
	"github.com/factgrid/factgrid/internal/datalog"
	"github.com/factgrid/factgrid/internal/edn"
)

// The reference executor: nested-loop datalog evaluation over the snapshot's
// EAV/AVE indexes. Clauses evaluate in document order, each refining the set
// of candidate binding environments; the find list then deduplicates
// solutions under set semantics and the select specs extract output values.
//
// Evaluation is deterministic: entity iteration follows the ascending index
// order and value iteration follows the encoded-text order fixed at snapshot
// construction.

// bindings is one candidate solution: logic variable to value.
type bindings map[datalog.Var]any

func (b bindings) clone() bindings {
	nb := make(bindings, len(b)+1)
	for k, v := range b {
		nb[k] = v
	}
	return nb
}

func (b bindings) with(v datalog.Var, val any) bindings {
	nb := b.clone()
	nb[v] = val
	return nb
}

// unify binds v to val, or checks consistency when v is already bound.
func (b bindings) unify(v datalog.Var, val any) (bindings, bool) {
	if cur, bound := b[v]; bound {
		if renderEqual(cur, val) {
			return b, true
		}
		return nil, false
	}
	return b.with(v, val), true
}

// Execute evaluates a native query document against the snapshot. The
// result rows align positionally with doc.Select; entity-lookup columns
// carry []any value sets, everything else scalars. Limit is deliberately
// ignored here: the driver truncates after post-processing so ordering
// semantics hold.
func (f *Facts) Execute(ctx context.Context, doc *datalog.Doc) ([][]any, error) {
	rows, err := f.evalClauses(ctx, []bindings{{}}, doc.Where)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	out := [][]any{}
	for _, b := range rows {
		key, err := findKey(b, doc.Find)
		if err != nil {
			return nil, err
		}
		if seen[key] {
			continue
		}
		seen[key] = true

		row := make([]any, len(doc.Select))
		for i, spec := range doc.Select {
			v, err := f.selectValue(spec, b)
			if err != nil {
				return nil, err
			}
			row[i] = v
		}
		out = append(out, row)
	}
	return out, nil
}

// findKey renders the find tuple for set-semantics deduplication.
func findKey(b bindings, find []datalog.Var) (string, error) {
	var sb strings.Builder
	for _, v := range find {
		val, ok := b[v]
		if !ok {
			return "", execErrorf("find variable %s is unbound", v)
		}
		text, err := edn.MarshalString(val)
		if err != nil {
			return "", execErrorf("rendering find value for %s: %v", v, err)
		}
		sb.WriteString(text)
		sb.WriteByte(' ')
	}
	return sb.String(), nil
}

// selectValue extracts one output column from a solution.
func (f *Facts) selectValue(spec datalog.SelectSpec, b bindings) (any, error) {
	switch sp := spec.(type) {
	case datalog.SelectVar:
		v, ok := b[sp.Var]
		if !ok {
			return nil, execErrorf("select variable %s is unbound", sp.Var)
		}
		return v, nil

	case datalog.SelectField:
		ev, ok := b[sp.Var]
		if !ok {
			return nil, execErrorf("select variable %s is unbound", sp.Var)
		}
		// A dead-ended reference chain binds the sentinel, not an id;
		// the lookup then yields the empty set and post-processing a null.
		e, isID := ev.(int64)
		if !isID {
			return []any{}, nil
		}
		vals := f.values(e, sp.Attr.Lexical())
		out := make([]any, len(vals))
		copy(out, vals)
		return out, nil

	case datalog.SelectDateTrunc:
		// Truncation is a post-processing transform; extraction passes
		// the raw instant through.
		return f.selectValue(sp.Of, b)

	default:
		return nil, execErrorf("unhandled select spec %T", spec)
	}
}

func (f *Facts) evalClauses(ctx context.Context, rows []bindings, clauses []datalog.Clause) ([]bindings, error) {
	var err error
	for _, c := range clauses {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err = f.evalClause(ctx, rows, c)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return rows, nil
		}
	}
	return rows, nil
}

func (f *Facts) evalClause(ctx context.Context, rows []bindings, c datalog.Clause) ([]bindings, error) {
	switch cl := c.(type) {
	case datalog.Pattern:
		var out []bindings
		for _, b := range rows {
			matched, err := f.matchPattern(b, cl)
			if err != nil {
				return nil, err
			}
			out = append(out, matched...)
		}
		return out, nil

	case datalog.Pred:
		var out []bindings
		for _, b := range rows {
			hold, err := f.predHolds(b, cl)
			if err != nil {
				return nil, err
			}
			if hold {
				out = append(out, b)
			}
		}
		return out, nil

	case datalog.BindDefault:
		var out []bindings
		for _, b := range rows {
			ev, ok := b[cl.E]
			if !ok {
				return nil, execErrorf("get-else entity %s is unbound", cl.E)
			}
			v := cl.Default
			if e, isID := ev.(int64); isID {
				if vals := f.values(e, cl.A.Lexical()); len(vals) > 0 {
					v = vals[0]
				}
			}
			if nb, ok := b.unify(cl.To, v); ok {
				out = append(out, nb)
			}
		}
		return out, nil

	case datalog.Ground:
		var out []bindings
		for _, b := range rows {
			if nb, ok := b.unify(cl.To, cl.Value); ok {
				out = append(out, nb)
			}
		}
		return out, nil

	case datalog.Missing:
		var out []bindings
		for _, b := range rows {
			ev, ok := b[cl.E]
			if !ok {
				return nil, execErrorf("missing? entity %s is unbound", cl.E)
			}
			e, isID := ev.(int64)
			if !isID || len(f.values(e, cl.A.Lexical())) == 0 {
				out = append(out, b)
			}
		}
		return out, nil

	case datalog.Or:
		var out []bindings
		for _, b := range rows {
			for _, br := range cl.Branches {
				rs, err := f.evalClauses(ctx, []bindings{b}, []datalog.Clause{br})
				if err != nil {
					return nil, err
				}
				out = append(out, rs...)
			}
		}
		return out, nil

	case datalog.AndGroup:
		return f.evalClauses(ctx, rows, cl.Clauses)

	case datalog.OrJoin:
		var out []bindings
		for _, b := range rows {
			seed := bindings{}
			for _, v := range cl.Unify {
				if val, ok := b[v]; ok {
					seed[v] = val
				}
			}
			for _, br := range cl.Branches {
				rs, err := f.evalClauses(ctx, []bindings{seed.clone()}, []datalog.Clause{br})
				if err != nil {
					return nil, err
				}
				for _, r := range rs {
					nb, ok := b.clone(), true
					for _, v := range cl.Unify {
						val, bound := r[v]
						if !bound {
							continue
						}
						nb, ok = nb.unify(v, val)
						if !ok {
							break
						}
					}
					if ok {
						out = append(out, nb)
					}
				}
			}
		}
		return out, nil

	case datalog.Not:
		return f.evalNegation(ctx, rows, nil, cl.Clauses)

	case datalog.NotJoin:
		return f.evalNegation(ctx, rows, cl.Vars, cl.Clauses)

	default:
		return nil, execErrorf("unhandled clause %T", c)
	}
}

// evalNegation keeps the rows whose bindings admit no solution of the
// negated clauses. A nil unify list seeds the full environment (not); a
// non-nil list seeds only the listed variables (not-join).
func (f *Facts) evalNegation(ctx context.Context, rows []bindings, unify []datalog.Var, clauses []datalog.Clause) ([]bindings, error) {
	var out []bindings
	for _, b := range rows {
		seed := b.clone()
		if unify != nil {
			seed = bindings{}
			for _, v := range unify {
				if val, ok := b[v]; ok {
					seed[v] = val
				}
			}
		}
		rs, err := f.evalClauses(ctx, []bindings{seed}, clauses)
		if err != nil {
			return nil, err
		}
		if len(rs) == 0 {
			out = append(out, b)
		}
	}
	return out, nil
}

// matchPattern evaluates a data pattern against one environment.
func (f *Facts) matchPattern(b bindings, p datalog.Pattern) ([]bindings, error) {
	a, ok := f.cat.Attribute(p.A)
	if !ok {
		return nil, execErrorf("pattern references unknown attribute %s", p.A.Lexical())
	}
	attr := p.A.Lexical()

	if ev, bound := b[p.E]; bound {
		e, isID := ev.(int64)
		if !isID {
			// The entity position holds a sentinel; no datom can match.
			return nil, nil
		}
		return f.matchEntity(b, e, a, p.V)
	}

	// Entity unbound: prefer the AVE path when the value is known.
	if p.V != nil {
		known, haveValue := p.V, true
		if vv, isVar := p.V.(datalog.Var); isVar {
			known, haveValue = b[vv]
		}
		if haveValue {
			var out []bindings
			for _, e := range f.entitiesWithValue(attr, a.Type, known) {
				out = append(out, b.with(p.E, e))
			}
			return out, nil
		}
	}

	var out []bindings
	for _, e := range f.entitiesWith(attr) {
		matched, err := f.matchEntity(b.with(p.E, e), e, a, p.V)
		if err != nil {
			return nil, err
		}
		out = append(out, matched...)
	}
	return out, nil
}

// matchEntity matches the value position of a pattern whose entity is
// already known.
func (f *Facts) matchEntity(b bindings, e int64, a catalog.Attribute, v any) ([]bindings, error) {
	vals := f.values(e, a.Ident.Lexical())
	if len(vals) == 0 {
		return nil, nil
	}

	// Presence-only pattern.
	if v == nil {
		return []bindings{b}, nil
	}

	if vv, isVar := v.(datalog.Var); isVar {
		if cur, bound := b[vv]; bound {
			for _, val := range vals {
				if renderEqual(cur, val) {
					return []bindings{b}, nil
				}
			}
			return nil, nil
		}
		out := make([]bindings, 0, len(vals))
		for _, val := range vals {
			out = append(out, b.with(vv, val))
		}
		return out, nil
	}

	for _, val := range vals {
		if renderEqual(v, val) {
			return []bindings{b}, nil
		}
	}
	return nil, nil
}

// predHolds evaluates one predicate call over resolved operands.
func (f *Facts) predHolds(b bindings, p datalog.Pred) (bool, error) {
	args := make([]any, len(p.Args))
	for i, raw := range p.Args {
		v, err := resolveOperand(b, raw)
		if err != nil {
			return false, err
		}
		args[i] = v
	}

	op := string(p.Op)
	switch op {
	case "=", "not=":
		if len(args) != 2 {
			return false, execErrorf("%s wants 2 arguments, got %d", op, len(args))
		}
		eq := renderEqual(args[0], args[1])
		if op == "not=" {
			return !eq, nil
		}
		return eq, nil

	case "<", "<=", ">", ">=":
		if len(args) != 2 {
			return false, execErrorf("%s wants 2 arguments, got %d", op, len(args))
		}
		cmp, ok := compareAny(args[0], args[1])
		if !ok {
			return false, execErrorf("%s cannot compare %T with %T", op, args[0], args[1])
		}
		switch op {
		case "<":
			return cmp < 0, nil
		case "<=":
			return cmp <= 0, nil
		case ">":
			return cmp > 0, nil
		default:
			return cmp >= 0, nil
		}

	case "str-includes?":
		if len(args) != 2 {
			return false, execErrorf("str-includes? wants 2 arguments, got %d", len(args))
		}
		s, sok := args[0].(string)
		sub, subok := args[1].(string)
		if !sok || !subok {
			return false, execErrorf("str-includes? wants string arguments, got %T and %T", args[0], args[1])
		}
		return strings.Contains(s, sub), nil

	default:
		return false, execErrorf("unknown predicate %s", op)
	}
}

func resolveOperand(b bindings, raw any) (any, error) {
	if v, isVar := raw.(datalog.Var); isVar {
		val, ok := b[v]
		if !ok {
			return nil, execErrorf("predicate reads unbound variable %s", v)
		}
		return val, nil
	}
	return raw, nil
}

// renderEqual is generic value equality through the canonical EDN
// rendering. Distinct types render distinctly, so a sentinel symbol never
// equals a stored keyword by accident.
func renderEqual(a, b any) bool {
	at, aerr := edn.MarshalString(a)
	bt, berr := edn.MarshalString(b)
	if aerr != nil || berr != nil {
		return false
	}
	return at == bt
}

// compareAny orders two same-typed values; ok is false for mixed or
// unordered types.
func compareAny(a, b any) (int, bool) {
	switch av := a.(type) {
	case int64:
		if bv, ok := b.(int64); ok {
			return cmp64(av, bv), true
		}
	case float32:
		if bv, ok := b.(float32); ok {
			return cmpF64(float64(av), float64(bv)), true
		}
	case float64:
		if bv, ok := b.(float64); ok {
			return cmpF64(av, bv), true
		}
	case *big.Int:
		if bv, ok := b.(*big.Int); ok {
			return av.Cmp(bv), true
		}
	case *apd.Decimal:
		if bv, ok := b.(*apd.Decimal); ok {
			return av.Cmp(bv), true
		}
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv), true
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0, true
			case !av:
				return -1, true
			default:
				return 1, true
			}
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv), true
		}
	case uuid.UUID:
		if bv, ok := b.(uuid.UUID); ok {
			return bytes.Compare(av[:], bv[:]), true
		}
	case []byte:
		if bv, ok := b.([]byte); ok {
			return bytes.Compare(av, bv), true
		}
	case edn.Keyword:
		if bv, ok := b.(edn.Keyword); ok {
			return av.Compare(bv), true
		}
	case edn.Symbol:
		if bv, ok := b.(edn.Symbol); ok {
			return strings.Compare(string(av), string(bv)), true
		}
	}
	return 0, false
}

func cmp64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpF64(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
