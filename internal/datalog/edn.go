package datalog

import (
	"fmt"
	"strings"

	"github.com/factgrid/factgrid/internal/edn"
)

// Doc is the native query document. Find lists the variables the result
// rows bind, Where is the dependency graph of clauses establishing those
// bindings, Select and OrderBy are the two custom extensions, and Limit
// is carried for the driver (the executor returns the full result set;
// truncation happens after post-processing so ordering holds).
type Doc struct {
	Find    []Var
	Where   []Clause
	Select  []SelectSpec
	OrderBy []OrderSpec
	Limit   int
}

// EDN renders the document as EDN text. The rendering is deterministic:
// identical documents produce byte-identical text. Sections appear in
// find, where, select, order-by, limit order; empty sections are omitted.
func (d *Doc) EDN() (string, error) {
	var b strings.Builder
	b.WriteByte('{')

	first := true
	section := func(key string, items []string) {
		if !first {
			b.WriteString("\n ")
		}
		first = false
		b.WriteByte(':')
		b.WriteString(key)
		b.WriteString(" [")
		indent := "\n" + strings.Repeat(" ", len(key)+4)
		for i, it := range items {
			if i > 0 {
				b.WriteString(indent)
			}
			b.WriteString(it)
		}
		b.WriteByte(']')
	}

	finds := make([]string, 0, len(d.Find))
	var findLine strings.Builder
	for i, v := range d.Find {
		if i > 0 {
			findLine.WriteByte(' ')
		}
		findLine.WriteString(string(v))
	}
	if len(d.Find) > 0 {
		finds = append(finds, findLine.String())
	}
	section("find", finds)

	if len(d.Where) > 0 {
		items := make([]string, 0, len(d.Where))
		for _, c := range d.Where {
			s, err := edn.MarshalString(clauseValue(c))
			if err != nil {
				return "", fmt.Errorf("rendering where clause: %w", err)
			}
			items = append(items, s)
		}
		section("where", items)
	}

	if len(d.Select) > 0 {
		items := make([]string, 0, len(d.Select))
		for _, s := range d.Select {
			text, err := edn.MarshalString(selectValue(s))
			if err != nil {
				return "", fmt.Errorf("rendering select spec: %w", err)
			}
			items = append(items, text)
		}
		section("select", items)
	}

	if len(d.OrderBy) > 0 {
		items := make([]string, 0, len(d.OrderBy))
		for _, o := range d.OrderBy {
			dir := edn.Keyword{Name: "asc"}
			if o.Desc {
				dir = edn.Keyword{Name: "desc"}
			}
			text, err := edn.MarshalString(edn.Vector{dir, selectValue(o.Spec)})
			if err != nil {
				return "", fmt.Errorf("rendering order-by spec: %w", err)
			}
			items = append(items, text)
		}
		section("order-by", items)
	}

	if d.Limit > 0 {
		if !first {
			b.WriteString("\n ")
		}
		first = false
		fmt.Fprintf(&b, ":limit %d", d.Limit)
	}

	b.WriteByte('}')
	return b.String(), nil
}

// clauseValue builds the EDN value tree for a clause.
func clauseValue(c Clause) any {
	switch cl := c.(type) {
	case Pattern:
		if cl.V == nil {
			return edn.Vector{cl.E.Symbol(), cl.A}
		}
		return edn.Vector{cl.E.Symbol(), cl.A, operand(cl.V)}
	case Pred:
		call := edn.List{cl.Op}
		for _, a := range cl.Args {
			call = append(call, operand(a))
		}
		return edn.Vector{call}
	case BindDefault:
		call := edn.List{edn.Symbol("get-else"), edn.Symbol("$"), cl.E.Symbol(), cl.A, operand(cl.Default)}
		return edn.Vector{call, cl.To.Symbol()}
	case Ground:
		return edn.Vector{edn.List{edn.Symbol("ground"), operand(cl.Value)}, cl.To.Symbol()}
	case Missing:
		return edn.Vector{edn.List{edn.Symbol("missing?"), edn.Symbol("$"), cl.E.Symbol(), cl.A}}
	case Or:
		form := edn.List{edn.Symbol("or")}
		for _, br := range cl.Branches {
			form = append(form, clauseValue(br))
		}
		return form
	case AndGroup:
		form := edn.List{edn.Symbol("and")}
		for _, sub := range cl.Clauses {
			form = append(form, clauseValue(sub))
		}
		return form
	case OrJoin:
		unify := make(edn.Vector, 0, len(cl.Unify))
		for _, v := range cl.Unify {
			unify = append(unify, v.Symbol())
		}
		form := edn.List{edn.Symbol("or-join"), unify}
		for _, br := range cl.Branches {
			form = append(form, clauseValue(br))
		}
		return form
	case Not:
		form := edn.List{edn.Symbol("not")}
		for _, sub := range cl.Clauses {
			form = append(form, clauseValue(sub))
		}
		return form
	case NotJoin:
		unify := make(edn.Vector, 0, len(cl.Vars))
		for _, v := range cl.Vars {
			unify = append(unify, v.Symbol())
		}
		form := edn.List{edn.Symbol("not-join"), unify}
		for _, sub := range cl.Clauses {
			form = append(form, clauseValue(sub))
		}
		return form
	default:
		// The interface is sealed; an unknown clause is unreachable.
		panic(fmt.Sprintf("datalog: unknown clause type %T", c))
	}
}

// selectValue builds the EDN value tree for a select spec.
func selectValue(s SelectSpec) any {
	switch sp := s.(type) {
	case SelectVar:
		return sp.Var.Symbol()
	case SelectField:
		return edn.List{
			edn.Symbol("field"),
			sp.Var.Symbol(),
			sp.Attr,
			edn.Keyword{Name: string(sp.Type)},
		}
	case SelectDateTrunc:
		return edn.List{
			edn.Symbol("datetime"),
			selectValue(sp.Of),
			edn.Keyword{Name: string(sp.Unit)},
		}
	default:
		panic(fmt.Sprintf("datalog: unknown select spec type %T", s))
	}
}

// operand converts clause operands for rendering: logic variables become
// symbols, everything else passes through to the EDN writer.
func operand(v any) any {
	if lv, ok := v.(Var); ok {
		return lv.Symbol()
	}
	return v
}
