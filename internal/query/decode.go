package query

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/factgrid/factgrid/internal/edn"
)

// The YAML request document. Column references come in three forms:
//
//	column: name            direct attribute ("id" for the entity id;
//	                        "ns/name" for a foreign-namespace attribute)
//	fk: {via: track/artist, column: artist/name}
//	                        follow a reference attribute; nests via fk:
//	rel: tracks             configured relationship field by display name
//
// Bare column names resolve against the request's table; relationship
// fields must use the rel form.
type requestDoc struct {
	Table        string   `yaml:"table"`
	Fields       []syntax `yaml:"fields"`
	Filter       *predDoc `yaml:"filter,omitempty"`
	Aggregations []aggDoc `yaml:"aggregations,omitempty"`
	OrderBy      []syntax `yaml:"order,omitempty"`
	Limit        int      `yaml:"limit,omitempty"`
}

// syntax is the shared column-reference surface used by fields and order
// entries. Exactly one of Column, FK, Rel must be set.
type syntax struct {
	Column   string `yaml:"column,omitempty"`
	FK       *fkDoc `yaml:"fk,omitempty"`
	Rel      string `yaml:"rel,omitempty"`
	Breakout bool   `yaml:"breakout,omitempty"`
	Trunc    string `yaml:"trunc,omitempty"`
	Desc     bool   `yaml:"desc,omitempty"`
}

type fkDoc struct {
	Via    string `yaml:"via"`
	Column string `yaml:"column,omitempty"`
	FK     *fkDoc `yaml:"fk,omitempty"`
}

type predDoc struct {
	Op     string    `yaml:"op"`
	Conds  []predDoc `yaml:"conds,omitempty"`
	Cond   *predDoc  `yaml:"cond,omitempty"`
	Column string    `yaml:"column,omitempty"`
	FK     *fkDoc    `yaml:"fk,omitempty"`
	Rel    string    `yaml:"rel,omitempty"`
	Value  any       `yaml:"value,omitempty"`
	Lo     any       `yaml:"lo,omitempty"`
	Hi     any       `yaml:"hi,omitempty"`
}

type aggDoc struct {
	Op     string `yaml:"op"`
	Column string `yaml:"column,omitempty"`
	FK     *fkDoc `yaml:"fk,omitempty"`
	Rel    string `yaml:"rel,omitempty"`
}

// DecodeRequest parses a YAML request document. Unknown fields, unknown
// filter operators, and malformed column references are errors; schema
// resolution (does the attribute exist, is the type comparable) is the
// compiler's job.
func DecodeRequest(r io.Reader) (*Request, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading request: %w", err)
	}

	var doc requestDoc
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // Reject unknown fields
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parsing request: %w", err)
	}

	req := &Request{Table: doc.Table, Limit: doc.Limit}

	for i, f := range doc.Fields {
		col, err := f.columnRefFor(doc.Table)
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", i, err)
		}
		req.Fields = append(req.Fields, FieldRef{Column: col, Breakout: f.Breakout, Trunc: f.Trunc})
	}

	if doc.Filter != nil {
		filter, err := doc.Filter.filter(doc.Table)
		if err != nil {
			return nil, fmt.Errorf("filter: %w", err)
		}
		req.Filter = filter
	}

	for i, a := range doc.Aggregations {
		var col ColumnRef
		if a.Column != "" || a.FK != nil || a.Rel != "" {
			col, err = (&syntax{Column: a.Column, FK: a.FK, Rel: a.Rel}).columnRefFor(doc.Table)
			if err != nil {
				return nil, fmt.Errorf("aggregation %d: %w", i, err)
			}
		}
		req.Aggregations = append(req.Aggregations, Aggregation{Op: a.Op, Column: col})
	}

	for i, o := range doc.OrderBy {
		col, err := o.columnRefFor(doc.Table)
		if err != nil {
			return nil, fmt.Errorf("order entry %d: %w", i, err)
		}
		req.OrderBy = append(req.OrderBy, Order{Column: col, Desc: o.Desc, Trunc: o.Trunc})
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *syntax) columnRefFor(table string) (ColumnRef, error) {
	set := 0
	if s.Column != "" {
		set++
	}
	if s.FK != nil {
		set++
	}
	if s.Rel != "" {
		set++
	}
	if set != 1 {
		return nil, fmt.Errorf("exactly one of column, fk, rel must be set")
	}

	switch {
	case s.Rel != "":
		return RelRef{Name: s.Rel}, nil
	case s.FK != nil:
		return s.FK.columnRef()
	default:
		return ParseColumn(table, s.Column)
	}
}

func (f *fkDoc) columnRef() (ColumnRef, error) {
	if f.Via == "" {
		return nil, fmt.Errorf("fk: via attribute is required")
	}
	via, err := edn.ParseKeyword(f.Via)
	if err != nil || via.Namespace == "" {
		return nil, fmt.Errorf("fk via %q must be a namespaced attribute", f.Via)
	}

	switch {
	case f.Column != "" && f.FK != nil:
		return nil, fmt.Errorf("fk: column and fk are mutually exclusive")
	case f.FK != nil:
		target, err := f.FK.columnRef()
		if err != nil {
			return nil, err
		}
		return FKRef{Via: via, Target: target}, nil
	case f.Column != "":
		if f.Column == "id" {
			return FKRef{Via: via, Target: IDRef{}}, nil
		}
		attr, err := edn.ParseKeyword(f.Column)
		if err != nil || attr.Namespace == "" {
			return nil, fmt.Errorf("fk column %q must be a namespaced attribute", f.Column)
		}
		return FKRef{Via: via, Target: AttrRef{Attr: attr}}, nil
	default:
		return nil, fmt.Errorf("fk: target column is required")
	}
}

func (p *predDoc) filter(table string) (Filter, error) {
	op := strings.ToLower(strings.TrimSpace(p.Op))
	switch op {
	case "and", "or":
		if len(p.Conds) == 0 {
			return nil, fmt.Errorf("%s: conds is required", op)
		}
		conds := make([]Filter, 0, len(p.Conds))
		for i := range p.Conds {
			c, err := p.Conds[i].filter(table)
			if err != nil {
				return nil, err
			}
			conds = append(conds, c)
		}
		if op == "and" {
			return And{Conds: conds}, nil
		}
		return Or{Conds: conds}, nil

	case "not":
		if p.Cond == nil {
			return nil, fmt.Errorf("not: cond is required")
		}
		inner, err := p.Cond.filter(table)
		if err != nil {
			return nil, err
		}
		return Not{Cond: inner}, nil
	}

	col, err := (&syntax{Column: p.Column, FK: p.FK, Rel: p.Rel}).columnRefFor(table)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	switch op {
	case "=":
		return Eq{Column: col, Value: normalize(p.Value)}, nil
	case "!=":
		return NotEq{Column: col, Value: normalize(p.Value)}, nil
	case "<":
		return Lt{Column: col, Value: normalize(p.Value)}, nil
	case "<=":
		return LtEq{Column: col, Value: normalize(p.Value)}, nil
	case ">":
		return Gt{Column: col, Value: normalize(p.Value)}, nil
	case ">=":
		return GtEq{Column: col, Value: normalize(p.Value)}, nil
	case "between":
		if p.Lo == nil || p.Hi == nil {
			return nil, fmt.Errorf("between: lo and hi are required")
		}
		return Between{Column: col, Lo: normalize(p.Lo), Hi: normalize(p.Hi)}, nil
	case "contains":
		s, ok := p.Value.(string)
		if !ok {
			return nil, fmt.Errorf("contains: value must be a string, got %T", p.Value)
		}
		return Contains{Column: col, Substr: s}, nil
	default:
		return nil, fmt.Errorf("unknown filter operator %q", p.Op)
	}
}

// ParseColumn resolves the flat string form of a column reference against
// a table: "id" is the entity id, "ns/name" a fully-namespaced attribute,
// and a bare name an attribute in the table's own namespace.
func ParseColumn(table, name string) (ColumnRef, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("empty column name")
	}
	if name == "id" {
		return IDRef{}, nil
	}
	if strings.Contains(name, "/") {
		attr, err := edn.ParseKeyword(name)
		if err != nil {
			return nil, err
		}
		return AttrRef{Attr: attr}, nil
	}
	return AttrRef{Attr: edn.Keyword{Namespace: table, Name: name}}, nil
}

// normalize lifts YAML scalar decodings into the value domain the rest of
// the pipeline uses: ints widen to int64, everything else passes through
// (yaml resolves timestamps to time.Time on its own).
func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case uint:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		return int64(n)
	default:
		return v
	}
}
