package datalog

import (
	"strings"

	"github.com/factgrid/factgrid/internal/edn"
)

// Var is a logic variable, stored with its leading question mark.
//
// Variable names encode provenance and are the sole mechanism for
// correlating bindings back to field references after compilation:
//
//	?artist                  entity id of an entity in table "artist"
//	?artist|artist|name      value of attribute artist/name reached from
//	                         an entity in table "artist"
//
// The encoding is injective: table names and attribute parts never
// contain '|', so distinct (table, attribute) pairs produce distinct
// variable names within one compiled query.
type Var string

// EntityVar names the entity-id variable for a table.
func EntityVar(table string) Var {
	return Var("?" + table)
}

// ValueVar names the variable holding attribute attr reached from an
// entity in table.
func ValueVar(table string, attr edn.Keyword) Var {
	return Var("?" + table + "|" + attr.Namespace + "|" + attr.Name)
}

// Symbol returns the variable as an EDN symbol for rendering.
func (v Var) Symbol() edn.Symbol { return edn.Symbol(v) }

// Provenance decodes the variable name. For an entity variable attr is
// the zero keyword. ok is false when v does not follow either encoding.
func (v Var) Provenance() (table string, attr edn.Keyword, ok bool) {
	s := string(v)
	if !strings.HasPrefix(s, "?") {
		return "", edn.Keyword{}, false
	}
	s = s[1:]
	if s == "" {
		return "", edn.Keyword{}, false
	}
	parts := strings.Split(s, "|")
	switch len(parts) {
	case 1:
		return parts[0], edn.Keyword{}, true
	case 3:
		if parts[0] == "" || parts[1] == "" || parts[2] == "" {
			return "", edn.Keyword{}, false
		}
		return parts[0], edn.Keyword{Namespace: parts[1], Name: parts[2]}, true
	default:
		return "", edn.Keyword{}, false
	}
}
