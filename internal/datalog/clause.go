package datalog

import (
	"github.com/factgrid/factgrid/internal/edn"
)

// Clause is one entry of the where clause.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and enables
// exhaustive type switches in the executor.
//
// Clause types:
//   - Pattern: entity/attribute/value data pattern
//   - Pred: predicate call over bound variables
//   - BindDefault: attribute lookup with a fallback when absent
//   - Ground: bind a constant to a variable
//   - Missing: assert an attribute is absent from an entity
//   - Or: disjunction of clauses over the same variables
//   - AndGroup: conjunction grouping inside a disjunction branch
//   - OrJoin: disjunction with an explicit unification variable list
//   - Not: negation, succeeds when the wrapped clauses cannot
//   - NotJoin: negation unifying only the listed variables
type Clause interface {
	clauseNode() // Marker method - seals interface to this package
}

// Pattern is a data pattern [?e :attr v]: entity E carries attribute A
// with value V. V is either a Var or a literal value.
type Pattern struct {
	E Var
	A edn.Keyword
	V any
}

func (Pattern) clauseNode() {}

// Pred is a predicate call [(op args...)]. Args are Vars or literals.
// The executor defines the operator vocabulary.
type Pred struct {
	Op   edn.Symbol
	Args []any
}

func (Pred) clauseNode() {}

// BindDefault binds To to the value of attribute A on entity E, or to
// Default when E lacks A. Rendered with the get-else form:
//
//	[(get-else $ ?e :artist/name "factgrid.nil") ?artist|artist|name]
//
// This is the nullable-binding half of the sentinel protocol; it keeps
// entities without the attribute in the result set.
type BindDefault struct {
	E       Var
	A       edn.Keyword
	Default any
	To      Var
}

func (BindDefault) clauseNode() {}

// Ground binds To to a constant: [(ground v) ?to].
type Ground struct {
	Value any
	To    Var
}

func (Ground) clauseNode() {}

// Missing asserts entity E does not carry attribute A:
// [(missing? $ ?e :attr)].
type Missing struct {
	E Var
	A edn.Keyword
}

func (Missing) clauseNode() {}

// Or succeeds when any branch succeeds. Every branch must bind the same
// variable set; use OrJoin when only part of the branch variables unify
// outwards.
type Or struct {
	Branches []Clause
}

func (Or) clauseNode() {}

// AndGroup groups clauses into one conjunction branch inside Or or
// OrJoin.
type AndGroup struct {
	Clauses []Clause
}

func (AndGroup) clauseNode() {}

// OrJoin is a disjunction that unifies only the listed variables with the
// outer clause set. The cardinality-many null emulation uses it: one
// branch binds the attribute's values, the other proves the attribute
// absent and grounds the sentinel.
type OrJoin struct {
	Unify    []Var
	Branches []Clause
}

func (OrJoin) clauseNode() {}

// Not succeeds when its clauses, unified with the outer bindings, have no
// solution. Variables first mentioned inside bind nothing outward.
type Not struct {
	Clauses []Clause
}

func (Not) clauseNode() {}

// NotJoin is Not with an explicit unification list: only Vars unify with
// the outer bindings, every other variable inside is existential. Reverse
// relationship hops use it to prove no entity references a value.
type NotJoin struct {
	Vars    []Var
	Clauses []Clause
}

func (NotJoin) clauseNode() {}
