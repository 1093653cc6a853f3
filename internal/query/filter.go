package query

// Filter is a predicate over one candidate row, prior to expansion.
//
// This is a sealed interface - only types in this package implement it.
// Filters compose as a tree: And/Or/Not over comparison leaves. Every leaf
// operates on a column reference; the compiler translates it into a native
// predicate clause over the column's already-bound logic variable, so rows
// missing the filtered attribute remain candidates unless the comparison
// itself excludes the sentinel.
type Filter interface {
	filterNode() // Marker method - seals interface to this package
}

// And is true when every condition is true. Empty And is vacuously true.
type And struct {
	Conds []Filter
}

func (And) filterNode() {}

// Or is true when at least one condition is true.
type Or struct {
	Conds []Filter
}

func (Or) filterNode() {}

// Not negates its condition.
type Not struct {
	Cond Filter
}

func (Not) filterNode() {}

// Eq compares a column for equality with a literal.
type Eq struct {
	Column ColumnRef
	Value  any
}

func (Eq) filterNode() {}

// NotEq compares a column for inequality with a literal.
type NotEq struct {
	Column ColumnRef
	Value  any
}

func (NotEq) filterNode() {}

// Lt is column < literal.
type Lt struct {
	Column ColumnRef
	Value  any
}

func (Lt) filterNode() {}

// LtEq is column <= literal.
type LtEq struct {
	Column ColumnRef
	Value  any
}

func (LtEq) filterNode() {}

// Gt is column > literal.
type Gt struct {
	Column ColumnRef
	Value  any
}

func (Gt) filterNode() {}

// GtEq is column >= literal.
type GtEq struct {
	Column ColumnRef
	Value  any
}

func (GtEq) filterNode() {}

// Between is Lo <= column <= Hi, inclusive on both ends.
type Between struct {
	Column ColumnRef
	Lo, Hi any
}

func (Between) filterNode() {}

// Contains is a case-sensitive substring test on a string column.
type Contains struct {
	Column ColumnRef
	Substr string
}

func (Contains) filterNode() {}
