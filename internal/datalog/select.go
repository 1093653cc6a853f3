package datalog

import (
	"github.com/factgrid/factgrid/internal/catalog"
	"github.com/factgrid/factgrid/internal/edn"
)

// SelectSpec describes how one output column is extracted from a result
// binding.
//
// This is a sealed interface - only types in this package implement it.
// The closed variant set lets the post-processor match exhaustively; new
// transforms are added as new variants, not through a registry.
//
// Select spec types:
//   - SelectVar: copy a find-clause variable verbatim
//   - SelectField: look an attribute up on a bound entity id, carrying
//     the field metadata downstream transforms need
//   - SelectDateTrunc: truncate a temporal extraction to a unit
type SelectSpec interface {
	selectNode() // Marker method - seals interface to this package
}

// SelectVar copies the binding of Var into the output column unchanged.
type SelectVar struct {
	Var Var
}

func (SelectVar) selectNode() {}

// SelectField extracts attribute Attr from the entity bound to Var. Type
// records the attribute's declared value type; the find-clause variable
// alone would lose it, and the post-processor needs it to pick the
// sentinel mapping and value transforms. A cardinality-many attribute
// extracts as the full value set.
type SelectField struct {
	Var  Var
	Attr edn.Keyword
	Type catalog.ValueType
}

func (SelectField) selectNode() {}

// TruncUnit is a datetime truncation granularity.
type TruncUnit string

const (
	TruncDay     TruncUnit = "day"
	TruncWeek    TruncUnit = "week"
	TruncMonth   TruncUnit = "month"
	TruncQuarter TruncUnit = "quarter"
	TruncYear    TruncUnit = "year"
)

// Valid reports whether u is a known truncation unit.
func (u TruncUnit) Valid() bool {
	switch u {
	case TruncDay, TruncWeek, TruncMonth, TruncQuarter, TruncYear:
		return true
	}
	return false
}

// SelectDateTrunc truncates the instant produced by Of to the start of
// Unit, in UTC.
type SelectDateTrunc struct {
	Of   SelectSpec
	Unit TruncUnit
}

func (SelectDateTrunc) selectNode() {}

// OrderSpec is one order-by entry: sort by the extraction's value,
// descending when Desc is set.
type OrderSpec struct {
	Spec SelectSpec
	Desc bool
}
