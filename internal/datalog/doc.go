// Package datalog defines the native query document: the self-contained,
// serializable artifact the compiler produces and the store executor
// consumes.
//
// A Doc is the familiar find/where query extended with two custom clauses
// the base language lacks: a select clause describing how each output
// column is extracted from the bindings, and an order-by clause reusing
// the same extraction vocabulary. Documents are immutable once built and
// render to byte-identical EDN for identical inputs, which makes compiled
// output diffable and golden-testable.
package datalog
