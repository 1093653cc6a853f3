// Package catalog wraps a schema snapshot of the fact store, the attribute
// identifiers with their value type, cardinality and uniqueness, in an
// immutable, queryable structure.
//
// A Catalog is built once per schema sync and never mutated afterwards, so
// concurrent compiler and post-processor invocations may read it without
// synchronization. Refreshing the schema means building a new Catalog and
// swapping it in whole.
package catalog
