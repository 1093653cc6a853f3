// Package query defines the structured query request model: the SQL-shaped,
// read-only input the host hands to the compiler.
//
// A Request names a source table and the fields to project from it, plus an
// optional filter tree, ordering, and limit. Fields and filter operands
// reference columns through the sealed ColumnRef sum, which distinguishes
// the entity id, direct attributes, declared foreign-key hops, and
// configured relationship fields. The compiler resolves these references
// against the attribute catalog; this package performs only structural
// validation.
package query
