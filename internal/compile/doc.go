// Package compile translates a structured query request into the native
// query document plus the column metadata the post-processor needs to
// interpret result rows.
//
// Compilation is a pure function of the request, the attribute catalog and
// the relationship configuration: identical inputs produce byte-identical
// documents. The translation follows a fixed recipe: a table-membership
// disjunction establishes the source entity binding, every referenced
// attribute binds null-safely (lookup with the type's placeholder
// sentinel as the fallback, or the disjunctive form for cardinality-many
// attributes), foreign-key and relationship references chain that binding
// pattern across hops, and filters become predicate clauses over the
// already-bound variables. Requests using a feature with no defined
// translation are rejected with UnsupportedError rather than
// mistranslated.
package compile
