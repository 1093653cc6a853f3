// Package edn provides the EDN value vocabulary shared by the native query
// document and the fact store: namespaced keywords, symbols, and a
// deterministic writer.
//
// The writer is the serialization boundary for compiled query documents, so
// it must be byte-identical for identical inputs: map keys are sorted by
// their rendered form, strings are NFC-normalized, and every supported value
// kind has exactly one rendering. There is deliberately no reader: all
// inputs to this repository arrive as CUE or YAML, EDN is an output format.
package edn
