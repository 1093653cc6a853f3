package factgrid

import (
	"github.com/factgrid/factgrid/internal/catalog"
	"github.com/factgrid/factgrid/internal/compile"
	"github.com/factgrid/factgrid/internal/postprocess"
	"github.com/factgrid/factgrid/internal/store"
)

// The pipeline's failure classes, re-exported so callers can branch on
// them without importing the internal packages that define them.

// IsSchemaLoad reports a snapshot that could not be read or understood.
// The catalog is never partially loaded.
func IsSchemaLoad(err error) bool { return catalog.IsLoadError(err) }

// IsUnsupported reports a request using a feature with no defined
// translation. The request itself is well-formed; it asks for something
// the compiler deliberately refuses.
func IsUnsupported(err error) bool { return compile.IsUnsupported(err) }

// IsInvariant reports a violated compiler invariant - a bug in the
// compiler, not bad input.
func IsInvariant(err error) bool { return compile.IsInvariant(err) }

// IsPostProcess reports a failure while transforming raw executor rows,
// usually a mismatch between the rows and the compiled column metadata.
func IsPostProcess(err error) bool { return postprocess.IsProcess(err) }

// IsExecution reports a failure inside query evaluation.
func IsExecution(err error) bool { return store.IsExec(err) }
