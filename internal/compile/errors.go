package compile

import (
	"errors"
	"fmt"

	"github.com/factgrid/factgrid/internal/datalog"
)

// UnsupportedError rejects a request that uses a feature with no defined
// translation. The request is never partially compiled: the caller gets
// either a complete document or this error.
type UnsupportedError struct {
	// Feature names the request surface that cannot be translated
	// ("aggregation", "table", "field", "filter", "order-by", ...).
	Feature string

	// Fragment is the offending piece of the request, quoted so the
	// failure can be diagnosed without re-running.
	Fragment string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("unsupported query %s: %s", e.Feature, e.Fragment)
}

// IsUnsupported reports whether err is (or wraps) an UnsupportedError.
func IsUnsupported(err error) bool {
	var ue *UnsupportedError
	return errors.As(err, &ue)
}

func unsupported(feature, format string, args ...any) *UnsupportedError {
	return &UnsupportedError{Feature: feature, Fragment: fmt.Sprintf(format, args...)}
}

// InvariantError reports a violated compiler invariant: a logic-variable
// collision or an inconsistency between the document and its column
// metadata. It indicates a bug in the compiler, not bad input, and is
// never silently recovered.
type InvariantError struct {
	Var    datalog.Var
	Reason string
}

func (e *InvariantError) Error() string {
	if e.Var != "" {
		return fmt.Sprintf("compiler invariant violated: %s: %s", e.Var, e.Reason)
	}
	return fmt.Sprintf("compiler invariant violated: %s", e.Reason)
}

// IsInvariant reports whether err is (or wraps) an InvariantError.
func IsInvariant(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}
