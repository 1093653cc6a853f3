package store

import (
	"errors"
	"fmt"
)

// ExecError reports a failure while evaluating a native query document:
// an unknown attribute, an unbound variable read, or an operand the
// predicate vocabulary cannot compare. The driver propagates it unchanged.
type ExecError struct {
	Message string
}

func (e *ExecError) Error() string {
	return "query execution: " + e.Message
}

// IsExec reports whether err is (or wraps) an ExecError.
func IsExec(err error) bool {
	var ee *ExecError
	return errors.As(err, &ee)
}

func execErrorf(format string, args ...any) *ExecError {
	return &ExecError{Message: fmt.Sprintf(format, args...)}
}
