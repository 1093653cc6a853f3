package postprocess

import (
	"errors"
	"fmt"
)

// ProcessError reports a mismatch between result rows and the compiled
// column metadata. It indicates the compiler and post-processor disagree
// on column identity, which is an internal invariant violation: the whole
// query aborts rather than emitting partial or incorrect rows. Row and
// Column are -1 when the mismatch is not tied to one position.
type ProcessError struct {
	Row     int
	Column  int
	Message string
}

func (e *ProcessError) Error() string {
	switch {
	case e.Row >= 0 && e.Column >= 0:
		return fmt.Sprintf("post-processing row %d, column %d: %s", e.Row, e.Column, e.Message)
	case e.Row >= 0:
		return fmt.Sprintf("post-processing row %d: %s", e.Row, e.Message)
	default:
		return fmt.Sprintf("post-processing: %s", e.Message)
	}
}

// IsProcess reports whether err is (or wraps) a ProcessError.
func IsProcess(err error) bool {
	var pe *ProcessError
	return errors.As(err, &pe)
}
