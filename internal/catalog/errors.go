package catalog

import "errors"

// LoadError reports a schema snapshot that could not be read or understood.
// It is fatal to schema inference: the host sees it as a describe failure,
// never a partially loaded catalog.
type LoadError struct {
	// Ident is the offending attribute identifier, when one is known.
	Ident string

	// Message describes what was wrong with the snapshot.
	Message string

	// Err is the underlying decode error, if any.
	Err error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	msg := "schema load: " + e.Message
	if e.Ident != "" {
		msg += " (attribute " + e.Ident + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the underlying decode error.
func (e *LoadError) Unwrap() error { return e.Err }

// IsLoadError reports whether err is (or wraps) a LoadError.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}
