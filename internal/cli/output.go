package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitQueryError   = 1 // Query failure (unsupported request, execution error)
	ExitCommandError = 2 // Command error (invalid paths, unreadable store, ...)
)

// ExitError carries a specific process exit code out of a command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. Errors without a code
// map to ExitQueryError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitQueryError
}

// nullCell is what a null renders as in table output.
const nullCell = ""

// OutputFormatter renders command results in the configured format.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // diagnostics; defaults to Writer
	Verbose   bool
}

// jsonResponse is the envelope for --format json output.
type jsonResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *jsonFail `json:"error,omitempty"`
}

type jsonFail struct {
	Message string `json:"message"`
}

// JSON encodes a success payload in the JSON envelope.
func (f *OutputFormatter) JSON(data any) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonResponse{Status: "ok", Data: data})
}

// Error renders a failure in the configured format and returns an
// ExitError carrying code.
func (f *OutputFormatter) Error(code int, err error) error {
	if f.Format == "json" {
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		_ = enc.Encode(jsonResponse{Status: "error", Error: &jsonFail{Message: err.Error()}})
	} else {
		fmt.Fprintf(f.GetErrWriter(), "Error: %v\n", err)
	}
	return WrapExitError(code, "command failed", err)
}

// VerboseLog writes a diagnostic line when verbose mode is on. Diagnostics
// go to ErrWriter so they never corrupt JSON or EDN output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the writer for diagnostic output.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// Table renders headers and rows as an aligned text table. Nil cells
// render empty; go-pretty does not expect nil values in rows.
func (f *OutputFormatter) Table(headers []string, rows [][]any, elapsed time.Duration) {
	t := table.NewWriter()
	t.SetOutputMirror(f.Writer)

	// Keep header casing as-is.
	t.Style().Format.Header = text.FormatDefault

	head := make(table.Row, len(headers))
	for i, h := range headers {
		head[i] = h
	}
	t.AppendHeader(head)

	for _, row := range rows {
		cells := make(table.Row, len(row))
		for i, v := range row {
			if v == nil {
				cells[i] = nullCell
				continue
			}
			cells[i] = renderCell(v)
		}
		t.AppendRow(cells)
	}
	t.Render()

	fmt.Fprintf(f.Writer, "(%d row(s), %s)\n", len(rows), elapsed.Round(time.Microsecond))
}

// renderCell formats one value for table display.
func renderCell(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case []byte:
		return fmt.Sprintf("0x%x", t)
	default:
		return fmt.Sprintf("%v", v)
	}
}
