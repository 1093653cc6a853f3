package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/factgrid/factgrid"
	"github.com/factgrid/factgrid/internal/query"
	"github.com/factgrid/factgrid/internal/schema"
)

// shellDriver is the slice of the driver surface the shell touches,
// narrowed so shell behavior is testable without a live store.
type shellDriver interface {
	Tables() ([]schema.Table, error)
	Columns(table string) ([]schema.Field, error)
	Sync(ctx context.Context) error
	Query(ctx context.Context, req *query.Request) (*factgrid.Result, error)
}

const (
	promptBegin = "factgrid> "
	promptMid   = "     ...> "

	// terminator ends a multi-line request block.
	terminator = ";"

	splash = `factgrid shell
Type a YAML query request and finish it with ";" on its own line.
Meta commands: \tables  \columns <table>  \sync  \format <table|json|edn>  \q
`
)

// NewShellCommand creates the interactive shell.
func NewShellCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "shell",
		Short:         "Interactive query shell",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd, rootOpts)
		},
	}
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".factgrid_history")
}

func runShell(cmd *cobra.Command, opts *RootOptions) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	d, err := openDriver(cmd.Context(), opts)
	if err != nil {
		return formatter.Error(ExitCommandError, err)
	}
	defer d.Close()

	fmt.Fprint(formatter.Writer, splash)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:      promptBegin,
		HistoryFile: historyPath(),
		Stdin:       io.NopCloser(cmd.InOrStdin()),
		Stdout:      cmd.OutOrStdout(),
		Stderr:      cmd.ErrOrStderr(),
	})
	if err != nil {
		return formatter.Error(ExitCommandError, fmt.Errorf("initializing readline: %w", err))
	}
	defer rl.Close()

	var pending []string
	for {
		if len(pending) > 0 {
			rl.SetPrompt(promptMid)
		} else {
			rl.SetPrompt(promptBegin)
		}

		line, err := rl.Readline()
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			// Ctrl-C drops the pending block, not the shell.
			pending = nil
			continue
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return formatter.Error(ExitCommandError, fmt.Errorf("reading line: %w", err))
		}

		trimmed := strings.TrimSpace(line)
		if len(pending) == 0 {
			switch {
			case trimmed == "":
				continue
			case strings.HasPrefix(trimmed, `\`):
				if quit := runMeta(formatter, d, cmd, trimmed, opts); quit {
					return nil
				}
				continue
			}
		}

		if trimmed == terminator {
			runShellRequest(formatter, d, cmd, strings.Join(pending, "\n"))
			pending = nil
			continue
		}
		pending = append(pending, line)
	}
}

// runMeta executes one backslash command. Returns true on quit.
func runMeta(f *OutputFormatter, d shellDriver, cmd *cobra.Command, line string, opts *RootOptions) bool {
	name, arg, _ := strings.Cut(strings.TrimPrefix(line, `\`), " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "q", "quit", "exit":
		return true

	case "tables":
		started := time.Now()
		tables, err := d.Tables()
		if err != nil {
			fmt.Fprintf(f.GetErrWriter(), "Error: %v\n", err)
			return false
		}
		rows := make([][]any, len(tables))
		for i, t := range tables {
			rows[i] = []any{t.Name, len(t.Fields)}
		}
		f.Table([]string{"table", "fields"}, rows, time.Since(started))

	case "columns":
		if arg == "" {
			fmt.Fprintln(f.GetErrWriter(), `usage: \columns <table>`)
			return false
		}
		started := time.Now()
		cols, err := d.Columns(arg)
		if err != nil {
			fmt.Fprintf(f.GetErrWriter(), "Error: %v\n", err)
			return false
		}
		rows := make([][]any, len(cols))
		for i, c := range cols {
			rows[i] = []any{c.Name, attrCell(c), string(c.Type), string(c.Cardinality), string(c.Col)}
		}
		f.Table([]string{"field", "attribute", "type", "cardinality", "kind"}, rows, time.Since(started))

	case "sync":
		if err := d.Sync(cmd.Context()); err != nil {
			fmt.Fprintf(f.GetErrWriter(), "Error: %v\n", err)
			return false
		}
		fmt.Fprintln(f.Writer, "snapshot refreshed")

	case "format":
		if !isValidFormat(arg) {
			fmt.Fprintf(f.GetErrWriter(), "invalid format %q: must be one of %v\n", arg, ValidFormats)
			return false
		}
		f.Format = arg
		opts.Format = arg

	default:
		fmt.Fprintf(f.GetErrWriter(), "unknown command \\%s\n", name)
	}
	return false
}

// runShellRequest parses and executes one YAML request block.
func runShellRequest(f *OutputFormatter, d shellDriver, cmd *cobra.Command, src string) {
	if strings.TrimSpace(src) == "" {
		return
	}

	req, err := query.DecodeRequest(strings.NewReader(src))
	if err != nil {
		fmt.Fprintf(f.GetErrWriter(), "Error: %v\n", err)
		return
	}

	started := time.Now()
	res, err := d.Query(cmd.Context(), req)
	if err != nil {
		fmt.Fprintf(f.GetErrWriter(), "Error: %v\n", err)
		return
	}
	if err := writeResult(f, res, time.Since(started)); err != nil {
		fmt.Fprintf(f.GetErrWriter(), "Error: %v\n", err)
	}
}
