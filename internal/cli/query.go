package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/factgrid/factgrid"
	"github.com/factgrid/factgrid/internal/edn"
)

// NewQueryCommand creates the query command: run a request file against
// the store and render the result rows.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "query <request.yaml>",
		Short:         "Run a query request and print the result",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueryCmd(cmd, rootOpts, args[0])
		},
	}
}

func runQueryCmd(cmd *cobra.Command, opts *RootOptions, path string) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	req, err := loadRequestFile(path)
	if err != nil {
		return formatter.Error(ExitCommandError, err)
	}

	d, err := openDriver(cmd.Context(), opts)
	if err != nil {
		return formatter.Error(ExitCommandError, err)
	}
	defer d.Close()

	started := time.Now()
	res, err := d.Query(cmd.Context(), req)
	if err != nil {
		return formatter.Error(ExitQueryError, err)
	}

	return writeResult(formatter, res, time.Since(started))
}

// writeResult renders a query result in the formatter's format. Shared
// with the shell.
func writeResult(f *OutputFormatter, res *factgrid.Result, elapsed time.Duration) error {
	headers := make([]string, len(res.Columns))
	for i, c := range res.Columns {
		headers[i] = c.Name
	}

	switch f.Format {
	case "json":
		rows := make([][]any, len(res.Rows))
		for i, row := range res.Rows {
			rows[i] = make([]any, len(row))
			for j, v := range row {
				rows[i][j] = jsonCell(v)
			}
		}
		return f.JSON(map[string]any{
			"columns": headers,
			"rows":    rows,
		})

	case "edn":
		for _, row := range res.Rows {
			text, err := edn.MarshalString(row)
			if err != nil {
				return f.Error(ExitQueryError, err)
			}
			fmt.Fprintln(f.Writer, text)
		}
		return nil

	default:
		f.Table(headers, res.Rows, elapsed)
		return nil
	}
}

// jsonCell maps result values onto JSON-encodable ones. Most types encode
// directly; the EDN-flavored ones need their text forms.
func jsonCell(v any) any {
	switch t := v.(type) {
	case edn.Keyword:
		return t.Lexical()
	case edn.Symbol:
		return string(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case fmt.Stringer:
		return t.String()
	default:
		return v
	}
}
