package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCompileCommand creates the compile command: translate a request file
// to its native query document without executing it.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "compile <request.yaml>",
		Short: "Compile a query request to its native document",
		Long: `Compile a YAML query request against the current snapshot and print
the native datalog document it translates to. Nothing is executed; use
this to inspect what a request will ask the store for.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompileCmd(cmd, rootOpts, args[0])
		},
	}
}

func runCompileCmd(cmd *cobra.Command, opts *RootOptions, path string) error {
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

	compiled, err := d.Compile(req)
	if err != nil {
		return formatter.Error(ExitQueryError, err)
	}

	text, err := compiled.Doc.EDN()
	if err != nil {
		return formatter.Error(ExitQueryError, err)
	}

	if formatter.Format == "json" {
		cols := make([]string, len(compiled.Columns))
		for i, c := range compiled.Columns {
			cols[i] = c.Name
		}
		return formatter.JSON(map[string]any{
			"document": text,
			"columns":  cols,
		})
	}

	fmt.Fprintln(formatter.Writer, text)
	return nil
}
