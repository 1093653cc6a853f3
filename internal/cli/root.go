// Package cli implements the factgrid command line: schema inspection,
// request compilation, query execution and an interactive shell over a
// local fact store.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	Verbose       bool
	Format        string // "table" | "json" | "edn"
	DB            string // fact store path
	Relationships string // relationship config directory (CUE), optional
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"table", "json", "edn"}

// NewRootCommand creates the root command for the factgrid CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "factgrid",
		Short: "factgrid - tabular queries over an entity/attribute/value fact store",
		Long: `factgrid infers tables from a schema-less fact store and runs
SQL-shaped query requests against it by compiling them to native datalog
documents.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "table", "output format (table|json|edn)")
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "factgrid.db", "fact store path")
	cmd.PersistentFlags().StringVar(&opts.Relationships, "relationships", "", "relationship config directory (CUE)")

	cmd.AddCommand(NewLoadCommand(opts))
	cmd.AddCommand(NewTablesCommand(opts))
	cmd.AddCommand(NewColumnsCommand(opts))
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewShellCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
