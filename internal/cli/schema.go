package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/factgrid/factgrid/internal/schema"
)

// NewTablesCommand creates the tables command: list the inferred tables.
func NewTablesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "tables",
		Short:         "List the tables inferred from the current snapshot",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{
				Format:    rootOpts.Format,
				Writer:    cmd.OutOrStdout(),
				ErrWriter: cmd.ErrOrStderr(),
				Verbose:   rootOpts.Verbose,
			}

			d, err := openDriver(cmd.Context(), rootOpts)
			if err != nil {
				return formatter.Error(ExitCommandError, err)
			}
			defer d.Close()

			started := time.Now()
			tables, err := d.Tables()
			if err != nil {
				return formatter.Error(ExitCommandError, err)
			}

			if formatter.Format == "json" {
				type tableDoc struct {
					Name   string `json:"name"`
					Fields int    `json:"fields"`
				}
				docs := make([]tableDoc, len(tables))
				for i, t := range tables {
					docs[i] = tableDoc{Name: t.Name, Fields: len(t.Fields)}
				}
				return formatter.JSON(docs)
			}

			rows := make([][]any, len(tables))
			for i, t := range tables {
				rows[i] = []any{t.Name, len(t.Fields)}
			}
			formatter.Table([]string{"table", "fields"}, rows, time.Since(started))
			return nil
		},
	}
}

// NewColumnsCommand creates the columns command: describe one table.
func NewColumnsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "columns <table>",
		Short:         "List the fields of one inferred table",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{
				Format:    rootOpts.Format,
				Writer:    cmd.OutOrStdout(),
				ErrWriter: cmd.ErrOrStderr(),
				Verbose:   rootOpts.Verbose,
			}

			d, err := openDriver(cmd.Context(), rootOpts)
			if err != nil {
				return formatter.Error(ExitCommandError, err)
			}
			defer d.Close()

			started := time.Now()
			cols, err := d.Columns(args[0])
			if err != nil {
				return formatter.Error(ExitCommandError, err)
			}

			if formatter.Format == "json" {
				return formatter.JSON(columnDocs(cols))
			}

			rows := make([][]any, len(cols))
			for i, c := range cols {
				rows[i] = []any{c.Name, attrCell(c), string(c.Type), string(c.Cardinality), string(c.Col)}
			}
			formatter.Table([]string{"field", "attribute", "type", "cardinality", "kind"}, rows, time.Since(started))
			return nil
		},
	}
}

type columnDoc struct {
	Name        string `json:"name"`
	Attribute   string `json:"attribute,omitempty"`
	Type        string `json:"type"`
	Cardinality string `json:"cardinality,omitempty"`
	Kind        string `json:"kind"`
	PK          bool   `json:"pk,omitempty"`
}

func columnDocs(cols []schema.Field) []columnDoc {
	docs := make([]columnDoc, len(cols))
	for i, c := range cols {
		docs[i] = columnDoc{
			Name:        c.Name,
			Attribute:   attrCell(c),
			Type:        string(c.Type),
			Cardinality: string(c.Cardinality),
			Kind:        string(c.Col),
			PK:          c.PK,
		}
	}
	return docs
}

// attrCell renders a field's backing attribute; relationship and id fields
// have none.
func attrCell(f schema.Field) string {
	if f.Attr.IsZero() {
		if f.Rel != nil {
			return "(" + f.Rel.Key() + ")"
		}
		return ""
	}
	return f.Attr.Lexical()
}
