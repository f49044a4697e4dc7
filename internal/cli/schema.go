package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/arbor/internal/meta"
	"github.com/roach88/arbor/internal/sample"
)

// SchemaOptions holds flags for the schema command.
type SchemaOptions struct {
	*RootOptions
	Source bool
}

// EntitySummary describes one entity in schema output.
type EntitySummary struct {
	Name      string   `json:"name"`
	Table     string   `json:"table"`
	Encoding  string   `json:"encoding"`
	Columns   []string `json:"columns"`
	Relations []string `json:"relations"`
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SchemaOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "List the entities of the configured schema",
		Long: `List entity names, tables and tree encodings.

The schema is read from schema.dir, or the built-in sample schema when
it is unset.

Examples:
  arbor schema
  arbor schema --format json
  arbor schema --source`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Source, "source", false, "print the CUE source of the built-in schema")

	return cmd
}

func runSchema(opts *SchemaOptions, cmd *cobra.Command) error {
	s, err := newSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}

	if opts.Source {
		if s.cfg.Schema.Dir != "" {
			return NewExitError(ExitCommandError, "--source is only available for the built-in schema")
		}
		_, err := s.out.Writer.Write(sample.SchemaSource())
		return err
	}

	summaries := make([]EntitySummary, 0, len(s.registry.Names()))
	for _, name := range s.registry.Names() {
		md, err := s.registry.Entity(name)
		if err != nil {
			return wrapLookup("failed to read schema", err)
		}
		summaries = append(summaries, summarize(md))
	}

	if s.out.Format == "json" {
		return s.out.Success(summaries)
	}
	tw := tabwriter.NewWriter(s.out.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ENTITY\tTABLE\tENCODING")
	for _, e := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Name, e.Table, e.Encoding)
	}
	return tw.Flush()
}

func summarize(md *meta.EntityMetadata) EntitySummary {
	e := EntitySummary{
		Name:      md.Name,
		Table:     md.TableName,
		Encoding:  "none",
		Columns:   make([]string, len(md.Columns)),
		Relations: make([]string, len(md.Relations)),
	}
	if md.Encoding != nil {
		e.Encoding = string(md.Encoding.Kind())
	}
	for i, c := range md.Columns {
		e.Columns[i] = c.PropertyName
	}
	for i, r := range md.Relations {
		e.Relations[i] = r.PropertyName
	}
	return e
}
