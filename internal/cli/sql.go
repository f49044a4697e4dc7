package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/arbor/internal/query"
	"github.com/roach88/arbor/internal/querysql"
	"github.com/roach88/arbor/internal/tree"
)

// SQLOptions holds flags for the sql command.
type SQLOptions struct {
	*RootOptions
	Ancestors bool
	Count     bool
	Dialect   string
}

// SQLResult is the JSON payload of the sql command.
type SQLResult struct {
	SQL  string `json:"sql"`
	Args []any  `json:"args"`
}

// NewSQLCommand creates the sql command.
func NewSQLCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SQLOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sql <entity> <id>",
		Short: "Print the traversal SQL for a node without running it",
		Long: `Compile the descendants (or ancestors) query of a node and print the
parameterized SQL with its arguments. No database connection is made.

Examples:
  arbor sql PathCategory 2
  arbor sql NestedCategory 2 --ancestors --dialect postgres
  arbor sql ClosureCategory 2 --count --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSQL(opts, cmd, args[0], args[1])
		},
	}

	cmd.Flags().BoolVar(&opts.Ancestors, "ancestors", false, "compile the ancestors query")
	cmd.Flags().BoolVar(&opts.Count, "count", false, "compile the count query")
	cmd.Flags().StringVar(&opts.Dialect, "dialect", "", "SQL dialect (sqlite3|postgres|mysql, default from database.driver)")

	return cmd
}

func runSQL(opts *SQLOptions, cmd *cobra.Command, entity, id string) error {
	s, err := newSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}

	driver := opts.Dialect
	if driver == "" {
		driver = s.cfg.Database.Driver
	}
	d, err := querysql.DialectFor(driver)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid dialect", err)
	}

	md, err := s.entity(entity)
	if err != nil {
		return err
	}
	ref, err := referenceEntity(md, id)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid id", err)
	}

	repo := tree.NewRepository(nil, d, md, tree.WithLogger(s.logger))
	var b *query.Builder
	if opts.Ancestors {
		b, err = repo.CreateAncestorsQueryBuilder(tree.DefaultAlias, tree.DefaultClosureAlias, ref)
	} else {
		b, err = repo.CreateDescendantsQueryBuilder(tree.DefaultAlias, tree.DefaultClosureAlias, ref)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build query", err)
	}

	compile := b.SQL
	if opts.Count {
		compile = b.CountSQL
	}
	sql, args, err := compile()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to compile query", err)
	}

	if s.out.Format == "json" {
		if args == nil {
			args = []any{}
		}
		return s.out.Success(SQLResult{SQL: sql, Args: args})
	}
	fmt.Fprintln(s.out.Writer, sql)
	fmt.Fprintf(s.out.Writer, "-- args: %v\n", args)
	return nil
}
