package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/arbor/internal/query"
	"github.com/roach88/arbor/internal/tree"
	arborerr "github.com/roach88/arbor/pkg/errors"
)

// findFlags holds the find options shared by the traversal commands.
type findFlags struct {
	Depth     int
	Select    []string
	Where     []string // property=value
	WhereNull []string
	Order     []string // property or property:desc
	Relations []string
	Limit     int
	Offset    int
}

func (f *findFlags) register(cmd *cobra.Command, withDepth bool) {
	if withDepth {
		cmd.Flags().IntVar(&f.Depth, "depth", tree.UnlimitedDepth, "tree depth: -1 unlimited, 0 root only")
	}
	cmd.Flags().StringSliceVar(&f.Select, "select", nil, "properties to load (key columns are always loaded)")
	cmd.Flags().StringArrayVar(&f.Where, "where", nil, "equality filter property=value (repeatable)")
	cmd.Flags().StringSliceVar(&f.WhereNull, "where-null", nil, "properties that must be NULL")
	cmd.Flags().StringSliceVar(&f.Order, "order", nil, "ordering property[:asc|:desc] (default primary key)")
	cmd.Flags().StringSliceVar(&f.Relations, "relations", nil, "relations to load eagerly")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "maximum rows fetched (0 = no limit)")
	cmd.Flags().IntVar(&f.Offset, "offset", 0, "rows skipped")
}

// options converts the flags to tree options. Depth is only passed when
// the flag was set, so the configured default applies otherwise.
func (f *findFlags) options(cmd *cobra.Command) ([]tree.Option, error) {
	var opts []tree.Option

	if flag := cmd.Flags().Lookup("depth"); flag != nil && flag.Changed {
		if f.Depth < tree.UnlimitedDepth {
			return nil, invalidInput("depth must be -1 or more, got %d", f.Depth)
		}
		opts = append(opts, tree.WithDepth(f.Depth))
	}
	if len(f.Select) > 0 {
		opts = append(opts, tree.WithSelect(f.Select...))
	}
	for _, w := range f.Where {
		prop, value, ok := strings.Cut(w, "=")
		if !ok || prop == "" {
			return nil, invalidInput("--where expects property=value, got %q", w)
		}
		opts = append(opts, tree.WithWhere(prop, value))
	}
	for _, prop := range f.WhereNull {
		opts = append(opts, tree.WithWhere(prop, nil))
	}
	for _, o := range f.Order {
		prop, dir, _ := strings.Cut(o, ":")
		switch strings.ToLower(dir) {
		case "", "asc":
			opts = append(opts, tree.WithOrder(prop, query.Asc))
		case "desc":
			opts = append(opts, tree.WithOrder(prop, query.Desc))
		default:
			return nil, invalidInput("--order direction must be asc or desc, got %q", dir)
		}
	}
	if len(f.Relations) > 0 {
		opts = append(opts, tree.WithRelations(f.Relations...))
	}
	if f.Limit < 0 || f.Offset < 0 {
		return nil, invalidInput("--limit and --offset must not be negative")
	}
	opts = append(opts, tree.WithLimit(f.Limit), tree.WithOffset(f.Offset))
	return opts, nil
}

func invalidInput(format string, args ...any) error {
	return WrapExitError(ExitCommandError, "invalid input", arborerr.Errorf(arborerr.CodeCLIInputInvalid, format, args...))
}
