package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/arbor/internal/meta"
	"github.com/roach88/arbor/internal/render"
	"github.com/roach88/arbor/internal/tree"
)

// NewRootsCommand creates the roots command.
func NewRootsCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &findFlags{}

	cmd := &cobra.Command{
		Use:   "roots <entity>",
		Short: "List the nodes without a parent",
		Long: `List every root node of a tree entity.

Examples:
  arbor roots ClosureCategory
  arbor roots PathCategory --order name:desc --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepository(cmd, rootOpts, flags, args[0], func(ctx context.Context, s *session, repo tree.Repository, opts []tree.Option) error {
				roots, err := repo.FindRoots(ctx, opts...)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to find roots", err)
				}
				return s.writeNodes(repo.Metadata(), roots, render.Flat)
			})
		},
	}
	flags.register(cmd, false)
	return cmd
}

// NewTreesCommand creates the trees command.
func NewTreesCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &findFlags{}

	cmd := &cobra.Command{
		Use:   "trees <entity>",
		Short: "Print every root with its descendant tree",
		Long: `Assemble and print every tree of a tree entity.

Subtrees are fetched concurrently, bounded by traversal.max_concurrency.

Examples:
  arbor trees NestedCategory
  arbor trees NestedCategory --depth 1
  arbor trees PathCategory --relations owner --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepository(cmd, rootOpts, flags, args[0], func(ctx context.Context, s *session, repo tree.Repository, opts []tree.Option) error {
				trees, err := repo.FindTrees(ctx, opts...)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to find trees", err)
				}
				return s.writeNodes(repo.Metadata(), trees, render.Children)
			})
		},
	}
	flags.register(cmd, true)
	return cmd
}

// traverseOptions holds the flags of the descendants and ancestors
// commands.
type traverseOptions struct {
	findFlags
	Tree  bool
	Count bool
}

// NewDescendantsCommand creates the descendants command.
func NewDescendantsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &traverseOptions{}

	cmd := &cobra.Command{
		Use:   "descendants <entity> <id>",
		Short: "List, count or draw the descendants of a node",
		Long: `Query the descendants of a node. The node itself is never included.

Examples:
  arbor descendants ClosureCategory 1
  arbor descendants ClosureCategory 1 --count
  arbor descendants NestedCategory 1 --tree --depth 1
  arbor descendants PathCategory 1 --where-null ownerId --tree`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTraverse(cmd, rootOpts, opts, args[0], args[1], false)
		},
	}
	opts.register(cmd, true)
	cmd.Flags().BoolVar(&opts.Tree, "tree", false, "assemble the descendant tree")
	cmd.Flags().BoolVar(&opts.Count, "count", false, "print the number of descendants")
	cmd.MarkFlagsMutuallyExclusive("tree", "count")
	return cmd
}

// NewAncestorsCommand creates the ancestors command.
func NewAncestorsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &traverseOptions{}

	cmd := &cobra.Command{
		Use:   "ancestors <entity> <id>",
		Short: "List, count or draw the ancestors of a node",
		Long: `Query the ancestors of a node. The node itself is never included.

Examples:
  arbor ancestors ClosureCategory 4
  arbor ancestors NestedCategory 4 --count
  arbor ancestors PathCategory 4 --tree`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTraverse(cmd, rootOpts, opts, args[0], args[1], true)
		},
	}
	opts.register(cmd, false)
	cmd.Flags().BoolVar(&opts.Tree, "tree", false, "link the ancestor chain")
	cmd.Flags().BoolVar(&opts.Count, "count", false, "print the number of ancestors")
	cmd.MarkFlagsMutuallyExclusive("tree", "count")
	return cmd
}

func runTraverse(cmd *cobra.Command, rootOpts *RootOptions, opts *traverseOptions, entity, id string, up bool) error {
	return withRepository(cmd, rootOpts, &opts.findFlags, entity, func(ctx context.Context, s *session, repo tree.Repository, findOpts []tree.Option) error {
		md := repo.Metadata()
		node, err := s.loadNode(ctx, md, id)
		if err != nil {
			return wrapLookup("failed to load node", err)
		}
		s.out.VerboseLog("reference node: %s", render.Label(md, node, s.opts.Label))

		switch {
		case opts.Count && up:
			n, err := repo.CountAncestors(ctx, node, findOpts...)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to count ancestors", err)
			}
			return s.writeCount(n)
		case opts.Count:
			n, err := repo.CountDescendants(ctx, node, findOpts...)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to count descendants", err)
			}
			return s.writeCount(n)
		case opts.Tree && up:
			if _, err := repo.FindAncestorsTree(ctx, node, findOpts...); err != nil {
				return WrapExitError(ExitCommandError, "failed to find ancestors tree", err)
			}
			return s.writeNodes(md, []*meta.Entity{node}, render.Parents)
		case opts.Tree:
			if _, err := repo.FindDescendantsTree(ctx, node, findOpts...); err != nil {
				return WrapExitError(ExitCommandError, "failed to find descendants tree", err)
			}
			return s.writeNodes(md, []*meta.Entity{node}, render.Children)
		case up:
			nodes, err := repo.FindAncestors(ctx, node, findOpts...)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to find ancestors", err)
			}
			return s.writeNodes(md, nodes, render.Flat)
		default:
			nodes, err := repo.FindDescendants(ctx, node, findOpts...)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to find descendants", err)
			}
			return s.writeNodes(md, nodes, render.Flat)
		}
	})
}

// withRepository opens a session, resolves the entity and runs fn with
// its repository and the parsed find options.
func withRepository(cmd *cobra.Command, rootOpts *RootOptions, flags *findFlags, entity string,
	fn func(ctx context.Context, s *session, repo tree.Repository, opts []tree.Option) error,
) error {
	findOpts, err := flags.options(cmd)
	if err != nil {
		return err
	}

	s, err := openSession(cmd, rootOpts)
	if err != nil {
		return err
	}
	defer s.Close()

	md, err := s.entity(entity)
	if err != nil {
		return err
	}
	return fn(commandContext(cmd), s, s.repository(md), findOpts)
}

// writeNodes renders nodes in the configured format.
func (s *session) writeNodes(md *meta.EntityMetadata, nodes []*meta.Entity, links render.Links) error {
	if s.out.Format == "json" {
		data, err := render.JSON(nodes, links)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to render result", err)
		}
		return s.out.Success(json.RawMessage(data))
	}

	w := s.out.Writer
	label := s.label(md)
	if len(nodes) == 0 {
		fmt.Fprintln(w, "No nodes found.")
		return nil
	}
	switch links {
	case render.Children:
		return render.WriteTree(w, nodes, label)
	case render.Parents:
		for _, n := range nodes {
			if err := render.WriteChain(w, n, label); err != nil {
				return err
			}
		}
		return nil
	default:
		return render.WriteList(w, nodes, label)
	}
}

func (s *session) writeCount(n int) error {
	if s.out.Format == "json" {
		return s.out.Success(map[string]int{"count": n})
	}
	_, err := fmt.Fprintln(s.out.Writer, n)
	return err
}
