package cli

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/arbor/internal/config"
	"github.com/roach88/arbor/internal/meta"
	"github.com/roach88/arbor/internal/query"
	"github.com/roach88/arbor/internal/queryir"
	"github.com/roach88/arbor/internal/render"
	"github.com/roach88/arbor/internal/sample"
	"github.com/roach88/arbor/internal/schema"
	"github.com/roach88/arbor/internal/store"
	"github.com/roach88/arbor/internal/tree"
	arborerr "github.com/roach88/arbor/pkg/errors"
)

// session bundles what a command needs: configuration, logger, entity
// registry and, for commands that query, an open store.
type session struct {
	opts     *RootOptions
	cfg      *config.Config
	logger   *slog.Logger
	registry *schema.Registry
	store    *store.Store
	out      *OutputFormatter
}

// newSession loads configuration and the entity registry. The store is
// opened separately by commands that need the database.
func newSession(cmd *cobra.Command, opts *RootOptions) (*session, error) {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.Database.DSN = opts.Database
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.Log, opts.Verbose)
	slog.SetDefault(logger)

	var registry *schema.Registry
	if cfg.Schema.Dir != "" {
		logger.Debug("loading schema", "dir", cfg.Schema.Dir)
		registry, err = schema.Load(cfg.Schema.Dir)
	} else {
		registry, err = sample.Schema()
	}
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load schema", err)
	}

	return &session{
		opts:     opts,
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		out: &OutputFormatter{
			Format:    opts.Format,
			Writer:    cmd.OutOrStdout(),
			ErrWriter: cmd.ErrOrStderr(),
			Verbose:   opts.Verbose,
		},
	}, nil
}

// openSession is newSession plus an open store.
func openSession(cmd *cobra.Command, opts *RootOptions) (*session, error) {
	s, err := newSession(cmd, opts)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("opening database", "driver", s.cfg.Database.Driver)
	st, err := store.Open(commandContext(cmd), s.cfg.Database.Driver, s.cfg.Database.DSN)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	s.store = st
	return s, nil
}

func (s *session) Close() {
	if s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error("error closing database", "error", err)
	}
}

// newLogger builds the slog handler selected by configuration. Verbose
// forces Debug.
func newLogger(w io.Writer, cfg config.LogConfig, verbose bool) *slog.Logger {
	level := cfg.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	hopts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}

// entity looks up entity metadata by name.
func (s *session) entity(name string) (*meta.EntityMetadata, error) {
	md, err := s.registry.Entity(name)
	if err != nil {
		return nil, wrapLookup("unknown entity", err)
	}
	return md, nil
}

// repository returns a tree repository configured from the traversal
// section.
func (s *session) repository(md *meta.EntityMetadata) *tree.TreeRepository {
	return s.store.Repository(md,
		tree.WithLogger(s.logger),
		tree.WithMaxConcurrency(s.cfg.Traversal.MaxConcurrency),
		tree.WithDefaultDepth(s.cfg.Traversal.DefaultDepth),
	)
}

// label formats nodes for text output.
func (s *session) label(md *meta.EntityMetadata) func(*meta.Entity) string {
	return func(e *meta.Entity) string { return render.Label(md, e, s.opts.Label) }
}

// referenceEntity builds an entity holding only primary key values from
// an id argument. Composite keys are written "a/b" in declaration order.
func referenceEntity(md *meta.EntityMetadata, id string) (*meta.Entity, error) {
	pks := md.PrimaryColumns()
	parts := strings.Split(id, "/")
	if len(parts) != len(pks) {
		return nil, arborerr.New(arborerr.CodeCLIInputInvalid, "id does not match the primary key",
			arborerr.FieldEntity(md.Name),
			arborerr.Field("id", id),
			arborerr.Field("key_columns", len(pks)),
		)
	}
	e := meta.NewEntity(nil)
	for i, pk := range pks {
		e.Set(pk.PropertyName, parts[i])
	}
	return e, nil
}

// loadNode fetches the reference node so traversals start from a stored
// row, parent links included.
func (s *session) loadNode(ctx context.Context, md *meta.EntityMetadata, id string) (*meta.Entity, error) {
	ref, err := referenceEntity(md, id)
	if err != nil {
		return nil, err
	}

	b := query.New(s.store.DB(), s.store.Dialect(), md, tree.DefaultAlias)
	preds := make([]queryir.Predicate, 0, len(md.PrimaryColumns()))
	for _, pk := range md.PrimaryColumns() {
		preds = append(preds, queryir.Equals{
			Left:  queryir.Col(tree.DefaultAlias, pk.DatabaseName),
			Right: queryir.P(pk.ParameterName()),
		})
		b.SetParameter(pk.ParameterName(), pk.ValueOf(ref))
	}

	nodes, err := b.Where(queryir.AllOf(preds...)).Limit(1).GetMany(ctx)
	if err != nil {
		return nil, arborerr.Wrap(err, arborerr.CodeCLIQueryFailure, "load node", arborerr.FieldEntity(md.Name))
	}
	if len(nodes) == 0 {
		return nil, arborerr.New(arborerr.CodeCLINodeNotFound, "node not found",
			arborerr.FieldEntity(md.Name), arborerr.Field("id", id))
	}
	return nodes[0], nil
}

// commandContext returns the command's context, or Background when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
