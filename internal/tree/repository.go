package tree

import (
	"context"
	"database/sql"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/arbor/internal/meta"
	"github.com/roach88/arbor/internal/query"
	"github.com/roach88/arbor/internal/querysql"
)

var tracer = otel.Tracer("arbor.tree")

// DefaultMaxConcurrency bounds the subtree fetches FindTrees runs at once.
const DefaultMaxConcurrency = 8

// Repository is the read side of a tree entity.
//
// All operations are self-exclusive: a node is never returned or counted
// among its own descendants or ancestors.
type Repository interface {
	// Metadata returns the entity metadata the repository is bound to.
	Metadata() *meta.EntityMetadata

	// FindTrees returns every root with its descendant tree assembled.
	FindTrees(ctx context.Context, opts ...Option) ([]*meta.Entity, error)

	// FindRoots returns the nodes without a parent.
	FindRoots(ctx context.Context, opts ...Option) ([]*meta.Entity, error)

	FindDescendants(ctx context.Context, entity *meta.Entity, opts ...Option) ([]*meta.Entity, error)
	FindDescendantsTree(ctx context.Context, entity *meta.Entity, opts ...Option) (*meta.Entity, error)
	CountDescendants(ctx context.Context, entity *meta.Entity, opts ...Option) (int, error)
	CreateDescendantsQueryBuilder(alias, closureAlias string, entity *meta.Entity) (*query.Builder, error)

	FindAncestors(ctx context.Context, entity *meta.Entity, opts ...Option) ([]*meta.Entity, error)
	FindAncestorsTree(ctx context.Context, entity *meta.Entity, opts ...Option) (*meta.Entity, error)
	CountAncestors(ctx context.Context, entity *meta.Entity, opts ...Option) (int, error)
	CreateAncestorsQueryBuilder(alias, closureAlias string, entity *meta.Entity) (*query.Builder, error)
}

// TreeRepository implements Repository over a database/sql querier.
//
// It holds no per-call state and is safe for concurrent use.
type TreeRepository struct {
	querier  query.Querier
	dialect  querysql.Dialect
	metadata *meta.EntityMetadata

	logger         *slog.Logger
	maxConcurrency int
	defaultDepth   int
}

var _ Repository = (*TreeRepository)(nil)

// RepositoryOption configures a TreeRepository.
type RepositoryOption func(*TreeRepository)

// WithLogger sets the logger. Traversals are logged at Debug.
func WithLogger(l *slog.Logger) RepositoryOption {
	return func(r *TreeRepository) { r.logger = l }
}

// WithMaxConcurrency bounds the subtree fetches FindTrees runs at once.
// Zero or negative means one goroutine per root. The bound only applies
// to a *sql.DB querier; on a transaction or connection FindTrees fetches
// subtrees one at a time.
func WithMaxConcurrency(n int) RepositoryOption {
	return func(r *TreeRepository) { r.maxConcurrency = n }
}

// WithDefaultDepth sets the tree depth used when a call passes no
// WithDepth option.
func WithDefaultDepth(depth int) RepositoryOption {
	return func(r *TreeRepository) { r.defaultDepth = depth }
}

// NewRepository creates a repository for a tree entity.
func NewRepository(q query.Querier, d querysql.Dialect, md *meta.EntityMetadata, opts ...RepositoryOption) *TreeRepository {
	r := &TreeRepository{
		querier:        q,
		dialect:        d,
		metadata:       md,
		logger:         slog.Default(),
		maxConcurrency: DefaultMaxConcurrency,
		defaultDepth:   UnlimitedDepth,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(slog.String("entity", md.Name))
	return r
}

// Metadata returns the entity metadata.
func (r *TreeRepository) Metadata() *meta.EntityMetadata {
	return r.metadata
}

func (r *TreeRepository) startSpan(ctx context.Context, op string) (context.Context, trace.Span) {
	kind := "none"
	if r.metadata.Encoding != nil {
		kind = string(r.metadata.Encoding.Kind())
	}
	return tracer.Start(ctx, "tree."+op,
		trace.WithAttributes(
			attribute.String("tree.entity", r.metadata.Name),
			attribute.String("tree.encoding", kind),
		),
	)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// logQuery logs the compiled SQL of a traversal at Debug.
func (r *TreeRepository) logQuery(ctx context.Context, op string, b *query.Builder, count bool) {
	if !r.logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	sql, args, err := b.SQL()
	if count {
		sql, args, err = b.CountSQL()
	}
	if err != nil {
		return
	}
	r.logger.DebugContext(ctx, "tree query",
		slog.String("op", op),
		slog.String("sql", sql),
		slog.Int("args", len(args)),
	)
}

// FindRoots returns the nodes whose parent join columns are NULL.
func (r *TreeRepository) FindRoots(ctx context.Context, opts ...Option) (roots []*meta.Entity, err error) {
	ctx, span := r.startSpan(ctx, "FindRoots")
	defer func() { endSpan(span, err) }()

	b, err := r.rootsQuery(DefaultAlias)
	if err != nil {
		return nil, err
	}
	if err := applyOptions(b, newOptions(r.defaultDepth, opts)); err != nil {
		return nil, err
	}
	r.logQuery(ctx, "FindRoots", b, false)
	return b.GetMany(ctx)
}

// FindTrees returns every root with its full descendant tree.
//
// Subtrees are fetched concurrently, at most maxConcurrency at a time,
// when the querier is a *sql.DB and sequentially otherwise.
// The result keeps root order. The first failure cancels the remaining
// fetches and is returned.
func (r *TreeRepository) FindTrees(ctx context.Context, opts ...Option) (trees []*meta.Entity, err error) {
	ctx, span := r.startSpan(ctx, "FindTrees")
	defer func() { endSpan(span, err) }()

	roots, err := r.FindRoots(ctx, opts...)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("tree.roots", len(roots)))

	g, gctx := errgroup.WithContext(ctx)
	if limit := r.fanOutLimit(); limit > 0 {
		g.SetLimit(limit)
	}
	for _, root := range roots {
		root := root
		g.Go(func() error {
			_, err := r.FindDescendantsTree(gctx, root, opts...)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.logger.DebugContext(ctx, "trees assembled", slog.Int("roots", len(roots)))
	return roots, nil
}

// fanOutLimit is the errgroup limit for FindTrees, 0 for unbounded. Only a
// pooled *sql.DB accepts concurrent statements; a *sql.Tx or *sql.Conn
// runs one at a time.
func (r *TreeRepository) fanOutLimit() int {
	if _, pooled := r.querier.(*sql.DB); !pooled {
		return 1
	}
	return r.maxConcurrency
}

// FindDescendants returns every descendant of entity as a flat list.
func (r *TreeRepository) FindDescendants(ctx context.Context, entity *meta.Entity, opts ...Option) (out []*meta.Entity, err error) {
	ctx, span := r.startSpan(ctx, "FindDescendants")
	defer func() { endSpan(span, err) }()

	return r.findFlat(ctx, "FindDescendants", entity, descendants, opts)
}

// FindAncestors returns every ancestor of entity as a flat list.
func (r *TreeRepository) FindAncestors(ctx context.Context, entity *meta.Entity, opts ...Option) (out []*meta.Entity, err error) {
	ctx, span := r.startSpan(ctx, "FindAncestors")
	defer func() { endSpan(span, err) }()

	return r.findFlat(ctx, "FindAncestors", entity, ancestors, opts)
}

func (r *TreeRepository) findFlat(ctx context.Context, op string, entity *meta.Entity, dir direction, opts []Option) ([]*meta.Entity, error) {
	b, err := r.traversalQuery(DefaultAlias, DefaultClosureAlias, entity, traversal{dir: dir})
	if err != nil {
		return nil, err
	}
	if err := applyOptions(b, newOptions(r.defaultDepth, opts)); err != nil {
		return nil, err
	}
	r.logQuery(ctx, op, b, false)
	return b.GetMany(ctx)
}

// CountDescendants counts the descendants of entity without loading them.
func (r *TreeRepository) CountDescendants(ctx context.Context, entity *meta.Entity, opts ...Option) (n int, err error) {
	ctx, span := r.startSpan(ctx, "CountDescendants")
	defer func() { endSpan(span, err) }()

	return r.count(ctx, "CountDescendants", entity, descendants, opts)
}

// CountAncestors counts the ancestors of entity without loading them.
func (r *TreeRepository) CountAncestors(ctx context.Context, entity *meta.Entity, opts ...Option) (n int, err error) {
	ctx, span := r.startSpan(ctx, "CountAncestors")
	defer func() { endSpan(span, err) }()

	return r.count(ctx, "CountAncestors", entity, ancestors, opts)
}

func (r *TreeRepository) count(ctx context.Context, op string, entity *meta.Entity, dir direction, opts []Option) (int, error) {
	b, err := r.traversalQuery(DefaultAlias, DefaultClosureAlias, entity, traversal{dir: dir})
	if err != nil {
		return 0, err
	}
	if err := applyOptions(b, newOptions(r.defaultDepth, opts)); err != nil {
		return 0, err
	}
	r.logQuery(ctx, op, b, true)
	return b.GetCount(ctx)
}

// FindDescendantsTree fills entity.Children with its descendant tree, up
// to the WithDepth level, and returns entity.
//
// Rows whose parent is not part of the result (for example filtered out
// with WithWhere) are dropped together with their subtrees.
func (r *TreeRepository) FindDescendantsTree(ctx context.Context, entity *meta.Entity, opts ...Option) (out *meta.Entity, err error) {
	ctx, span := r.startSpan(ctx, "FindDescendantsTree")
	defer func() { endSpan(span, err) }()

	o := newOptions(r.defaultDepth, opts)
	res, err := r.findRaw(ctx, "FindDescendantsTree", entity, descendants, o)
	if err != nil {
		return nil, err
	}

	rm := buildRelationMap(r.metadata, DefaultAlias, res.Raw)
	newAssembler(r.metadata, res.Entities, rm).attachChildren(entity, o.Depth)
	return entity, nil
}

// FindAncestorsTree links entity to its full ancestor chain through
// Parent and returns entity.
func (r *TreeRepository) FindAncestorsTree(ctx context.Context, entity *meta.Entity, opts ...Option) (out *meta.Entity, err error) {
	ctx, span := r.startSpan(ctx, "FindAncestorsTree")
	defer func() { endSpan(span, err) }()

	res, err := r.findRaw(ctx, "FindAncestorsTree", entity, ancestors, newOptions(r.defaultDepth, opts))
	if err != nil {
		return nil, err
	}

	rm := buildRelationMap(r.metadata, DefaultAlias, res.Raw)
	newAssembler(r.metadata, res.Entities, rm).attachParents(entity)
	return entity, nil
}

func (r *TreeRepository) findRaw(ctx context.Context, op string, entity *meta.Entity, dir direction, o *Options) (*query.RawAndEntities, error) {
	b, err := r.traversalQuery(DefaultAlias, DefaultClosureAlias, entity, traversal{dir: dir, inclusive: true})
	if err != nil {
		return nil, err
	}
	if err := applyOptions(b, o); err != nil {
		return nil, err
	}
	r.logQuery(ctx, op, b, false)

	res, err := b.GetRawAndEntities(ctx)
	if err != nil {
		return nil, err
	}
	r.logger.DebugContext(ctx, "tree rows fetched", slog.String("op", op), slog.Int("rows", len(res.Raw)))
	return res, nil
}
