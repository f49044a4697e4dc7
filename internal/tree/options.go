package tree

import (
	"fmt"

	"github.com/roach88/arbor/internal/meta"
	"github.com/roach88/arbor/internal/query"
	"github.com/roach88/arbor/internal/queryir"
)

// UnlimitedDepth assembles the full subtree.
const UnlimitedDepth = -1

// Options are the find options accepted by tree operations.
type Options struct {
	// Depth bounds descendant tree assembly: -1 unlimited, 0 none,
	// N levels. Ignored by flat finds and ancestor trees.
	Depth int

	// Select restricts the loaded properties. The primary key and the
	// parent relation's columns are always loaded.
	Select []string

	// Where holds equality filters on the main alias.
	Where []Filter

	// Order replaces the default primary-key ordering.
	Order []Ordering

	// Relations lists many-to-one relations to load eagerly.
	Relations []string

	// Limit and Offset are passed to the query builder. On tree
	// operations they truncate the fetched rows and therefore the tree.
	Limit  int
	Offset int
}

// Filter is an equality filter. A nil Value matches NULL.
type Filter struct {
	Property string
	Value    any
}

// Ordering is one ORDER BY term.
type Ordering struct {
	Property  string
	Direction query.Direction
}

// Option configures a tree find.
type Option func(*Options)

// WithDepth bounds descendant tree assembly.
func WithDepth(depth int) Option {
	return func(o *Options) { o.Depth = depth }
}

// WithSelect restricts the loaded properties.
func WithSelect(properties ...string) Option {
	return func(o *Options) { o.Select = append(o.Select, properties...) }
}

// WithWhere adds an equality filter. Filtering can orphan subtrees in
// tree results; orphans are dropped.
func WithWhere(property string, value any) Option {
	return func(o *Options) { o.Where = append(o.Where, Filter{Property: property, Value: value}) }
}

// WithOrder adds an ordering term.
func WithOrder(property string, dir query.Direction) Option {
	return func(o *Options) { o.Order = append(o.Order, Ordering{Property: property, Direction: dir}) }
}

// WithRelations eagerly loads many-to-one relations.
func WithRelations(names ...string) Option {
	return func(o *Options) { o.Relations = append(o.Relations, names...) }
}

// WithLimit limits the number of fetched rows.
func WithLimit(n int) Option {
	return func(o *Options) { o.Limit = n }
}

// WithOffset skips fetched rows.
func WithOffset(n int) Option {
	return func(o *Options) { o.Offset = n }
}

func newOptions(defaultDepth int, opts []Option) *Options {
	o := &Options{Depth: defaultDepth}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// applyOptions applies find options to a tree query. Unlike a plain find,
// the traversal joins are already in place, so every column reference is
// qualified with the builder's main alias.
func applyOptions(b *query.Builder, o *Options) error {
	md := b.Metadata()
	alias := b.Alias()

	if len(o.Select) > 0 {
		b.Select(selectedProperties(md, o.Select)...)
	}

	for i, f := range o.Where {
		col := md.Column(f.Property)
		if col == nil {
			return fmt.Errorf("%s has no property %q", md.Name, f.Property)
		}
		if f.Value == nil {
			b.AndWhere(queryir.IsNull{Operand: queryir.Col(alias, col.DatabaseName)})
			continue
		}
		param := fmt.Sprintf("where_%d_%s", i, col.ParameterName())
		b.AndWhere(queryir.Equals{Left: queryir.Col(alias, col.DatabaseName), Right: queryir.P(param)})
		b.SetParameter(param, f.Value)
	}

	for _, name := range o.Relations {
		b.LeftJoinRelation(name)
	}

	if len(o.Order) > 0 {
		for _, ord := range o.Order {
			b.AddOrderBy(ord.Property, ord.Direction)
		}
	} else {
		for _, pk := range md.PrimaryColumns() {
			b.AddOrderBy(pk.PropertyName, query.Asc)
		}
	}

	b.Limit(o.Limit).Offset(o.Offset)
	return b.Err()
}

// selectedProperties merges the requested properties with the ones tree
// assembly relies on, keeping the requested order first.
func selectedProperties(md *meta.EntityMetadata, requested []string) []string {
	seen := make(map[string]bool, len(requested))
	out := make([]string, 0, len(requested)+3)
	for _, p := range requested {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for _, c := range md.RequiredColumns() {
		if !seen[c.PropertyName] {
			seen[c.PropertyName] = true
			out = append(out, c.PropertyName)
		}
	}
	return out
}
