package query

import (
	"fmt"

	"github.com/roach88/arbor/internal/meta"
	"github.com/roach88/arbor/internal/queryir"
	"github.com/roach88/arbor/internal/querysql"
)

// Direction is a sort direction.
type Direction = queryir.Direction

const (
	Asc  = queryir.Asc
	Desc = queryir.Desc
)

// RawKey returns the result column name for a column selected through an
// alias.
func RawKey(alias, column string) string {
	return alias + "_" + column
}

// Builder builds a query over one entity table.
type Builder struct {
	querier  Querier
	dialect  querysql.Dialect
	metadata *meta.EntityMetadata
	alias    string

	joins     []queryir.Join
	where     queryir.Predicate
	orders    []queryir.Order
	limit     int
	offset    int
	selected  []*meta.Column // nil = every column
	relations []*meta.Relation

	// params is shared with subquery builders so their parameters bind on
	// the outer query.
	params map[string]any
	err    error
}

// New creates a builder selecting from the entity's table under alias.
func New(q Querier, d querysql.Dialect, md *meta.EntityMetadata, alias string) *Builder {
	return &Builder{
		querier:  q,
		dialect:  d,
		metadata: md,
		alias:    alias,
		params:   make(map[string]any),
	}
}

// Alias returns the main alias.
func (b *Builder) Alias() string { return b.alias }

// Metadata returns the metadata of the selected entity.
func (b *Builder) Metadata() *meta.EntityMetadata { return b.metadata }

// Err returns the first construction error, if any.
func (b *Builder) Err() error { return b.err }

func (b *Builder) fail(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// InnerJoin joins table under alias with the given ON condition.
func (b *Builder) InnerJoin(table, alias string, on queryir.Predicate) *Builder {
	b.joins = append(b.joins, queryir.Join{
		Kind:  queryir.InnerJoin,
		Table: queryir.Table{Name: table, Alias: alias},
		On:    on,
	})
	return b
}

// LeftJoinRelation eagerly loads a many-to-one relation. The target table
// is joined under "<alias>_<relation>" and hydrated into Entity.Relations.
func (b *Builder) LeftJoinRelation(property string) *Builder {
	rel := b.metadata.Relation(property)
	if rel == nil {
		return b.fail(fmt.Errorf("%s has no relation %q", b.metadata.Name, property))
	}
	for _, r := range b.relations {
		if r == rel {
			return b
		}
	}
	relAlias := RawKey(b.alias, rel.PropertyName)
	preds := make([]queryir.Predicate, len(rel.JoinColumns))
	for i, jc := range rel.JoinColumns {
		preds[i] = queryir.Equals{
			Left:  queryir.Col(relAlias, jc.ReferencedColumn.DatabaseName),
			Right: queryir.Col(b.alias, jc.DatabaseName),
		}
	}
	b.joins = append(b.joins, queryir.Join{
		Kind:  queryir.LeftJoin,
		Table: queryir.Table{Name: rel.Target.TableName, Alias: relAlias},
		On:    queryir.AllOf(preds...),
	})
	b.relations = append(b.relations, rel)
	return b
}

// Where replaces the WHERE condition.
func (b *Builder) Where(p queryir.Predicate) *Builder {
	b.where = p
	return b
}

// AndWhere adds a condition to the WHERE clause.
func (b *Builder) AndWhere(p queryir.Predicate) *Builder {
	b.where = queryir.AllOf(b.where, p)
	return b
}

// SetParameter binds a named parameter.
func (b *Builder) SetParameter(name string, value any) *Builder {
	b.params[name] = value
	return b
}

// SetParameters binds several named parameters.
func (b *Builder) SetParameters(params map[string]any) *Builder {
	for k, v := range params {
		b.params[k] = v
	}
	return b
}

// Parameters returns a copy of the bound parameters.
func (b *Builder) Parameters() map[string]any {
	out := make(map[string]any, len(b.params))
	for k, v := range b.params {
		out[k] = v
	}
	return out
}

// SubQuery starts a builder for a scalar subquery. Its parameters are
// bound on b.
func (b *Builder) SubQuery(md *meta.EntityMetadata, alias string) *Builder {
	sub := New(b.querier, b.dialect, md, alias)
	sub.params = b.params
	return sub
}

// Operand returns the builder's query as a scalar subquery operand.
func (b *Builder) Operand() (queryir.Subquery, error) {
	if b.err != nil {
		return queryir.Subquery{}, b.err
	}
	return queryir.Subquery{Query: b.selectIR(false)}, nil
}

// Select restricts the selected columns to the given properties.
func (b *Builder) Select(properties ...string) *Builder {
	cols := make([]*meta.Column, 0, len(properties))
	for _, p := range properties {
		c := b.metadata.Column(p)
		if c == nil {
			return b.fail(fmt.Errorf("%s has no property %q", b.metadata.Name, p))
		}
		cols = append(cols, c)
	}
	b.selected = cols
	return b
}

// OrderBy replaces the ordering.
func (b *Builder) OrderBy(property string, dir Direction) *Builder {
	b.orders = nil
	return b.AddOrderBy(property, dir)
}

// AddOrderBy appends an ordering term.
func (b *Builder) AddOrderBy(property string, dir Direction) *Builder {
	c := b.metadata.Column(property)
	if c == nil {
		return b.fail(fmt.Errorf("%s has no property %q", b.metadata.Name, property))
	}
	b.orders = append(b.orders, queryir.Order{Column: queryir.Col(b.alias, c.DatabaseName), Direction: dir})
	return b
}

// HasOrder reports whether an ordering has been set.
func (b *Builder) HasOrder() bool { return len(b.orders) > 0 }

// Limit limits the number of rows. Zero means no limit.
func (b *Builder) Limit(n int) *Builder {
	b.limit = n
	return b
}

// Offset skips rows. Zero means no offset.
func (b *Builder) Offset(n int) *Builder {
	b.offset = n
	return b
}

// Query returns the IR of the row query.
func (b *Builder) Query() (queryir.Select, error) {
	if b.err != nil {
		return queryir.Select{}, b.err
	}
	return b.selectIR(true), nil
}

// CountQuery returns the IR counting the distinct primary keys the row
// query would produce.
func (b *Builder) CountQuery() (queryir.Count, error) {
	if b.err != nil {
		return queryir.Count{}, b.err
	}
	src := b.selectIR(false)
	src.Columns = b.projections(b.metadata.PrimaryColumns(), false)
	return queryir.Count{Source: src}, nil
}

// SQL compiles the row query.
func (b *Builder) SQL() (string, []any, error) {
	q, err := b.Query()
	if err != nil {
		return "", nil, err
	}
	return b.compile(q)
}

// CountSQL compiles the count query.
func (b *Builder) CountSQL() (string, []any, error) {
	q, err := b.CountQuery()
	if err != nil {
		return "", nil, err
	}
	return b.compile(q)
}

func (b *Builder) compile(q queryir.Query) (string, []any, error) {
	c := querysql.NewSQLCompiler(b.dialect)
	c.Params = b.params
	return c.Compile(q)
}

func (b *Builder) columns() []*meta.Column {
	if b.selected != nil {
		return b.selected
	}
	return b.metadata.Columns
}

// selectIR assembles the Select. withRelations adds the columns of
// eagerly loaded relations to the projection.
func (b *Builder) selectIR(withRelations bool) queryir.Select {
	sel := queryir.Select{
		Columns: b.projections(b.columns(), withRelations),
		From:    queryir.Table{Name: b.metadata.TableName, Alias: b.alias},
		Joins:   append([]queryir.Join(nil), b.joins...),
		Where:   b.where,
		OrderBy: append([]queryir.Order(nil), b.orders...),
		Limit:   b.limit,
		Offset:  b.offset,
	}
	return sel
}

func (b *Builder) projections(cols []*meta.Column, withRelations bool) []queryir.Projection {
	out := make([]queryir.Projection, 0, len(cols))
	for _, c := range cols {
		out = append(out, queryir.Projection{
			Column: queryir.Col(b.alias, c.DatabaseName),
			As:     RawKey(b.alias, c.DatabaseName),
		})
	}
	if !withRelations {
		return out
	}
	for _, rel := range b.relations {
		relAlias := RawKey(b.alias, rel.PropertyName)
		for _, c := range rel.Target.Columns {
			out = append(out, queryir.Projection{
				Column: queryir.Col(relAlias, c.DatabaseName),
				As:     RawKey(relAlias, c.DatabaseName),
			})
		}
	}
	return out
}
