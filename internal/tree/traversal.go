package tree

import (
	"fmt"

	"github.com/roach88/arbor/internal/meta"
	"github.com/roach88/arbor/internal/query"
	"github.com/roach88/arbor/internal/queryir"
)

// Aliases used by traversal queries.
const (
	DefaultAlias        = "treeEntity"
	DefaultClosureAlias = "treeClosure"

	joinedAlias    = "joined"
	referenceAlias = "reference"
)

type direction int

const (
	descendants direction = iota
	ancestors
)

func (d direction) String() string {
	if d == ancestors {
		return "ancestors"
	}
	return "descendants"
}

// traversal selects the reference node's descendant or ancestor set.
//
// Exclusive traversals never return the reference node. Inclusive ones
// return it too, for every encoding; tree assembly reads the reference
// row's own parent link from it.
type traversal struct {
	dir       direction
	inclusive bool
}

// CreateDescendantsQueryBuilder returns a query selecting every descendant
// of entity, excluding entity itself. closureAlias names the junction
// table alias and is only used by closure-table entities.
func (r *TreeRepository) CreateDescendantsQueryBuilder(alias, closureAlias string, entity *meta.Entity) (*query.Builder, error) {
	return r.traversalQuery(alias, closureAlias, entity, traversal{dir: descendants})
}

// CreateAncestorsQueryBuilder returns a query selecting every ancestor of
// entity, excluding entity itself.
func (r *TreeRepository) CreateAncestorsQueryBuilder(alias, closureAlias string, entity *meta.Entity) (*query.Builder, error) {
	return r.traversalQuery(alias, closureAlias, entity, traversal{dir: ancestors})
}

func (r *TreeRepository) traversalQuery(alias, closureAlias string, entity *meta.Entity, t traversal) (*query.Builder, error) {
	md := r.metadata
	if entity == nil {
		return nil, fmt.Errorf("%s: nil reference entity", md.Name)
	}
	if md.ParentRelation == nil && md.Encoding != nil {
		return nil, &ConfigurationError{Entity: md.Name, Message: "tree entity has no parent relation"}
	}

	b := query.New(r.querier, r.dialect, md, alias)

	var match queryir.Predicate
	switch enc := md.Encoding.(type) {
	case *meta.ClosureTable:
		joinCols, filterCols := enc.DescendantColumns, enc.AncestorColumns
		if t.dir == ancestors {
			joinCols, filterCols = enc.AncestorColumns, enc.DescendantColumns
		}
		on := make([]queryir.Predicate, len(joinCols))
		for i, jc := range joinCols {
			on[i] = queryir.Equals{
				Left:  queryir.Col(closureAlias, jc.DatabaseName),
				Right: queryir.Col(alias, jc.ReferencedColumn.DatabaseName),
			}
		}
		b.InnerJoin(enc.TableName, closureAlias, queryir.AllOf(on...))

		filters := make([]queryir.Predicate, len(filterCols))
		for i, fc := range filterCols {
			ref := fc.ReferencedColumn
			filters[i] = queryir.Equals{
				Left:  queryir.Col(closureAlias, fc.DatabaseName),
				Right: queryir.P(ref.ParameterName()),
			}
			b.SetParameter(ref.ParameterName(), ref.ValueOf(entity))
		}
		match = queryir.AllOf(filters...)

	case *meta.NestedSet:
		refCols := md.ParentRelation.ReferencedColumns()
		on := make([]queryir.Predicate, len(refCols))
		for i, rc := range refCols {
			on[i] = queryir.Equals{
				Left:  queryir.Col(joinedAlias, rc.DatabaseName),
				Right: queryir.P(rc.ParameterName()),
			}
			b.SetParameter(rc.ParameterName(), rc.ValueOf(entity))
		}
		b.InnerJoin(md.TableName, joinedAlias, queryir.AllOf(on...))

		left, right := enc.Left.DatabaseName, enc.Right.DatabaseName
		if t.dir == descendants {
			match = queryir.Between{
				Value: queryir.Col(alias, left),
				Low:   queryir.Col(joinedAlias, left),
				High:  queryir.Col(joinedAlias, right),
			}
		} else {
			match = queryir.Between{
				Value: queryir.Col(joinedAlias, left),
				Low:   queryir.Col(alias, left),
				High:  queryir.Col(alias, right),
			}
		}

	case *meta.MaterializedPath:
		sub, err := b.SubQuery(md, referenceAlias).
			Select(enc.Path.PropertyName).
			Where(primaryKeyMatch(md, referenceAlias)).
			SetParameters(primaryKeyParams(md, entity)).
			Operand()
		if err != nil {
			return nil, err
		}
		path := queryir.Col(alias, enc.Path.DatabaseName)
		if t.dir == descendants {
			match = queryir.PrefixMatch{Value: path, Prefix: sub, Suffix: enc.LikeSuffix()}
		} else {
			match = queryir.PrefixMatch{Value: sub, Prefix: path, Suffix: enc.LikeSuffix()}
		}
		if t.inclusive {
			// The prefix match with a separator never matches the node's
			// own path.
			match = queryir.Or{Predicates: []queryir.Predicate{match, primaryKeyMatch(md, alias)}}
			b.SetParameters(primaryKeyParams(md, entity))
		}

	default:
		return nil, unsupportedEncoding(md.Name)
	}

	b.Where(match)
	if !t.inclusive {
		b.AndWhere(queryir.Not{Predicate: primaryKeyMatch(md, alias)})
		b.SetParameters(primaryKeyParams(md, entity))
	}
	return b, nil
}

// rootsQuery selects every node whose parent join columns are all NULL.
func (r *TreeRepository) rootsQuery(alias string) (*query.Builder, error) {
	md := r.metadata
	if md.Encoding == nil {
		return nil, unsupportedEncoding(md.Name)
	}
	if md.ParentRelation == nil {
		return nil, &ConfigurationError{Entity: md.Name, Message: "tree entity has no parent relation"}
	}

	preds := make([]queryir.Predicate, len(md.ParentRelation.JoinColumns))
	for i, jc := range md.ParentRelation.JoinColumns {
		preds[i] = queryir.IsNull{Operand: queryir.Col(alias, jc.DatabaseName)}
	}
	return query.New(r.querier, r.dialect, md, alias).Where(queryir.AllOf(preds...)), nil
}

// primaryKeyMatch is "alias.pk = :pk" over every primary key column.
func primaryKeyMatch(md *meta.EntityMetadata, alias string) queryir.Predicate {
	pks := md.PrimaryColumns()
	preds := make([]queryir.Predicate, len(pks))
	for i, pk := range pks {
		preds[i] = queryir.Equals{Left: queryir.Col(alias, pk.DatabaseName), Right: queryir.P(pk.ParameterName())}
	}
	return queryir.AllOf(preds...)
}

func primaryKeyParams(md *meta.EntityMetadata, entity *meta.Entity) map[string]any {
	params := make(map[string]any)
	for _, pk := range md.PrimaryColumns() {
		params[pk.ParameterName()] = pk.ValueOf(entity)
	}
	return params
}
