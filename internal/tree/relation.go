package tree

import (
	"github.com/roach88/arbor/internal/meta"
	"github.com/roach88/arbor/internal/query"
)

// RelationMap links the nodes of one traversal result: every row's
// identity key to its direct parent's key, and every parent key to its
// children's keys in row order.
//
// Keys are built from the columns the parent relation refers to (usually
// the primary key), so a child's parent join column values produce its
// parent's key.
type RelationMap struct {
	parentOf   map[string]string
	childrenOf map[string][]string
}

// buildRelationMap extracts the relation map from raw rows. Every
// encoding stores the direct parent in the parent join columns, so those
// are read regardless of how the rows were selected. Rows with a NULL
// parent (roots) contribute no link.
func buildRelationMap(md *meta.EntityMetadata, alias string, raws []map[string]any) *RelationMap {
	rm := &RelationMap{
		parentOf:   make(map[string]string, len(raws)),
		childrenOf: make(map[string][]string),
	}
	joinCols := md.ParentRelation.JoinColumns
	refCols := md.ParentRelation.ReferencedColumns()

	for _, raw := range raws {
		id, ok := rawKey(raw, alias, refCols)
		if !ok {
			continue
		}
		if _, dup := rm.parentOf[id]; dup {
			continue
		}
		parent, ok := rawKey(raw, alias, joinCols)
		if !ok {
			continue
		}
		rm.parentOf[id] = parent
		rm.childrenOf[parent] = append(rm.childrenOf[parent], id)
	}
	return rm
}

func rawKey(raw map[string]any, alias string, cols []*meta.Column) (string, bool) {
	parts := make([]any, len(cols))
	for i, c := range cols {
		parts[i] = raw[query.RawKey(alias, c.DatabaseName)]
	}
	return meta.Key(parts...)
}

// ParentOf returns the parent key of id.
func (rm *RelationMap) ParentOf(id string) (string, bool) {
	p, ok := rm.parentOf[id]
	return p, ok
}

// ChildrenOf returns the child keys of id in row order.
func (rm *RelationMap) ChildrenOf(id string) []string {
	return rm.childrenOf[id]
}

// Len returns the number of child-to-parent links.
func (rm *RelationMap) Len() int {
	return len(rm.parentOf)
}
