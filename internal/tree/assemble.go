package tree

import (
	"github.com/roach88/arbor/internal/meta"
)

// assembler rebuilds a tree from the entities of one traversal.
type assembler struct {
	md     *meta.EntityMetadata
	rm     *RelationMap
	byKey  map[string]*meta.Entity
	placed map[string]bool
}

func newAssembler(md *meta.EntityMetadata, entities []*meta.Entity, rm *RelationMap) *assembler {
	a := &assembler{
		md:     md,
		rm:     rm,
		byKey:  make(map[string]*meta.Entity, len(entities)),
		placed: make(map[string]bool),
	}
	for _, e := range entities {
		if key, ok := md.ReferenceKeyOf(e); ok {
			if _, dup := a.byKey[key]; !dup {
				a.byKey[key] = e
			}
		}
	}
	return a
}

// attachChildren fills root.Children down to depth levels (-1 unlimited).
// Every visited node ends up with a non-nil Children slice. A node is
// placed at most once, which also stops at cycles in corrupt data. Rows
// whose parent never gets placed are dropped.
func (a *assembler) attachChildren(root *meta.Entity, depth int) {
	key, ok := a.md.ReferenceKeyOf(root)
	if ok {
		a.placed[key] = true
	}
	a.attach(root, key, ok, depth)
}

func (a *assembler) attach(node *meta.Entity, key string, hasKey bool, depth int) {
	node.Children = []*meta.Entity{}
	if depth == 0 || !hasKey {
		return
	}
	for _, childKey := range a.rm.ChildrenOf(key) {
		if a.placed[childKey] {
			continue
		}
		child, ok := a.byKey[childKey]
		if !ok {
			continue
		}
		a.placed[childKey] = true
		child.Parent = node
		node.Children = append(node.Children, child)
	}
	for _, child := range node.Children {
		childKey, _ := a.md.ReferenceKeyOf(child)
		a.attach(child, childKey, true, depth-1)
	}
}

// attachParents links node to its ancestor chain through Parent. The
// chain is followed to the first node whose parent is not in the result.
func (a *assembler) attachParents(node *meta.Entity) {
	key, ok := a.md.ReferenceKeyOf(node)
	if !ok {
		return
	}
	visited := map[string]bool{key: true}

	parentKey, ok := a.rm.ParentOf(key)
	if !ok {
		// The reference row may be missing from the result (closure tables
		// without self-pairs); its own parent columns still name the parent.
		parentKey, ok = a.md.ParentKeyOf(node)
	}
	for ok && !visited[parentKey] {
		parent, found := a.byKey[parentKey]
		if !found {
			return
		}
		visited[parentKey] = true
		node.Parent = parent
		node = parent
		parentKey, ok = a.rm.ParentOf(parentKey)
	}
}
