package meta

// Entity is a hydrated tree record.
//
// Values holds column values keyed by property name. Relations holds
// eagerly loaded many-to-one relations keyed by relation property name;
// a relation whose foreign key is NULL is present with a nil value.
//
// Parent and Children are filled by tree assembly. A freshly hydrated
// entity has both unset; Children is set to an empty (non-nil) slice once
// assembly has visited the node, so "not loaded" and "leaf" can be told
// apart.
type Entity struct {
	Values    map[string]any
	Relations map[string]*Entity
	Parent    *Entity
	Children  []*Entity
}

// NewEntity creates an entity holding the given values.
// The map is used as-is, not copied.
func NewEntity(values map[string]any) *Entity {
	if values == nil {
		values = make(map[string]any)
	}
	return &Entity{Values: values}
}

// Get returns the value of a property, or nil if it is not set.
func (e *Entity) Get(property string) any {
	if e == nil || e.Values == nil {
		return nil
	}
	return e.Values[property]
}

// Set assigns a property value.
func (e *Entity) Set(property string, value any) {
	if e.Values == nil {
		e.Values = make(map[string]any)
	}
	e.Values[property] = value
}

// Relation returns an eagerly loaded relation by name.
func (e *Entity) Relation(name string) *Entity {
	if e == nil || e.Relations == nil {
		return nil
	}
	return e.Relations[name]
}

// ChildrenLoaded reports whether tree assembly has populated Children.
func (e *Entity) ChildrenLoaded() bool {
	return e.Children != nil
}

// Walk visits the subtree rooted at e in pre-order, skipping e itself.
// Returning false from fn stops descent below the visited node.
func (e *Entity) Walk(fn func(node *Entity, depth int) bool) {
	var walk func(n *Entity, depth int)
	walk = func(n *Entity, depth int) {
		for _, child := range n.Children {
			if fn(child, depth) {
				walk(child, depth+1)
			}
		}
	}
	walk(e, 1)
}

// Flatten returns the descendants of e in pre-order (parent before child).
func (e *Entity) Flatten() []*Entity {
	out := []*Entity{}
	e.Walk(func(node *Entity, _ int) bool {
		out = append(out, node)
		return true
	})
	return out
}

// Ancestors returns the Parent chain of e, nearest first.
func (e *Entity) Ancestors() []*Entity {
	out := []*Entity{}
	for p := e.Parent; p != nil; p = p.Parent {
		out = append(out, p)
	}
	return out
}
