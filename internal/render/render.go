// Package render turns tree query results into canonical JSON or
// box-drawn text trees.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/ddddddO/gtree"

	"github.com/roach88/arbor/internal/meta"
)

// Links selects which tree links of a node are rendered.
type Links int

const (
	// Flat renders values and relations only.
	Flat Links = iota
	// Children renders the assembled descendant tree.
	Children
	// Parents renders the assembled ancestor chain.
	Parents
)

// ChildrenKey and ParentKey hold the tree links in rendered objects.
const (
	ChildrenKey = "children"
	ParentKey   = "parent"
)

// Value converts an entity to a JSON-ready map: property values, eagerly
// loaded relations by name (null when the join missed) and the selected
// links. Children are only emitted once assembly has loaded them.
func Value(e *meta.Entity, links Links) map[string]any {
	out := make(map[string]any, len(e.Values)+len(e.Relations)+1)
	for k, v := range e.Values {
		out[k] = v
	}
	for name, rel := range e.Relations {
		if rel == nil {
			out[name] = nil
			continue
		}
		out[name] = Value(rel, Flat)
	}

	switch links {
	case Children:
		if e.ChildrenLoaded() {
			children := make([]any, len(e.Children))
			for i, c := range e.Children {
				children[i] = Value(c, Children)
			}
			out[ChildrenKey] = children
		}
	case Parents:
		if e.Parent != nil {
			out[ParentKey] = Value(e.Parent, Parents)
		}
	}
	return out
}

// JSON marshals nodes as one canonical JSON array.
func JSON(nodes []*meta.Entity, links Links) ([]byte, error) {
	arr := make([]any, len(nodes))
	for i, n := range nodes {
		arr[i] = Value(n, links)
	}
	return MarshalCanonical(arr)
}

// WriteJSON writes nodes as a canonical JSON array followed by a newline.
func WriteJSON(w io.Writer, nodes []*meta.Entity, links Links) error {
	data, err := JSON(nodes, links)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

// Label formats a node as "<id> <name>": the primary key values joined
// with "/" followed by the named property when it is set.
func Label(md *meta.EntityMetadata, e *meta.Entity, nameProperty string) string {
	pks := md.PrimaryColumns()
	parts := make([]string, len(pks))
	for i, pk := range pks {
		parts[i] = fmt.Sprint(pk.ValueOf(e))
	}
	label := strings.Join(parts, "/")
	if nameProperty != "" {
		if v := e.Get(nameProperty); v != nil {
			label += " " + fmt.Sprint(v)
		}
	}
	return label
}

// WriteTree draws each root and its loaded children as a box-drawn tree.
// Labels carry the primary key, which keeps sibling labels unique.
func WriteTree(w io.Writer, roots []*meta.Entity, label func(*meta.Entity) string) error {
	for _, r := range roots {
		root := gtree.NewRoot(label(r))
		addChildren(root, r, label)
		if err := gtree.OutputProgrammably(w, root); err != nil {
			return fmt.Errorf("render tree %s: %w", label(r), err)
		}
	}
	return nil
}

func addChildren(parent *gtree.Node, e *meta.Entity, label func(*meta.Entity) string) {
	for _, c := range e.Children {
		addChildren(parent.Add(label(c)), c, label)
	}
}

// WriteChain draws the ancestor chain of node from the topmost ancestor
// down to node.
func WriteChain(w io.Writer, node *meta.Entity, label func(*meta.Entity) string) error {
	chain := append([]*meta.Entity{node}, node.Ancestors()...)

	root := gtree.NewRoot(label(chain[len(chain)-1]))
	cur := root
	for i := len(chain) - 2; i >= 0; i-- {
		cur = cur.Add(label(chain[i]))
	}
	if err := gtree.OutputProgrammably(w, root); err != nil {
		return fmt.Errorf("render chain %s: %w", label(node), err)
	}
	return nil
}

// WriteList writes one label per line.
func WriteList(w io.Writer, nodes []*meta.Entity, label func(*meta.Entity) string) error {
	for _, n := range nodes {
		if _, err := fmt.Fprintln(w, label(n)); err != nil {
			return err
		}
	}
	return nil
}
