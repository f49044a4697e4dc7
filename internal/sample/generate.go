package sample

import (
	"fmt"

	"github.com/google/uuid"
)

// Generate builds a fixture of width roots, each with width children per
// node down to depth levels below the root. Ids are random UUIDs; names
// encode the position ("node 2.1.3"). One user owns every other node.
func Generate(width, depth int) *Fixture {
	owner := FixtureUser{ID: uuid.NewString(), Name: "generator"}
	f := &Fixture{Users: []FixtureUser{owner}}

	var grow func(parent, label string, level int)
	grow = func(parent, label string, level int) {
		for i := 1; i <= width; i++ {
			name := fmt.Sprintf("%s.%d", label, i)
			if label == "" {
				name = fmt.Sprintf("%d", i)
			}
			n := FixtureNode{ID: uuid.NewString(), Name: "node " + name, Parent: parent}
			if len(f.Nodes)%2 == 0 {
				n.Owner = owner.ID
			}
			f.Nodes = append(f.Nodes, n)
			if level < depth {
				grow(n.ID, name, level+1)
			}
		}
	}
	grow("", "", 0)
	return f
}
