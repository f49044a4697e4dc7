package sample

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	arborerr "github.com/roach88/arbor/pkg/errors"
)

// Fixture is a tree described as a flat node list.
type Fixture struct {
	Users []FixtureUser `yaml:"users"`
	Nodes []FixtureNode `yaml:"nodes"`
}

// FixtureUser is a relation target.
type FixtureUser struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// FixtureNode is one tree node. An empty Parent makes it a root.
type FixtureNode struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Parent string `yaml:"parent,omitempty"`
	Owner  string `yaml:"owner,omitempty"`
}

// ParseFixture decodes and validates a YAML fixture.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, arborerr.Wrap(err, arborerr.CodeSampleFixtureInvalid, "parse fixture")
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// ReadFixture reads a YAML fixture from r.
func ReadFixture(r io.Reader) (*Fixture, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, arborerr.Wrap(err, arborerr.CodeSampleFixtureInvalid, "read fixture")
	}
	return ParseFixture(data)
}

// LoadFixture reads a YAML fixture file.
func LoadFixture(path string) (*Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, arborerr.Wrap(err, arborerr.CodeSampleFixtureInvalid, "open fixture", arborerr.Field("path", path))
	}
	defer f.Close()
	return ReadFixture(f)
}

// Marshal encodes the fixture as YAML.
func (f *Fixture) Marshal() ([]byte, error) {
	return yaml.Marshal(f)
}

// Validate checks ids, references and shape. Every node must be
// reachable from a root; a parent cycle is reported as unreachable.
func (f *Fixture) Validate() error {
	users := make(map[string]bool, len(f.Users))
	for _, u := range f.Users {
		if u.ID == "" {
			return fixtureError("user without id")
		}
		if users[u.ID] {
			return fixtureError("duplicate user %q", u.ID)
		}
		users[u.ID] = true
	}

	nodes := make(map[string]bool, len(f.Nodes))
	for _, n := range f.Nodes {
		if n.ID == "" {
			return fixtureError("node without id")
		}
		// Ids become materialized path segments.
		if strings.Contains(n.ID, PathSeparator) {
			return fixtureError("node id %q must not contain the path separator %q", n.ID, PathSeparator)
		}
		if nodes[n.ID] {
			return fixtureError("duplicate node %q", n.ID)
		}
		nodes[n.ID] = true
	}

	for _, n := range f.Nodes {
		if n.Parent != "" && !nodes[n.Parent] {
			return fixtureError("node %q: unknown parent %q", n.ID, n.Parent)
		}
		if n.Owner != "" && !users[n.Owner] {
			return fixtureError("node %q: unknown owner %q", n.ID, n.Owner)
		}
	}

	if reached := len(f.preorder()); reached != len(f.Nodes) {
		return fixtureError("%d node(s) are not reachable from a root (parent cycle)", len(f.Nodes)-reached)
	}
	return nil
}

func fixtureError(format string, args ...any) error {
	return arborerr.New(arborerr.CodeSampleFixtureInvalid, fmt.Sprintf(format, args...))
}

// preorder returns the nodes reachable from roots, parents first,
// siblings in fixture order.
func (f *Fixture) preorder() []FixtureNode {
	children := make(map[string][]FixtureNode)
	var roots []FixtureNode
	for _, n := range f.Nodes {
		if n.Parent == "" {
			roots = append(roots, n)
			continue
		}
		children[n.Parent] = append(children[n.Parent], n)
	}

	out := make([]FixtureNode, 0, len(f.Nodes))
	var visit func(n FixtureNode)
	visit = func(n FixtureNode) {
		out = append(out, n)
		for _, c := range children[n.ID] {
			visit(c)
		}
	}
	for _, r := range roots {
		visit(r)
	}
	return out
}
