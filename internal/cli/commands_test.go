package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// seededDB seeds the built-in catalog into a temporary sqlite database and
// returns its path.
func seededDB(t *testing.T) string {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "arbor.db")
	out, err := execute(t, "seed", "--db", dsn)
	require.NoError(t, err)
	assert.Equal(t, "Seeded 2 users and 7 nodes.\n", out)
	return dsn
}

type jsonResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *CLIError       `json:"error"`
}

func decode(t *testing.T, out string, data any) {
	t.Helper()

	var resp jsonResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(t, "ok", resp.Status)
	require.NoError(t, json.Unmarshal(resp.Data, data))
}

func nodeIDs(nodes []map[string]any) []any {
	out := make([]any, len(nodes))
	for i, n := range nodes {
		out[i] = n["id"]
	}
	return out
}

var entities = []string{"ClosureCategory", "NestedCategory", "PathCategory"}

func TestSeed_JSON(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "arbor.db")

	out, err := execute(t, "seed", "--db", dsn, "--format", "json")
	require.NoError(t, err)
	var first SeedResult
	decode(t, out, &first)
	assert.Equal(t, []int64{1, 2, 3, 4}, first.Migrations)
	assert.Equal(t, 2, first.Users)
	assert.Equal(t, 7, first.Nodes)

	out, err = execute(t, "seed", "--db", dsn, "--format", "json")
	require.NoError(t, err)
	var second SeedResult
	decode(t, out, &second)
	assert.Empty(t, second.Migrations)
	assert.Equal(t, 7, second.Nodes)
}

func TestSeed_Generate(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "arbor.db")

	out, err := execute(t, "seed", "--db", dsn, "--generate", "--width", "2", "--depth", "1")
	require.NoError(t, err)
	assert.Equal(t, "Seeded 1 users and 6 nodes.\n", out)

	out, err = execute(t, "roots", "PathCategory", "--db", dsn, "--format", "json")
	require.NoError(t, err)
	var roots []map[string]any
	decode(t, out, &roots)
	assert.Len(t, roots, 2)
}

func TestSeed_Fixture(t *testing.T) {
	dir := t.TempDir()
	fixture := filepath.Join(dir, "tree.yaml")
	require.NoError(t, os.WriteFile(fixture, []byte(`
users: []
nodes:
  - id: a
    name: Alpha
  - id: b
    name: Beta
    parent: a
`), 0o644))
	dsn := filepath.Join(dir, "arbor.db")

	out, err := execute(t, "seed", "--db", dsn, "--fixture", fixture)
	require.NoError(t, err)
	assert.Equal(t, "Seeded 0 users and 2 nodes.\n", out)

	out, err = execute(t, "descendants", "NestedCategory", "a", "--db", dsn)
	require.NoError(t, err)
	assert.Equal(t, "b Beta\n", out)
}

func TestSeed_InvalidInput(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "arbor.db")

	_, err := execute(t, "seed", "--db", dsn, "--generate", "--width", "0")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "seed", "--db", dsn, "--fixture", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRoots(t *testing.T) {
	dsn := seededDB(t)

	for _, entity := range entities {
		t.Run(entity, func(t *testing.T) {
			out, err := execute(t, "roots", entity, "--db", dsn)
			require.NoError(t, err)
			assert.Equal(t, "1 Electronics\n6 Books\n", out)

			out, err = execute(t, "roots", entity, "--db", dsn, "--format", "json")
			require.NoError(t, err)
			var roots []map[string]any
			decode(t, out, &roots)
			assert.Equal(t, []any{"1", "6"}, nodeIDs(roots))
			assert.NotContains(t, roots[0], "children")
		})
	}
}

func TestDescendants(t *testing.T) {
	dsn := seededDB(t)

	for _, entity := range entities {
		t.Run(entity, func(t *testing.T) {
			out, err := execute(t, "descendants", entity, "1", "--db", dsn)
			require.NoError(t, err)
			assert.Equal(t, "2 Phones\n3 Smartphones\n4 Feature phones\n5 Laptops\n", out)

			out, err = execute(t, "descendants", entity, "1", "--db", dsn, "--count")
			require.NoError(t, err)
			assert.Equal(t, "4\n", out)

			out, err = execute(t, "descendants", entity, "3", "--db", dsn)
			require.NoError(t, err)
			assert.Equal(t, "No nodes found.\n", out)

			out, err = execute(t, "descendants", entity, "1", "--db", dsn, "--order", "name:desc", "--limit", "2")
			require.NoError(t, err)
			assert.Equal(t, "3 Smartphones\n2 Phones\n", out)
		})
	}
}

func TestDescendants_Tree(t *testing.T) {
	dsn := seededDB(t)

	for _, entity := range entities {
		t.Run(entity, func(t *testing.T) {
			out, err := execute(t, "descendants", entity, "1", "--db", dsn, "--tree")
			require.NoError(t, err)
			assert.Contains(t, out, "1 Electronics")
			assert.Contains(t, out, "3 Smartphones")
			assert.Contains(t, out, "└── 5 Laptops")

			out, err = execute(t, "descendants", entity, "1", "--db", dsn, "--tree", "--depth", "1", "--format", "json")
			require.NoError(t, err)
			var nodes []map[string]any
			decode(t, out, &nodes)
			require.Len(t, nodes, 1)
			children, ok := nodes[0]["children"].([]any)
			require.True(t, ok)
			require.Len(t, children, 2)
			for _, c := range children {
				assert.Equal(t, []any{}, c.(map[string]any)["children"])
			}
		})
	}
}

func TestDescendants_Relations(t *testing.T) {
	dsn := seededDB(t)

	out, err := execute(t, "descendants", "ClosureCategory", "1", "--db", dsn,
		"--relations", "owner", "--where", "parentId=1", "--format", "json")
	require.NoError(t, err)
	var nodes []map[string]any
	decode(t, out, &nodes)
	require.Equal(t, []any{"2", "5"}, nodeIDs(nodes))
	assert.Equal(t, "Grace Hopper", nodes[0]["owner"].(map[string]any)["name"])
	assert.Equal(t, "Ada Lovelace", nodes[1]["owner"].(map[string]any)["name"])
}

func TestAncestors(t *testing.T) {
	dsn := seededDB(t)

	for _, entity := range entities {
		t.Run(entity, func(t *testing.T) {
			out, err := execute(t, "ancestors", entity, "4", "--db", dsn)
			require.NoError(t, err)
			assert.Equal(t, "1 Electronics\n2 Phones\n", out)

			out, err = execute(t, "ancestors", entity, "4", "--db", dsn, "--count", "--format", "json")
			require.NoError(t, err)
			var count map[string]int
			decode(t, out, &count)
			assert.Equal(t, map[string]int{"count": 2}, count)

			out, err = execute(t, "ancestors", entity, "4", "--db", dsn, "--tree")
			require.NoError(t, err)
			assert.Contains(t, out, "1 Electronics")
			assert.Contains(t, out, "2 Phones")
			assert.Contains(t, out, "4 Feature phones")

			out, err = execute(t, "ancestors", entity, "4", "--db", dsn, "--tree", "--format", "json")
			require.NoError(t, err)
			var nodes []map[string]any
			decode(t, out, &nodes)
			require.Len(t, nodes, 1)
			parent := nodes[0]["parent"].(map[string]any)
			assert.Equal(t, "2", parent["id"])
			assert.Equal(t, "1", parent["parent"].(map[string]any)["id"])
		})
	}
}

func TestTrees(t *testing.T) {
	dsn := seededDB(t)

	out, err := execute(t, "trees", "PathCategory", "--db", dsn, "--format", "json")
	require.NoError(t, err)
	var trees []map[string]any
	decode(t, out, &trees)
	require.Equal(t, []any{"1", "6"}, nodeIDs(trees))
	assert.Len(t, trees[0]["children"], 2)
	assert.Len(t, trees[1]["children"], 1)

	out, err = execute(t, "trees", "NestedCategory", "--db", dsn)
	require.NoError(t, err)
	assert.Contains(t, out, "6 Books")
	assert.Contains(t, out, "└── 7 Fiction")
}

func TestTrees_ConfigDefaultDepth(t *testing.T) {
	dsn := seededDB(t)
	cfgPath := filepath.Join(t.TempDir(), "arbor.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("database:\n  dsn: "+dsn+"\ntraversal:\n  default_depth: 0\n"), 0o644))

	out, err := execute(t, "trees", "ClosureCategory", "--config", cfgPath, "--format", "json")
	require.NoError(t, err)
	var trees []map[string]any
	decode(t, out, &trees)
	require.Len(t, trees, 2)
	assert.Equal(t, []any{}, trees[0]["children"])
}

func TestSQL(t *testing.T) {
	out, err := execute(t, "sql", "PathCategory", "2", "--dialect", "postgres")
	require.NoError(t, err)
	assert.Contains(t, out, `FROM "path_category" "treeEntity" WHERE "treeEntity"."mpath" LIKE`)
	assert.Contains(t, out, "-- args: [2]\n")

	out, err = execute(t, "sql", "ClosureCategory", "2", "--format", "json")
	require.NoError(t, err)
	var res SQLResult
	decode(t, out, &res)
	assert.Contains(t, res.SQL, `INNER JOIN "closure_category_closure" "treeClosure"`)
	assert.Equal(t, []any{"2", "2"}, res.Args)

	out, err = execute(t, "sql", "NestedCategory", "2", "--count", "--ancestors")
	require.NoError(t, err)
	assert.Contains(t, out, `SELECT COUNT(*) AS "count"`)
}

func TestSQL_Errors(t *testing.T) {
	_, err := execute(t, "sql", "PathCategory", "2", "--dialect", "oracle")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "sql", "PathCategory", "2/3")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "sql", "User", "ada")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "supported only in tree entities")
}

func TestSchema(t *testing.T) {
	out, err := execute(t, "schema")
	require.NoError(t, err)
	assert.Contains(t, out, "ENTITY")
	assert.Contains(t, out, "closure_category")
	assert.Contains(t, out, "materialized-path")

	out, err = execute(t, "schema", "--format", "json")
	require.NoError(t, err)
	var summaries []EntitySummary
	decode(t, out, &summaries)
	require.Len(t, summaries, 4)
	assert.Equal(t, "ClosureCategory", summaries[0].Name)
	assert.Equal(t, "closure-table", summaries[0].Encoding)
	assert.Equal(t, []string{"owner"}, summaries[0].Relations)
	assert.Equal(t, "User", summaries[3].Name)
	assert.Equal(t, "none", summaries[3].Encoding)

	out, err = execute(t, "schema", "--source")
	require.NoError(t, err)
	assert.Contains(t, out, "ClosureCategory")
}

func TestCommandErrors(t *testing.T) {
	dsn := seededDB(t)

	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantMsg  string
	}{
		{"unknown_entity", []string{"roots", "Nope"}, ExitFailure, "unknown entity"},
		{"node_not_found", []string{"descendants", "ClosureCategory", "99"}, ExitFailure, "node not found"},
		{"invalid_format", []string{"roots", "ClosureCategory", "--format", "yaml"}, ExitCommandError, "invalid format"},
		{"bad_where", []string{"roots", "ClosureCategory", "--where", "name"}, ExitCommandError, "property=value"},
		{"bad_order", []string{"roots", "ClosureCategory", "--order", "name:up"}, ExitCommandError, "asc or desc"},
		{"bad_depth", []string{"trees", "ClosureCategory", "--depth", "-2"}, ExitCommandError, "depth"},
		{"negative_limit", []string{"roots", "ClosureCategory", "--limit", "-1"}, ExitCommandError, "negative"},
		{"unknown_property", []string{"roots", "ClosureCategory", "--where", "color=red"}, ExitCommandError, "color"},
		{"not_a_tree", []string{"roots", "User"}, ExitCommandError, "supported only in tree entities"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append(tt.args, "--db", dsn)
			_, err := execute(t, args...)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}
