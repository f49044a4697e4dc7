package render

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/arbor/internal/meta"
)

func testMetadata() *meta.EntityMetadata {
	return &meta.EntityMetadata{
		Name:      "Category",
		TableName: "category",
		Columns: []*meta.Column{
			{PropertyName: "id", DatabaseName: "id", Primary: true},
			{PropertyName: "name", DatabaseName: "name"},
		},
	}
}

// catalog returns 1 Electronics -> 2 Phones -> 3 Smartphones, with 2
// loaded down to 3 and 3 a leaf.
func catalog() *meta.Entity {
	root := meta.NewEntity(map[string]any{"id": "1", "name": "Electronics"})
	root.Relations = map[string]*meta.Entity{
		"owner": meta.NewEntity(map[string]any{"id": "ada", "name": "Ada"}),
	}
	phones := meta.NewEntity(map[string]any{"id": "2", "name": "Phones", "parentId": "1"})
	phones.Relations = map[string]*meta.Entity{"owner": nil}
	smart := meta.NewEntity(map[string]any{"id": "3", "name": "Smartphones", "parentId": "2"})
	smart.Children = []*meta.Entity{}

	phones.Children = []*meta.Entity{smart}
	phones.Parent = root
	smart.Parent = phones
	root.Children = []*meta.Entity{phones}
	return root
}

func TestMarshalCanonical(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"null", nil, "null"},
		{"string", "hello", `"hello"`},
		{"bytes", []byte("raw"), `"raw"`},
		{"int64", int64(-7), "-7"},
		{"float", 1.5, "1.5"},
		{"bool", true, "true"},
		{"time", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), `"2026-01-02T03:04:05Z"`},
		{"no html escaping", "<a & b>", `"<a & b>"`},
		{"line separator kept", "a\u2028b", "\"a\u2028b\""},
		{"nfc", "e\u0301", "\"\u00e9\""},
		{"sorted keys", map[string]any{"b": 1, "a": []any{int64(2), nil}}, `{"a":[2,null],"b":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(got))
		})
	}
}

func TestMarshalCanonical_Errors(t *testing.T) {
	_, err := MarshalCanonical(math.Inf(1))
	assert.Error(t, err)

	_, err = MarshalCanonical(struct{}{})
	assert.ErrorContains(t, err, "unsupported type")
}

func TestValue(t *testing.T) {
	root := catalog()

	flat := Value(root, Flat)
	assert.NotContains(t, flat, ChildrenKey)
	assert.Equal(t, map[string]any{"id": "ada", "name": "Ada"}, flat["owner"])

	// Children that were never loaded are omitted, loaded leaves are [].
	unloaded := meta.NewEntity(map[string]any{"id": "9"})
	assert.NotContains(t, Value(unloaded, Children), ChildrenKey)

	chain := Value(root.Children[0].Children[0], Parents)
	parent := chain[ParentKey].(map[string]any)
	assert.Equal(t, "2", parent["id"])
	assert.Equal(t, "1", parent[ParentKey].(map[string]any)["id"])
}

func TestWriteJSON_Golden(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, []*meta.Entity{catalog()}, Children))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "descendants_tree", buf.Bytes())
}

func TestWriteJSON_EmptyIsArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, []*meta.Entity{}, Flat))
	assert.Equal(t, "[]\n", buf.String())
}

func TestLabel(t *testing.T) {
	md := testMetadata()
	e := meta.NewEntity(map[string]any{"id": int64(4), "name": "Feature phones"})

	assert.Equal(t, "4 Feature phones", Label(md, e, "name"))
	assert.Equal(t, "4", Label(md, e, ""))
	assert.Equal(t, "4", Label(md, e, "missing"))
}

func TestWriteTree(t *testing.T) {
	md := testMetadata()
	label := func(e *meta.Entity) string { return Label(md, e, "name") }

	var buf bytes.Buffer
	require.NoError(t, WriteTree(&buf, []*meta.Entity{catalog()}, label))

	out := buf.String()
	assert.Contains(t, out, "1 Electronics")
	assert.Contains(t, out, "└── 2 Phones")
	assert.Contains(t, out, "└── 3 Smartphones")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("Phones")), bytes.Index(buf.Bytes(), []byte("Smartphones")))
}

func TestWriteChain(t *testing.T) {
	md := testMetadata()
	label := func(e *meta.Entity) string { return Label(md, e, "name") }
	leaf := catalog().Children[0].Children[0]

	var buf bytes.Buffer
	require.NoError(t, WriteChain(&buf, leaf, label))

	out := buf.String()
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("1 Electronics")), out)
	assert.Contains(t, out, "└── 2 Phones")
	assert.Contains(t, out, "└── 3 Smartphones")
}

func TestWriteList(t *testing.T) {
	md := testMetadata()
	label := func(e *meta.Entity) string { return Label(md, e, "name") }
	root := catalog()

	var buf bytes.Buffer
	require.NoError(t, WriteList(&buf, root.Flatten(), label))
	assert.Equal(t, "2 Phones\n3 Smartphones\n", buf.String())
}
