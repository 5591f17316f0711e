package tree

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcncl/jsonview/internal/models"
	"github.com/mcncl/jsonview/internal/parser"
)

func mustParse(t *testing.T, src string) models.JSONValue {
	t.Helper()
	doc, err := parser.ParseString(src)
	require.NoError(t, err)
	return doc.Root
}

func countScalars(v models.JSONValue) int {
	switch c := v.(type) {
	case *models.JSONObject:
		total := 0
		for pair := c.Oldest(); pair != nil; pair = pair.Next() {
			total += countScalars(pair.Value)
		}
		return total
	case models.JSONArray:
		total := 0
		for _, e := range c {
			total += countScalars(e)
		}
		return total
	default:
		return 1
	}
}

func numberArray(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprint(i)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func TestBuild_Scalars(t *testing.T) {
	tests := []struct {
		name     string
		value    models.JSONValue
		wantType models.ScalarType
		wantText string
	}{
		{"string", "hello", models.TypeString, `"hello"`},
		{"empty string", "", models.TypeString, `""`},
		{"integer", json.Number("42"), models.TypeNumber, "42"},
		{"float literal kept", json.Number("1.50"), models.TypeNumber, "1.50"},
		{"true", true, models.TypeBoolean, "true"},
		{"false", false, models.TypeBoolean, "false"},
		{"null", nil, models.TypeNull, "null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := BuildRoot(tt.value)
			assert.Equal(t, models.KindScalar, n.Kind)
			assert.Equal(t, tt.wantType, n.Type)
			assert.Equal(t, tt.wantText, n.Display)
			assert.Equal(t, 0, n.ChildCount)
			assert.Empty(t, n.Children)
			assert.Equal(t, "", n.Path)
		})
	}
}

func TestBuild_Paths(t *testing.T) {
	root := BuildRoot(mustParse(t, `{"user": {"name": "Ada", "tags": ["x", "y", {"deep": true}]}, "n": 1}`))

	want := []string{
		"",
		"user",
		"user.name",
		"user.tags",
		"user.tags[0]",
		"user.tags[1]",
		"user.tags[2]",
		"user.tags[2].deep",
		"n",
	}
	assert.Equal(t, want, Paths(root))

	tags := Find(root, "user.tags")
	require.NotNil(t, tags)
	assert.Equal(t, models.KindArray, tags.Kind)
	assert.Equal(t, 3, tags.ChildCount)
	assert.Equal(t, "tags", tags.Key)
	assert.True(t, tags.HasKey)

	elem := tags.Children[1]
	assert.False(t, elem.HasKey)
	assert.Equal(t, 1, elem.Index)
	assert.Equal(t, `"y"`, elem.Display)
	assert.Same(t, tags, elem.Parent)
}

func TestBuild_KeyOrderFollowsSource(t *testing.T) {
	root := BuildRoot(mustParse(t, `{"b": 1, "a": 2, "10": 3, "2": 4}`))

	var keys []string
	for _, c := range root.Children {
		keys = append(keys, c.Key)
	}
	assert.Equal(t, []string{"b", "a", "10", "2"}, keys)
}

func TestBuild_DuplicateKeyLastWins(t *testing.T) {
	root := BuildRoot(mustParse(t, `{"x": 1, "x": 2}`))

	require.Len(t, root.Children, 1)
	assert.Equal(t, "x", root.Children[0].Key)
	assert.Equal(t, "2", root.Children[0].Display)
}

func TestBuild_EmptyContainers(t *testing.T) {
	for _, src := range []string{`{}`, `[]`} {
		n := BuildRoot(mustParse(t, src))
		assert.True(t, n.IsContainer(), src)
		assert.Equal(t, 0, n.ChildCount, src)
		assert.Nil(t, n.Children, src)
		assert.Equal(t, 0, n.Hidden(), src)
	}
}

func TestBuild_LeafCountAndUniquePaths(t *testing.T) {
	docs := []string{
		`null`,
		`"s"`,
		`[]`,
		`{"a": [1, [2, [3, {"b": null}]]], "c": {"d": {"e": "f"}}}`,
		`{"a.b": 1, "a": {"b": 2}, "": 3, "[0]": 4, "q\"": [5]}`,
		`[[[]], [{}], [null, false, 0, ""]]`,
		`{"player": {"id": "x", "roles": [1, 2, 3]}, "data": [], "message": "Success"}`,
	}

	for _, src := range docs {
		t.Run(src, func(t *testing.T) {
			v := mustParse(t, src)
			root := BuildRoot(v)

			assert.Len(t, Leaves(root), countScalars(v))

			seen := map[string]bool{}
			for _, p := range Paths(root) {
				assert.False(t, seen[p], "duplicate path %q", p)
				seen[p] = true
			}
		})
	}
}

func TestKeyPath_QuotesAmbiguousKeys(t *testing.T) {
	assert.Equal(t, "a", KeyPath("", "a"))
	assert.Equal(t, "a.b", KeyPath("a", "b"))
	assert.Equal(t, `["a.b"]`, KeyPath("", "a.b"))
	assert.Equal(t, `x[""]`, KeyPath("x", ""))
	assert.Equal(t, `x["[0]"]`, KeyPath("x", "[0]"))
	assert.Equal(t, "x[3]", IndexPath("x", 3))
	assert.Equal(t, "[0]", IndexPath("", 0))
}

func TestDisplayPath(t *testing.T) {
	root := BuildRoot(mustParse(t, `{"a": [{"b": 1}], "x.y": 2}`))

	assert.Equal(t, "$", DisplayPath(root))
	assert.Equal(t, "$.a[0].b", DisplayPath(Find(root, "a[0].b")))
	assert.Equal(t, `$["x.y"]`, DisplayPath(Find(root, `["x.y"]`)))
}

func TestRevealMore_LargeArray(t *testing.T) {
	root := BuildRoot(mustParse(t, numberArray(150)))

	assert.Equal(t, 150, root.ChildCount)
	assert.Len(t, root.Children, 100)
	assert.Equal(t, 100, root.Revealed)
	assert.Equal(t, 50, root.Hidden())
	assert.Equal(t, "[99]", root.Children[99].Path)

	assert.Equal(t, 50, root.RevealMore())
	assert.Len(t, root.Children, 150)
	assert.Equal(t, 150, root.Revealed)
	assert.Equal(t, "[149]", root.Children[149].Path)
	assert.Equal(t, "149", root.Children[149].Display)

	assert.Equal(t, 0, root.RevealMore())
	assert.Len(t, root.Children, 150)
	assert.Equal(t, 0, root.Hidden())
}

func TestRevealMore_SmallArrayAndNonArrays(t *testing.T) {
	root := BuildRoot(mustParse(t, `{"list": [1, 2], "obj": {"a": 1}}`))

	list := Find(root, "list")
	require.NotNil(t, list)
	assert.Len(t, list.Children, 2)
	assert.Equal(t, 0, list.RevealMore())
	assert.Equal(t, 0, root.RevealMore())
	assert.Equal(t, 0, Find(root, "obj.a").RevealMore())

	var nilNode *Node
	assert.Equal(t, 0, nilNode.RevealMore())
}

func TestRevealMore_ExactlyAtLimit(t *testing.T) {
	root := BuildRoot(mustParse(t, numberArray(100)))
	assert.Len(t, root.Children, 100)
	assert.Equal(t, 0, root.Hidden())
}

func TestRevealAll_Nested(t *testing.T) {
	src := fmt.Sprintf(`{"outer": [%s, %s]}`, numberArray(120), numberArray(3))
	root := BuildRoot(mustParse(t, src))

	inner := Find(root, "outer[0]")
	require.NotNil(t, inner)
	assert.Equal(t, 20, inner.Hidden())

	assert.Equal(t, 20, RevealAll(root))
	assert.Len(t, inner.Children, 120)
	assert.Equal(t, 0, RevealAll(root))
}

func TestBuilder_CustomRevealLimit(t *testing.T) {
	b := NewBuilder(Options{RevealLimit: 2})
	root := b.Root(mustParse(t, `[[1, 2, 3], 4, 5]`))

	assert.Len(t, root.Children, 2)
	assert.Len(t, root.Children[0].Children, 2)

	assert.Equal(t, 1, root.RevealMore())
	assert.Equal(t, "[2]", root.Children[2].Path)
	assert.Equal(t, 1, root.Children[0].RevealMore())
}

func TestBuild_WithKeyAndPath(t *testing.T) {
	n := Build(mustParse(t, `{"z": 1}`), "cfg", "app.cfg")

	assert.Equal(t, "cfg", n.Key)
	assert.True(t, n.HasKey)
	assert.Equal(t, "app.cfg.z", n.Children[0].Path)
}

func TestCollapse(t *testing.T) {
	root := BuildRoot(mustParse(t, `{"a": {"b": [1]}, "c": 2}`))

	Walk(root, func(n *Node) bool {
		assert.False(t, n.Collapsed, "containers default to expanded")
		return true
	})

	a := Find(root, "a")
	a.Toggle()
	assert.True(t, a.Collapsed)
	a.Toggle()
	assert.False(t, a.Collapsed)

	leaf := Find(root, "c")
	leaf.Toggle()
	assert.False(t, leaf.Collapsed, "scalars cannot collapse")

	CollapseAll(root)
	assert.True(t, root.Collapsed)
	assert.True(t, Find(root, "a.b").Collapsed)
	assert.Equal(t, "a.b", Find(root, "a.b").Path, "collapse does not touch paths")

	ExpandAll(root)
	assert.False(t, Find(root, "a.b").Collapsed)
}

func TestHeaderAndText(t *testing.T) {
	root := BuildRoot(mustParse(t, `{"a": {"b": "hello"}, "c": [1, 2], "e": {}}`))

	assert.Equal(t, "{3 items}", root.Header())
	assert.Equal(t, "a: {1 item}", Find(root, "a").Header())
	assert.Equal(t, `b: "hello"`, Find(root, "a.b").Header())
	assert.Equal(t, "c: [2 items]", Find(root, "c").Header())
	assert.Equal(t, "[1]: 2", Find(root, "c[1]").Header())
	assert.Equal(t, "e: {0 items}", Find(root, "e").Header())

	assert.Equal(t, "a: {1 item}\nb: \"hello\"", Text(Find(root, "a")))
	assert.Equal(t, "", Text(nil))
}

func TestVisible(t *testing.T) {
	root := BuildRoot(mustParse(t, fmt.Sprintf(`{"big": %s, "obj": {"k": 1}}`, numberArray(102))))

	rows := Visible(root)
	// root + big + 100 elements + more row + obj + obj.k
	require.Len(t, rows, 105)
	assert.Equal(t, 0, rows[0].Depth)
	more := rows[102]
	assert.True(t, more.More)
	assert.Equal(t, "big", more.Node.Path)
	assert.Equal(t, "Show 2 more items...", MoreText(more.Node.Hidden()))

	Find(root, "big").Collapsed = true
	rows = Visible(root)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"", "big", "obj", "obj.k"}, []string{rows[0].Node.Path, rows[1].Node.Path, rows[2].Node.Path, rows[3].Node.Path})
	assert.Equal(t, 2, rows[3].Depth)

	assert.Nil(t, Visible(nil))
}

func TestExpandTo(t *testing.T) {
	root := BuildRoot(mustParse(t, `{"a": {"b": {"c": 1}}}`))
	CollapseAll(root)

	c := Find(root, "a.b.c")
	ExpandTo(c)

	assert.False(t, root.Collapsed)
	assert.False(t, Find(root, "a").Collapsed)
	assert.False(t, Find(root, "a.b").Collapsed)
	assert.Len(t, Ancestors(c), 3)
}

func TestFind_Missing(t *testing.T) {
	root := BuildRoot(mustParse(t, numberArray(150)))

	assert.Nil(t, Find(root, "nope"))
	assert.Nil(t, Find(root, "[120]"), "unrevealed elements are not addressable")
	root.RevealMore()
	assert.NotNil(t, Find(root, "[120]"))
}
