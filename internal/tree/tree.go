// Package tree turns a parsed JSON value into a tree of display nodes.
//
// Every node carries a path that addresses it from the root: object members
// append ".key" and array elements append "[i]". The root path is empty.
// Keys that would make a path ambiguous (empty, or containing '.', '[', ']'
// or '"') are written in quoted bracket form, e.g. `meta["a.b"]`.
//
// Arrays longer than the reveal limit only materialize their first
// children; RevealMore appends the rest exactly once.
package tree

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/mcncl/jsonview/internal/models"
)

// DefaultRevealLimit is the number of array elements built eagerly.
const DefaultRevealLimit = 100

// Options configures a Builder.
type Options struct {
	// RevealLimit caps how many elements of an array are built before
	// RevealMore is called. Values <= 0 mean DefaultRevealLimit.
	RevealLimit int
}

// Node is one visualized element of a JSON document.
type Node struct {
	Path string
	Kind models.Kind

	// Key is the member name when the node is an object value.
	Key    string
	HasKey bool
	// Index is the element position when the node is an array value, else -1.
	Index int

	// Type and Display are set for scalars only.
	Type    models.ScalarType
	Display string

	ChildCount int
	Collapsed  bool
	// Revealed counts materialized children of an array.
	Revealed int
	Children []*Node
	Parent   *Node

	value models.JSONValue
	limit int
}

// Builder builds display trees.
type Builder struct {
	limit int
}

// NewBuilder creates a Builder with the given options.
func NewBuilder(opts Options) *Builder {
	limit := opts.RevealLimit
	if limit <= 0 {
		limit = DefaultRevealLimit
	}
	return &Builder{limit: limit}
}

var defaultBuilder = NewBuilder(Options{})

// Build converts value into a node labelled with key (empty for none) at
// path, using the default reveal limit.
func Build(value models.JSONValue, key, path string) *Node {
	return defaultBuilder.Build(value, key, path)
}

// BuildRoot builds the tree for a whole document.
func BuildRoot(value models.JSONValue) *Node {
	return defaultBuilder.Root(value)
}

// Build converts value into a node labelled with key (empty for none) at path.
func (b *Builder) Build(value models.JSONValue, key, path string) *Node {
	return b.build(value, label{key: key, hasKey: key != "", index: -1}, path, nil)
}

// Root builds the tree for a whole document.
func (b *Builder) Root(value models.JSONValue) *Node {
	return b.build(value, label{index: -1}, "", nil)
}

type label struct {
	key    string
	hasKey bool
	index  int
}

func (b *Builder) build(value models.JSONValue, l label, path string, parent *Node) *Node {
	n := &Node{
		Path:   path,
		Kind:   models.KindOf(value),
		Key:    l.key,
		HasKey: l.hasKey,
		Index:  l.index,
		Parent: parent,
		value:  value,
		limit:  b.limit,
	}

	switch v := value.(type) {
	case *models.JSONObject:
		if v == nil {
			n.Kind = models.KindScalar
			n.Type, n.Display = models.TypeNull, "null"
			return n
		}
		n.ChildCount = v.Len()
		if n.ChildCount > 0 {
			n.Children = make([]*Node, 0, n.ChildCount)
		}
		for pair := v.Oldest(); pair != nil; pair = pair.Next() {
			child := b.build(pair.Value, label{key: pair.Key, hasKey: true, index: -1}, KeyPath(path, pair.Key), n)
			n.Children = append(n.Children, child)
		}
	case models.JSONArray:
		n.ChildCount = len(v)
		eager := min(len(v), b.limit)
		if eager > 0 {
			n.Children = make([]*Node, 0, eager)
		}
		n.appendElements(b, 0, eager)
	default:
		n.Type, n.Display = scalar(value)
	}
	return n
}

func (n *Node) appendElements(b *Builder, from, to int) {
	arr := n.value.(models.JSONArray)
	for i := from; i < to; i++ {
		child := b.build(arr[i], label{index: i}, IndexPath(n.Path, i), n)
		n.Children = append(n.Children, child)
	}
	n.Revealed = to
}

func scalar(value models.JSONValue) (models.ScalarType, string) {
	switch v := value.(type) {
	case nil:
		return models.TypeNull, "null"
	case string:
		return models.TypeString, `"` + v + `"`
	case json.Number:
		return models.TypeNumber, v.String()
	case float64:
		return models.TypeNumber, strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return models.TypeNumber, strconv.Itoa(v)
	case int64:
		return models.TypeNumber, strconv.FormatInt(v, 10)
	case bool:
		return models.TypeBoolean, strconv.FormatBool(v)
	default:
		// Not reachable for parser output; keep the builder total anyway.
		return models.TypeString, `"` + toString(v) + `"`
	}
}

func toString(v interface{}) string {
	if s, ok := v.(interface{ String() string }); ok {
		return s.String()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// KeyPath returns the path of member key under parent.
func KeyPath(parent, key string) string {
	if needsQuoting(key) {
		return parent + "[" + strconv.Quote(key) + "]"
	}
	if parent == "" {
		return key
	}
	return parent + "." + key
}

// IndexPath returns the path of element i under parent.
func IndexPath(parent string, i int) string {
	return parent + "[" + strconv.Itoa(i) + "]"
}

func needsQuoting(key string) bool {
	return key == "" || strings.ContainsAny(key, `.[]"`)
}

// IsContainer reports whether n is an object or array.
func (n *Node) IsContainer() bool {
	return n.Kind == models.KindObject || n.Kind == models.KindArray
}

// Value returns the JSON value backing n.
func (n *Node) Value() models.JSONValue {
	return n.value
}

// Hidden returns how many array elements are not yet materialized.
func (n *Node) Hidden() int {
	if n.Kind != models.KindArray {
		return 0
	}
	return n.ChildCount - n.Revealed
}

// RevealMore materializes the deferred elements of a truncated array and
// returns how many nodes were appended. Calling it again, or on anything
// other than a truncated array, appends nothing.
func (n *Node) RevealMore() int {
	if n == nil || n.Hidden() <= 0 {
		return 0
	}
	from := n.Revealed
	n.appendElements(&Builder{limit: n.limit}, from, n.ChildCount)
	return n.ChildCount - from
}

// RevealAll reveals every truncated array under root and returns the number
// of nodes appended.
func RevealAll(root *Node) int {
	if root == nil {
		return 0
	}
	added := root.RevealMore()
	for _, c := range root.Children {
		added += RevealAll(c)
	}
	return added
}

// Toggle flips the collapsed state of a container.
func (n *Node) Toggle() {
	if n != nil && n.IsContainer() {
		n.Collapsed = !n.Collapsed
	}
}

// SetCollapsed sets the collapsed state of a container.
func (n *Node) SetCollapsed(collapsed bool) {
	if n != nil && n.IsContainer() {
		n.Collapsed = collapsed
	}
}

// ExpandAll expands every container under root.
func ExpandAll(root *Node) {
	setAll(root, false)
}

// CollapseAll collapses every container under root.
func CollapseAll(root *Node) {
	setAll(root, true)
}

func setAll(n *Node, collapsed bool) {
	if n == nil {
		return
	}
	n.SetCollapsed(collapsed)
	for _, c := range n.Children {
		setAll(c, collapsed)
	}
}
