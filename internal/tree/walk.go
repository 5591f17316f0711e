package tree

import (
	"fmt"
	"strings"

	"github.com/mcncl/jsonview/internal/models"
)

// Walk visits n and its materialized descendants in document order, a node
// before its children. Returning false from fn skips the node's children.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, fn)
	}
}

// Find returns the materialized node at path, or nil.
func Find(root *Node, path string) *Node {
	var found *Node
	Walk(root, func(n *Node) bool {
		if found != nil {
			return false
		}
		if n.Path == path {
			found = n
			return false
		}
		// Child paths always extend their parent's path.
		return strings.HasPrefix(path, n.Path)
	})
	return found
}

// Count returns the number of materialized nodes under root, root included.
func Count(root *Node) int {
	total := 0
	Walk(root, func(*Node) bool {
		total++
		return true
	})
	return total
}

// Leaves returns the materialized scalar nodes in document order.
func Leaves(root *Node) []*Node {
	var leaves []*Node
	Walk(root, func(n *Node) bool {
		if n.Kind == models.KindScalar {
			leaves = append(leaves, n)
		}
		return true
	})
	return leaves
}

// Paths returns the paths of all materialized nodes in document order.
func Paths(root *Node) []string {
	var paths []string
	Walk(root, func(n *Node) bool {
		paths = append(paths, n.Path)
		return true
	})
	return paths
}

// Label returns the prefix shown before a node's value: "key: " for object
// members, "[i]: " for array elements and "" for the root.
func (n *Node) Label() string {
	switch {
	case n.HasKey:
		if n.Key == "" {
			return `"": `
		}
		return n.Key + ": "
	case n.Index >= 0:
		return fmt.Sprintf("[%d]: ", n.Index)
	default:
		return ""
	}
}

// Summary returns the bracketed item count of a container, e.g. "{3 items}".
// Scalars return their display form.
func (n *Node) Summary() string {
	switch n.Kind {
	case models.KindObject:
		return "{" + Items(n.ChildCount) + "}"
	case models.KindArray:
		return "[" + Items(n.ChildCount) + "]"
	default:
		return n.Display
	}
}

// Header is the one-line rendering of a node.
func (n *Node) Header() string {
	return n.Label() + n.Summary()
}

// DisplayPath returns the path of n as shown to users, rooted at "$".
func DisplayPath(n *Node) string {
	switch {
	case n.Path == "":
		return "$"
	case strings.HasPrefix(n.Path, "["):
		return "$" + n.Path
	default:
		return "$." + n.Path
	}
}

// Items formats an item count.
func Items(count int) string {
	if count == 1 {
		return "1 item"
	}
	return fmt.Sprintf("%d items", count)
}

// MoreText is the caption of the reveal action of a truncated array.
func MoreText(hidden int) string {
	return fmt.Sprintf("Show %d more items...", hidden)
}

// Text returns the rendered text of n and its materialized subtree: every
// header in document order, one per line.
func Text(n *Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	Walk(n, func(d *Node) bool {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(d.Header())
		return true
	})
	return b.String()
}

// Row is one line of a flattened tree. More is set on the synthetic row that
// stands for the deferred elements of a truncated array.
type Row struct {
	Node  *Node
	Depth int
	More  bool
}

// Visible flattens the tree into rows, skipping the children of collapsed
// containers and adding a reveal row after each truncated array.
func Visible(root *Node) []Row {
	var rows []Row
	var visit func(n *Node, depth int)
	visit = func(n *Node, depth int) {
		rows = append(rows, Row{Node: n, Depth: depth})
		if n.Collapsed {
			return
		}
		for _, c := range n.Children {
			visit(c, depth+1)
		}
		if n.Hidden() > 0 {
			rows = append(rows, Row{Node: n, Depth: depth + 1, More: true})
		}
	}
	if root != nil {
		visit(root, 0)
	}
	return rows
}

// Ancestors returns the chain of parents of n, nearest first.
func Ancestors(n *Node) []*Node {
	if n == nil {
		return nil
	}
	var chain []*Node
	for p := n.Parent; p != nil; p = p.Parent {
		chain = append(chain, p)
	}
	return chain
}

// ExpandTo expands every ancestor of n so that it becomes visible.
func ExpandTo(n *Node) {
	for _, p := range Ancestors(n) {
		p.Collapsed = false
	}
}
