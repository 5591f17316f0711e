// Package search finds the display nodes whose rendered text contains a
// query and keeps a cursor over the matches.
//
// A node's rendered text is its headers one per line, so a query only spans
// two nodes when it contains the newline between them: "{1 item}b" never
// matches "a: {1 item}" followed by "b: 1", "{1 item}\nb" does.
package search

import (
	"fmt"
	"strings"

	"github.com/mcncl/jsonview/internal/tree"
)

// Cursor is an ordered list of matching nodes plus the position of the
// current match. Index is -1 when there is no current match.
type Cursor struct {
	query   string
	matches []*tree.Node
	index   int
	lookup  map[*tree.Node]int
}

// Search returns every materialized node under root, in document order, whose
// text contains query, compared case-insensitively. A node's text is its own
// header followed by the headers of its materialized descendants, so a
// container matches whenever one of its descendants does.
//
// A container root is not a candidate; its text is the whole document.
//
// When at least one node matches, the cursor is already on the first match.
func Search(root *tree.Node, query string) *Cursor {
	c := &Cursor{query: query, index: -1}
	if query == "" || root == nil {
		return c
	}

	needle := strings.ToLower(query)
	var hits map[*tree.Node]bool
	if strings.Contains(needle, "\n") {
		// Headers are joined by newlines, so only whole-text matching can
		// see a query that spans nodes.
		hits = matchText(root, needle)
	} else {
		hits = make(map[*tree.Node]bool)
		markHeaders(root, needle, hits)
	}

	tree.Walk(root, func(n *tree.Node) bool {
		if !hits[n] {
			// No descendant can match either.
			return false
		}
		if n != root || !n.IsContainer() {
			c.matches = append(c.matches, n)
		}
		return true
	})

	if len(c.matches) > 0 {
		c.lookup = make(map[*tree.Node]int, len(c.matches))
		for i, m := range c.matches {
			c.lookup[m] = i
		}
		c.index = 0
	}
	return c
}

// markHeaders records, bottom-up, the nodes whose subtree text contains
// needle. It never matches across two headers.
func markHeaders(n *tree.Node, needle string, hits map[*tree.Node]bool) bool {
	matched := strings.Contains(strings.ToLower(n.Header()), needle)
	for _, c := range n.Children {
		if markHeaders(c, needle, hits) {
			matched = true
		}
	}
	if matched {
		hits[n] = true
	}
	return matched
}

func matchText(root *tree.Node, needle string) map[*tree.Node]bool {
	hits := make(map[*tree.Node]bool)
	tree.Walk(root, func(n *tree.Node) bool {
		if strings.Contains(strings.ToLower(tree.Text(n)), needle) {
			hits[n] = true
			return true
		}
		return false
	})
	return hits
}

// Query returns the query the cursor was built for.
func (c *Cursor) Query() string {
	if c == nil {
		return ""
	}
	return c.query
}

// Navigate moves the cursor one match forward or backward, wrapping at
// either end, and returns the new current match. It returns nil when there
// are no matches.
func (c *Cursor) Navigate(forward bool) *tree.Node {
	if c == nil || len(c.matches) == 0 {
		return nil
	}
	n := len(c.matches)
	if forward {
		c.index = (c.index + 1) % n
	} else {
		c.index = (c.index - 1 + n) % n
	}
	return c.matches[c.index]
}

// Select makes n the current match and reports whether n is a match.
func (c *Cursor) Select(n *tree.Node) bool {
	if c == nil {
		return false
	}
	i, ok := c.lookup[n]
	if ok {
		c.index = i
	}
	return ok
}

// Current returns the current match, or nil.
func (c *Cursor) Current() *tree.Node {
	if c == nil || c.index < 0 || c.index >= len(c.matches) {
		return nil
	}
	return c.matches[c.index]
}

// Len returns the number of matches.
func (c *Cursor) Len() int {
	if c == nil {
		return 0
	}
	return len(c.matches)
}

// Index returns the position of the current match, or -1.
func (c *Cursor) Index() int {
	if c == nil {
		return -1
	}
	return c.index
}

// Matches returns the matches in document order.
func (c *Cursor) Matches() []*tree.Node {
	if c == nil {
		return nil
	}
	return c.matches
}

// IsMatch reports whether n is one of the matches.
func (c *Cursor) IsMatch(n *tree.Node) bool {
	if c == nil || c.lookup == nil {
		return false
	}
	_, ok := c.lookup[n]
	return ok
}

// IsCurrent reports whether n is the current match.
func (c *Cursor) IsCurrent(n *tree.Node) bool {
	return n != nil && c.Current() == n
}

// Status describes the cursor position for a status line: "2 of 5",
// "No matches found", or "" when there is no query.
func (c *Cursor) Status() string {
	if c == nil || c.query == "" {
		return ""
	}
	if len(c.matches) == 0 {
		return "No matches found"
	}
	return fmt.Sprintf("%d of %d", c.index+1, len(c.matches))
}

// Reset drops the query and all matches.
func (c *Cursor) Reset() {
	if c == nil {
		return
	}
	c.query = ""
	c.matches = nil
	c.lookup = nil
	c.index = -1
}
