package web

import (
	"github.com/mcncl/jsonview/internal/search"
	"github.com/mcncl/jsonview/internal/session"
	"github.com/mcncl/jsonview/internal/tree"
)

// nodeView is a display node as sent to the browser. Only materialized
// children are included; Hidden counts the rest.
type nodeView struct {
	Path      string     `json:"path"`
	Label     string     `json:"label,omitempty"`
	Kind      string     `json:"kind"`
	Type      string     `json:"type,omitempty"`
	Display   string     `json:"display"`
	Count     int        `json:"count"`
	Collapsed bool       `json:"collapsed,omitempty"`
	Hidden    int        `json:"hidden,omitempty"`
	More      string     `json:"more,omitempty"`
	Match     bool       `json:"match,omitempty"`
	Current   bool       `json:"current,omitempty"`
	Children  []nodeView `json:"children,omitempty"`
}

type searchView struct {
	Query   string `json:"query"`
	Count   int    `json:"count"`
	Index   int    `json:"index"`
	Current string `json:"current,omitempty"`
	Status  string `json:"status"`
}

type statusView struct {
	Kind    string `json:"kind"`
	Message string `json:"message,omitempty"`
}

// stateView is the body of every API response.
type stateView struct {
	Placeholder string     `json:"placeholder,omitempty"`
	Text        *string    `json:"text,omitempty"`
	Tree        *nodeView  `json:"tree,omitempty"`
	Fullscreen  *nodeView  `json:"fullscreen,omitempty"`
	Search      searchView `json:"search"`
	Status      statusView `json:"status"`
}

var kindNames = map[session.StatusKind]string{
	session.StatusNone:    "none",
	session.StatusError:   "error",
	session.StatusSuccess: "success",
}

func newStateView(st session.State, withText bool) stateView {
	v := stateView{
		Status: statusView{Kind: kindNames[st.Status.Kind], Message: st.Status.Message},
		Search: newSearchView(st.Cursor),
	}
	if st.Placeholder() {
		v.Placeholder = session.Placeholder
	}
	if withText {
		text := st.Text
		v.Text = &text
	}
	if st.Root != nil {
		root := newNodeView(st.Root, st.Cursor)
		v.Tree = &root
	}
	if st.Fullscreen != nil {
		fs := newNodeView(st.Fullscreen, nil)
		v.Fullscreen = &fs
	}
	return v
}

func newSearchView(c *search.Cursor) searchView {
	v := searchView{
		Query:  c.Query(),
		Count:  c.Len(),
		Index:  c.Index(),
		Status: c.Status(),
	}
	if cur := c.Current(); cur != nil {
		v.Current = cur.Path
	}
	return v
}

func newNodeView(n *tree.Node, c *search.Cursor) nodeView {
	v := nodeView{
		Path:      n.Path,
		Label:     n.Label(),
		Kind:      string(n.Kind),
		Display:   n.Summary(),
		Count:     n.ChildCount,
		Collapsed: n.Collapsed,
		Hidden:    n.Hidden(),
		Match:     c.IsMatch(n),
		Current:   c.IsCurrent(n),
	}
	if !n.IsContainer() {
		v.Type = string(n.Type)
	}
	if v.Hidden > 0 {
		v.More = tree.MoreText(v.Hidden)
	}
	if len(n.Children) > 0 {
		v.Children = make([]nodeView, 0, len(n.Children))
		for _, child := range n.Children {
			v.Children = append(v.Children, newNodeView(child, c))
		}
	}
	return v
}
