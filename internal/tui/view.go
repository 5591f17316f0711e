package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mcncl/jsonview/internal/models"
	"github.com/mcncl/jsonview/internal/session"
	"github.com/mcncl/jsonview/internal/tree"
)

type palette struct {
	accent, text, dim        lipgloss.Color
	key, str, num, boolean   lipgloss.Color
	null, more               lipgloss.Color
	selected, match, current lipgloss.Color
	errorFg, successFg       lipgloss.Color
}

var palettes = map[string]palette{
	"light": {
		accent: "#7D56F4", text: "#24292F", dim: "245",
		key: "#0550AE", str: "#0A3069", num: "#953800", boolean: "#8250DF",
		null: "#6E7781", more: "#0969DA",
		selected: "#DDF4FF", match: "#FFF8C5", current: "#FFD33D",
		errorFg: "#CF222E", successFg: "#1A7F37",
	},
	"dark": {
		accent: "#7D56F4", text: "#E6EDF3", dim: "240",
		key: "#79C0FF", str: "#A5D6FF", num: "#FFA657", boolean: "#D2A8FF",
		null: "#8B949E", more: "#58A6FF",
		selected: "#1F3A5F", match: "#5A4A00", current: "#9E6A03",
		errorFg: "#FF7B72", successFg: "#3FB950",
	},
	"original-dark": {
		accent: "#BD93F9", text: "#F8F8F2", dim: "61",
		key: "#8BE9FD", str: "#F1FA8C", num: "#BD93F9", boolean: "#FF79C6",
		null: "#6272A4", more: "#50FA7B",
		selected: "#44475A", match: "#6D5A00", current: "#FFB86C",
		errorFg: "#FF5555", successFg: "#50FA7B",
	},
}

type styles struct {
	title, hint, placeholder lipgloss.Style
	key, more, summary       lipgloss.Style
	types                    map[models.ScalarType]lipgloss.Style
	selected, match, current lipgloss.Style
	errorMsg, successMsg     lipgloss.Style
	search, count            lipgloss.Style
}

// newStyles builds the styles of a theme; unknown themes fall back to light.
func newStyles(theme string) styles {
	p, ok := palettes[theme]
	if !ok {
		p = palettes["light"]
	}
	fg := func(c lipgloss.Color) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(c)
	}
	return styles{
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(p.accent).
			Padding(0, 1),
		hint:        fg(p.dim),
		placeholder: fg(p.dim).Italic(true).PaddingLeft(2),
		key:         fg(p.key).Bold(true),
		more:        fg(p.more).Underline(true),
		summary:     fg(p.dim),
		types: map[models.ScalarType]lipgloss.Style{
			models.TypeString:  fg(p.str),
			models.TypeNumber:  fg(p.num),
			models.TypeBoolean: fg(p.boolean),
			models.TypeNull:    fg(p.null).Italic(true),
		},
		selected:   lipgloss.NewStyle().Background(p.selected),
		match:      lipgloss.NewStyle().Background(p.match),
		current:    lipgloss.NewStyle().Background(p.current).Bold(true),
		errorMsg:   fg(p.errorFg).Bold(true),
		successMsg: fg(p.successFg).Bold(true),
		search:     fg(p.text),
		count:      fg(p.dim),
	}
}

const (
	hintsTree   = "↑/↓ move • enter toggle • / search • n/N next/prev • f format • v validate • d download • i edit • F full screen • q quit"
	hintsSearch = "type to search • enter done • esc clear"
	hintsEdit   = "ctrl+s apply • esc back"
)

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	title := "jsonview"
	if m.fullscreen {
		title += " • full screen"
	}
	b.WriteString(m.styles.title.Render(title))
	b.WriteByte('\n')

	switch m.mode {
	case modeSearch:
		b.WriteString(m.styles.hint.Render(hintsSearch))
	case modeEdit:
		b.WriteString(m.styles.hint.Render(hintsEdit))
	default:
		b.WriteString(m.styles.hint.Render(hintsTree))
	}
	b.WriteByte('\n')

	b.WriteString(m.searchBar())
	b.WriteByte('\n')

	if m.mode == modeEdit {
		b.WriteString(m.editor.View())
	} else {
		b.WriteString(m.body())
	}
	b.WriteByte('\n')

	b.WriteString(m.statusLine())
	return b.String()
}

func (m Model) searchBar() string {
	if m.mode == modeSearch {
		return m.search.View() + " " + m.styles.count.Render(m.state.Cursor.Status())
	}
	if q := m.search.Value(); q != "" {
		return m.styles.search.Render("/ "+q) + " " + m.styles.count.Render(m.state.Cursor.Status())
	}
	return ""
}

func (m Model) body() string {
	if m.state.Placeholder() {
		return m.styles.placeholder.Render(session.Placeholder)
	}

	h := m.bodyHeight()
	end := min(m.offset+h, len(m.rows))
	lines := make([]string, 0, h)
	for i := m.offset; i < end; i++ {
		lines = append(lines, m.renderRow(m.rows[i], i == m.selected))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderRow(r tree.Row, selected bool) string {
	indent := strings.Repeat("  ", r.Depth)

	if r.More {
		line := indent + "  " + m.styles.more.Render(tree.MoreText(r.Node.Hidden()))
		if selected {
			return m.styles.selected.Render(line)
		}
		return line
	}

	n := r.Node
	indicator := "  "
	if n.IsContainer() && n.ChildCount > 0 {
		if n.Collapsed {
			indicator = "▸ "
		} else {
			indicator = "▾ "
		}
	}

	var label string
	if l := n.Label(); l != "" {
		label = m.styles.key.Render(strings.TrimSuffix(l, ": ")) + ": "
	}

	var value string
	if n.IsContainer() {
		value = m.styles.summary.Render(n.Summary())
	} else {
		value = m.styles.types[n.Type].Render(n.Display)
	}

	line := indent + indicator + label + value
	cursor := m.state.Cursor
	switch {
	case selected:
		return m.styles.selected.Render(line)
	case !m.fullscreen && cursor.IsCurrent(n):
		return m.styles.current.Render(line)
	case !m.fullscreen && cursor.IsMatch(n):
		return m.styles.match.Render(line)
	}
	return line
}

func (m Model) statusLine() string {
	if m.note != "" {
		return m.styles.hint.Render(m.note)
	}
	st := m.state.Status
	switch st.Kind {
	case session.StatusError:
		return m.styles.errorMsg.Render(st.Message)
	case session.StatusSuccess:
		return m.styles.successMsg.Render(st.Message)
	}
	if m.state.HasValue && m.state.Root != nil {
		return m.styles.hint.Render(fmt.Sprintf("%d nodes", tree.Count(m.state.Root)))
	}
	return ""
}
