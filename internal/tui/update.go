package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mcncl/jsonview/internal/formatter"
	"github.com/mcncl/jsonview/internal/models"
	"github.com/mcncl/jsonview/internal/session"
	"github.com/mcncl/jsonview/internal/tree"
)

// ChangedMsg reports that the session rebuilt its tree in the background.
type ChangedMsg struct{}

// noteMsg carries the outcome of an asynchronous command such as a copy.
type noteMsg string

// Update handles events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.search.Width = msg.Width / 2
		m.editor.SetWidth(msg.Width)
		m.editor.SetHeight(m.bodyHeight())
		m.scrollToSelection()
		return m, nil

	case ChangedMsg:
		m.refresh()
		return m, nil

	case noteMsg:
		m.note = string(msg)
		return m, nil

	case tea.KeyMsg:
		// Match navigation works from every mode.
		switch msg.String() {
		case "f3":
			return m.navigate(true)
		case "shift+f3", "f15":
			return m.navigate(false)
		}
		switch m.mode {
		case modeSearch:
			return m.updateSearch(msg)
		case modeEdit:
			return m.updateEdit(msg)
		}
		return m.updateTree(msg)
	}
	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeTree
		m.search.Blur()
		m.search.SetValue("")
		m.session.OnSearch("")
		m.refresh()
		return m, nil
	case tea.KeyEnter:
		m.mode = modeTree
		m.search.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	before := m.search.Value()
	m.search, cmd = m.search.Update(msg)
	if m.search.Value() != before {
		first := m.session.OnSearch(m.search.Value())
		m.refresh()
		m.selectNode(first)
	}
	return m, cmd
}

func (m Model) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeTree
		m.editor.Blur()
		return m, nil
	case "ctrl+s":
		// Apply now instead of waiting for the debounce.
		m.session.SetInput(m.editor.Value())
		m.mode = modeTree
		m.editor.Blur()
		m.refresh()
		return m, nil
	}

	var cmd tea.Cmd
	before := m.editor.Value()
	m.editor, cmd = m.editor.Update(msg)
	if v := m.editor.Value(); v != before {
		m.session.OnInput(v)
	}
	return m, cmd
}

func (m Model) updateTree(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.note = ""

	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "esc":
		if m.fullscreen {
			m.session.CloseFullscreen()
			m.fullscreen = false
		} else if m.search.Value() != "" {
			m.search.SetValue("")
			m.session.OnSearch("")
		}

	case "up", "k":
		m.selected--
	case "down", "j":
		m.selected++
	case "pgup", "ctrl+b":
		m.selected -= m.bodyHeight()
	case "pgdown", "ctrl+f":
		m.selected += m.bodyHeight()
	case "home", "g":
		m.selected = 0
	case "end", "G":
		m.selected = len(m.rows) - 1

	case "enter", " ":
		if row, ok := m.current(); ok {
			if row.More {
				m.session.OnRevealMore(row.Node.Path)
			} else {
				m.session.OnToggle(row.Node.Path)
			}
		}
	case "e":
		m.session.ExpandAll()
	case "c":
		m.session.CollapseAll()
	case "m":
		if n := m.revealTarget(); n != nil {
			added := m.session.OnRevealMore(n.Path)
			m.note = fmt.Sprintf("Revealed %d more items", added)
		}

	case "/":
		if m.fullscreen {
			break
		}
		m.mode = modeSearch
		return m, tea.Batch(m.search.Focus(), textinput.Blink)
	case "n":
		return m.navigate(true)
	case "N":
		return m.navigate(false)

	case "f":
		_ = m.session.Format()
		m.editor.SetValue(m.session.Snapshot().Text)
	case "v":
		_ = m.session.Validate()
	case "d":
		_, _ = m.session.DownloadFile(m.opts.DownloadDir)
	case "S":
		if st, ok := m.session.Stats(); ok {
			m.note = st.Summary()
		} else {
			m.note = session.MsgNoData
		}
	case "x":
		m.session.Clear()
		m.search.SetValue("")
		m.editor.Reset()
	case "s":
		m.session.LoadSample()
		m.search.SetValue("")
		m.editor.SetValue(m.session.Snapshot().Text)
		m.selected = 0
	case "F":
		if m.fullscreen {
			m.session.CloseFullscreen()
			m.fullscreen = false
		} else if _, err := m.session.Fullscreen(); err == nil {
			m.fullscreen = true
			m.selected = 0
		}
	case "i":
		m.mode = modeEdit
		m.editor.SetValue(m.session.Snapshot().Text)
		return m, tea.Batch(m.editor.Focus(), textarea.Blink)

	case "y":
		if row, ok := m.current(); ok {
			return m, m.copy(tree.DisplayPath(row.Node), "Copied path")
		}
	case "Y":
		if row, ok := m.current(); ok {
			return m, m.copy(valueText(row.Node.Value()), "Copied value")
		}
	}

	m.refresh()
	return m, nil
}

func (m Model) navigate(forward bool) (tea.Model, tea.Cmd) {
	m.note = ""
	m.refresh()
	m.selectNode(m.session.OnNavigate(forward))
	return m, nil
}

// revealTarget is the truncated array nearest the selection: the selected
// node itself or its closest ancestor.
func (m *Model) revealTarget() *tree.Node {
	row, ok := m.current()
	if !ok {
		return nil
	}
	for n := row.Node; n != nil; n = n.Parent {
		if n.Hidden() > 0 {
			return n
		}
	}
	return nil
}

func (m Model) copy(text, done string) tea.Cmd {
	copyFn := m.opts.Copy
	logger := m.opts.Logger
	return func() tea.Msg {
		if err := copyFn(text); err != nil {
			logger.Warn("clipboard write failed", "err", err)
			return noteMsg(fmt.Sprintf("Failed to copy to clipboard: %v", err))
		}
		return noteMsg(done)
	}
}

func valueText(v models.JSONValue) string {
	if s, ok := v.(string); ok {
		return s
	}
	return formatter.Pretty(v)
}
