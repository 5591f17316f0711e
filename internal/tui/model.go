package tui

import (
	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/mcncl/jsonview/internal/logging"
	"github.com/mcncl/jsonview/internal/session"
	"github.com/mcncl/jsonview/internal/tree"
)

type mode int

const (
	modeTree mode = iota
	modeSearch
	modeEdit
)

// Options configures the terminal UI.
type Options struct {
	Theme       string
	DownloadDir string
	Logger      *log.Logger
	// Copy writes text to the system clipboard. Defaults to clipboard.WriteAll.
	Copy func(string) error
	// InputTTY reads keys from the terminal even when stdin carried the
	// document.
	InputTTY bool
}

// Model holds the TUI state. The document itself lives in the session.
type Model struct {
	session *session.Session
	opts    Options
	styles  styles

	// Rows of the tree currently on screen, rebuilt after every command.
	rows       []tree.Row
	state      session.State
	selected   int
	offset     int
	fullscreen bool

	mode   mode
	search textinput.Model
	editor textarea.Model

	// note is a one-shot message shown instead of the session status.
	note string

	width  int
	height int
}

// New returns the initial model for sess.
func New(sess *session.Session, opts Options) Model {
	if opts.Copy == nil {
		opts.Copy = clipboard.WriteAll
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.DownloadDir == "" {
		opts.DownloadDir = "."
	}

	ti := textinput.New()
	ti.Placeholder = "Search JSON..."
	ti.Prompt = "/ "
	ti.CharLimit = 256
	ti.Width = 40

	ta := textarea.New()
	ta.Placeholder = "Paste JSON here..."
	ta.ShowLineNumbers = true
	ta.CharLimit = 0
	ta.MaxHeight = 0

	m := Model{
		session: sess,
		opts:    opts,
		styles:  newStyles(opts.Theme),
		search:  ti,
		editor:  ta,
		width:   80,
		height:  24,
	}
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Run starts the program and blocks until the user quits. Debounced
// rebuilds triggered by editing reach the program as ChangedMsg.
func Run(sess *session.Session, opts Options) error {
	m := New(sess, opts)
	progOpts := []tea.ProgramOption{tea.WithAltScreen()}
	if opts.InputTTY {
		progOpts = append(progOpts, tea.WithInputTTY())
	}
	p := tea.NewProgram(m, progOpts...)
	sess.SetOnChange(func() { p.Send(ChangedMsg{}) })
	defer sess.SetOnChange(nil)

	_, err := p.Run()
	return err
}

// refresh re-reads the session and flattens the active tree into rows.
func (m *Model) refresh() {
	m.session.Read(func(st session.State) {
		m.state = st
		root := st.Root
		if m.fullscreen && st.Fullscreen != nil {
			root = st.Fullscreen
		}
		m.rows = tree.Visible(root)
	})
	// A rebuild drops the search; don't leave a stale query in the box.
	if m.search.Value() != "" && m.state.Cursor.Query() == "" {
		m.search.SetValue("")
	}
	if m.fullscreen && m.state.Fullscreen == nil {
		m.fullscreen = false
	}
	m.clampSelection()
}

// selectNode moves the selection to the row of n, if it is visible.
func (m *Model) selectNode(n *tree.Node) {
	if n == nil {
		return
	}
	for i, r := range m.rows {
		if r.Node == n && !r.More {
			m.selected = i
			m.scrollToSelection()
			return
		}
	}
}

func (m *Model) current() (tree.Row, bool) {
	if m.selected < 0 || m.selected >= len(m.rows) {
		return tree.Row{}, false
	}
	return m.rows[m.selected], true
}

func (m *Model) clampSelection() {
	if m.selected >= len(m.rows) {
		m.selected = len(m.rows) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
	m.scrollToSelection()
}

func (m *Model) bodyHeight() int {
	// title, hints, search bar, status line
	h := m.height - 4
	if h < 1 {
		h = 1
	}
	return h
}

func (m *Model) scrollToSelection() {
	h := m.bodyHeight()
	if m.selected < m.offset {
		m.offset = m.selected
	}
	if m.selected >= m.offset+h {
		m.offset = m.selected - h + 1
	}
	if last := len(m.rows) - h; m.offset > last {
		m.offset = last
	}
	if m.offset < 0 {
		m.offset = 0
	}
}
