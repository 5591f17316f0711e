package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcncl/jsonview/internal/session"
)

const doc = `{"a": {"b": "hello"}, "c": [1, 2]}`

func newSession(t *testing.T, input string) *session.Session {
	t.Helper()
	s := session.New(session.Options{Debounce: time.Hour})
	t.Cleanup(s.Close)
	if input != "" {
		s.SetInput(input)
	}
	return s
}

func newModel(t *testing.T, s *session.Session, opts Options) Model {
	t.Helper()
	m := New(s, opts)
	return send(t, m, tea.WindowSizeMsg{Width: 120, Height: 300})
}

func send(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		m = send(t, m, key(k))
	}
	return m
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	for _, r := range text {
		m = send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func key(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "f3":
		return tea.KeyMsg{Type: tea.KeyF3}
	case "f15":
		return tea.KeyMsg{Type: tea.KeyF15}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func selectedPath(t *testing.T, m Model) string {
	t.Helper()
	row, ok := m.current()
	require.True(t, ok)
	return row.Node.Path
}

func TestView_Placeholder(t *testing.T) {
	m := newModel(t, newSession(t, ""), Options{})

	assert.Contains(t, m.View(), session.Placeholder)
	assert.Empty(t, m.rows)
}

func TestView_RendersTree(t *testing.T) {
	m := newModel(t, newSession(t, doc), Options{})
	view := m.View()

	assert.Contains(t, view, "{1 item}")
	assert.Contains(t, view, `"hello"`)
	assert.Contains(t, view, "[2 items]")
	assert.NotContains(t, view, session.Placeholder)
}

func TestView_InvalidInput(t *testing.T) {
	m := newModel(t, newSession(t, `{"a": }`), Options{})
	view := m.View()

	assert.Contains(t, view, session.PrefixInvalid)
	assert.NotContains(t, view, session.Placeholder)
}

func TestUpdate_MoveAndToggle(t *testing.T) {
	m := newModel(t, newSession(t, doc), Options{})
	require.Len(t, m.rows, 6)

	m = press(t, m, "j")
	assert.Equal(t, "a", selectedPath(t, m))

	m = press(t, m, "enter")
	assert.Len(t, m.rows, 5, "collapsing a hides a.b")

	m = press(t, m, " ")
	assert.Len(t, m.rows, 6)

	m = press(t, m, "G")
	assert.Equal(t, "c[1]", selectedPath(t, m))
	m = press(t, m, "j")
	assert.Equal(t, "c[1]", selectedPath(t, m), "selection stays on the last row")
	m = press(t, m, "g", "k")
	assert.Equal(t, "", selectedPath(t, m))
}

func TestUpdate_CollapseExpandAll(t *testing.T) {
	m := newModel(t, newSession(t, doc), Options{})

	m = press(t, m, "c")
	assert.Len(t, m.rows, 1)
	m = press(t, m, "e")
	assert.Len(t, m.rows, 6)
}

func TestUpdate_Search(t *testing.T) {
	m := newModel(t, newSession(t, doc), Options{})

	m = press(t, m, "/")
	require.Equal(t, modeSearch, m.mode)
	m = typeText(t, m, "hello")

	assert.Equal(t, "1 of 2", m.state.Cursor.Status())
	assert.Equal(t, "a", selectedPath(t, m))
	assert.Contains(t, m.View(), "1 of 2")

	m = press(t, m, "enter")
	assert.Equal(t, modeTree, m.mode)

	m = press(t, m, "n")
	assert.Equal(t, "a.b", selectedPath(t, m))
	m = press(t, m, "f3")
	assert.Equal(t, "a", selectedPath(t, m), "navigation wraps")
	m = press(t, m, "N")
	assert.Equal(t, "a.b", selectedPath(t, m))

	m = press(t, m, "esc")
	assert.Equal(t, "", m.state.Cursor.Status())
}

func TestUpdate_NavigateWhileSearching(t *testing.T) {
	m := newModel(t, newSession(t, doc), Options{})

	m = press(t, m, "/")
	m = typeText(t, m, "hello")
	require.Equal(t, "1 of 2", m.state.Cursor.Status())

	m = press(t, m, "f3")
	assert.Equal(t, modeSearch, m.mode, "the search box keeps focus")
	assert.Equal(t, "hello", m.search.Value())
	assert.Equal(t, "2 of 2", m.state.Cursor.Status())
	assert.Equal(t, "a.b", selectedPath(t, m))

	m = press(t, m, "f15")
	assert.Equal(t, "1 of 2", m.state.Cursor.Status())
	assert.Equal(t, "a", selectedPath(t, m))
}

func TestUpdate_NavigateWhileEditing(t *testing.T) {
	s := newSession(t, doc)
	m := newModel(t, s, Options{})

	m = press(t, m, "/")
	m = typeText(t, m, "hello")
	m = press(t, m, "enter", "i")
	require.Equal(t, modeEdit, m.mode)

	m = press(t, m, "f3")
	assert.Equal(t, modeEdit, m.mode)
	assert.Equal(t, "2 of 2", m.state.Cursor.Status())
	assert.Equal(t, doc, m.editor.Value(), "the key is not typed into the editor")
	assert.False(t, s.Pending())
}

func TestUpdate_RebuildClearsSearchBox(t *testing.T) {
	s := newSession(t, doc)
	m := newModel(t, s, Options{})

	m = press(t, m, "/")
	m = typeText(t, m, "hello")
	m = press(t, m, "enter")
	require.Equal(t, "hello", m.search.Value())

	m = press(t, m, "f")
	assert.Equal(t, "", m.search.Value())
	assert.Equal(t, "", m.state.Cursor.Query())

	m = press(t, m, "/")
	m = typeText(t, m, "hello")
	m = press(t, m, "enter")
	s.SetInput(`{"other": 1}`)
	m = send(t, m, ChangedMsg{})
	assert.Equal(t, "", m.search.Value())
	assert.NotContains(t, m.View(), "hello")
}

func TestUpdate_SearchNoMatches(t *testing.T) {
	m := newModel(t, newSession(t, doc), Options{})

	m = press(t, m, "/")
	m = typeText(t, m, "zzz")
	assert.Contains(t, m.View(), "No matches found")

	m = press(t, m, "esc")
	assert.Equal(t, modeTree, m.mode)
	assert.Equal(t, "", m.search.Value())
}

func TestUpdate_RevealMore(t *testing.T) {
	parts := make([]string, 150)
	for i := range parts {
		parts[i] = fmt.Sprint(i)
	}
	m := newModel(t, newSession(t, "["+strings.Join(parts, ",")+"]"), Options{})

	// root, 100 elements, reveal row
	require.Len(t, m.rows, 102)
	assert.Contains(t, m.View(), "Show 50 more items...")

	m = press(t, m, "G")
	row, ok := m.current()
	require.True(t, ok)
	require.True(t, row.More)

	m = press(t, m, "enter")
	assert.Len(t, m.rows, 151)
	assert.NotContains(t, m.View(), "more items")

	m = press(t, m, "m")
	assert.Len(t, m.rows, 151, "revealing twice changes nothing")
}

func TestUpdate_RevealFromElement(t *testing.T) {
	parts := make([]string, 120)
	for i := range parts {
		parts[i] = fmt.Sprint(i)
	}
	m := newModel(t, newSession(t, `{"list": [`+strings.Join(parts, ",")+`]}`), Options{})

	m = press(t, m, "j", "j", "j")
	assert.Equal(t, "list[1]", selectedPath(t, m))

	m = press(t, m, "m")
	assert.Contains(t, m.View(), "Revealed 20 more items")
	assert.Len(t, m.rows, 122)
}

func TestUpdate_CopyPathAndValue(t *testing.T) {
	var copied []string
	opts := Options{Copy: func(s string) error {
		copied = append(copied, s)
		return nil
	}}
	m := newModel(t, newSession(t, doc), opts)
	m = press(t, m, "j")

	next, cmd := m.Update(key("y"))
	require.NotNil(t, cmd)
	m = send(t, next.(Model), cmd())
	assert.Contains(t, m.View(), "Copied path")

	_, cmd = m.Update(key("Y"))
	require.NotNil(t, cmd)
	cmd()

	require.Len(t, copied, 2)
	assert.Equal(t, "$.a", copied[0])
	assert.Equal(t, "{\n  \"b\": \"hello\"\n}", copied[1])
}

func TestUpdate_CopyFailure(t *testing.T) {
	opts := Options{Copy: func(string) error { return fmt.Errorf("no clipboard") }}
	m := newModel(t, newSession(t, doc), opts)

	_, cmd := m.Update(key("y"))
	require.NotNil(t, cmd)
	m = send(t, m, cmd())
	assert.Contains(t, m.View(), "Failed to copy to clipboard: no clipboard")
}

func TestUpdate_FormatAndValidate(t *testing.T) {
	s := newSession(t, doc)
	m := newModel(t, s, Options{})

	m = press(t, m, "f")
	assert.Equal(t, "{\n  \"a\": {\n    \"b\": \"hello\"\n  },\n  \"c\": [\n    1,\n    2\n  ]\n}", s.Snapshot().Text)

	m = press(t, m, "v")
	assert.Contains(t, m.View(), session.MsgValid)
}

func TestUpdate_Download(t *testing.T) {
	dir := t.TempDir()
	m := newModel(t, newSession(t, `{"x":1}`), Options{DownloadDir: dir})

	m = press(t, m, "d")

	data, err := os.ReadFile(filepath.Join(dir, "data.json"))
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"x\": 1\n}", string(data))
	assert.Contains(t, m.View(), "Saved")
}

func TestUpdate_DownloadWithoutData(t *testing.T) {
	dir := t.TempDir()
	m := newModel(t, newSession(t, ""), Options{DownloadDir: dir})

	m = press(t, m, "d")

	assert.NoFileExists(t, filepath.Join(dir, "data.json"))
	assert.Contains(t, m.View(), session.MsgNoData)
}

func TestUpdate_Fullscreen(t *testing.T) {
	m := newModel(t, newSession(t, doc), Options{})
	m = press(t, m, "c")
	require.Len(t, m.rows, 1)

	m = press(t, m, "F")
	assert.True(t, m.fullscreen)
	assert.Len(t, m.rows, 6, "full screen starts expanded")
	assert.Contains(t, m.View(), "full screen")

	m = press(t, m, "esc")
	assert.False(t, m.fullscreen)
	assert.Len(t, m.rows, 1, "main tree keeps its own state")
}

func TestUpdate_FullscreenWithoutData(t *testing.T) {
	m := newModel(t, newSession(t, ""), Options{})

	m = press(t, m, "F")
	assert.False(t, m.fullscreen)
	assert.Contains(t, m.View(), session.MsgNoFullscreen)
}

func TestUpdate_ClearAndSample(t *testing.T) {
	m := newModel(t, newSession(t, doc), Options{})

	m = press(t, m, "x")
	assert.Contains(t, m.View(), session.Placeholder)

	m = press(t, m, "s")
	assert.NotContains(t, m.View(), session.Placeholder)
	assert.NotEmpty(t, m.rows)
}

func TestUpdate_EditAndApply(t *testing.T) {
	s := newSession(t, "")
	m := newModel(t, s, Options{})

	m = press(t, m, "i")
	require.Equal(t, modeEdit, m.mode)
	m = typeText(t, m, `[true]`)
	assert.True(t, s.Pending())

	m = press(t, m, "ctrl+s")
	assert.Equal(t, modeTree, m.mode)
	assert.False(t, s.Pending())
	assert.Len(t, m.rows, 2)
}

func TestUpdate_ChangedMsgRefreshes(t *testing.T) {
	s := newSession(t, "")
	m := newModel(t, s, Options{})
	require.Empty(t, m.rows)

	s.SetInput(`[1]`)
	m = send(t, m, ChangedMsg{})
	assert.Len(t, m.rows, 2)
}

func TestUpdate_Stats(t *testing.T) {
	m := newModel(t, newSession(t, doc), Options{})
	m = press(t, m, "S")
	assert.Contains(t, m.View(), "6 nodes, 2 objects, 1 arrays, depth 2")

	m = newModel(t, newSession(t, ""), Options{})
	m = press(t, m, "S")
	assert.Contains(t, m.View(), session.MsgNoData)
}

func TestUpdate_Quit(t *testing.T) {
	m := newModel(t, newSession(t, doc), Options{})
	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestNewStyles_UnknownThemeFallsBack(t *testing.T) {
	assert.Equal(t, newStyles("light").key.GetForeground(), newStyles("nope").key.GetForeground())
	assert.NotEqual(t, newStyles("light").key.GetForeground(), newStyles("dark").key.GetForeground())
}
