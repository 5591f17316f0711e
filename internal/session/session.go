// Package session holds the state behind one viewer: the raw text, the
// parsed value, the display tree, the search cursor and the status line.
//
// Every front end drives a Session through its command methods. Commands
// are serialized by a mutex; an asynchronous rebuild swaps in a complete new
// state, so readers never see a half-built tree.
package session

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/mcncl/jsonview/internal/analyzer"
	"github.com/mcncl/jsonview/internal/debounce"
	"github.com/mcncl/jsonview/internal/errors"
	"github.com/mcncl/jsonview/internal/formatter"
	"github.com/mcncl/jsonview/internal/logging"
	"github.com/mcncl/jsonview/internal/models"
	"github.com/mcncl/jsonview/internal/parser"
	"github.com/mcncl/jsonview/internal/search"
	"github.com/mcncl/jsonview/internal/tree"
)

// Messages shown on the status line.
const (
	Placeholder         = "Enter JSON to visualize"
	MsgValid            = "Valid JSON!"
	MsgNoData           = "No JSON data to download"
	MsgNoFullscreen     = "No valid JSON data to display in full screen"
	PrefixInvalid       = "Invalid JSON: "
	PrefixCannotFormat  = "Cannot format invalid JSON: "
	DefaultDownloadName = "data.json"
)

//go:embed sample.json
var sampleJSON string

// Sample returns the built-in sample document.
func Sample() string {
	return sampleJSON
}

// StatusKind classifies the status line.
type StatusKind int

const (
	StatusNone StatusKind = iota
	StatusError
	StatusSuccess
)

// Status is the message currently shown to the user.
type Status struct {
	Kind    StatusKind
	Message string
}

func (s Status) String() string {
	return s.Message
}

// State is a read-only view of a Session. Trees are shared, not copied.
type State struct {
	Text       string
	Value      models.JSONValue
	HasValue   bool
	Root       *tree.Node
	Fullscreen *tree.Node
	Cursor     *search.Cursor
	Status     Status
}

// Placeholder reports whether there is nothing to show: no value and no
// error.
func (st State) Placeholder() bool {
	return !st.HasValue && st.Status.Kind != StatusError
}

// Options configures a Session.
type Options struct {
	Debounce      time.Duration
	RevealLimit   int
	AllowComments bool
	DownloadName  string
	Logger        *log.Logger
}

// Session is the state and command interface of one viewer.
type Session struct {
	mu sync.Mutex

	parser    *parser.Parser
	builder   *tree.Builder
	formatter *formatter.Formatter
	analyzer  *analyzer.Analyzer
	debouncer *debounce.Debouncer
	logger    *log.Logger
	download  string

	onChange func()
	pending  *debounce.Handle
	inputGen uint64

	text       string
	value      models.JSONValue
	hasValue   bool
	root       *tree.Node
	fullscreen *tree.Node
	cursor     *search.Cursor
	status     Status
}

// New creates an empty Session showing the placeholder.
func New(opts Options) *Session {
	p := parser.New(parser.Options{AllowComments: opts.AllowComments})
	s := &Session{
		parser:    p,
		builder:   tree.NewBuilder(tree.Options{RevealLimit: opts.RevealLimit}),
		formatter: formatter.NewFormatter(formatter.WithParser(p)),
		analyzer:  analyzer.NewAnalyzer(opts.RevealLimit),
		debouncer: debounce.New(opts.Debounce),
		logger:    opts.Logger,
		download:  opts.DownloadName,
		cursor:    search.Search(nil, ""),
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	if s.download == "" {
		s.download = DefaultDownloadName
	}
	return s
}

// SetOnChange registers fn to run after every rebuild triggered by OnInput.
// fn runs on the timer goroutine without the session lock held.
func (s *Session) SetOnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// Close cancels any pending rebuild.
func (s *Session) Close() {
	s.debouncer.Stop()
}

// OnInput stores text and schedules a rebuild once input has been quiet for
// the debounce delay. Only the last text of a burst is parsed.
func (s *Session) OnInput(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text = text
	s.inputGen++
	gen := s.inputGen
	s.pending = s.debouncer.Schedule(func() { s.applyInput(gen) })
}

// applyInput runs the rebuild scheduled as generation gen. A command that
// rebuilt or scheduled again in the meantime makes it a no-op, even when the
// timer already fired.
func (s *Session) applyInput(gen uint64) {
	s.mu.Lock()
	if gen != s.inputGen {
		s.mu.Unlock()
		return
	}
	s.pending = nil
	s.rebuildLocked()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Pending reports whether a debounced rebuild is waiting.
func (s *Session) Pending() bool {
	return s.debouncer.Pending()
}

// Rebuild parses the current text and rebuilds the tree now.
func (s *Session) Rebuild() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelPendingLocked()
	s.rebuildLocked()
}

// SetInput replaces the text and rebuilds immediately.
func (s *Session) SetInput(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelPendingLocked()
	s.text = text
	s.rebuildLocked()
}

func (s *Session) cancelPendingLocked() {
	s.inputGen++
	if s.pending != nil {
		s.pending.Cancel()
		s.pending = nil
	}
}

// rebuildLocked resets the view state and builds a tree from s.text. Blank
// text leaves the placeholder; a parse failure leaves an error and no tree.
func (s *Session) rebuildLocked() {
	s.value, s.hasValue = nil, false
	s.root, s.fullscreen = nil, nil
	s.cursor = search.Search(nil, "")
	s.status = Status{}

	if strings.TrimSpace(s.text) == "" {
		return
	}

	p := logging.Start(s.logger)
	doc, err := s.parser.ParseString(s.text)
	if err != nil {
		s.status = Status{Kind: StatusError, Message: PrefixInvalid + errors.Reason(err)}
		s.logger.Debug("parse failed", "err", err)
		return
	}
	s.value, s.hasValue = doc.Root, true
	s.root = s.builder.Root(doc.Root)
	p.Done("built tree", "nodes", tree.Count(s.root), "bytes", len(s.text))
}

// activeLocked is the tree commands act on: the full-screen tree while it is
// open, else the main tree.
func (s *Session) activeLocked() *tree.Node {
	if s.fullscreen != nil {
		return s.fullscreen
	}
	return s.root
}

// OnSearch runs query against the main tree and returns the first match.
// The current match is expanded into view.
func (s *Session) OnSearch(query string) *tree.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = search.Search(s.root, query)
	cur := s.cursor.Current()
	tree.ExpandTo(cur)
	return cur
}

// OnNavigate moves to the next or previous match and returns it, or nil when
// there are no matches.
func (s *Session) OnNavigate(forward bool) *tree.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.cursor.Navigate(forward)
	tree.ExpandTo(n)
	return n
}

// OnRevealMore reveals the deferred elements of the array at path and
// returns how many were added. An active search is re-run so the new
// elements can match; the current match is kept when it still matches.
func (s *Session) OnRevealMore(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := tree.Find(s.activeLocked(), path).RevealMore()
	if added > 0 && s.fullscreen == nil && s.cursor.Query() != "" {
		cur := s.cursor.Current()
		s.cursor = search.Search(s.root, s.cursor.Query())
		s.cursor.Select(cur)
	}
	return added
}

// OnToggle flips the container at path and reports whether one was found.
func (s *Session) OnToggle(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := tree.Find(s.activeLocked(), path)
	if n == nil || !n.IsContainer() {
		return false
	}
	n.Toggle()
	return true
}

// ExpandAll expands every container of the active tree.
func (s *Session) ExpandAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	tree.ExpandAll(s.activeLocked())
}

// CollapseAll collapses every container of the active tree.
func (s *Session) CollapseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	tree.CollapseAll(s.activeLocked())
}

// Format pretty-prints the text with a two-space indent and rebuilds. On
// failure the text and tree are left alone and the status shows why.
func (s *Session) Format() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	formatted, err := s.formatter.FormatText(s.text)
	if err != nil {
		s.status = Status{Kind: StatusError, Message: PrefixCannotFormat + errors.Reason(err)}
		return err
	}
	s.cancelPendingLocked()
	s.text = formatted
	s.rebuildLocked()
	return nil
}

// Validate checks the text without touching the tree.
func (s *Session) Validate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.parser.ParseString(s.text); err != nil {
		reason := errors.Reason(err)
		s.status = Status{Kind: StatusError, Message: PrefixInvalid + reason}
		return errors.NewValidateError(reason, err)
	}
	s.status = Status{Kind: StatusSuccess, Message: MsgValid}
	return nil
}

// Clear drops the text and everything derived from it.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelPendingLocked()
	s.text = ""
	s.rebuildLocked()
}

// LoadSample replaces the text with the built-in sample.
func (s *Session) LoadSample() {
	s.SetInput(sampleJSON)
}

// LoadFile replaces the text with the contents of path.
func (s *Session) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		appErr := errors.NewInputError(fmt.Sprintf("failed to read file '%s'", path), err)
		if os.IsNotExist(err) {
			appErr = errors.NewInputError(fmt.Sprintf("file '%s' not found", path), errors.ErrFileNotFound)
		}
		s.setStatus(Status{Kind: StatusError, Message: errors.UserFriendlyError(appErr)})
		return appErr
	}
	s.logger.Info("loaded file", "path", path, "bytes", len(data))
	s.SetInput(string(data))
	return nil
}

// LoadReader replaces the text with everything read from r.
func (s *Session) LoadReader(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		appErr := errors.NewInputError("failed to read input", err)
		s.setStatus(Status{Kind: StatusError, Message: errors.UserFriendlyError(appErr)})
		return appErr
	}
	s.SetInput(string(data))
	return nil
}

func (s *Session) setStatus(st Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = st
}

// Download writes the current value, pretty-printed, to w.
func (s *Session) Download(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.downloadLocked(w)
}

func (s *Session) downloadLocked(w io.Writer) error {
	if !s.hasValue {
		s.status = Status{Kind: StatusError, Message: MsgNoData}
		return errors.NewOutputError(MsgNoData, errors.ErrNoData)
	}
	if _, err := io.WriteString(w, s.formatter.Pretty(s.value)); err != nil {
		return errors.NewOutputError("failed to write download", err)
	}
	return nil
}

// DownloadName is the file name used for downloads.
func (s *Session) DownloadName() string {
	return s.download
}

// DownloadFile writes the current value to the download file in dir and
// returns its path. Nothing is created when there is no value.
func (s *Session) DownloadFile(dir string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasValue {
		return "", s.downloadLocked(io.Discard)
	}

	path := filepath.Join(dir, s.download)
	f, err := os.Create(path)
	if err != nil {
		s.status = Status{Kind: StatusError, Message: "Cannot save " + path}
		return "", errors.NewOutputError(fmt.Sprintf("failed to create '%s'", path), err)
	}
	if err := s.downloadLocked(f); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", errors.NewOutputError(fmt.Sprintf("failed to write '%s'", path), err)
	}
	s.status = Status{Kind: StatusSuccess, Message: "Saved " + path}
	s.logger.Info("downloaded", "path", path)
	return path, nil
}

// Fullscreen builds a fresh, fully expanded tree of the current value.
// Until CloseFullscreen, toggles and reveals act on that tree.
func (s *Session) Fullscreen() (*tree.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasValue {
		s.status = Status{Kind: StatusError, Message: MsgNoFullscreen}
		return nil, errors.NewOutputError(MsgNoFullscreen, errors.ErrNoData)
	}
	s.fullscreen = s.builder.Root(s.value)
	tree.ExpandAll(s.fullscreen)
	return s.fullscreen, nil
}

// CloseFullscreen returns to the main tree.
func (s *Session) CloseFullscreen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fullscreen = nil
}

// Stats summarizes the current value. It reports false when there is none.
func (s *Session) Stats() (analyzer.Stats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasValue {
		return analyzer.Stats{}, false
	}
	return s.analyzer.Analyze(s.value), true
}

// Snapshot returns the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Read calls fn with the current state while holding the session lock, so
// the trees cannot change while fn walks them.
func (s *Session) Read(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.stateLocked())
}

func (s *Session) stateLocked() State {
	return State{
		Text:       s.text,
		Value:      s.value,
		HasValue:   s.hasValue,
		Root:       s.root,
		Fullscreen: s.fullscreen,
		Cursor:     s.cursor,
		Status:     s.status,
	}
}
