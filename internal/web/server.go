// Package web serves the viewer to browsers. Every browser gets its own
// session; the page talks to the session through a small JSON API.
package web

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mcncl/jsonview/internal/logging"
	"github.com/mcncl/jsonview/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

const (
	// DefaultAddr is the listen address used when none is configured.
	DefaultAddr = ":8080"

	maxUploadBytes = 10 << 20
)

// Options configures a Server.
type Options struct {
	Addr    string
	Theme   string
	Session session.Options
	// Initial is loaded into every new session. Empty means the built-in
	// sample.
	Initial    string
	SessionTTL time.Duration
	Logger     *log.Logger
}

// Server is the HTTP front end.
type Server struct {
	opts   Options
	store  *Store
	logger *log.Logger
	router chi.Router
	page   *template.Template
}

// NewServer creates a Server and registers its routes.
func NewServer(opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	if opts.Theme == "" {
		opts.Theme = "light"
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Session.Logger == nil {
		opts.Session.Logger = opts.Logger
	}

	s := &Server{
		opts:   opts,
		logger: opts.Logger,
		page:   template.Must(template.ParseFS(templateFS, "templates/*.html")),
	}
	s.store = NewStore(s.newSession, opts.SessionTTL)
	s.routes()
	return s
}

func (s *Server) newSession() *session.Session {
	sess := session.New(s.opts.Session)
	if s.opts.Initial != "" {
		sess.SetInput(s.opts.Initial)
	} else {
		sess.LoadSample()
	}
	s.logger.Debug("new session")
	return sess
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.logger))

	static, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.Get("/", s.handleIndex)
	r.Route("/api", func(r chi.Router) {
		r.Get("/tree", s.handleTree)
		r.Get("/download", s.handleDownload)
		r.Get("/stats", s.handleStats)
		r.Post("/input", s.handleInput)
		r.Post("/search", s.handleSearch)
		r.Post("/navigate", s.handleNavigate)
		r.Post("/reveal", s.handleReveal)
		r.Post("/toggle", s.handleToggle)
		r.Post("/expand", s.handleExpand)
		r.Post("/collapse", s.handleCollapse)
		r.Post("/format", s.handleFormat)
		r.Post("/validate", s.handleValidate)
		r.Post("/clear", s.handleClear)
		r.Post("/sample", s.handleSample)
		r.Post("/upload", s.handleUpload)
		r.Post("/fullscreen", s.handleFullscreen)
		r.Delete("/fullscreen", s.handleCloseFullscreen)
	})
	s.router = r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.opts.Addr
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.opts.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.store.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		s.store.Close()
		return err
	}
}

// Close drops every session.
func (s *Server) Close() {
	s.store.Close()
}

type pageData struct {
	Theme  string
	Themes []string
	State  stateView
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	_, sess := s.store.Get(w, r)

	var data pageData
	sess.Read(func(st session.State) {
		data = pageData{
			Theme:  s.opts.Theme,
			Themes: []string{"light", "dark", "original-dark"},
			State:  newStateView(st, true),
		}
	})

	var buf bytes.Buffer
	if err := s.page.ExecuteTemplate(&buf, "index.html", data); err != nil {
		s.logger.Error("render page", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	_, sess := s.store.Get(w, r)
	writeState(w, sess, http.StatusOK, true)
}

type inputRequest struct {
	Text string `json:"text"`
}

// handleInput applies text immediately. Browsers debounce keystrokes
// before posting.
func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	var req inputRequest
	if !decode(w, r, &req) {
		return
	}
	_, sess := s.store.Get(w, r)
	sess.SetInput(req.Text)
	writeState(w, sess, http.StatusOK, false)
}

type searchRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decode(w, r, &req) {
		return
	}
	_, sess := s.store.Get(w, r)
	sess.OnSearch(req.Query)
	writeState(w, sess, http.StatusOK, false)
}

type navigateRequest struct {
	// Direction is "next" (default) or "prev".
	Direction string `json:"direction"`
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if !decode(w, r, &req) {
		return
	}
	var forward bool
	switch req.Direction {
	case "", "next":
		forward = true
	case "prev", "previous":
		forward = false
	default:
		writeError(w, http.StatusBadRequest, "direction must be next or prev")
		return
	}
	_, sess := s.store.Get(w, r)
	sess.OnNavigate(forward)
	writeState(w, sess, http.StatusOK, false)
}

type pathRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleReveal(w http.ResponseWriter, r *http.Request) {
	var req pathRequest
	if !decode(w, r, &req) {
		return
	}
	_, sess := s.store.Get(w, r)
	added := sess.OnRevealMore(req.Path)
	s.logger.Debug("reveal", "path", req.Path, "added", added)
	writeState(w, sess, http.StatusOK, false)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	var req pathRequest
	if !decode(w, r, &req) {
		return
	}
	_, sess := s.store.Get(w, r)
	if !sess.OnToggle(req.Path) {
		writeError(w, http.StatusNotFound, "no container at path "+req.Path)
		return
	}
	writeState(w, sess, http.StatusOK, false)
}

func (s *Server) handleExpand(w http.ResponseWriter, r *http.Request) {
	_, sess := s.store.Get(w, r)
	sess.ExpandAll()
	writeState(w, sess, http.StatusOK, false)
}

func (s *Server) handleCollapse(w http.ResponseWriter, r *http.Request) {
	_, sess := s.store.Get(w, r)
	sess.CollapseAll()
	writeState(w, sess, http.StatusOK, false)
}

func (s *Server) handleFormat(w http.ResponseWriter, r *http.Request) {
	_, sess := s.store.Get(w, r)
	status := http.StatusOK
	if err := sess.Format(); err != nil {
		status = http.StatusUnprocessableEntity
	}
	writeState(w, sess, status, true)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	_, sess := s.store.Get(w, r)
	status := http.StatusOK
	if err := sess.Validate(); err != nil {
		status = http.StatusUnprocessableEntity
	}
	writeState(w, sess, status, false)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	_, sess := s.store.Get(w, r)
	sess.Clear()
	writeState(w, sess, http.StatusOK, true)
}

func (s *Server) handleSample(w http.ResponseWriter, r *http.Request) {
	_, sess := s.store.Get(w, r)
	sess.LoadSample()
	writeState(w, sess, http.StatusOK, true)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid upload: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	_, sess := s.store.Get(w, r)
	if err := sess.LoadReader(file); err != nil {
		writeState(w, sess, http.StatusBadRequest, false)
		return
	}
	s.logger.Info("uploaded", "name", header.Filename, "bytes", header.Size)
	writeState(w, sess, http.StatusOK, true)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	_, sess := s.store.Get(w, r)

	var buf bytes.Buffer
	if err := sess.Download(&buf); err != nil {
		writeState(w, sess, http.StatusNotFound, false)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+sess.DownloadName()+`"`)
	_, _ = buf.WriteTo(w)
}

type statsView struct {
	Summary      string         `json:"summary"`
	Lines        []string       `json:"lines"`
	Nodes        int            `json:"nodes"`
	MaxDepth     int            `json:"max_depth"`
	LargestArray string         `json:"largest_array,omitempty"`
	Formats      map[string]int `json:"formats,omitempty"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	_, sess := s.store.Get(w, r)
	st, ok := sess.Stats()
	if !ok {
		writeError(w, http.StatusNotFound, session.MsgNoData)
		return
	}
	v := statsView{
		Summary:  st.Summary(),
		Lines:    st.Lines(),
		Nodes:    st.Nodes,
		MaxDepth: st.MaxDepth,
	}
	if st.Arrays > 0 {
		v.LargestArray = st.LargestArray.Path
	}
	if len(st.Formats) > 0 {
		v.Formats = make(map[string]int, len(st.Formats))
		for f, n := range st.Formats {
			v.Formats[string(f)] = n
		}
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleFullscreen(w http.ResponseWriter, r *http.Request) {
	_, sess := s.store.Get(w, r)
	status := http.StatusOK
	if _, err := sess.Fullscreen(); err != nil {
		status = http.StatusUnprocessableEntity
	}
	writeState(w, sess, status, false)
}

func (s *Server) handleCloseFullscreen(w http.ResponseWriter, r *http.Request) {
	_, sess := s.store.Get(w, r)
	sess.CloseFullscreen()
	writeState(w, sess, http.StatusOK, false)
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeState(w http.ResponseWriter, sess *session.Session, status int, withText bool) {
	var v stateView
	sess.Read(func(st session.State) {
		v = newStateView(st, withText)
	})
	writeJSON(w, status, v)
}

type errorView struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorView{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func requestLogger(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"elapsed", time.Since(start),
				"id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
