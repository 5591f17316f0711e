package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mcncl/jsonview/internal/session"
)

const cookieName = "jsonview_session"

// Store keeps one session per browser, keyed by a cookie.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*entry
	newFn    func() *session.Session
	ttl      time.Duration
	now      func() time.Time
}

type entry struct {
	sess     *session.Session
	lastSeen time.Time
}

// NewStore creates a Store. newFn builds the session of a new browser.
// Sessions idle for longer than ttl are dropped; ttl <= 0 keeps them forever.
func NewStore(newFn func() *session.Session, ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*entry),
		newFn:    newFn,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns the session of the request's browser, creating one and setting
// the cookie when the request carries no known id.
func (s *Store) Get(w http.ResponseWriter, r *http.Request) (string, *session.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.expireLocked(now)

	if c, err := r.Cookie(cookieName); err == nil {
		if e, ok := s.sessions[c.Value]; ok {
			e.lastSeen = now
			return c.Value, e.sess
		}
	}

	id := uuid.NewString()
	s.sessions[id] = &entry{sess: s.newFn(), lastSeen: now}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id, s.sessions[id].sess
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) expireLocked(now time.Time) {
	if s.ttl <= 0 {
		return
	}
	for id, e := range s.sessions {
		if now.Sub(e.lastSeen) > s.ttl {
			e.sess.Close()
			delete(s.sessions, id)
		}
	}
}

// Close stops every session.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.sessions {
		e.sess.Close()
		delete(s.sessions, id)
	}
}
