package admin

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionCookie is the name of the admin session cookie
const SessionCookie = "gotours_session"

// Toast is a one-shot message shown on the next admin page
type Toast struct {
	Level   string // "success" or "error"
	Message string
}

// Session is a logged-in admin
type Session struct {
	Token    string
	CSRF     string
	Username string
	Expires  time.Time
	flash    []Toast
}

// SessionStore keeps sessions in memory. Sessions slide: every use pushes
// the expiry out by the TTL.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionStore creates a store whose sessions expire after ttl of
// inactivity
func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &SessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create starts a session for username
func (s *SessionStore) Create(username string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()
	sess := &Session{
		Token:    uuid.NewString(),
		CSRF:     uuid.NewString(),
		Username: username,
		Expires:  s.now().Add(s.ttl),
	}
	s.sessions[sess.Token] = sess
	return s.copyLocked(sess)
}

// Get returns a copy of a live session and extends it
func (s *SessionStore) Get(token string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return nil, false
	}
	now := s.now()
	if !now.Before(sess.Expires) {
		delete(s.sessions, token)
		return nil, false
	}
	sess.Expires = now.Add(s.ttl)
	return s.copyLocked(sess), true
}

// Delete ends a session
func (s *SessionStore) Delete(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

// Flash queues a toast for the session's next page
func (s *SessionStore) Flash(token string, toast Toast) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[token]; ok {
		sess.flash = append(sess.flash, toast)
	}
}

// TakeFlash returns and clears the queued toasts
func (s *SessionStore) TakeFlash(token string) []Toast {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return nil
	}
	toasts := sess.flash
	sess.flash = nil
	return toasts
}

// Len returns the number of stored sessions, expired ones included
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *SessionStore) sweepLocked() {
	now := s.now()
	for token, sess := range s.sessions {
		if !now.Before(sess.Expires) {
			delete(s.sessions, token)
		}
	}
}

func (s *SessionStore) copyLocked(sess *Session) *Session {
	c := *sess
	c.flash = nil
	return &c
}
