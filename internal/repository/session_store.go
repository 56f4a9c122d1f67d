package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/domain"
)

// ErrSessionNotFound is returned when a user has no live session.
var ErrSessionNotFound = errors.New("session not found")

type sessionEntry struct {
	// lock is a one-slot semaphore held for the duration of a chat turn.
	lock    chan struct{}
	session *domain.Session
}

// SessionStore keeps one session per user in memory. Each session carries a
// turn lock so that turns of the same user run one after another.
type SessionStore struct {
	mu      sync.Mutex
	entries map[string]*sessionEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewSessionStore creates a store whose sessions expire after ttl of
// inactivity. A zero ttl disables expiry.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		entries: make(map[string]*sessionEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Put stores session, replacing any previous session of the same user.
func (s *SessionStore) Put(session *domain.Session) {
	now := s.now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.LastActive = now

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[session.Username] = &sessionEntry{
		lock:    make(chan struct{}, 1),
		session: session,
	}
}

// Acquire waits for the user's turn lock and returns the session. The caller
// must call release when the turn is over. Waiting ends early when ctx is
// cancelled.
func (s *SessionStore) Acquire(ctx context.Context, username string) (*domain.Session, func(), error) {
	s.mu.Lock()
	entry, ok := s.entries[username]
	s.mu.Unlock()
	if !ok {
		return nil, nil, ErrSessionNotFound
	}

	select {
	case entry.lock <- struct{}{}:
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}

	// the session may have been replaced or removed while waiting
	s.mu.Lock()
	current := s.entries[username]
	s.mu.Unlock()
	if current != entry {
		<-entry.lock
		return nil, nil, ErrSessionNotFound
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			entry.session.LastActive = s.now()
			<-entry.lock
		})
	}
	return entry.session, release, nil
}

// Lookup returns the credentials and provider of a session without taking the
// turn lock. Both are fixed for the lifetime of a session.
func (s *SessionStore) Lookup(username string) (domain.Credentials, domain.ProviderConfig, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[username]
	if !ok {
		return domain.Credentials{}, domain.ProviderConfig{}, false
	}
	return entry.session.Credentials, entry.session.Provider, true
}

// Delete removes the user's session. It reports whether one existed.
func (s *SessionStore) Delete(username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[username]
	delete(s.entries, username)
	return ok
}

// Evict removes sessions idle for longer than the TTL and returns their
// usernames. Sessions in the middle of a turn are skipped.
func (s *SessionStore) Evict(now time.Time) []string {
	if s.ttl <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var evicted []string
	for username, entry := range s.entries {
		select {
		case entry.lock <- struct{}{}:
		default:
			continue
		}
		if now.Sub(entry.session.LastActive) > s.ttl {
			delete(s.entries, username)
			evicted = append(evicted, username)
		}
		<-entry.lock
	}
	return evicted
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
