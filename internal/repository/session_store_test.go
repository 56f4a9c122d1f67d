package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/domain"
)

func putSession(s *SessionStore, username string) {
	s.Put(&domain.Session{
		Username:    username,
		Credentials: domain.Credentials{Username: username, Password: "secret", BaseURL: "https://egw.example.com"},
		Provider:    domain.ProviderConfig{Kind: domain.ProviderOpenAI, APIKey: "sk-test"},
	})
}

func TestSessionStoreAcquireRelease(t *testing.T) {
	s := NewSessionStore(time.Hour)
	putSession(s, "alice")

	session, release, err := s.Acquire(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", session.Username)
	release()
	release()

	_, _, err = s.Acquire(context.Background(), "bob")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionStoreSerializesTurns(t *testing.T) {
	s := NewSessionStore(time.Hour)
	putSession(s, "alice")

	_, release, err := s.Acquire(context.Background(), "alice")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, err = s.Acquire(ctx, "alice")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	acquired := make(chan struct{})
	go func() {
		_, rel, err := s.Acquire(context.Background(), "alice")
		if err == nil {
			rel()
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second turn ran while the first held the lock")
	case <-time.After(20 * time.Millisecond):
	}
	release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second turn never acquired the lock")
	}
}

func TestSessionStoreReplacedWhileWaiting(t *testing.T) {
	s := NewSessionStore(time.Hour)
	putSession(s, "alice")

	_, release, err := s.Acquire(context.Background(), "alice")
	require.NoError(t, err)

	result := make(chan error, 1)
	go func() {
		_, rel, err := s.Acquire(context.Background(), "alice")
		if err == nil {
			rel()
		}
		result <- err
	}()

	time.Sleep(10 * time.Millisecond)
	s.Delete("alice")
	release()

	select {
	case err := <-result:
		assert.ErrorIs(t, err, ErrSessionNotFound)
	case <-time.After(time.Second):
		t.Fatal("waiter did not return")
	}
}

func TestSessionStoreLookupAndDelete(t *testing.T) {
	s := NewSessionStore(time.Hour)
	putSession(s, "alice")

	creds, provider, ok := s.Lookup("alice")
	require.True(t, ok)
	assert.Equal(t, "secret", creds.Password)
	assert.Equal(t, domain.ProviderOpenAI, provider.Kind)

	assert.True(t, s.Delete("alice"))
	assert.False(t, s.Delete("alice"))
	_, _, ok = s.Lookup("alice")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestSessionStoreEvict(t *testing.T) {
	s := NewSessionStore(time.Minute)
	putSession(s, "idle")
	putSession(s, "busy")
	putSession(s, "fresh")

	_, release, err := s.Acquire(context.Background(), "busy")
	require.NoError(t, err)
	defer release()

	later := time.Now().Add(2 * time.Minute)
	s.mu.Lock()
	s.entries["fresh"].session.LastActive = later
	s.mu.Unlock()

	evicted := s.Evict(later)
	assert.Equal(t, []string{"idle"}, evicted)
	assert.Equal(t, 2, s.Len())
}

func TestSessionStoreEvictDisabled(t *testing.T) {
	s := NewSessionStore(0)
	putSession(s, "alice")
	assert.Empty(t, s.Evict(time.Now().Add(24*time.Hour)))
	assert.Equal(t, 1, s.Len())
}

func TestSessionStorePutResetsSession(t *testing.T) {
	s := NewSessionStore(time.Hour)
	putSession(s, "alice")

	session, release, err := s.Acquire(context.Background(), "alice")
	require.NoError(t, err)
	session.Transcript = append(session.Transcript, domain.Message{Role: domain.RoleUser, Content: "hi"})
	release()

	putSession(s, "alice")
	session, release, err = s.Acquire(context.Background(), "alice")
	require.NoError(t, err)
	defer release()
	assert.Empty(t, session.Transcript)
}
