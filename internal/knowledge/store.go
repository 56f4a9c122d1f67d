// Package knowledge serves the company knowledge base markdown file.
package knowledge

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/log"
)

// ErrNotFound is returned when the knowledge file does not exist.
var ErrNotFound = errors.New("knowledge file not found")

// Store caches the knowledge file and reloads it when it changes on disk.
type Store struct {
	path string

	mu      sync.RWMutex
	content string
	loaded  bool
}

// NewStore creates a store for path. The file is read lazily.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the watched file path.
func (s *Store) Path() string {
	return s.path
}

// Content returns the cached file content, reading it on first use.
func (s *Store) Content() (string, error) {
	s.mu.RLock()
	if s.loaded {
		content := s.content
		s.mu.RUnlock()
		return content, nil
	}
	s.mu.RUnlock()

	return s.Reload()
}

// Reload re-reads the file from disk.
func (s *Store) Reload() (string, error) {
	data, err := os.ReadFile(s.path)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.loaded = false
		s.content = ""
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", err
	}
	s.content = string(data)
	s.loaded = true
	return s.content, nil
}

// Watch reloads the cache whenever the file is written, created or removed.
// It watches the parent directory so that editors replacing the file are
// noticed. It returns once the watcher is running; the watch stops with ctx.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}

	target := filepath.Clean(s.path)
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				if _, err := s.Reload(); err != nil && !errors.Is(err, ErrNotFound) {
					log.Warn("knowledge reload failed", zap.String("path", s.path), zap.Error(err))
					continue
				}
				log.Info("knowledge base reloaded", zap.String("path", s.path), zap.String("op", event.Op.String()))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("knowledge watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}
