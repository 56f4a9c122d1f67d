// Package testutil holds helpers shared by package tests.
package testutil

import (
	"testing"

	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/repository"
)

// NewTestSQLiteStore opens an in-memory audit store that is closed with t.
func NewTestSQLiteStore(t *testing.T) *repository.SQLiteStore {
	t.Helper()

	s, err := repository.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}
