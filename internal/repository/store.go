// Package repository holds the in-memory session store and the SQLite audit
// store.
package repository

import (
	"context"

	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/domain"
)

// AuditStore defines the persistence used to audit chat turns.
type AuditStore interface {
	// Turn operations
	CreateTurn(ctx context.Context, turn *domain.Turn) error
	CompleteTurn(ctx context.Context, turnID string, status domain.TurnStatus, errData []byte) error
	GetTurn(ctx context.Context, turnID string) (*domain.Turn, error)
	ListTurns(ctx context.Context, username string, limit int) ([]domain.Turn, error)

	// Event operations
	CreateEvent(ctx context.Context, event *domain.Event) error
	GetEvents(ctx context.Context, turnID string, afterTs int64, types []string, limit int) ([]domain.Event, error)

	// Tool call operations
	CreateToolCall(ctx context.Context, toolCall *domain.ToolCallRecord) error
	UpdateToolCallResult(ctx context.Context, toolCallID string, status domain.ToolCallStatus, result string) (bool, error)
	ListToolCalls(ctx context.Context, turnID string) ([]domain.ToolCallRecord, error)

	Close() error
}

var _ AuditStore = (*SQLiteStore)(nil)
