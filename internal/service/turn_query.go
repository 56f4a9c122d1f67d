package service

import (
	"context"
	"fmt"

	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/apperr"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/domain"
)

// ListTurns returns the user's most recent turns.
func (s *Service) ListTurns(ctx context.Context, username string, limit int) ([]domain.Turn, error) {
	if s.audit == nil {
		return []domain.Turn{}, nil
	}
	turns, err := s.audit.ListTurns(ctx, username, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list turns: %w", err)
	}
	if turns == nil {
		turns = []domain.Turn{}
	}
	return turns, nil
}

// GetTurnEvents returns the audit events of one of the user's turns.
func (s *Service) GetTurnEvents(ctx context.Context, username, turnID string, afterTs int64, types []string, limit int) ([]domain.Event, error) {
	if s.audit == nil {
		return nil, apperr.New(apperr.ErrCodeNotFound, "turn not found", nil)
	}
	turn, err := s.audit.GetTurn(ctx, turnID)
	if err != nil {
		return nil, fmt.Errorf("failed to get turn: %w", err)
	}
	if turn == nil || turn.Username != username {
		return nil, apperr.New(apperr.ErrCodeNotFound, "turn not found", nil)
	}
	events, err := s.audit.GetEvents(ctx, turnID, afterTs, types, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get turn events: %w", err)
	}
	if events == nil {
		events = []domain.Event{}
	}
	return events, nil
}
