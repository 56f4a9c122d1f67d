package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/domain"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/log"
)

// recordEvent records an audit event. A missing audit store turns it into a no-op.
func (s *Service) recordEvent(ctx context.Context, turnID string, eventType domain.EventType, payload interface{}) error {
	if s.audit == nil || turnID == "" {
		return nil
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	event := &domain.Event{
		EventID: "evt_" + uuid.New().String()[:8],
		TurnID:  turnID,
		Ts:      time.Now().UnixMilli(),
		Type:    eventType,
		Payload: payloadBytes,
	}

	return s.audit.CreateEvent(ctx, event)
}

// auditEvent records an event and logs instead of failing the turn.
func (s *Service) auditEvent(ctx context.Context, turnID string, eventType domain.EventType, payload interface{}) {
	if err := s.recordEvent(ctx, turnID, eventType, payload); err != nil {
		log.Warn("failed to record audit event",
			zap.String("turn_id", turnID),
			zap.String("type", string(eventType)),
			zap.Error(err))
	}
}
