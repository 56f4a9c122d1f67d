package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/adapter/llm"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/apperr"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/domain"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/log"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/metrics"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/repository"
)

// EmitFunc delivers one event to the chat client. An error means the client
// is gone.
type EmitFunc func(event domain.ChatEvent) error

// turn is the state of one running chat turn.
type turn struct {
	id      string
	session *domain.Session
	client  llm.Client
	emit    func(domain.ChatEvent)
	log     *zap.Logger
}

// Chat runs one chat turn for username. Events are delivered through emit in
// order and the last one is always an end event. An error is returned when
// the session is missing (nothing is emitted then) or when the turn failed.
func (s *Service) Chat(ctx context.Context, username, message string, emit EmitFunc) error {
	if strings.TrimSpace(message) == "" {
		return apperr.New(apperr.ErrCodeInvalidInput, "message is required", nil)
	}

	session, release, err := s.sessions.Acquire(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return apperr.New(apperr.ErrCodeSessionNotFound, "Session not found. Please log in again.", err)
		}
		return err
	}
	defer release()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	t := &turn{
		id:      "turn_" + uuid.New().String()[:8],
		session: session,
		log:     log.With(zap.String("username", username)),
	}
	t.log = t.log.With(zap.String("turn_id", t.id))
	t.emit = func(ev domain.ChatEvent) {
		if err := emit(ev); err != nil {
			t.log.Debug("chat client went away", zap.Error(err))
			cancel()
		}
	}
	defer t.emit(domain.ChatEvent{Type: domain.ChatEventEnd})

	s.startTurn(ctx, t, message)

	turnErr := s.runTurn(ctx, t, message)
	session.Transcript = repository.TrimTranscript(session.Transcript, s.config.TranscriptMaxTokens, s.counter)
	s.finishTurn(t, turnErr)

	if turnErr != nil {
		t.log.Error("chat turn failed", zap.Error(turnErr))
		t.emit(domain.ChatEvent{Type: domain.ChatEventError, Message: apperr.MessageOf(turnErr)})
	}
	return turnErr
}

func (s *Service) runTurn(ctx context.Context, t *turn, message string) error {
	session := t.session
	if len(session.Transcript) == 0 {
		session.Transcript = append(session.Transcript, domain.Message{
			Role:    domain.RoleSystem,
			Content: SystemPrompt(s.now()),
		})
	}
	session.Transcript = append(session.Transcript, domain.Message{Role: domain.RoleUser, Content: message})

	client, err := s.newLLM(session.Provider)
	if err != nil {
		return err
	}
	t.client = client

	acc := NewToolCallAccumulator()
	text, err := s.streamCompletion(ctx, t, acc)
	if err != nil {
		return err
	}
	if text != "" {
		session.Transcript = append(session.Transcript, domain.Message{Role: domain.RoleAssistant, Content: text})
	}

	calls := acc.Calls()
	if len(calls) == 0 {
		return nil
	}
	for i := range calls {
		if calls[i].ID == "" {
			calls[i].ID = "call_" + uuid.New().String()[:8]
		}
	}
	session.Transcript = append(session.Transcript, domain.Message{Role: domain.RoleAssistant, ToolCalls: calls})

	for _, call := range calls {
		t.emit(domain.ChatEvent{Type: domain.ChatEventToolCall, ToolName: call.Function.Name})
		content := s.runToolCall(ctx, t, call)
		session.Transcript = append(session.Transcript, domain.Message{
			Role:       domain.RoleTool,
			ToolCallID: call.ID,
			Name:       call.Function.Name,
			Content:    content,
		})
		t.emit(domain.ChatEvent{Type: domain.ChatEventToolResult, ToolName: call.Function.Name, Result: content})
	}

	// a single tool round: tool calls requested by the follow-up are dropped
	followUp, err := s.streamCompletion(ctx, t, nil)
	if err != nil {
		return err
	}
	if followUp != "" {
		session.Transcript = append(session.Transcript, domain.Message{Role: domain.RoleAssistant, Content: followUp})
	}
	return nil
}

// streamCompletion streams one completion over the current transcript,
// forwarding text as token events. Tool-call fragments go to acc; a nil acc
// discards them.
func (s *Service) streamCompletion(ctx context.Context, t *turn, acc *ToolCallAccumulator) (string, error) {
	provider := t.session.Provider
	req := &llm.ChatCompletionRequest{
		Model:    provider.Model,
		Messages: append([]domain.Message(nil), t.session.Transcript...),
		Stream:   true,
		Tools:    s.registry.Definitions(),
	}
	if provider.IncludeUsage {
		req.StreamOptions = &llm.StreamOptions{IncludeUsage: true}
	}

	streamCtx := ctx
	if s.config.LLMTimeout > 0 {
		var cancel context.CancelFunc
		streamCtx, cancel = context.WithTimeout(ctx, s.config.LLMTimeout)
		defer cancel()
	}

	s.auditEvent(ctx, t.id, domain.EventTypeLLMCallStarted, map[string]interface{}{
		"provider": provider.Kind,
		"model":    provider.Model,
		"messages": len(req.Messages),
	})

	var text strings.Builder
	usage, err := t.client.CreateChatCompletionStream(streamCtx, req, func(chunk *llm.StreamChunk) error {
		for _, choice := range chunk.Choices {
			if choice.Delta == nil {
				continue
			}
			if choice.Delta.Content != "" {
				text.WriteString(choice.Delta.Content)
				t.emit(domain.ChatEvent{Type: domain.ChatEventToken, Content: choice.Delta.Content})
			}
			if acc != nil {
				for _, tc := range choice.Delta.ToolCalls {
					acc.Add(tc)
				}
			}
		}
		return ctx.Err()
	})
	if err != nil {
		metrics.LLMStreamsTotal.WithLabelValues(string(provider.Kind), metrics.OutcomeError).Inc()
		return "", apperr.New(apperr.ErrCodeUpstream, "LLM request failed: "+err.Error(), err)
	}
	metrics.LLMStreamsTotal.WithLabelValues(string(provider.Kind), metrics.OutcomeSuccess).Inc()

	done := map[string]interface{}{"text_length": text.Len()}
	if acc != nil {
		done["tool_calls"] = acc.Len()
	}
	if usage != nil {
		metrics.ObserveUsage(string(provider.Kind), usage.PromptTokens, usage.CompletionTokens)
		done["usage"] = usage
	}
	s.auditEvent(ctx, t.id, domain.EventTypeLLMCallDone, done)
	return text.String(), nil
}

// runToolCall dispatches one call and audits it. Calls are not started once
// the turn is cancelled; they get an error result so the transcript stays
// well formed.
func (s *Service) runToolCall(ctx context.Context, t *turn, call domain.ToolCall) string {
	name := call.Function.Name
	record := &domain.ToolCallRecord{
		ToolCallID: call.ID,
		TurnID:     t.id,
		ToolName:   name,
		Status:     domain.ToolCallStatusRunning,
		Args:       rawArgs(call.Function.Arguments),
		CreatedAt:  time.Now(),
	}
	auditCtx := context.WithoutCancel(ctx)
	if s.audit != nil {
		if err := s.audit.CreateToolCall(auditCtx, record); err != nil {
			t.log.Warn("failed to record tool call", zap.String("tool", name), zap.Error(err))
		}
	}
	s.auditEvent(auditCtx, t.id, domain.EventTypeToolCall, map[string]interface{}{
		"tool_call_id": call.ID,
		"tool_name":    name,
		"args":         record.Args,
	})

	var res dispatchResult
	if err := ctx.Err(); err != nil {
		res = dispatchResult{
			Content: errorContent("Tool call cancelled: " + err.Error()),
			Status:  domain.ToolCallStatusFailed,
		}
	} else {
		res = s.dispatch(ctx, t.session.Username, t.session.Credentials, name, call.Function.Arguments)
	}

	if res.Status == domain.ToolCallStatusBlocked {
		s.auditEvent(auditCtx, t.id, domain.EventTypePolicyDecision, map[string]interface{}{
			"tool_call_id": call.ID,
			"tool_name":    name,
			"decision":     "block",
		})
	}
	if s.audit != nil {
		if _, err := s.audit.UpdateToolCallResult(auditCtx, call.ID, res.Status, res.Content); err != nil {
			t.log.Warn("failed to record tool result", zap.String("tool", name), zap.Error(err))
		}
	}
	s.auditEvent(auditCtx, t.id, domain.EventTypeToolResult, map[string]interface{}{
		"tool_call_id": call.ID,
		"status":       res.Status,
	})
	t.log.Info("tool call finished",
		zap.String("tool", name),
		zap.String("tool_call_id", call.ID),
		zap.String("status", string(res.Status)))
	return res.Content
}

// rawArgs keeps argument text as JSON when it parses, and quotes it otherwise.
func rawArgs(args string) json.RawMessage {
	if json.Valid([]byte(args)) {
		return json.RawMessage(args)
	}
	quoted, _ := json.Marshal(args)
	return quoted
}

func (s *Service) startTurn(ctx context.Context, t *turn, message string) {
	if s.audit == nil {
		return
	}
	record := &domain.Turn{
		TurnID:    t.id,
		Username:  t.session.Username,
		Message:   message,
		Status:    domain.TurnStatusRunning,
		StartedAt: time.Now(),
	}
	if err := s.audit.CreateTurn(ctx, record); err != nil {
		t.log.Warn("failed to record turn", zap.Error(err))
		return
	}
	s.auditEvent(ctx, t.id, domain.EventTypeTurnStarted, map[string]interface{}{
		"provider": t.session.Provider.Kind,
		"model":    t.session.Provider.Model,
	})
	s.auditEvent(ctx, t.id, domain.EventTypeUserInput, map[string]string{"content": message})
}

func (s *Service) finishTurn(t *turn, turnErr error) {
	status := domain.TurnStatusDone
	eventType := domain.EventTypeTurnDone
	var errData []byte
	if turnErr != nil {
		status = domain.TurnStatusFailed
		eventType = domain.EventTypeTurnFailed
		errData, _ = json.Marshal(map[string]string{
			"code":    apperr.CodeOf(turnErr),
			"message": apperr.MessageOf(turnErr),
		})
	}
	metrics.TurnsTotal.WithLabelValues(string(status)).Inc()

	if s.audit == nil {
		return
	}
	// the request context may be gone already
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.audit.CompleteTurn(ctx, t.id, status, errData); err != nil {
		t.log.Warn("failed to complete turn", zap.Error(err))
	}
	s.auditEvent(ctx, t.id, eventType, map[string]interface{}{
		"status":            status,
		"transcript_length": len(t.session.Transcript),
	})
}
