package v1

import (
	"context"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/apperr"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/domain"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/log"
)

const (
	wsWriteWait      = 10 * time.Second
	wsMaxMessageSize = 64 * 1024
)

// ChatWebSocket runs chat turns over a WebSocket. Each text frame
// {"message": "..."} starts a turn; events come back as JSON frames and every
// turn ends with {"type":"end"}.
// GET /ws?token=...
func (h *Handler) ChatWebSocket(c echo.Context) error {
	username, ok, err := h.authenticate(c)
	if !ok {
		return err
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Warn("failed to upgrade websocket", zap.Error(err))
		return nil
	}
	defer conn.Close()
	conn.SetReadLimit(wsMaxMessageSize)

	logger := log.With(zap.String("username", username))
	logger.Info("websocket chat connected")

	// The request context is not cancelled once the connection is hijacked,
	// so a dedicated reader owns the connection's read side and cancels the
	// running turn when the peer goes away.
	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	requests := make(chan domain.ChatRequest, 8)
	go func() {
		defer cancel()
		defer close(requests)
		for {
			var req domain.ChatRequest
			if err := conn.ReadJSON(&req); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Warn("websocket read failed", zap.Error(err))
				}
				return
			}
			select {
			case requests <- req:
			case <-ctx.Done():
				return
			}
		}
	}()

	emit := func(event domain.ChatEvent) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(event)
	}

	for req := range requests {
		if strings.TrimSpace(req.Message) == "" {
			_ = emit(domain.ChatEvent{Type: domain.ChatEventError, Message: "message is required"})
			_ = emit(domain.ChatEvent{Type: domain.ChatEventEnd})
			continue
		}

		err := h.service.Chat(ctx, username, req.Message, emit)
		if err == nil {
			continue
		}
		if apperr.CodeOf(err) == apperr.ErrCodeSessionNotFound {
			_ = emit(domain.ChatEvent{Type: domain.ChatEventError, Message: apperr.MessageOf(err)})
			_ = emit(domain.ChatEvent{Type: domain.ChatEventEnd})
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "session expired"),
				time.Now().Add(wsWriteWait))
			return nil
		}
		if ctx.Err() != nil {
			logger.Info("websocket chat disconnected during a turn")
			return nil
		}
		logger.Warn("websocket chat turn failed", zap.Error(err))
	}
	return nil
}
