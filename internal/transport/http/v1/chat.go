package v1

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/apperr"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/domain"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/log"
)

// Chat streams one chat turn as server-sent events.
// GET /chat?message=...&token=...
func (h *Handler) Chat(c echo.Context) error {
	username, ok, err := h.authenticate(c)
	if !ok {
		return err
	}
	message := c.QueryParam("message")
	if strings.TrimSpace(message) == "" {
		return detail(c, http.StatusBadRequest, "message is required")
	}

	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	flusher, _ := c.Response().Writer.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	emit := func(event domain.ChatEvent) error {
		if err := writeSSE(c.Response(), event); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	}

	err = h.service.Chat(c.Request().Context(), username, message, emit)
	if err != nil && apperr.CodeOf(err) == apperr.ErrCodeSessionNotFound {
		// the session vanished after authentication; nothing was streamed
		_ = emit(domain.ChatEvent{Type: domain.ChatEventError, Message: apperr.MessageOf(err)})
		_ = emit(domain.ChatEvent{Type: domain.ChatEventEnd})
	}
	if err != nil {
		log.Warn("chat stream finished with error", zap.String("username", username), zap.Error(err))
	}
	return nil
}

// writeSSE writes one event. The end event carries its own event name and an
// empty object, every other event is a bare data line.
func writeSSE(w http.ResponseWriter, event domain.ChatEvent) error {
	if event.Type == domain.ChatEventEnd {
		_, err := fmt.Fprint(w, "event: end\ndata: {}\n\n")
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
