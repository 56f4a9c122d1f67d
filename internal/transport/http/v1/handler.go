// Package v1 provides the HTTP handlers of the chat service.
package v1

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/apperr"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service  *service.Service
	upgrader websocket.Upgrader
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Session API
	e.POST("/token", h.Login)
	e.POST("/logout", h.Logout)
	e.POST("/validate/egroupware-url", h.ValidateGroupwareURL)
	e.POST("/validate/ai-key", h.ValidateAIKey)

	// Chat
	e.GET("/chat", h.Chat)
	e.GET("/ws", h.ChatWebSocket)

	// Tool API
	e.GET("/v1/tools", h.ListTools)
	e.POST("/v1/tools/:tool_name/execute", h.ExecuteTool)

	// Audit API
	e.GET("/v1/turns", h.ListTurns)
	e.GET("/v1/turns/:turn_id/events", h.GetTurnEvents)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":          "healthy",
		"available_tools": h.service.ToolNames(),
	})
}

func detail(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"detail": msg})
}

// fail maps a service error to a status code and a detail body.
func fail(c echo.Context, err error) error {
	return detail(c, statusFor(err), apperr.MessageOf(err))
}

func statusFor(err error) int {
	switch apperr.CodeOf(err) {
	case apperr.ErrCodeInvalidInput, apperr.ErrCodeProviderConfig:
		return http.StatusBadRequest
	case apperr.ErrCodeUnauthorized, apperr.ErrCodeSessionNotFound:
		return http.StatusUnauthorized
	case apperr.ErrCodeNotFound:
		return http.StatusNotFound
	case apperr.ErrCodeUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// bearerToken reads the token from the Authorization header, falling back to
// the token query parameter used by EventSource and WebSocket clients.
func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return c.QueryParam("token")
}

// authenticate resolves the caller. On failure it writes the 401 response and
// returns ok=false.
func (h *Handler) authenticate(c echo.Context) (string, bool, error) {
	token := bearerToken(c)
	if token == "" {
		return "", false, detail(c, http.StatusUnauthorized, "Not authenticated")
	}
	username, err := h.service.Authenticate(token)
	if err != nil {
		return "", false, detail(c, http.StatusUnauthorized, apperr.MessageOf(err))
	}
	return username, true, nil
}
