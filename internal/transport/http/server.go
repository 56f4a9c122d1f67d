// Package http provides the HTTP server of the chat service.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/metrics"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/service"
	v1 "github.com/EGroupware/EGroupware-chatbot-MCP/internal/transport/http/v1"
)

// NewServer creates and configures the HTTP server: login and validation,
// the SSE and WebSocket chat, the tool and audit APIs, health and metrics.
func NewServer(svc *service.Service) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Handlers
	v1Handler := v1.NewHandler(svc)

	// Register Routes
	v1Handler.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	return e
}
