package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/domain"
)

// ListTools returns the tool definitions offered to the model.
func (h *Handler) ListTools(c echo.Context) error {
	return c.JSON(http.StatusOK, h.service.ToolDefinitions())
}

// ExecuteTool runs a tool directly for the authenticated user.
// POST /v1/tools/:tool_name/execute
func (h *Handler) ExecuteTool(c echo.Context) error {
	username, ok, err := h.authenticate(c)
	if !ok {
		return err
	}

	var req domain.ToolExecuteRequest
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.ExecuteTool(c.Request().Context(), username, c.Param("tool_name"), req.Args)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, domain.ToolExecuteResponse{Result: result})
}
