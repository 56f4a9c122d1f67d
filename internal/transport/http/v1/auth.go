package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/domain"
)

// Login handles POST /token.
func (h *Handler) Login(c echo.Context) error {
	var req domain.LoginRequest
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "invalid request body")
	}

	resp, err := h.service.Login(c.Request().Context(), req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Logout handles POST /logout.
func (h *Handler) Logout(c echo.Context) error {
	username, ok, err := h.authenticate(c)
	if !ok {
		return err
	}
	h.service.Logout(username)
	return c.JSON(http.StatusOK, map[string]string{"status": "logged out"})
}

// ValidateGroupwareURL handles POST /validate/egroupware-url.
func (h *Handler) ValidateGroupwareURL(c echo.Context) error {
	var req domain.ValidateURLRequest
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "invalid request body")
	}

	resp, err := h.service.ValidateGroupwareURL(c.Request().Context(), req.URL)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// ValidateAIKey handles POST /validate/ai-key.
func (h *Handler) ValidateAIKey(c echo.Context) error {
	var req domain.ValidateKeyRequest
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "invalid request body")
	}

	resp, err := h.service.ValidateAIKey(c.Request().Context(), req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}
