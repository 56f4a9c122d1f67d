package v1

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

const defaultTurnLimit = 20

// ListTurns returns the caller's recent turns.
// GET /v1/turns?limit=N
func (h *Handler) ListTurns(c echo.Context) error {
	username, ok, err := h.authenticate(c)
	if !ok {
		return err
	}

	limit := defaultTurnLimit
	if l := c.QueryParam("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil && val > 0 {
			limit = val
		}
	}

	turns, err := h.service.ListTurns(c.Request().Context(), username, limit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"turns": turns})
}

// GetTurnEvents returns the audit events of one of the caller's turns.
// GET /v1/turns/:turn_id/events?after_ts=&types=a,b&limit=
func (h *Handler) GetTurnEvents(c echo.Context) error {
	username, ok, err := h.authenticate(c)
	if !ok {
		return err
	}

	var afterTs int64
	if ts := c.QueryParam("after_ts"); ts != "" {
		afterTs, _ = strconv.ParseInt(ts, 10, 64)
	}
	var types []string
	if t := c.QueryParam("types"); t != "" {
		types = strings.Split(t, ",")
	}
	limit := 0
	if l := c.QueryParam("limit"); l != "" {
		limit, _ = strconv.Atoi(l)
	}

	events, err := h.service.GetTurnEvents(c.Request().Context(), username, c.Param("turn_id"), afterTs, types, limit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"turn_id": c.Param("turn_id"),
		"events":  events,
	})
}
