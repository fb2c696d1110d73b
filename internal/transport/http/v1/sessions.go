package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/homequote/intake/internal/domain"
)

// TurnRequest is one inbound user turn.
type TurnRequest struct {
	UserID   string `json:"user_id"`
	Text     string `json:"text"`
	ImageRef string `json:"image_ref,omitempty"`
}

// PostTurn processes one conversation turn.
// POST /v1/sessions/:session_id/turns
func (h *Handler) PostTurn(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID := c.Param("session_id")

	var req TurnRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Text == "" && req.ImageRef == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "text or image_ref is required"})
	}

	out, err := h.orch.HandleTurn(ctx, domain.TurnInput{
		SessionID: sessionID,
		UserID:    req.UserID,
		Text:      req.Text,
		ImageRef:  req.ImageRef,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, out)
}

// GetSession returns the current conversation state.
// GET /v1/sessions/:session_id
func (h *Handler) GetSession(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID := c.Param("session_id")

	session, err := h.store.GetSession(ctx, sessionID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if session == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found"})
	}

	return c.JSON(http.StatusOK, session)
}

// DeleteSession abandons a conversation and removes its state.
// DELETE /v1/sessions/:session_id
func (h *Handler) DeleteSession(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID := c.Param("session_id")

	if err := h.orch.Abandon(ctx, sessionID); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"ok": true,
	})
}
