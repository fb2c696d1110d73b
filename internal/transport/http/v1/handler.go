// Package v1 provides the external HTTP API for the intake service.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/homequote/intake/internal/orchestrator"
	"github.com/homequote/intake/internal/store"
)

// Handler handles HTTP requests.
type Handler struct {
	orch  *orchestrator.Orchestrator
	store store.Store
}

// NewHandler creates a new handler.
func NewHandler(orch *orchestrator.Orchestrator, store store.Store) *Handler {
	return &Handler{
		orch:  orch,
		store: store,
	}
}

// RegisterRoutes registers external routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Conversation API
	e.POST("/v1/sessions/:session_id/turns", h.PostTurn)
	e.GET("/v1/sessions/:session_id", h.GetSession)
	e.DELETE("/v1/sessions/:session_id", h.DeleteSession)
	e.GET("/v1/sessions/:session_id/messages", h.GetSessionMessages)

	// Project API (for retrieving created records)
	e.GET("/v1/projects/:project_id", h.GetProject)
	e.GET("/v1/projects/:project_id/bidcard", h.GetProjectBidCard)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}
