// Package http provides the HTTP server implementation for the intake service.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/homequote/intake/internal/orchestrator"
	"github.com/homequote/intake/internal/store"
	v1 "github.com/homequote/intake/internal/transport/http/v1"
)

// NewServer creates and configures the HTTP server. It handles conversation
// turns and retrieval of created projects and bid cards.
func NewServer(orch *orchestrator.Orchestrator, s store.Store) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Handlers
	v1Handler := v1.NewHandler(orch, s)

	// Register Routes
	v1Handler.RegisterRoutes(e)

	return e
}
