package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// GetProject gets a project record by ID.
// GET /v1/projects/:project_id
func (h *Handler) GetProject(c echo.Context) error {
	ctx := c.Request().Context()
	projectID := c.Param("project_id")

	project, err := h.store.GetProject(ctx, projectID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if project == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "project not found"})
	}

	return c.JSON(http.StatusOK, project)
}

// GetProjectBidCard gets the bid card derived from a project.
// GET /v1/projects/:project_id/bidcard
func (h *Handler) GetProjectBidCard(c echo.Context) error {
	ctx := c.Request().Context()
	projectID := c.Param("project_id")

	card, err := h.store.GetBidCardByProject(ctx, projectID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if card == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "bid card not found"})
	}

	return c.JSON(http.StatusOK, card)
}
