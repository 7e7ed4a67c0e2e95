package handlers

import (
	"net/http"

	"github.com/driftline/driftline-backend/internal/apperr"
	"github.com/driftline/driftline-backend/internal/feed"
	"github.com/driftline/driftline-backend/internal/models"
	"github.com/labstack/echo/v4"
)

// EngagementHandler handles like/repost/bookmark HTTP requests
type EngagementHandler struct {
	feedService *feed.Service
}

// NewEngagementHandler creates a new EngagementHandler
func NewEngagementHandler(feedService *feed.Service) *EngagementHandler {
	return &EngagementHandler{feedService: feedService}
}

// RegisterEngagementRoutes registers engagement routes
func (h *EngagementHandler) RegisterEngagementRoutes(g *echo.Group) {
	g.POST("/posts/:post_id/like", h.add(models.EngagementLike))
	g.DELETE("/posts/:post_id/like", h.remove(models.EngagementLike))
	g.POST("/posts/:post_id/repost", h.add(models.EngagementRepost))
	g.DELETE("/posts/:post_id/repost", h.remove(models.EngagementRepost))
	g.POST("/posts/:post_id/bookmark", h.add(models.EngagementBookmark))
	g.DELETE("/posts/:post_id/bookmark", h.remove(models.EngagementBookmark))
}

func (h *EngagementHandler) add(kind models.EngagementKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		viewerID, err := requireViewer(c)
		if err != nil {
			return err
		}
		postID, err := parseUintParam(c.Param("post_id"))
		if err != nil {
			return respondError(c, apperr.Validation("post_id", "invalid post ID"))
		}

		edge, err := h.feedService.ToggleEngagement(viewerID, postID, kind, true)
		if err != nil {
			return respondError(c, err)
		}
		return respondData(c, http.StatusCreated, edge)
	}
}

func (h *EngagementHandler) remove(kind models.EngagementKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		viewerID, err := requireViewer(c)
		if err != nil {
			return err
		}
		postID, err := parseUintParam(c.Param("post_id"))
		if err != nil {
			return respondError(c, apperr.Validation("post_id", "invalid post ID"))
		}

		if _, err := h.feedService.ToggleEngagement(viewerID, postID, kind, false); err != nil {
			return respondError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}
