package handlers

import (
	"net/http"

	"github.com/driftline/driftline-backend/internal/feed"
	"github.com/labstack/echo/v4"
)

// SearchHandler handles search HTTP requests
type SearchHandler struct {
	feedService *feed.Service
}

// NewSearchHandler creates a new SearchHandler
func NewSearchHandler(feedService *feed.Service) *SearchHandler {
	return &SearchHandler{feedService: feedService}
}

// RegisterSearchRoutes registers search routes
func (h *SearchHandler) RegisterSearchRoutes(g *echo.Group) {
	g.GET("/search/posts", h.SearchPosts)
	g.GET("/search/users", h.SearchUsers)
}

// SearchPosts pages posts matching the query terms
func (h *SearchHandler) SearchPosts(c echo.Context) error {
	viewerID, err := requireViewer(c)
	if err != nil {
		return err
	}
	cursorID, err := parseCursor(c)
	if err != nil {
		return respondError(c, err)
	}

	page, err := h.feedService.SearchPosts(viewerID, c.QueryParam("q"), cursorID)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, page)
}

// SearchUsers lists users matching the query terms
func (h *SearchHandler) SearchUsers(c echo.Context) error {
	viewerID, err := requireViewer(c)
	if err != nil {
		return err
	}

	users, err := h.feedService.SearchUsers(viewerID, c.QueryParam("q"))
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, echo.Map{"users": users})
}
