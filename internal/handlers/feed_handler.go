package handlers

import (
	"net/http"

	"github.com/driftline/driftline-backend/internal/apperr"
	"github.com/driftline/driftline-backend/internal/feed"
	"github.com/labstack/echo/v4"
)

// FeedHandler handles feed-related HTTP requests
type FeedHandler struct {
	feedService *feed.Service
}

// NewFeedHandler creates a new FeedHandler
func NewFeedHandler(feedService *feed.Service) *FeedHandler {
	return &FeedHandler{feedService: feedService}
}

// RegisterFeedRoutes registers feed-related routes
func (h *FeedHandler) RegisterFeedRoutes(g *echo.Group) {
	g.GET("/feed", h.GetGlobalFeed)
	g.GET("/feed/following", h.GetFollowingFeed)
	g.GET("/users/:username/feed", h.GetProfileFeed)
	g.GET("/posts/top", h.GetTopPosts)
	g.GET("/posts/:post_id/replies", h.GetReplies)
	g.GET("/bookmarks", h.GetBookmarks)
}

func feedMode(c echo.Context) (feed.Mode, error) {
	switch c.QueryParam("type") {
	case "", "old":
		return feed.ModeOld, nil
	case "new":
		return feed.ModeNew, nil
	default:
		return "", apperr.Validation("type", "type must be old or new")
	}
}

// GetGlobalFeed returns the global chronological feed page
func (h *FeedHandler) GetGlobalFeed(c echo.Context) error {
	viewerID, err := requireViewer(c)
	if err != nil {
		return err
	}
	cursorID, err := parseCursor(c)
	if err != nil {
		return respondError(c, err)
	}
	mode, err := feedMode(c)
	if err != nil {
		return respondError(c, err)
	}

	page, err := h.feedService.GlobalFeed(viewerID, cursorID, mode)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, page)
}

// GetFollowingFeed returns the followed-authors feed page
func (h *FeedHandler) GetFollowingFeed(c echo.Context) error {
	viewerID, err := requireViewer(c)
	if err != nil {
		return err
	}
	cursorID, err := parseCursor(c)
	if err != nil {
		return respondError(c, err)
	}
	mode, err := feedMode(c)
	if err != nil {
		return respondError(c, err)
	}

	page, err := h.feedService.FollowingFeed(viewerID, cursorID, mode)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, page)
}

// GetProfileFeed returns one tab of a user's profile listings
func (h *FeedHandler) GetProfileFeed(c echo.Context) error {
	viewerID, err := requireViewer(c)
	if err != nil {
		return err
	}
	cursorID, err := parseCursor(c)
	if err != nil {
		return respondError(c, err)
	}

	tab := feed.ProfileTab(c.QueryParam("tab"))
	if tab == "" {
		tab = feed.TabPosts
	}

	page, err := h.feedService.ProfileFeed(viewerID, c.Param("username"), tab, cursorID)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, page)
}

// GetTopPosts returns the fixed-size trending listing
func (h *FeedHandler) GetTopPosts(c echo.Context) error {
	viewerID, err := requireViewer(c)
	if err != nil {
		return err
	}
	posts, err := h.feedService.TopPosts(viewerID)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, echo.Map{"posts": posts})
}

// GetReplies returns one page of a post's replies, most engaged first
func (h *FeedHandler) GetReplies(c echo.Context) error {
	viewerID, err := requireViewer(c)
	if err != nil {
		return err
	}
	postID, err := parseUintParam(c.Param("post_id"))
	if err != nil {
		return respondError(c, apperr.Validation("post_id", "invalid post ID"))
	}
	cursorID, err := parseCursor(c)
	if err != nil {
		return respondError(c, err)
	}

	page, err := h.feedService.Replies(viewerID, postID, cursorID)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, page)
}

// GetBookmarks returns one page of the viewer's bookmarked posts
func (h *FeedHandler) GetBookmarks(c echo.Context) error {
	viewerID, err := requireViewer(c)
	if err != nil {
		return err
	}
	cursorID, err := parseCursor(c)
	if err != nil {
		return respondError(c, err)
	}

	page, err := h.feedService.Bookmarks(viewerID, cursorID)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, page)
}
