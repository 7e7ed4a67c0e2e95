package handlers

import (
	"net/http"

	"github.com/driftline/driftline-backend/internal/apperr"
	"github.com/driftline/driftline-backend/internal/feed"
	"github.com/driftline/driftline-backend/internal/models"
	"github.com/driftline/driftline-backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// FollowHandler handles follow/unfollow HTTP requests
type FollowHandler struct {
	followRepository repositories.FollowRepository
	userRepository   repositories.UserRepository
	blockRepository  repositories.BlockRepository
	feedService      *feed.Service
}

// NewFollowHandler creates a new FollowHandler
func NewFollowHandler(
	followRepo repositories.FollowRepository,
	userRepo repositories.UserRepository,
	blockRepo repositories.BlockRepository,
	feedService *feed.Service,
) *FollowHandler {
	return &FollowHandler{
		followRepository: followRepo,
		userRepository:   userRepo,
		blockRepository:  blockRepo,
		feedService:      feedService,
	}
}

// RegisterFollowRoutes registers follow-related routes
func (h *FollowHandler) RegisterFollowRoutes(g *echo.Group) {
	g.POST("/users/:id/follow", h.FollowUser)
	g.DELETE("/users/:id/follow", h.UnfollowUser)
	g.PUT("/users/:id/follow/notify", h.UpdateNotifySetting)
}

// FollowUser follows a user and fans the follow out
func (h *FollowHandler) FollowUser(c echo.Context) error {
	viewerID, err := requireViewer(c)
	if err != nil {
		return err
	}
	targetID, err := parseUintParam(c.Param("id"))
	if err != nil {
		return respondError(c, apperr.Validation("id", "invalid user ID"))
	}
	if viewerID == targetID {
		return respondError(c, apperr.Validation("id", "cannot follow yourself"))
	}

	if _, err := h.userRepository.GetUserByID(targetID); err != nil {
		return respondError(c, err)
	}
	blocked, err := h.blockRepository.IsBlockedEither(viewerID, targetID)
	if err != nil {
		return respondError(c, err)
	}
	if blocked {
		return respondError(c, apperr.Blocked())
	}

	follow := &models.Follow{FollowerID: viewerID, FolloweeID: targetID, NotifyEnabled: true}
	if err := h.followRepository.CreateFollow(follow); err != nil {
		return respondError(c, err)
	}

	h.feedService.NotifyFollow(viewerID, targetID)

	return respondData(c, http.StatusOK, echo.Map{"following": true})
}

// UnfollowUser unfollows a user and removes the follow's notifications
func (h *FollowHandler) UnfollowUser(c echo.Context) error {
	viewerID, err := requireViewer(c)
	if err != nil {
		return err
	}
	targetID, err := parseUintParam(c.Param("id"))
	if err != nil {
		return respondError(c, apperr.Validation("id", "invalid user ID"))
	}

	if err := h.followRepository.DeleteFollow(viewerID, targetID); err != nil {
		return respondError(c, err)
	}

	h.feedService.NotifyUnfollow(viewerID)

	return respondData(c, http.StatusOK, echo.Map{"following": false})
}

// UpdateNotifySetting toggles fan-out delivery for one followed author
func (h *FollowHandler) UpdateNotifySetting(c echo.Context) error {
	viewerID, err := requireViewer(c)
	if err != nil {
		return err
	}
	targetID, err := parseUintParam(c.Param("id"))
	if err != nil {
		return respondError(c, apperr.Validation("id", "invalid user ID"))
	}

	var req models.UpdateNotifySettingRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, apperr.Validation("body", "invalid request payload"))
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, apperr.Validation("notify_enabled", err.Error()))
	}

	if err := h.followRepository.SetNotifyEnabled(viewerID, targetID, *req.NotifyEnabled); err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, echo.Map{"notify_enabled": *req.NotifyEnabled})
}
