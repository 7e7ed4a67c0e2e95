package handlers

import (
	"net/http"

	"github.com/driftline/driftline-backend/internal/apperr"
	"github.com/driftline/driftline-backend/internal/models"
	"github.com/driftline/driftline-backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// UserHandler handles HTTP requests related to user profiles
type UserHandler struct {
	userRepository  repositories.UserRepository
	blockRepository repositories.BlockRepository
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userRepo repositories.UserRepository, blockRepo repositories.BlockRepository) *UserHandler {
	return &UserHandler{userRepository: userRepo, blockRepository: blockRepo}
}

// RegisterProfileRoutes registers user profile-related routes
func (h *UserHandler) RegisterProfileRoutes(g *echo.Group) {
	g.GET("/profile", h.GetProfile)
	g.PUT("/profile", h.UpdateProfile)
	g.GET("/users/:username", h.GetUser)
}

// GetUser retrieves another user's profile by username. A blocked
// viewer gets the same answer as for a missing profile.
func (h *UserHandler) GetUser(c echo.Context) error {
	viewerID, err := requireViewer(c)
	if err != nil {
		return err
	}

	user, err := h.userRepository.GetUserByUsername(c.Param("username"))
	if err != nil {
		return respondError(c, err)
	}

	if user.ID != viewerID {
		blocked, berr := h.blockRepository.IsBlockedEither(viewerID, user.ID)
		if berr != nil {
			return respondError(c, berr)
		}
		if blocked {
			return respondError(c, apperr.Blocked())
		}
	}

	return respondData(c, http.StatusOK, user)
}

// GetProfile retrieves the authenticated user's profile
func (h *UserHandler) GetProfile(c echo.Context) error {
	viewerID, err := requireViewer(c)
	if err != nil {
		return err
	}
	user, err := h.userRepository.GetUserByID(viewerID)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, user)
}

// UpdateProfile updates the authenticated user's profile
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	viewerID, err := requireViewer(c)
	if err != nil {
		return err
	}

	var req models.UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, apperr.Validation("body", "invalid request payload"))
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, apperr.Validation("body", err.Error()))
	}

	user, err := h.userRepository.GetUserByID(viewerID)
	if err != nil {
		return respondError(c, err)
	}

	if req.DisplayName != "" {
		user.DisplayName = req.DisplayName
	}
	if req.Bio != "" {
		user.Bio = req.Bio
	}
	if req.AvatarURL != "" {
		user.AvatarURL = req.AvatarURL
	}

	if err := h.userRepository.UpdateUser(user); err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, user)
}
