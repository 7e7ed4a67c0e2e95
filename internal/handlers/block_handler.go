package handlers

import (
	"net/http"

	"github.com/driftline/driftline-backend/internal/apperr"
	"github.com/driftline/driftline-backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// BlockHandler handles block/unblock HTTP requests
type BlockHandler struct {
	blockRepository  repositories.BlockRepository
	followRepository repositories.FollowRepository
	userRepository   repositories.UserRepository
}

// NewBlockHandler creates a new BlockHandler
func NewBlockHandler(
	blockRepo repositories.BlockRepository,
	followRepo repositories.FollowRepository,
	userRepo repositories.UserRepository,
) *BlockHandler {
	return &BlockHandler{
		blockRepository:  blockRepo,
		followRepository: followRepo,
		userRepository:   userRepo,
	}
}

// RegisterBlockRoutes registers block-related routes
func (h *BlockHandler) RegisterBlockRoutes(g *echo.Group) {
	g.POST("/users/:id/block", h.BlockUser)
	g.DELETE("/users/:id/block", h.UnblockUser)
}

// BlockUser blocks a user. Any follow edges between the two are
// severed so neither side keeps receiving the other's fan-out.
func (h *BlockHandler) BlockUser(c echo.Context) error {
	viewerID, err := requireViewer(c)
	if err != nil {
		return err
	}
	targetID, err := parseUintParam(c.Param("id"))
	if err != nil {
		return respondError(c, apperr.Validation("id", "invalid user ID"))
	}
	if viewerID == targetID {
		return respondError(c, apperr.Validation("id", "cannot block yourself"))
	}

	if _, err := h.userRepository.GetUserByID(targetID); err != nil {
		return respondError(c, err)
	}

	if _, err := h.blockRepository.CreateBlock(viewerID, targetID); err != nil {
		return respondError(c, err)
	}

	// Best effort: a missing follow edge is fine.
	_ = h.followRepository.DeleteFollow(viewerID, targetID)
	_ = h.followRepository.DeleteFollow(targetID, viewerID)

	return respondData(c, http.StatusOK, echo.Map{"blocked": true})
}

// UnblockUser removes a block edge
func (h *BlockHandler) UnblockUser(c echo.Context) error {
	viewerID, err := requireViewer(c)
	if err != nil {
		return err
	}
	targetID, err := parseUintParam(c.Param("id"))
	if err != nil {
		return respondError(c, apperr.Validation("id", "invalid user ID"))
	}

	if err := h.blockRepository.DeleteBlock(viewerID, targetID); err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, echo.Map{"blocked": false})
}
