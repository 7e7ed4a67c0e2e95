package handlers

import (
	"net/http"

	"github.com/driftline/driftline-backend/internal/apperr"
	"github.com/driftline/driftline-backend/internal/events"
	"github.com/driftline/driftline-backend/internal/models"
	"github.com/driftline/driftline-backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// MessagePageSize is the fixed conversation message page size.
const MessagePageSize = 30

// ConversationHandler handles direct-message HTTP requests
type ConversationHandler struct {
	conversationRepository repositories.ConversationRepository
	blockRepository        repositories.BlockRepository
	userRepository         repositories.UserRepository
	sink                   events.Sink
}

// NewConversationHandler creates a new ConversationHandler
func NewConversationHandler(
	convRepo repositories.ConversationRepository,
	blockRepo repositories.BlockRepository,
	userRepo repositories.UserRepository,
	sink events.Sink,
) *ConversationHandler {
	return &ConversationHandler{
		conversationRepository: convRepo,
		blockRepository:        blockRepo,
		userRepository:         userRepo,
		sink:                   sink,
	}
}

// RegisterConversationRoutes registers conversation routes
func (h *ConversationHandler) RegisterConversationRoutes(g *echo.Group) {
	g.GET("/conversations", h.ListConversations)
	g.POST("/conversations", h.CreateConversation)
	g.DELETE("/conversations/:id", h.HideConversation)
	g.GET("/conversations/:id/messages", h.GetMessages)
	g.POST("/conversations/:id/messages", h.SendMessage)
}

// ListConversations returns the viewer's conversations, newest first
func (h *ConversationHandler) ListConversations(c echo.Context) error {
	viewerID, err := requireViewer(c)
	if err != nil {
		return err
	}
	conversations, err := h.conversationRepository.ListConversations(c.Request().Context(), viewerID)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, echo.Map{"conversations": conversations})
}

// CreateConversation opens (or reopens) a conversation with a user
func (h *ConversationHandler) CreateConversation(c echo.Context) error {
	viewerID, err := requireViewer(c)
	if err != nil {
		return err
	}

	var req models.CreateConversationRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, apperr.Validation("body", "invalid request payload"))
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, apperr.Validation("user_id", err.Error()))
	}
	if req.UserID == viewerID {
		return respondError(c, apperr.Validation("user_id", "cannot message yourself"))
	}

	if _, err := h.userRepository.GetUserByID(req.UserID); err != nil {
		return respondError(c, err)
	}
	blocked, err := h.blockRepository.IsBlockedEither(viewerID, req.UserID)
	if err != nil {
		return respondError(c, err)
	}
	if blocked {
		return respondError(c, apperr.Blocked())
	}

	conv, err := h.conversationRepository.GetOrCreateConversation(c.Request().Context(), viewerID, req.UserID)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusCreated, conv)
}

// HideConversation removes the conversation from the viewer's list only
func (h *ConversationHandler) HideConversation(c echo.Context) error {
	viewerID, err := requireViewer(c)
	if err != nil {
		return err
	}
	if err := h.conversationRepository.HideConversation(c.Request().Context(), c.Param("id"), viewerID); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GetMessages returns one cursor page of messages, newest first.
// Fetching marks the other party's unread messages read.
func (h *ConversationHandler) GetMessages(c echo.Context) error {
	viewerID, err := requireViewer(c)
	if err != nil {
		return err
	}

	conv, err := h.conversationRepository.GetConversationByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	if !conv.HasParticipant(viewerID) {
		return respondError(c, apperr.NotFound("conversation not found"))
	}

	messages, end, err := h.conversationRepository.FindMessagePage(
		c.Request().Context(), conv.ID, c.QueryParam("cursor"), MessagePageSize)
	if err != nil {
		return respondError(c, err)
	}

	if err := h.conversationRepository.MarkMessagesRead(c.Request().Context(), conv.ID, viewerID); err != nil {
		return respondError(c, err)
	}

	return respondData(c, http.StatusOK, echo.Map{
		"messages": messages,
		"end":      end,
	})
}

// SendMessage appends a message to the conversation
func (h *ConversationHandler) SendMessage(c echo.Context) error {
	viewerID, err := requireViewer(c)
	if err != nil {
		return err
	}

	var req models.CreateMessageRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, apperr.Validation("body", "invalid request payload"))
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, apperr.Validation("content", err.Error()))
	}

	conv, err := h.conversationRepository.GetConversationByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	other, ok := conv.OtherParticipant(viewerID)
	if !ok || !conv.HasParticipant(viewerID) {
		return respondError(c, apperr.NotFound("conversation not found"))
	}

	blocked, err := h.blockRepository.IsBlockedEither(viewerID, other.UserID)
	if err != nil {
		return respondError(c, err)
	}
	if blocked {
		return respondError(c, apperr.Blocked())
	}

	message := &models.Message{
		ConversationID: conv.ID,
		SenderID:       viewerID,
		ReceiverID:     other.UserID,
		Content:        req.Content,
	}
	if err := h.conversationRepository.CreateMessage(c.Request().Context(), message); err != nil {
		return respondError(c, err)
	}

	h.sink.MessageReceived(conv.ID.Hex(), other.UserID)

	return respondData(c, http.StatusCreated, message)
}
