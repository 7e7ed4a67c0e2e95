package handlers

import (
	"net/http"

	"github.com/driftline/driftline-backend/internal/models"
	"github.com/driftline/driftline-backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// NotificationPageSize is the fixed notification page size.
const NotificationPageSize = 20

// NotificationHandler handles notification HTTP requests
type NotificationHandler struct {
	notificationRepository repositories.NotificationRepository
	userRepository         repositories.UserRepository
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notifRepo repositories.NotificationRepository, userRepo repositories.UserRepository) *NotificationHandler {
	return &NotificationHandler{
		notificationRepository: notifRepo,
		userRepository:         userRepo,
	}
}

// RegisterNotificationRoutes registers notification routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("/notifications", h.GetNotifications)
	g.GET("/notifications/unread-count", h.GetUnreadCount)
}

// EnrichedNotification includes the notifier's compact profile
type EnrichedNotification struct {
	models.Notification
	Notifier models.UserCompact `json:"notifier"`
}

func (h *NotificationHandler) enrichNotifications(notifications []models.Notification) ([]EnrichedNotification, error) {
	ids := make([]uint, 0, len(notifications))
	seen := make(map[uint]bool)
	for _, n := range notifications {
		if !seen[n.NotifierID] {
			seen[n.NotifierID] = true
			ids = append(ids, n.NotifierID)
		}
	}
	notifiers, err := h.userRepository.GetCompactByIDs(ids)
	if err != nil {
		return nil, err
	}

	enriched := make([]EnrichedNotification, len(notifications))
	for i, n := range notifications {
		enriched[i] = EnrichedNotification{Notification: n, Notifier: notifiers[n.NotifierID]}
	}
	return enriched, nil
}

// GetNotifications returns one cursor page of notifications, newest
// first. Fetching a page marks it and everything older as read;
// re-fetching already-read pages changes nothing.
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	viewerID, err := requireViewer(c)
	if err != nil {
		return err
	}
	cursorID, err := parseCursor(c)
	if err != nil {
		return respondError(c, err)
	}

	notifications, end, err := h.notificationRepository.FindPage(viewerID, cursorID, NotificationPageSize)
	if err != nil {
		return respondError(c, err)
	}

	if len(notifications) > 0 {
		boundary := notifications[0].CreatedAt
		if err := h.notificationRepository.MarkReadThrough(viewerID, boundary); err != nil {
			return respondError(c, err)
		}
	}

	enriched, err := h.enrichNotifications(notifications)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, echo.Map{
		"notifications": enriched,
		"end":           end,
	})
}

// GetUnreadCount returns the unread notification count
func (h *NotificationHandler) GetUnreadCount(c echo.Context) error {
	viewerID, err := requireViewer(c)
	if err != nil {
		return err
	}
	count, err := h.notificationRepository.UnreadCount(viewerID)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, echo.Map{"count": count})
}
