package repositories

import (
	"errors"
	"time"

	"github.com/driftline/driftline-backend/internal/apperr"
	"github.com/driftline/driftline-backend/internal/models"
	"gorm.io/gorm"
)

// NotificationRepository defines the interface for notification fan-out
// and cursor-paginated read tracking.
type NotificationRepository interface {
	CreateBatch(notifications []models.Notification) error
	DeleteMatching(typeID models.NotificationType, postID *uint, notifierID uint) error
	FindPage(receiverID, cursorID uint, limit int) ([]models.Notification, bool, error)
	MarkReadThrough(receiverID uint, boundary time.Time) error
	UnreadCount(receiverID uint) (int64, error)
}

// PostgresNotificationRepository implements NotificationRepository for PostgreSQL
type PostgresNotificationRepository struct {
	db *gorm.DB
}

// NewPostgresNotificationRepository creates a new PostgresNotificationRepository
func NewPostgresNotificationRepository(db *gorm.DB) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{db: db}
}

// CreateBatch bulk-inserts one row per fan-out recipient
func (r *PostgresNotificationRepository) CreateBatch(notifications []models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	if err := r.db.Create(&notifications).Error; err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// DeleteMatching bulk-deletes the rows an undone action produced,
// matched by (type, post, notifier) or (type, notifier) when postID is
// nil. Receiver is deliberately not part of the match.
func (r *PostgresNotificationRepository) DeleteMatching(typeID models.NotificationType, postID *uint, notifierID uint) error {
	q := r.db.Where("type_id = ? AND notifier_id = ?", typeID, notifierID)
	if postID != nil {
		q = q.Where("post_id = ?", *postID)
	}
	if err := q.Delete(&models.Notification{}).Error; err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// FindPage returns the next page of the receiver's notifications,
// newest first, plus whether the stream is exhausted. Cursor is the id
// of the last row of the previous page.
func (r *PostgresNotificationRepository) FindPage(receiverID, cursorID uint, limit int) ([]models.Notification, bool, error) {
	var oldest models.Notification
	res := r.db.Where("receiver_id = ?", receiverID).
		Order("created_at ASC, id ASC").
		Limit(1).
		Find(&oldest)
	if res.Error != nil {
		return nil, false, apperr.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return []models.Notification{}, true, nil
	}
	if cursorID != 0 && cursorID == oldest.ID {
		return []models.Notification{}, true, nil
	}

	q := r.db.Where("receiver_id = ?", receiverID)
	if cursorID != 0 {
		var cur models.Notification
		if err := r.db.Select("id", "created_at").First(&cur, cursorID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, false, apperr.NotFound("cursor notification not found")
			}
			return nil, false, apperr.Internal(err)
		}
		q = q.Where("(created_at, id) < (?, ?)", cur.CreatedAt, cur.ID)
	}

	var notifications []models.Notification
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&notifications).Error; err != nil {
		return nil, false, apperr.Internal(err)
	}
	end := len(notifications) == 0 || notifications[len(notifications)-1].ID == oldest.ID
	return notifications, end, nil
}

// MarkReadThrough marks every unread row at or before the boundary as
// read. Rows already read are untouched, so re-marking is a no-op.
func (r *PostgresNotificationRepository) MarkReadThrough(receiverID uint, boundary time.Time) error {
	err := r.db.Model(&models.Notification{}).
		Where("receiver_id = ? AND is_read = ? AND created_at <= ?", receiverID, false, boundary).
		Update("is_read", true).Error
	if err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// UnreadCount returns the receiver's unread notification count
func (r *PostgresNotificationRepository) UnreadCount(receiverID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Notification{}).
		Where("receiver_id = ? AND is_read = ?", receiverID, false).
		Count(&count).Error
	if err != nil {
		return 0, apperr.Internal(err)
	}
	return count, nil
}
