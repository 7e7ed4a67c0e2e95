package models

import "time"

// NotificationType tags what action produced a notification row.
type NotificationType int

const (
	NotificationPost   NotificationType = 0
	NotificationReply  NotificationType = 1
	NotificationRepost NotificationType = 2
	NotificationLike   NotificationType = 3
	NotificationFollow NotificationType = 4
)

// Notification represents one fan-out row (PostgreSQL). Undoing the
// triggering action deletes matching rows instead of marking them.
type Notification struct {
	ID         uint             `json:"id" gorm:"primaryKey"`
	TypeID     NotificationType `json:"type_id" gorm:"index"`
	PostID     *uint            `json:"post_id" gorm:"index"` // nil for follows
	NotifierID uint             `json:"notifier_id" gorm:"index"`
	ReceiverID uint             `json:"receiver_id" gorm:"index"`
	IsRead     bool             `json:"is_read" gorm:"default:false;index"`
	CreatedAt  time.Time        `json:"created_at" gorm:"index"`
}
