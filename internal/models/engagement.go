package models

import "time"

// EngagementKind selects which edge table an engagement action targets.
type EngagementKind string

const (
	EngagementLike     EngagementKind = "like"
	EngagementRepost   EngagementKind = "repost"
	EngagementBookmark EngagementKind = "bookmark"
)

// Valid reports whether k names a known engagement kind.
func (k EngagementKind) Valid() bool {
	switch k {
	case EngagementLike, EngagementRepost, EngagementBookmark:
		return true
	}
	return false
}

// Like is a like edge. At most one per (post, user).
type Like struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	PostID    uint      `json:"post_id" gorm:"index;uniqueIndex:idx_like_post_user"`
	UserID    uint      `json:"user_id" gorm:"index;uniqueIndex:idx_like_post_user"`
	CreatedAt time.Time `json:"created_at"`
}

// Repost is a repost edge. At most one per (post, user).
type Repost struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	PostID    uint      `json:"post_id" gorm:"index;uniqueIndex:idx_repost_post_user"`
	UserID    uint      `json:"user_id" gorm:"index;uniqueIndex:idx_repost_post_user"`
	CreatedAt time.Time `json:"created_at"`
}

// Bookmark is a bookmark edge. At most one per (post, user).
type Bookmark struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	PostID    uint      `json:"post_id" gorm:"index;uniqueIndex:idx_bookmark_post_user"`
	UserID    uint      `json:"user_id" gorm:"index;uniqueIndex:idx_bookmark_post_user"`
	CreatedAt time.Time `json:"created_at"`
}
