package models

import "time"

// Post represents a post row in PostgreSQL. A deleted post keeps its row
// (replies, reposts and likes point at it) with content nulled out.
type Post struct {
	ID        uint        `json:"id" gorm:"primaryKey"`
	AuthorID  uint        `json:"author_id" gorm:"index"`
	Content   *string     `json:"content"` // nil once soft-deleted
	Images    []PostImage `json:"images" gorm:"foreignKey:PostID"`
	ReplyToID *uint       `json:"reply_to_id" gorm:"index"`
	IsDeleted bool        `json:"is_deleted" gorm:"default:false;index"`
	DeletedAt *time.Time  `json:"deleted_at"`
	CreatedAt time.Time   `json:"created_at" gorm:"index"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// PostImage is one attached image URL, ordered by Position.
type PostImage struct {
	ID       uint   `json:"-" gorm:"primaryKey"`
	PostID   uint   `json:"-" gorm:"index"`
	Position int    `json:"position"`
	URL      string `json:"url"`
}

// CreatePostRequest defines the request body for creating a new post
type CreatePostRequest struct {
	Content   string   `json:"content" validate:"required,min=1,max=280"`
	ImageURLs []string `json:"image_urls,omitempty" validate:"omitempty,max=4,dive,url"`
}

// CreateReplyRequest defines the request body for replying to a post
type CreateReplyRequest struct {
	Content string `json:"content" validate:"required,min=1,max=280"`
}
