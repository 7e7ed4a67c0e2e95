package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Username     string    `json:"username" gorm:"size:30;uniqueIndex"`
	DisplayName  string    `json:"display_name" gorm:"size:50"`
	Email        string    `json:"email" gorm:"uniqueIndex"`
	Password     string    `json:"-"` // hashed, never serialized
	Bio          string    `json:"bio" gorm:"size:160"`
	AvatarURL    string    `json:"avatar_url"`
	PinnedPostID *uint     `json:"pinned_post_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserCompact is the embedded author shape carried on every feed row.
type UserCompact struct {
	ID          uint   `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

// ToCompact converts a User to its compact representation
func (u *User) ToCompact() UserCompact {
	return UserCompact{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
	}
}

// Follow represents a follower -> followee edge. NotifyEnabled controls
// whether the follower receives fan-out notifications for the followee.
type Follow struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	FollowerID    uint      `json:"follower_id" gorm:"index;uniqueIndex:idx_follower_followee"`
	FolloweeID    uint      `json:"followee_id" gorm:"index;uniqueIndex:idx_follower_followee"`
	NotifyEnabled bool      `json:"notify_enabled" gorm:"default:true"`
	CreatedAt     time.Time `json:"created_at"`
}

// Block represents a blocker -> blocked edge. Visibility exclusion is
// bidirectional even though the edge itself is directed.
type Block struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	BlockerID uint      `json:"blocker_id" gorm:"index;uniqueIndex:idx_blocker_blocked"`
	BlockedID uint      `json:"blocked_id" gorm:"index;uniqueIndex:idx_blocker_blocked"`
	CreatedAt time.Time `json:"created_at"`
}

type UpdateProfileRequest struct {
	DisplayName string `json:"display_name,omitempty" validate:"omitempty,min=1,max=50"`
	Bio         string `json:"bio,omitempty" validate:"omitempty,max=160"`
	AvatarURL   string `json:"avatar_url,omitempty" validate:"omitempty,url"`
}

type UpdateNotifySettingRequest struct {
	NotifyEnabled *bool `json:"notify_enabled" validate:"required"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}
