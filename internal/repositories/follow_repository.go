package repositories

import (
	"errors"

	"github.com/driftline/driftline-backend/internal/apperr"
	"github.com/driftline/driftline-backend/internal/models"
	"gorm.io/gorm"
)

// FollowRepository defines the interface for follow edge operations
type FollowRepository interface {
	CreateFollow(follow *models.Follow) error
	DeleteFollow(followerID, followeeID uint) error
	IsFollowing(followerID, followeeID uint) (bool, error)
	SetNotifyEnabled(followerID, followeeID uint, enabled bool) error
	FanoutTargets(actorID uint) ([]uint, error)
}

// PostgresFollowRepository implements FollowRepository for PostgreSQL
type PostgresFollowRepository struct {
	db *gorm.DB
}

// NewPostgresFollowRepository creates a new PostgresFollowRepository
func NewPostgresFollowRepository(db *gorm.DB) *PostgresFollowRepository {
	return &PostgresFollowRepository{db: db}
}

// CreateFollow creates a follow edge in PostgreSQL
func (r *PostgresFollowRepository) CreateFollow(follow *models.Follow) error {
	if err := r.db.Create(follow).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Duplicate("follow", "already following this user")
		}
		return apperr.Internal(err)
	}
	return nil
}

// DeleteFollow removes a follow edge from PostgreSQL
func (r *PostgresFollowRepository) DeleteFollow(followerID, followeeID uint) error {
	res := r.db.Where("follower_id = ? AND followee_id = ?", followerID, followeeID).Delete(&models.Follow{})
	if res.Error != nil {
		return apperr.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("follow not found")
	}
	return nil
}

// IsFollowing checks if a follow edge exists
func (r *PostgresFollowRepository) IsFollowing(followerID, followeeID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Follow{}).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Count(&count).Error
	if err != nil {
		return false, apperr.Internal(err)
	}
	return count > 0, nil
}

// SetNotifyEnabled toggles fan-out delivery on an existing follow edge
func (r *PostgresFollowRepository) SetNotifyEnabled(followerID, followeeID uint, enabled bool) error {
	res := r.db.Model(&models.Follow{}).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Update("notify_enabled", enabled)
	if res.Error != nil {
		return apperr.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("follow not found")
	}
	return nil
}

// FanoutTargets returns the ids of users who follow the actor with
// notifications enabled, excluding anyone in a block relationship with
// the actor in either direction.
func (r *PostgresFollowRepository) FanoutTargets(actorID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.Follow{}).
		Where("followee_id = ? AND notify_enabled = ?", actorID, true).
		Where("follower_id NOT IN (SELECT blocked_id FROM blocks WHERE blocker_id = ?)", actorID).
		Where("follower_id NOT IN (SELECT blocker_id FROM blocks WHERE blocked_id = ?)", actorID).
		Pluck("follower_id", &ids).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return ids, nil
}
