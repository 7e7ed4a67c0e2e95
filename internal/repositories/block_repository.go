package repositories

import (
	"errors"

	"github.com/driftline/driftline-backend/internal/apperr"
	"github.com/driftline/driftline-backend/internal/models"
	"gorm.io/gorm"
)

// BlockRepository defines the interface for block edge operations
type BlockRepository interface {
	CreateBlock(blockerID, blockedID uint) (*models.Block, error)
	DeleteBlock(blockerID, blockedID uint) error
	IsBlockedEither(a, b uint) (bool, error)
}

// PostgresBlockRepository implements BlockRepository for PostgreSQL
type PostgresBlockRepository struct {
	db *gorm.DB
}

// NewPostgresBlockRepository creates a new PostgresBlockRepository
func NewPostgresBlockRepository(db *gorm.DB) *PostgresBlockRepository {
	return &PostgresBlockRepository{db: db}
}

// CreateBlock creates a block edge in PostgreSQL
func (r *PostgresBlockRepository) CreateBlock(blockerID, blockedID uint) (*models.Block, error) {
	block := &models.Block{BlockerID: blockerID, BlockedID: blockedID}
	if err := r.db.Create(block).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Duplicate("block", "user already blocked")
		}
		return nil, apperr.Internal(err)
	}
	return block, nil
}

// DeleteBlock removes a block edge from PostgreSQL
func (r *PostgresBlockRepository) DeleteBlock(blockerID, blockedID uint) error {
	res := r.db.Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).Delete(&models.Block{})
	if res.Error != nil {
		return apperr.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("block not found")
	}
	return nil
}

// IsBlockedEither reports whether a block edge exists in either direction
// between a and b. Either direction makes content mutually invisible.
func (r *PostgresBlockRepository) IsBlockedEither(a, b uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Block{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)", a, b, b, a).
		Count(&count).Error
	if err != nil {
		return false, apperr.Internal(err)
	}
	return count > 0, nil
}
