package repositories

import (
	"errors"
	"time"

	"github.com/driftline/driftline-backend/internal/apperr"
	"github.com/driftline/driftline-backend/internal/models"
	"gorm.io/gorm"
)

// EngagementEdge is the kind-independent shape returned for a created
// like, repost or bookmark.
type EngagementEdge struct {
	Kind      models.EngagementKind `json:"kind"`
	PostID    uint                  `json:"post_id"`
	UserID    uint                  `json:"user_id"`
	CreatedAt time.Time             `json:"created_at"`
}

// EngagementRepository defines the interface for like/repost/bookmark
// edge operations. Uniqueness per (post, user, kind) is enforced by the
// store and surfaced as a duplicate error, never a crash.
type EngagementRepository interface {
	CreateEdge(kind models.EngagementKind, userID, postID uint) (*EngagementEdge, error)
	DeleteEdge(kind models.EngagementKind, userID, postID uint) error
	HasEdge(kind models.EngagementKind, userID, postID uint) (bool, error)
	ViewerRelationships(viewerID uint, postIDs []uint) (map[uint]models.PostRelationship, error)
}

// PostgresEngagementRepository implements EngagementRepository for PostgreSQL
type PostgresEngagementRepository struct {
	db *gorm.DB
}

// NewPostgresEngagementRepository creates a new PostgresEngagementRepository
func NewPostgresEngagementRepository(db *gorm.DB) *PostgresEngagementRepository {
	return &PostgresEngagementRepository{db: db}
}

func edgeModel(kind models.EngagementKind) interface{} {
	switch kind {
	case models.EngagementLike:
		return &models.Like{}
	case models.EngagementRepost:
		return &models.Repost{}
	default:
		return &models.Bookmark{}
	}
}

// CreateEdge inserts one engagement edge. A second insert for the same
// (post, user, kind) hits the unique index and reports a duplicate.
func (r *PostgresEngagementRepository) CreateEdge(kind models.EngagementKind, userID, postID uint) (*EngagementEdge, error) {
	now := time.Now()
	var err error
	switch kind {
	case models.EngagementLike:
		err = r.db.Create(&models.Like{PostID: postID, UserID: userID, CreatedAt: now}).Error
	case models.EngagementRepost:
		err = r.db.Create(&models.Repost{PostID: postID, UserID: userID, CreatedAt: now}).Error
	default:
		err = r.db.Create(&models.Bookmark{PostID: postID, UserID: userID, CreatedAt: now}).Error
	}
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Duplicate(string(kind), "post already "+actionName(kind))
		}
		return nil, apperr.Internal(err)
	}
	return &EngagementEdge{Kind: kind, PostID: postID, UserID: userID, CreatedAt: now}, nil
}

// DeleteEdge removes one engagement edge
func (r *PostgresEngagementRepository) DeleteEdge(kind models.EngagementKind, userID, postID uint) error {
	res := r.db.Where("post_id = ? AND user_id = ?", postID, userID).Delete(edgeModel(kind))
	if res.Error != nil {
		return apperr.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound(string(kind) + " not found")
	}
	return nil
}

// HasEdge checks whether the user already has the given edge on the post
func (r *PostgresEngagementRepository) HasEdge(kind models.EngagementKind, userID, postID uint) (bool, error) {
	var count int64
	err := r.db.Model(edgeModel(kind)).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Count(&count).Error
	if err != nil {
		return false, apperr.Internal(err)
	}
	return count > 0, nil
}

// ViewerRelationships returns, for each post id, whether the viewer has
// liked, reposted and bookmarked it. Existence checks, not stored flags.
func (r *PostgresEngagementRepository) ViewerRelationships(viewerID uint, postIDs []uint) (map[uint]models.PostRelationship, error) {
	out := make(map[uint]models.PostRelationship, len(postIDs))
	if viewerID == 0 || len(postIDs) == 0 {
		return out, nil
	}

	collect := func(kind models.EngagementKind, set func(rel *models.PostRelationship)) error {
		var ids []uint
		err := r.db.Model(edgeModel(kind)).
			Where("user_id = ? AND post_id IN ?", viewerID, postIDs).
			Pluck("post_id", &ids).Error
		if err != nil {
			return apperr.Internal(err)
		}
		for _, id := range ids {
			rel := out[id]
			set(&rel)
			out[id] = rel
		}
		return nil
	}

	if err := collect(models.EngagementLike, func(rel *models.PostRelationship) { rel.ViewerHasLiked = true }); err != nil {
		return nil, err
	}
	if err := collect(models.EngagementRepost, func(rel *models.PostRelationship) { rel.ViewerHasReposted = true }); err != nil {
		return nil, err
	}
	if err := collect(models.EngagementBookmark, func(rel *models.PostRelationship) { rel.ViewerHasBookmarked = true }); err != nil {
		return nil, err
	}
	return out, nil
}

func actionName(kind models.EngagementKind) string {
	switch kind {
	case models.EngagementLike:
		return "liked"
	case models.EngagementRepost:
		return "reposted"
	default:
		return "bookmarked"
	}
}
