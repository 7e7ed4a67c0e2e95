package repositories

import (
	"errors"
	"strings"
	"time"

	"github.com/driftline/driftline-backend/internal/apperr"
	"github.com/driftline/driftline-backend/internal/models"
	"gorm.io/gorm"
)

// PostOrder selects the total ordering a paginated post query runs
// under. Every order ends in the post id so ties are impossible;
// changing a key order would silently corrupt in-flight cursors.
type PostOrder int

const (
	// OrderChrono is (created_at DESC, id DESC).
	OrderChrono PostOrder = iota
	// OrderEngagementAsc is (replies, reposts, likes, created_at, id)
	// ascending — the broad-match explore ordering used by search paging.
	OrderEngagementAsc
	// OrderEngagementDesc is the same five keys descending — the top
	// listing ordering.
	OrderEngagementDesc
	// OrderRepostChrono orders by the repost edge's created_at, newest
	// first. Requires Filter.RepostedBy.
	OrderRepostChrono
	// OrderBookmarkChrono orders by the bookmark edge's created_at,
	// newest first. Requires Filter.BookmarkedBy.
	OrderBookmarkChrono
)

// PostFilter is the composed predicate a post query runs under. The
// zero value matches all non-deleted posts. ViewerID, when set, ANDs in
// the block-visibility predicate both directions.
type PostFilter struct {
	ViewerID        uint
	AuthorID        uint
	OnlyRoots       bool
	OnlyReplies     bool
	ReplyToID       uint
	FollowedBy      uint // authors the given user follows, excluding the user
	RepostedBy      uint
	NotRepostedBy   uint
	BookmarkedBy    uint
	WithImages      bool
	Since           time.Time
	ContainsAny     []string // case-insensitive content terms, OR-combined
	ParentVisibleTo uint     // for replies: parent's author also visible to this viewer
}

// PostRepository defines the interface for post data operations,
// including the cursor-paginated reads the feed composer builds on.
type PostRepository interface {
	CreatePost(post *models.Post) error
	GetPostByID(id uint) (*models.Post, error)
	GetPostsByIDs(viewerID uint, ids []uint) (map[uint]models.Post, error)
	SoftDeletePost(id uint) error
	FindPage(f PostFilter, order PostOrder, cursorID uint, limit int) ([]models.Post, error)
	FindOldest(f PostFilter, order PostOrder) (*models.Post, error)
	FindNewer(f PostFilter, sinceID uint, limit int) ([]models.Post, error)
	CountMatching(f PostFilter) (int64, error)
	CountStats(postIDs []uint) (map[uint]models.PostStats, error)
}

// PostgresPostRepository implements PostRepository for PostgreSQL
type PostgresPostRepository struct {
	db *gorm.DB
}

// NewPostgresPostRepository creates a new PostgresPostRepository
func NewPostgresPostRepository(db *gorm.DB) *PostgresPostRepository {
	return &PostgresPostRepository{db: db}
}

// CreatePost creates a new post together with its image rows
func (r *PostgresPostRepository) CreatePost(post *models.Post) error {
	if err := r.db.Create(post).Error; err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// GetPostByID retrieves a post by ID. Soft-deleted rows are returned
// as-is; callers decide whether a deleted post is acceptable.
func (r *PostgresPostRepository) GetPostByID(id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.Preload("Images").First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("post not found")
		}
		return nil, apperr.Internal(err)
	}
	return &post, nil
}

// GetPostsByIDs retrieves posts keyed by id, images attached. The block
// predicate applies here too: a requested id whose author is in a block
// relationship with the viewer is simply absent from the result.
func (r *PostgresPostRepository) GetPostsByIDs(viewerID uint, ids []uint) (map[uint]models.Post, error) {
	out := make(map[uint]models.Post, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	q := r.db.Preload("Images").Where("id IN ?", ids)
	if viewerID != 0 {
		q = q.
			Where("author_id NOT IN (SELECT blocked_id FROM blocks WHERE blocker_id = ?)", viewerID).
			Where("author_id NOT IN (SELECT blocker_id FROM blocks WHERE blocked_id = ?)", viewerID)
	}
	var posts []models.Post
	if err := q.Find(&posts).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	for i := range posts {
		out[posts[i].ID] = posts[i]
	}
	return out, nil
}

// SoftDeletePost flags the post deleted and nulls its content. The row
// stays because replies, reposts and likes keep pointing at it.
func (r *PostgresPostRepository) SoftDeletePost(id uint) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		res := tx.Model(&models.Post{}).Where("id = ? AND is_deleted = ?", id, false).
			Updates(map[string]interface{}{
				"is_deleted": true,
				"deleted_at": now,
				"content":    nil,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("post_id = ?", id).Delete(&models.PostImage{}).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("post not found")
	}
	if err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// base builds the filtered query. Edge-chronological orders join their
// edge table here so both the page query and the boundary probe see it.
func (r *PostgresPostRepository) base(f PostFilter, order PostOrder) *gorm.DB {
	db := r.db.Model(&models.Post{}).Where("posts.is_deleted = ?", false)

	switch order {
	case OrderRepostChrono:
		// Select posts.* explicitly: the joined edge table has its own
		// id and created_at columns and must not leak into the scan.
		db = db.Select("posts.*").
			Joins("JOIN reposts ON reposts.post_id = posts.id AND reposts.user_id = ?", f.RepostedBy)
	case OrderBookmarkChrono:
		db = db.Select("posts.*").
			Joins("JOIN bookmarks ON bookmarks.post_id = posts.id AND bookmarks.user_id = ?", f.BookmarkedBy)
	default:
		if f.RepostedBy != 0 {
			db = db.Where("posts.id IN (SELECT post_id FROM reposts WHERE user_id = ?)", f.RepostedBy)
		}
		if f.BookmarkedBy != 0 {
			db = db.Where("posts.id IN (SELECT post_id FROM bookmarks WHERE user_id = ?)", f.BookmarkedBy)
		}
	}

	if f.ViewerID != 0 {
		db = db.
			Where("posts.author_id NOT IN (SELECT blocked_id FROM blocks WHERE blocker_id = ?)", f.ViewerID).
			Where("posts.author_id NOT IN (SELECT blocker_id FROM blocks WHERE blocked_id = ?)", f.ViewerID)
	}
	if f.AuthorID != 0 {
		db = db.Where("posts.author_id = ?", f.AuthorID)
	}
	if f.OnlyRoots {
		db = db.Where("posts.reply_to_id IS NULL")
	}
	if f.OnlyReplies {
		db = db.Where("posts.reply_to_id IS NOT NULL")
	}
	if f.ReplyToID != 0 {
		db = db.Where("posts.reply_to_id = ?", f.ReplyToID)
	}
	if f.FollowedBy != 0 {
		db = db.
			Where("posts.author_id IN (SELECT followee_id FROM follows WHERE follower_id = ?)", f.FollowedBy).
			Where("posts.author_id <> ?", f.FollowedBy)
	}
	if f.NotRepostedBy != 0 {
		db = db.Where("posts.id NOT IN (SELECT post_id FROM reposts WHERE user_id = ?)", f.NotRepostedBy)
	}
	if f.WithImages {
		db = db.Where("EXISTS (SELECT 1 FROM post_images pi WHERE pi.post_id = posts.id)")
	}
	if !f.Since.IsZero() {
		db = db.Where("posts.created_at > ?", f.Since)
	}
	if len(f.ContainsAny) > 0 {
		cond := r.db.Where(`LOWER(posts.content) LIKE ? ESCAPE '\'`, containsPattern(f.ContainsAny[0]))
		for _, term := range f.ContainsAny[1:] {
			cond = cond.Or(`LOWER(posts.content) LIKE ? ESCAPE '\'`, containsPattern(term))
		}
		db = db.Where(cond)
	}
	if f.ParentVisibleTo != 0 {
		db = db.Where(`NOT EXISTS (
			SELECT 1 FROM posts parent
			JOIN blocks b ON (b.blocker_id = ? AND b.blocked_id = parent.author_id)
			              OR (b.blocked_id = ? AND b.blocker_id = parent.author_id)
			WHERE parent.id = posts.reply_to_id)`, f.ParentVisibleTo, f.ParentVisibleTo)
	}
	return db
}

// likeEscaper neutralizes LIKE metacharacters so a term such as "#a_b"
// matches literally instead of treating "_" as a single-char wildcard.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
}

const engagementCounts = `posts.*,
	(SELECT COUNT(*) FROM posts r WHERE r.reply_to_id = posts.id AND r.is_deleted = FALSE) AS reply_count,
	(SELECT COUNT(*) FROM reposts rp WHERE rp.post_id = posts.id) AS repost_count,
	(SELECT COUNT(*) FROM likes l WHERE l.post_id = posts.id) AS like_count`

func orderClause(order PostOrder, reversed bool) string {
	asc, desc := "ASC", "DESC"
	if reversed {
		asc, desc = desc, asc
	}
	switch order {
	case OrderChrono:
		return "posts.created_at " + desc + ", posts.id " + desc
	case OrderRepostChrono:
		return "reposts.created_at " + desc + ", posts.id " + desc
	case OrderBookmarkChrono:
		return "bookmarks.created_at " + desc + ", posts.id " + desc
	case OrderEngagementAsc:
		return rankOrder(asc)
	default:
		return rankOrder(desc)
	}
}

func rankOrder(dir string) string {
	keys := []string{"reply_count", "repost_count", "like_count", "created_at", "id"}
	return strings.Join(keys, " "+dir+", ") + " " + dir
}

// rankKey is the five-part sort key of one row under engagement order.
type rankKey struct {
	ID          uint
	CreatedAt   time.Time
	ReplyCount  int64
	RepostCount int64
	LikeCount   int64
}

func (r *PostgresPostRepository) rankKeyOf(postID uint) (*rankKey, error) {
	var k rankKey
	err := r.db.Model(&models.Post{}).
		Select(engagementCounts).
		Where("posts.id = ?", postID).
		Scan(&k).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if k.ID == 0 {
		return nil, apperr.NotFound("cursor post not found")
	}
	return &k, nil
}

// FindPage returns the next page strictly after the cursor row in the
// given order. A zero cursor starts from the top. The position is a
// seek on the full sort key, so cost does not grow with table size.
func (r *PostgresPostRepository) FindPage(f PostFilter, order PostOrder, cursorID uint, limit int) ([]models.Post, error) {
	var posts []models.Post
	var err error

	switch order {
	case OrderEngagementAsc, OrderEngagementDesc:
		sub := r.base(f, order).Select(engagementCounts)
		q := r.db.Table("(?) AS ranked", sub)
		if cursorID != 0 {
			key, kerr := r.rankKeyOf(cursorID)
			if kerr != nil {
				return nil, kerr
			}
			cmp := ">"
			if order == OrderEngagementDesc {
				cmp = "<"
			}
			q = q.Where(
				"(reply_count, repost_count, like_count, created_at, id) "+cmp+" (?, ?, ?, ?, ?)",
				key.ReplyCount, key.RepostCount, key.LikeCount, key.CreatedAt, key.ID,
			)
		}
		err = q.Order(orderClause(order, false)).Limit(limit).Find(&posts).Error

	case OrderRepostChrono, OrderBookmarkChrono:
		q := r.base(f, order)
		if cursorID != 0 {
			var at time.Time
			var eerr error
			col := "reposts"
			if order == OrderRepostChrono {
				var edge models.Repost
				eerr = r.db.Where("user_id = ? AND post_id = ?", f.RepostedBy, cursorID).First(&edge).Error
				at = edge.CreatedAt
			} else {
				col = "bookmarks"
				var edge models.Bookmark
				eerr = r.db.Where("user_id = ? AND post_id = ?", f.BookmarkedBy, cursorID).First(&edge).Error
				at = edge.CreatedAt
			}
			if eerr != nil {
				if errors.Is(eerr, gorm.ErrRecordNotFound) {
					return nil, apperr.NotFound("cursor post not found")
				}
				return nil, apperr.Internal(eerr)
			}
			q = q.Where("("+col+".created_at, posts.id) < (?, ?)", at, cursorID)
		}
		err = q.Order(orderClause(order, false)).Limit(limit).Find(&posts).Error

	default:
		q := r.base(f, order)
		if cursorID != 0 {
			var cur models.Post
			if ferr := r.db.Select("id", "created_at").First(&cur, cursorID).Error; ferr != nil {
				if errors.Is(ferr, gorm.ErrRecordNotFound) {
					return nil, apperr.NotFound("cursor post not found")
				}
				return nil, apperr.Internal(ferr)
			}
			q = q.Where("(posts.created_at, posts.id) < (?, ?)", cur.CreatedAt, cur.ID)
		}
		err = q.Order(orderClause(order, false)).Limit(limit).Find(&posts).Error
	}

	if err != nil {
		return nil, apperr.Internal(err)
	}
	if err := r.loadImages(posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// FindOldest returns the row the given traversal terminates at — the
// oldest row for chronological orders, the last-ranked row for
// engagement orders. Nil means the filtered set is empty.
func (r *PostgresPostRepository) FindOldest(f PostFilter, order PostOrder) (*models.Post, error) {
	var posts []models.Post
	var err error
	switch order {
	case OrderEngagementAsc, OrderEngagementDesc:
		sub := r.base(f, order).Select(engagementCounts)
		err = r.db.Table("(?) AS ranked", sub).
			Order(orderClause(order, true)).Limit(1).Find(&posts).Error
	default:
		err = r.base(f, order).Order(orderClause(order, true)).Limit(1).Find(&posts).Error
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if len(posts) == 0 {
		return nil, nil
	}
	return &posts[0], nil
}

// FindNewer returns posts created after the cursor row, newest first,
// capped at limit. This is the polling mode: no end flag exists because
// the caller asks again later.
func (r *PostgresPostRepository) FindNewer(f PostFilter, sinceID uint, limit int) ([]models.Post, error) {
	var since models.Post
	if err := r.db.Select("id", "created_at").First(&since, sinceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("cursor post not found")
		}
		return nil, apperr.Internal(err)
	}

	var posts []models.Post
	err := r.base(f, OrderChrono).
		Where("posts.created_at > ?", since.CreatedAt).
		Order(orderClause(OrderChrono, false)).
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if err := r.loadImages(posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// CountMatching counts rows the filter qualifies
func (r *PostgresPostRepository) CountMatching(f PostFilter) (int64, error) {
	var count int64
	if err := r.base(f, OrderChrono).Count(&count).Error; err != nil {
		return 0, apperr.Internal(err)
	}
	return count, nil
}

// CountStats computes like/repost/reply counts for the given posts in
// three grouped queries.
func (r *PostgresPostRepository) CountStats(postIDs []uint) (map[uint]models.PostStats, error) {
	out := make(map[uint]models.PostStats, len(postIDs))
	if len(postIDs) == 0 {
		return out, nil
	}

	type countRow struct {
		PostID uint
		C      int64
	}

	var likeRows []countRow
	err := r.db.Model(&models.Like{}).
		Select("post_id, COUNT(*) AS c").
		Where("post_id IN ?", postIDs).
		Group("post_id").
		Scan(&likeRows).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	for _, row := range likeRows {
		s := out[row.PostID]
		s.LikesCount = row.C
		out[row.PostID] = s
	}

	var repostRows []countRow
	err = r.db.Model(&models.Repost{}).
		Select("post_id, COUNT(*) AS c").
		Where("post_id IN ?", postIDs).
		Group("post_id").
		Scan(&repostRows).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	for _, row := range repostRows {
		s := out[row.PostID]
		s.RepostsCount = row.C
		out[row.PostID] = s
	}

	var replyRows []countRow
	err = r.db.Model(&models.Post{}).
		Select("reply_to_id AS post_id, COUNT(*) AS c").
		Where("reply_to_id IN ? AND is_deleted = ?", postIDs, false).
		Group("reply_to_id").
		Scan(&replyRows).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	for _, row := range replyRows {
		s := out[row.PostID]
		s.RepliesCount = row.C
		out[row.PostID] = s
	}

	return out, nil
}

// loadImages attaches ordered image rows to already-fetched posts.
// Queries built over derived tables cannot Preload, so list reads load
// images in a second pass.
func (r *PostgresPostRepository) loadImages(posts []models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]uint, len(posts))
	index := make(map[uint]int, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
		index[posts[i].ID] = i
	}
	var images []models.PostImage
	err := r.db.Where("post_id IN ?", ids).Order("post_id, position").Find(&images).Error
	if err != nil {
		return apperr.Internal(err)
	}
	for _, img := range images {
		i := index[img.PostID]
		posts[i].Images = append(posts[i].Images, img)
	}
	return nil
}
