package repositories

import (
	"testing"
	"time"

	"github.com/driftline/driftline-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedNotifications(t *testing.T, db *gorm.DB, receiverID uint, n int) []models.Notification {
	t.Helper()
	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	rows := make([]models.Notification, n)
	for i := range rows {
		postID := uint(100 + i)
		rows[i] = models.Notification{
			TypeID:     models.NotificationLike,
			PostID:     &postID,
			NotifierID: 99,
			ReceiverID: receiverID,
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
		}
	}
	require.NoError(t, db.Create(&rows).Error)
	return rows
}

func TestNotificationFindPage(t *testing.T) {
	db := newTestDB(t)
	repo := NewPostgresNotificationRepository(db)
	rows := seedNotifications(t, db, 1, 25)
	seedNotifications(t, db, 2, 3) // someone else's stream

	page1, end, err := repo.FindPage(1, 0, 20)
	require.NoError(t, err)
	require.Len(t, page1, 20)
	assert.False(t, end)
	assert.Equal(t, rows[24].ID, page1[0].ID, "newest first")
	assert.Equal(t, rows[5].ID, page1[19].ID)

	page2, end, err := repo.FindPage(1, page1[19].ID, 20)
	require.NoError(t, err)
	require.Len(t, page2, 5)
	assert.True(t, end)
	assert.Equal(t, rows[0].ID, page2[4].ID)

	// Cursor at the oldest row short-circuits.
	page3, end, err := repo.FindPage(1, page2[4].ID, 20)
	require.NoError(t, err)
	assert.Empty(t, page3)
	assert.True(t, end)
}

func TestNotificationFindPageEmpty(t *testing.T) {
	db := newTestDB(t)
	repo := NewPostgresNotificationRepository(db)

	page, end, err := repo.FindPage(7, 0, 20)
	require.NoError(t, err)
	assert.Empty(t, page)
	assert.True(t, end)
}

func TestNotificationMarkReadThroughIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := NewPostgresNotificationRepository(db)
	rows := seedNotifications(t, db, 1, 10)

	count, err := repo.UnreadCount(1)
	require.NoError(t, err)
	assert.Equal(t, int64(10), count)

	// Reading through the 5th row marks it and everything older.
	require.NoError(t, repo.MarkReadThrough(1, rows[4].CreatedAt))
	count, err = repo.UnreadCount(1)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)

	require.NoError(t, repo.MarkReadThrough(1, rows[4].CreatedAt))
	count, err = repo.UnreadCount(1)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count, "re-marking the same boundary changes nothing")

	require.NoError(t, repo.MarkReadThrough(1, rows[9].CreatedAt))
	count, err = repo.UnreadCount(1)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestNotificationDeleteMatching(t *testing.T) {
	db := newTestDB(t)
	repo := NewPostgresNotificationRepository(db)

	postID := uint(42)
	require.NoError(t, repo.CreateBatch([]models.Notification{
		{TypeID: models.NotificationLike, PostID: &postID, NotifierID: 5, ReceiverID: 1},
		{TypeID: models.NotificationLike, PostID: &postID, NotifierID: 5, ReceiverID: 2},
		{TypeID: models.NotificationLike, PostID: &postID, NotifierID: 6, ReceiverID: 1},
		{TypeID: models.NotificationFollow, NotifierID: 5, ReceiverID: 3},
	}))

	// Match by (type, post, notifier): both receivers of notifier 5's
	// like disappear, notifier 6's row stays.
	require.NoError(t, repo.DeleteMatching(models.NotificationLike, &postID, 5))
	var remaining []models.Notification
	require.NoError(t, db.Where("type_id = ?", models.NotificationLike).Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, uint(6), remaining[0].NotifierID)

	// Nil post matches by (type, notifier) alone.
	require.NoError(t, repo.DeleteMatching(models.NotificationFollow, nil, 5))
	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Where("type_id = ?", models.NotificationFollow).Count(&count).Error)
	assert.Zero(t, count)
}

func TestNotificationCreateBatchEmpty(t *testing.T) {
	db := newTestDB(t)
	repo := NewPostgresNotificationRepository(db)
	require.NoError(t, repo.CreateBatch(nil), "an empty fan-out is a no-op, not an error")
}
