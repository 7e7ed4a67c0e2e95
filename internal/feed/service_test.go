package feed

import (
	"fmt"
	"testing"
	"time"

	"github.com/driftline/driftline-backend/internal/apperr"
	"github.com/driftline/driftline-backend/internal/events"
	"github.com/driftline/driftline-backend/internal/models"
	"github.com/driftline/driftline-backend/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	// An in-memory sqlite database exists per connection; a second pooled
	// connection would see an empty schema.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.PostImage{},
		&models.Like{},
		&models.Repost{},
		&models.Bookmark{},
		&models.Follow{},
		&models.Block{},
		&models.Notification{},
	))
	return db
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	svc := NewService(
		repositories.NewPostgresPostRepository(db),
		repositories.NewPostgresUserRepository(db),
		repositories.NewPostgresEngagementRepository(db),
		repositories.NewPostgresFollowRepository(db),
		repositories.NewPostgresBlockRepository(db),
		repositories.NewPostgresNotificationRepository(db),
		events.NopSink{},
	)
	return svc, db
}

func seedUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := &models.User{
		Username:    username,
		DisplayName: username,
		Email:       username + "@example.com",
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedPost(t *testing.T, db *gorm.DB, authorID uint, content string, createdAt time.Time) *models.Post {
	t.Helper()
	p := &models.Post{AuthorID: authorID, Content: &content, CreatedAt: createdAt}
	require.NoError(t, db.Create(p).Error)
	return p
}

func seedReply(t *testing.T, db *gorm.DB, authorID, parentID uint, content string, createdAt time.Time) *models.Post {
	t.Helper()
	p := &models.Post{AuthorID: authorID, Content: &content, ReplyToID: &parentID, CreatedAt: createdAt}
	require.NoError(t, db.Create(p).Error)
	return p
}

// feedBase is a recent timestamp safely inside the 30-day feed window.
// Whole seconds only: sub-second precision is irrelevant to ordering here.
func feedBase() time.Time {
	return time.Now().Add(-time.Hour).Truncate(time.Second)
}

func postIDs(page *Page) []uint {
	ids := make([]uint, len(page.Posts))
	for i := range page.Posts {
		ids[i] = page.Posts[i].ID
	}
	return ids
}

func TestGlobalFeedPagination(t *testing.T) {
	svc, db := newTestService(t)
	author := seedUser(t, db, "bob")
	viewer := seedUser(t, db, "viewer")

	base := feedBase()
	posts := make([]*models.Post, 35)
	for i := range posts {
		posts[i] = seedPost(t, db, author.ID, fmt.Sprintf("post %d", i), base.Add(time.Duration(i)*time.Second))
	}

	page1, err := svc.GlobalFeed(viewer.ID, 0, ModeOld)
	require.NoError(t, err)
	require.Len(t, page1.Posts, GlobalPageSize)
	require.NotNil(t, page1.End)
	assert.False(t, *page1.End)
	assert.Equal(t, posts[34].ID, page1.Posts[0].ID, "newest post first")
	assert.Equal(t, posts[10].ID, page1.Posts[24].ID)

	page2, err := svc.GlobalFeed(viewer.ID, page1.Posts[24].ID, ModeOld)
	require.NoError(t, err)
	require.Len(t, page2.Posts, 10)
	require.NotNil(t, page2.End)
	assert.True(t, *page2.End)
	assert.Equal(t, posts[0].ID, page2.Posts[9].ID, "oldest post last")

	seen := make(map[uint]bool)
	for _, id := range append(postIDs(page1), postIDs(page2)...) {
		assert.False(t, seen[id], "post %d served twice", id)
		seen[id] = true
	}
	assert.Len(t, seen, 35)

	// A cursor pointing at the oldest row short-circuits to an empty
	// terminal page.
	page3, err := svc.GlobalFeed(viewer.ID, page2.Posts[9].ID, ModeOld)
	require.NoError(t, err)
	assert.Empty(t, page3.Posts)
	require.NotNil(t, page3.End)
	assert.True(t, *page3.End)
}

func TestGlobalFeedEmpty(t *testing.T) {
	svc, db := newTestService(t)
	viewer := seedUser(t, db, "viewer")

	page, err := svc.GlobalFeed(viewer.ID, 0, ModeOld)
	require.NoError(t, err)
	assert.Empty(t, page.Posts)
	require.NotNil(t, page.End)
	assert.True(t, *page.End)
}

func TestGlobalFeedFullPageAtEnd(t *testing.T) {
	svc, db := newTestService(t)
	author := seedUser(t, db, "bob")
	viewer := seedUser(t, db, "viewer")

	base := feedBase()
	for i := 0; i < GlobalPageSize; i++ {
		seedPost(t, db, author.ID, fmt.Sprintf("post %d", i), base.Add(time.Duration(i)*time.Second))
	}

	page, err := svc.GlobalFeed(viewer.ID, 0, ModeOld)
	require.NoError(t, err)
	assert.Len(t, page.Posts, GlobalPageSize)
	require.NotNil(t, page.End)
	assert.True(t, *page.End, "a full page can also be the last page")
}

func TestGlobalFeedExcludesRepliesAndStalePosts(t *testing.T) {
	svc, db := newTestService(t)
	author := seedUser(t, db, "bob")
	viewer := seedUser(t, db, "viewer")

	root := seedPost(t, db, author.ID, "root", feedBase())
	seedReply(t, db, author.ID, root.ID, "a reply", feedBase().Add(time.Second))
	seedPost(t, db, author.ID, "stale", time.Now().AddDate(0, 0, -40))

	page, err := svc.GlobalFeed(viewer.ID, 0, ModeOld)
	require.NoError(t, err)
	require.Len(t, page.Posts, 1)
	assert.Equal(t, root.ID, page.Posts[0].ID)
}

func TestGlobalFeedNewSince(t *testing.T) {
	svc, db := newTestService(t)
	author := seedUser(t, db, "bob")
	viewer := seedUser(t, db, "viewer")

	base := feedBase()
	posts := make([]*models.Post, 5)
	for i := range posts {
		posts[i] = seedPost(t, db, author.ID, fmt.Sprintf("post %d", i), base.Add(time.Duration(i)*time.Second))
	}

	page, err := svc.GlobalFeed(viewer.ID, posts[2].ID, ModeNew)
	require.NoError(t, err)
	assert.Equal(t, []uint{posts[4].ID, posts[3].ID}, postIDs(page))
	assert.Nil(t, page.End, "new-since mode carries no end flag")

	_, err = svc.GlobalFeed(viewer.ID, 0, ModeNew)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}

func TestFollowingFeed(t *testing.T) {
	svc, db := newTestService(t)
	viewer := seedUser(t, db, "viewer")
	alice := seedUser(t, db, "alice")
	carol := seedUser(t, db, "carol")
	require.NoError(t, db.Create(&models.Follow{FollowerID: viewer.ID, FolloweeID: alice.ID}).Error)

	base := feedBase()
	alicePost := seedPost(t, db, alice.ID, "from alice", base)
	seedPost(t, db, carol.ID, "from carol", base.Add(time.Second))
	seedPost(t, db, viewer.ID, "from viewer", base.Add(2*time.Second))

	page, err := svc.FollowingFeed(viewer.ID, 0, ModeOld)
	require.NoError(t, err)
	require.Len(t, page.Posts, 1, "only followed authors, never the viewer themselves")
	assert.Equal(t, alicePost.ID, page.Posts[0].ID)
	require.NotNil(t, page.End)
	assert.True(t, *page.End)

	_, err = svc.ToggleEngagement(viewer.ID, alicePost.ID, models.EngagementLike, true)
	require.NoError(t, err)

	page, err = svc.FollowingFeed(viewer.ID, 0, ModeOld)
	require.NoError(t, err)
	require.Len(t, page.Posts, 1)
	assert.True(t, page.Posts[0].Relationship.ViewerHasLiked)
	assert.Equal(t, int64(1), page.Posts[0].Stats.LikesCount)
	assert.Equal(t, alice.Username, page.Posts[0].Author.Username)
}

func TestBlockHidesBothDirections(t *testing.T) {
	svc, db := newTestService(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	require.NoError(t, db.Create(&models.Block{BlockerID: alice.ID, BlockedID: bob.ID}).Error)

	alicePost := seedPost(t, db, alice.ID, "alice speaking", feedBase())
	seedPost(t, db, bob.ID, "bob speaking", feedBase().Add(time.Second))

	// The blocked user cannot see the blocker's posts and vice versa.
	page, err := svc.GlobalFeed(bob.ID, 0, ModeOld)
	require.NoError(t, err)
	assert.Empty(t, postIDs(page))

	page, err = svc.GlobalFeed(alice.ID, 0, ModeOld)
	require.NoError(t, err)
	assert.Empty(t, postIDs(page))

	// A blocked viewer gets the same answer as for a missing resource.
	_, err = svc.ProfileFeed(bob.ID, "alice", TabPosts, 0)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeBlocked, apperr.CodeOf(err))

	_, err = svc.GetPost(bob.ID, alicePost.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeBlocked, apperr.CodeOf(err))

	_, err = svc.ToggleEngagement(bob.ID, alicePost.ID, models.EngagementLike, true)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeBlocked, apperr.CodeOf(err))
}

func TestToggleEngagementDuplicateAndRemove(t *testing.T) {
	svc, db := newTestService(t)
	alice := seedUser(t, db, "alice")
	viewer := seedUser(t, db, "viewer")
	post := seedPost(t, db, alice.ID, "hello", feedBase())

	edge, err := svc.ToggleEngagement(viewer.ID, post.ID, models.EngagementLike, true)
	require.NoError(t, err)
	require.NotNil(t, edge)
	assert.Equal(t, models.EngagementLike, edge.Kind)

	_, err = svc.ToggleEngagement(viewer.ID, post.ID, models.EngagementLike, true)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeDuplicate, apperr.CodeOf(err))

	_, err = svc.ToggleEngagement(viewer.ID, post.ID, models.EngagementLike, false)
	require.NoError(t, err)

	_, err = svc.ToggleEngagement(viewer.ID, post.ID, models.EngagementLike, false)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))

	_, err = svc.ToggleEngagement(viewer.ID, post.ID, "applaud", true)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}

func TestRepliesEngagementOrderPagination(t *testing.T) {
	svc, db := newTestService(t)
	alice := seedUser(t, db, "alice")
	viewer := seedUser(t, db, "viewer")
	parent := seedPost(t, db, alice.ID, "parent", feedBase())

	likers := make([]*models.User, 11)
	for i := range likers {
		likers[i] = seedUser(t, db, fmt.Sprintf("liker%d", i))
	}

	// Reply i gets i likes, so the engagement ranking is reply 11 down
	// to reply 0.
	base := feedBase().Add(time.Minute)
	replies := make([]*models.Post, 12)
	for i := range replies {
		replies[i] = seedReply(t, db, alice.ID, parent.ID, fmt.Sprintf("reply %d", i), base.Add(time.Duration(i)*time.Second))
		for j := 0; j < i; j++ {
			require.NoError(t, db.Create(&models.Like{PostID: replies[i].ID, UserID: likers[j].ID}).Error)
		}
	}

	page1, err := svc.Replies(viewer.ID, parent.ID, 0)
	require.NoError(t, err)
	require.Len(t, page1.Posts, RepliesPageSize)
	require.NotNil(t, page1.End)
	assert.False(t, *page1.End)
	assert.Equal(t, replies[11].ID, page1.Posts[0].ID, "most-engaged reply first")
	assert.Equal(t, replies[2].ID, page1.Posts[9].ID)

	page2, err := svc.Replies(viewer.ID, parent.ID, page1.Posts[9].ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{replies[1].ID, replies[0].ID}, postIDs(page2))
	require.NotNil(t, page2.End)
	assert.True(t, *page2.End)
}

func TestProfileTabs(t *testing.T) {
	svc, db := newTestService(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	viewer := seedUser(t, db, "viewer")

	base := feedBase()
	bobPost := seedPost(t, db, bob.ID, "bob's post", base)
	rootPost := seedPost(t, db, alice.ID, "alice root", base.Add(time.Second))
	mediaPost := seedPost(t, db, alice.ID, "alice with image", base.Add(2*time.Second))
	require.NoError(t, db.Create(&models.PostImage{PostID: mediaPost.ID, Position: 0, URL: "https://cdn.example.com/a.png"}).Error)
	reply := seedReply(t, db, alice.ID, bobPost.ID, "alice replies", base.Add(3*time.Second))

	// Alice reposts bob's post and then her own root post.
	require.NoError(t, db.Create(&models.Repost{PostID: bobPost.ID, UserID: alice.ID, CreatedAt: base.Add(4 * time.Second)}).Error)
	require.NoError(t, db.Create(&models.Repost{PostID: rootPost.ID, UserID: alice.ID, CreatedAt: base.Add(5 * time.Second)}).Error)

	// The reposted-by-owner root moves to the reposts tab; the posts tab
	// keeps only never-reposted roots.
	page, err := svc.ProfileFeed(viewer.ID, "alice", TabPosts, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint{mediaPost.ID}, postIDs(page))

	page, err = svc.ProfileFeed(viewer.ID, "alice", TabReposts, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint{rootPost.ID, bobPost.ID}, postIDs(page), "newest repost edge first")
	require.NotNil(t, page.End)
	assert.True(t, *page.End)

	page, err = svc.ProfileFeed(viewer.ID, "alice", TabReplies, 0)
	require.NoError(t, err)
	require.Equal(t, []uint{reply.ID}, postIDs(page))
	require.NotNil(t, page.Posts[0].ReplyTo, "replies carry their parent context")
	assert.Equal(t, bobPost.ID, page.Posts[0].ReplyTo.ID)
	assert.Equal(t, bob.Username, page.Posts[0].ReplyTo.Author.Username)

	page, err = svc.ProfileFeed(viewer.ID, "alice", TabMedia, 0)
	require.NoError(t, err)
	require.Equal(t, []uint{mediaPost.ID}, postIDs(page))
	require.Len(t, page.Posts[0].Images, 1)
	assert.Equal(t, "https://cdn.example.com/a.png", page.Posts[0].Images[0].URL)

	_, err = svc.ProfileFeed(viewer.ID, "alice", "pinned", 0)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	_, err = svc.ProfileFeed(viewer.ID, "nobody", TabPosts, 0)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestProfileRepliesTabHidesBlockedParents(t *testing.T) {
	svc, db := newTestService(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	viewer := seedUser(t, db, "viewer")
	require.NoError(t, db.Create(&models.Block{BlockerID: viewer.ID, BlockedID: bob.ID}).Error)

	base := feedBase()
	bobPost := seedPost(t, db, bob.ID, "bob's post", base)
	alicePost := seedPost(t, db, alice.ID, "alice's post", base)
	hidden := seedReply(t, db, alice.ID, bobPost.ID, "reply under blocked author", base.Add(time.Second))
	visible := seedReply(t, db, alice.ID, alicePost.ID, "reply under alice", base.Add(2*time.Second))

	page, err := svc.ProfileFeed(viewer.ID, "alice", TabReplies, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint{visible.ID}, postIDs(page))
	assert.NotContains(t, postIDs(page), hidden.ID)
}

func TestRepostsTabHidesBlockedParentContext(t *testing.T) {
	svc, db := newTestService(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	carol := seedUser(t, db, "carol")
	viewer := seedUser(t, db, "viewer")
	require.NoError(t, db.Create(&models.Block{BlockerID: viewer.ID, BlockedID: bob.ID}).Error)

	base := feedBase()
	bobPost := seedPost(t, db, bob.ID, "bob's hot take", base)
	reply := seedReply(t, db, carol.ID, bobPost.ID, "carol's reply", base.Add(time.Second))
	require.NoError(t, db.Create(&models.Repost{PostID: reply.ID, UserID: alice.ID, CreatedAt: base.Add(2 * time.Second)}).Error)

	// The reply itself is visible, but its parent belongs to a blocked
	// author and must not ride along as context.
	page, err := svc.ProfileFeed(viewer.ID, "alice", TabReposts, 0)
	require.NoError(t, err)
	require.Equal(t, []uint{reply.ID}, postIDs(page))
	assert.Nil(t, page.Posts[0].ReplyTo)

	// An unblocked viewer still gets the parent.
	page, err = svc.ProfileFeed(carol.ID, "alice", TabReposts, 0)
	require.NoError(t, err)
	require.Len(t, page.Posts, 1)
	require.NotNil(t, page.Posts[0].ReplyTo)
	assert.Equal(t, bobPost.ID, page.Posts[0].ReplyTo.ID)
}

func TestGetPostHidesBlockedParentContext(t *testing.T) {
	svc, db := newTestService(t)
	bob := seedUser(t, db, "bob")
	carol := seedUser(t, db, "carol")
	viewer := seedUser(t, db, "viewer")
	require.NoError(t, db.Create(&models.Block{BlockerID: bob.ID, BlockedID: viewer.ID}).Error)

	base := feedBase()
	bobPost := seedPost(t, db, bob.ID, "bob's post", base)
	reply := seedReply(t, db, carol.ID, bobPost.ID, "carol's reply", base.Add(time.Second))

	// The block cuts both ways: a viewer blocked by the parent's author
	// gets the reply without the parent.
	view, err := svc.GetPost(viewer.ID, reply.ID)
	require.NoError(t, err)
	assert.Nil(t, view.ReplyTo)

	view, err = svc.GetPost(carol.ID, reply.ID)
	require.NoError(t, err)
	require.NotNil(t, view.ReplyTo)
	assert.Equal(t, bobPost.ID, view.ReplyTo.ID)
}

func TestBookmarksOrderByBookmarkTime(t *testing.T) {
	svc, db := newTestService(t)
	alice := seedUser(t, db, "alice")
	viewer := seedUser(t, db, "viewer")
	other := seedUser(t, db, "other")

	base := feedBase()
	older := seedPost(t, db, alice.ID, "older post", base)
	newer := seedPost(t, db, alice.ID, "newer post", base.Add(time.Second))

	// The older post was bookmarked last, so it leads the listing.
	require.NoError(t, db.Create(&models.Bookmark{PostID: newer.ID, UserID: viewer.ID, CreatedAt: base.Add(10 * time.Second)}).Error)
	require.NoError(t, db.Create(&models.Bookmark{PostID: older.ID, UserID: viewer.ID, CreatedAt: base.Add(20 * time.Second)}).Error)
	require.NoError(t, db.Create(&models.Bookmark{PostID: newer.ID, UserID: other.ID, CreatedAt: base.Add(30 * time.Second)}).Error)

	page, err := svc.Bookmarks(viewer.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint{older.ID, newer.ID}, postIDs(page))
	require.NotNil(t, page.End)
	assert.True(t, *page.End)
}

func TestSearchPosts(t *testing.T) {
	svc, db := newTestService(t)
	alice := seedUser(t, db, "alice")
	viewer := seedUser(t, db, "viewer")
	liker1 := seedUser(t, db, "liker1")
	liker2 := seedUser(t, db, "liker2")

	base := feedBase()
	plain := seedPost(t, db, alice.ID, "Coffee brewing notes", base)
	tagged := seedPost(t, db, alice.ID, "morning #coffee", base.Add(time.Second))
	seedPost(t, db, alice.ID, "tea time", base.Add(2*time.Second))
	require.NoError(t, db.Create(&models.Like{PostID: tagged.ID, UserID: liker1.ID}).Error)
	require.NoError(t, db.Create(&models.Like{PostID: tagged.ID, UserID: liker2.ID}).Error)

	// Broad-match ordering is ascending engagement: the quiet post leads.
	page, err := svc.SearchPosts(viewer.ID, "coffee", 0)
	require.NoError(t, err)
	assert.Equal(t, []uint{plain.ID, tagged.ID}, postIDs(page))
	require.NotNil(t, page.End)
	assert.True(t, *page.End)

	// A username-only query has no content terms to match.
	page, err = svc.SearchPosts(viewer.ID, "@alice", 0)
	require.NoError(t, err)
	assert.Empty(t, page.Posts)
	require.NotNil(t, page.End)
	assert.True(t, *page.End)

	_, err = svc.SearchPosts(viewer.ID, "coffee;", 0)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}

func TestSearchMatchesUnderscoreLiterally(t *testing.T) {
	svc, db := newTestService(t)
	alice := seedUser(t, db, "alice")
	viewer := seedUser(t, db, "viewer")

	base := feedBase()
	exact := seedPost(t, db, alice.ID, "launch day #a_b", base)
	seedPost(t, db, alice.ID, "launch day #axb", base.Add(time.Second))

	// "_" in a hashtag is a literal character, not a one-char wildcard.
	page, err := svc.SearchPosts(viewer.ID, "#a_b", 0)
	require.NoError(t, err)
	assert.Equal(t, []uint{exact.ID}, postIDs(page))
}

func TestSearchUsers(t *testing.T) {
	svc, db := newTestService(t)
	viewer := seedUser(t, db, "viewer")
	seedUser(t, db, "alice")
	seedUser(t, db, "alicia")
	blocked := seedUser(t, db, "aliblocked")
	require.NoError(t, db.Create(&models.Block{BlockerID: viewer.ID, BlockedID: blocked.ID}).Error)

	users, err := svc.SearchUsers(viewer.ID, "@alice ali")
	require.NoError(t, err)
	names := make([]string, len(users))
	for i, u := range users {
		names[i] = u.Username
	}
	assert.ElementsMatch(t, []string{"alice", "alicia"}, names, "deduplicated across terms, blocked users excluded")
}

func TestTopPostsWidensWindow(t *testing.T) {
	svc, db := newTestService(t)
	alice := seedUser(t, db, "alice")
	viewer := seedUser(t, db, "viewer")
	likers := []*models.User{
		seedUser(t, db, "liker1"),
		seedUser(t, db, "liker2"),
		seedUser(t, db, "liker3"),
	}

	recent := feedBase()
	for i := 0; i < 10; i++ {
		seedPost(t, db, alice.ID, fmt.Sprintf("recent %d", i), recent.Add(time.Duration(i)*time.Second))
	}
	// 25 posts outside the initial 30-day window force one widening step.
	old := time.Now().AddDate(0, 0, -45)
	hot := seedPost(t, db, alice.ID, "old but loved", old)
	for _, liker := range likers {
		require.NoError(t, db.Create(&models.Like{PostID: hot.ID, UserID: liker.ID}).Error)
	}
	for i := 0; i < 24; i++ {
		seedPost(t, db, alice.ID, fmt.Sprintf("old %d", i), old.Add(time.Duration(i+1)*time.Second))
	}

	views, err := svc.TopPosts(viewer.ID)
	require.NoError(t, err)
	require.Len(t, views, TopPostsCount)
	assert.Equal(t, hot.ID, views[0].ID, "highest engagement first regardless of age")
}

func TestTopPostsFewerThanPageExist(t *testing.T) {
	svc, db := newTestService(t)
	alice := seedUser(t, db, "alice")
	viewer := seedUser(t, db, "viewer")
	for i := 0; i < 5; i++ {
		seedPost(t, db, alice.ID, fmt.Sprintf("post %d", i), feedBase().Add(time.Duration(i)*time.Second))
	}

	views, err := svc.TopPosts(viewer.ID)
	require.NoError(t, err)
	assert.Len(t, views, 5, "the widening loop stops once everything is in view")
}

func TestCreatePostFanOut(t *testing.T) {
	svc, db := newTestService(t)
	alice := seedUser(t, db, "alice")
	follower := seedUser(t, db, "follower")
	muted := seedUser(t, db, "muted")
	blocked := seedUser(t, db, "blockedfan")

	require.NoError(t, db.Create(&models.Follow{FollowerID: follower.ID, FolloweeID: alice.ID}).Error)
	require.NoError(t, db.Create(&models.Follow{FollowerID: muted.ID, FolloweeID: alice.ID}).Error)
	require.NoError(t, db.Model(&models.Follow{}).
		Where("follower_id = ? AND followee_id = ?", muted.ID, alice.ID).
		Update("notify_enabled", false).Error)
	require.NoError(t, db.Create(&models.Follow{FollowerID: blocked.ID, FolloweeID: alice.ID}).Error)
	require.NoError(t, db.Create(&models.Block{BlockerID: alice.ID, BlockedID: blocked.ID}).Error)

	view, err := svc.CreatePost(alice.ID, "hello world", nil, 0)
	require.NoError(t, err)
	assert.Equal(t, alice.Username, view.Author.Username)

	var rows []models.Notification
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1, "only followers with notifications on and no block")
	assert.Equal(t, follower.ID, rows[0].ReceiverID)
	assert.Equal(t, alice.ID, rows[0].NotifierID)
	assert.Equal(t, models.NotificationPost, rows[0].TypeID)
	require.NotNil(t, rows[0].PostID)
	assert.Equal(t, view.ID, *rows[0].PostID)

	// Deleting the post withdraws its fan-out.
	require.NoError(t, svc.DeletePost(alice.ID, view.ID))
	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestReplyNotifiesParentAuthor(t *testing.T) {
	svc, db := newTestService(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	parent := seedPost(t, db, alice.ID, "parent", feedBase())

	view, err := svc.CreatePost(bob.ID, "nice take", nil, parent.ID)
	require.NoError(t, err)
	require.NotNil(t, view.ReplyToID)
	assert.Equal(t, parent.ID, *view.ReplyToID)

	var rows []models.Notification
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1, "the parent author hears about the reply without following")
	assert.Equal(t, alice.ID, rows[0].ReceiverID)
	assert.Equal(t, models.NotificationReply, rows[0].TypeID)
}

func TestLikeFanOutInverse(t *testing.T) {
	svc, db := newTestService(t)
	alice := seedUser(t, db, "alice")
	fan := seedUser(t, db, "fan")
	watcher := seedUser(t, db, "watcher")
	require.NoError(t, db.Create(&models.Follow{FollowerID: watcher.ID, FolloweeID: fan.ID}).Error)
	post := seedPost(t, db, alice.ID, "likeable", feedBase())

	_, err := svc.ToggleEngagement(fan.ID, post.ID, models.EngagementLike, true)
	require.NoError(t, err)

	var rows []models.Notification
	require.NoError(t, db.Where("type_id = ?", models.NotificationLike).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, watcher.ID, rows[0].ReceiverID)

	_, err = svc.ToggleEngagement(fan.ID, post.ID, models.EngagementLike, false)
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Where("type_id = ?", models.NotificationLike).Count(&count).Error)
	assert.Zero(t, count, "unliking withdraws the fan-out")
}

func TestBookmarkIsPrivate(t *testing.T) {
	svc, db := newTestService(t)
	alice := seedUser(t, db, "alice")
	fan := seedUser(t, db, "fan")
	watcher := seedUser(t, db, "watcher")
	require.NoError(t, db.Create(&models.Follow{FollowerID: watcher.ID, FolloweeID: fan.ID}).Error)
	post := seedPost(t, db, alice.ID, "quiet", feedBase())

	_, err := svc.ToggleEngagement(fan.ID, post.ID, models.EngagementBookmark, true)
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	assert.Zero(t, count, "bookmarks never notify anyone")
}

func TestDeletePostVisibility(t *testing.T) {
	svc, db := newTestService(t)
	alice := seedUser(t, db, "alice")
	mallory := seedUser(t, db, "mallory")
	post := seedPost(t, db, alice.ID, "short lived", feedBase())

	err := svc.DeletePost(mallory.ID, post.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err), "someone else's post reads as missing")

	require.NoError(t, svc.DeletePost(alice.ID, post.ID))

	_, err = svc.GetPost(mallory.ID, post.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))

	page, err := svc.GlobalFeed(mallory.ID, 0, ModeOld)
	require.NoError(t, err)
	assert.Empty(t, page.Posts)

	err = svc.DeletePost(alice.ID, post.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err), "double delete is not idempotent success")
}

func TestFollowNotification(t *testing.T) {
	svc, db := newTestService(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	require.NoError(t, db.Create(&models.Follow{FollowerID: alice.ID, FolloweeID: bob.ID}).Error)
	svc.NotifyFollow(alice.ID, bob.ID)

	var rows []models.Notification
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, bob.ID, rows[0].ReceiverID)
	assert.Equal(t, models.NotificationFollow, rows[0].TypeID)
	assert.Nil(t, rows[0].PostID)

	svc.NotifyUnfollow(alice.ID)
	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	assert.Zero(t, count)
}
