package feed

import (
	"time"

	"github.com/driftline/driftline-backend/internal/apperr"
	"github.com/driftline/driftline-backend/internal/events"
	"github.com/driftline/driftline-backend/internal/models"
	"github.com/driftline/driftline-backend/internal/repositories"
)

// Page sizes are fixed per feed type. Cursors are only comparable
// against pages of the same feed, so the sizes are not configurable.
const (
	GlobalPageSize    = 25
	FollowingPageSize = 25
	ProfilePageSize   = 10
	SearchPageSize    = 20
	RepliesPageSize   = 10
	BookmarksPageSize = 10
	TopPostsCount     = 30

	globalWindowDays = 30
)

// Mode selects the traversal direction of a feed request.
type Mode string

const (
	// ModeOld pages backwards from the cursor and reports end-of-stream.
	ModeOld Mode = "old"
	// ModeNew returns posts newer than the cursor row, capped at one
	// page, with no end flag. Callers poll again later.
	ModeNew Mode = "new"
)

// ProfileTab selects which listing of a profile is requested.
type ProfileTab string

const (
	TabPosts   ProfileTab = "posts"
	TabReposts ProfileTab = "reposts"
	TabReplies ProfileTab = "replies"
	TabMedia   ProfileTab = "media"
)

// PostView is one feed row: the post plus its author, per-viewer
// relationship flags and query-time aggregate counts.
type PostView struct {
	models.Post
	Author       models.UserCompact      `json:"author"`
	Stats        models.PostStats        `json:"stats"`
	Relationship models.PostRelationship `json:"relationship"`
	ReplyTo      *PostView               `json:"reply_to,omitempty"`
}

// Page is one page of feed results. End is nil in new-since mode,
// which has no end-of-stream notion.
type Page struct {
	Posts []PostView `json:"posts"`
	End   *bool      `json:"end,omitempty"`
}

func endFlag(end bool) *bool { return &end }

// Service assembles feeds: it picks the query strategy per feed type,
// runs cursor pagination against the store, and enriches the rows.
type Service struct {
	posts         repositories.PostRepository
	users         repositories.UserRepository
	engagements   repositories.EngagementRepository
	follows       repositories.FollowRepository
	blocks        repositories.BlockRepository
	notifications repositories.NotificationRepository
	sink          events.Sink
}

// NewService creates a new feed Service
func NewService(
	posts repositories.PostRepository,
	users repositories.UserRepository,
	engagements repositories.EngagementRepository,
	follows repositories.FollowRepository,
	blocks repositories.BlockRepository,
	notifications repositories.NotificationRepository,
	sink events.Sink,
) *Service {
	return &Service{
		posts:         posts,
		users:         users,
		engagements:   engagements,
		follows:       follows,
		blocks:        blocks,
		notifications: notifications,
		sink:          sink,
	}
}

func globalWindow() time.Time {
	return time.Now().AddDate(0, 0, -globalWindowDays)
}

// GlobalFeed returns the chronological feed of all visible root posts
// from the last 30 days.
func (s *Service) GlobalFeed(viewerID, cursorID uint, mode Mode) (*Page, error) {
	f := repositories.PostFilter{
		ViewerID:  viewerID,
		OnlyRoots: true,
		Since:     globalWindow(),
	}
	if mode == ModeNew {
		return s.newSince(viewerID, f, cursorID, GlobalPageSize)
	}
	return s.chronoPage(viewerID, f, cursorID, GlobalPageSize)
}

// FollowingFeed is the global feed restricted to followed authors.
func (s *Service) FollowingFeed(viewerID, cursorID uint, mode Mode) (*Page, error) {
	f := repositories.PostFilter{
		ViewerID:   viewerID,
		OnlyRoots:  true,
		FollowedBy: viewerID,
		Since:      globalWindow(),
	}
	if mode == ModeNew {
		return s.newSince(viewerID, f, cursorID, FollowingPageSize)
	}
	return s.chronoPage(viewerID, f, cursorID, FollowingPageSize)
}

// ProfileFeed returns one tab of a profile's listings. A blocked
// viewer gets the same answer as for a missing profile.
func (s *Service) ProfileFeed(viewerID uint, username string, tab ProfileTab, cursorID uint) (*Page, error) {
	owner, err := s.users.GetUserByUsername(username)
	if err != nil {
		return nil, err
	}
	if viewerID != owner.ID {
		blocked, berr := s.blocks.IsBlockedEither(viewerID, owner.ID)
		if berr != nil {
			return nil, berr
		}
		if blocked {
			return nil, apperr.Blocked()
		}
	}

	switch tab {
	case TabPosts:
		// The owner's repost of their own post lives in the reposts
		// tab; excluding it here keeps it from appearing twice.
		f := repositories.PostFilter{
			ViewerID:      viewerID,
			AuthorID:      owner.ID,
			OnlyRoots:     true,
			NotRepostedBy: owner.ID,
		}
		return s.chronoPage(viewerID, f, cursorID, ProfilePageSize)
	case TabReposts:
		f := repositories.PostFilter{
			ViewerID:   viewerID,
			RepostedBy: owner.ID,
		}
		return s.page(viewerID, f, repositories.OrderRepostChrono, cursorID, ProfilePageSize, true)
	case TabReplies:
		f := repositories.PostFilter{
			ViewerID:        viewerID,
			AuthorID:        owner.ID,
			OnlyReplies:     true,
			ParentVisibleTo: viewerID,
		}
		return s.page(viewerID, f, repositories.OrderChrono, cursorID, ProfilePageSize, true)
	case TabMedia:
		f := repositories.PostFilter{
			ViewerID:   viewerID,
			AuthorID:   owner.ID,
			OnlyRoots:  true,
			WithImages: true,
		}
		return s.chronoPage(viewerID, f, cursorID, ProfilePageSize)
	default:
		return nil, apperr.Validation("tab", "unknown profile tab")
	}
}

// Replies returns a post's replies under engagement ranking,
// most-engaged first.
func (s *Service) Replies(viewerID, postID, cursorID uint) (*Page, error) {
	if _, err := s.visiblePost(viewerID, postID); err != nil {
		return nil, err
	}
	f := repositories.PostFilter{
		ViewerID:  viewerID,
		ReplyToID: postID,
	}
	return s.page(viewerID, f, repositories.OrderEngagementDesc, cursorID, RepliesPageSize, false)
}

// Bookmarks returns the viewer's bookmarked posts, newest bookmark first.
func (s *Service) Bookmarks(viewerID, cursorID uint) (*Page, error) {
	f := repositories.PostFilter{
		ViewerID:     viewerID,
		BookmarkedBy: viewerID,
	}
	return s.page(viewerID, f, repositories.OrderBookmarkChrono, cursorID, BookmarksPageSize, true)
}

// SearchPosts pages matching posts in ascending engagement order — the
// broad-match explore ordering, deliberately distinct from the
// descending order TopPosts uses.
func (s *Service) SearchPosts(viewerID uint, query string, cursorID uint) (*Page, error) {
	terms, err := ExtractSearchTerms(query)
	if err != nil {
		return nil, err
	}
	contentTerms := terms.ContentTerms()
	if len(contentTerms) == 0 {
		return &Page{Posts: []PostView{}, End: endFlag(true)}, nil
	}
	f := repositories.PostFilter{
		ViewerID:    viewerID,
		ContainsAny: contentTerms,
	}
	return s.page(viewerID, f, repositories.OrderEngagementAsc, cursorID, SearchPageSize, false)
}

// SearchUsers finds visible users matching the query's terms.
func (s *Service) SearchUsers(viewerID uint, query string) ([]models.UserCompact, error) {
	terms, err := ExtractSearchTerms(query)
	if err != nil {
		return nil, err
	}
	seen := make(map[uint]bool)
	var out []models.UserCompact
	lookups := append(append([]string{}, terms.Usernames...), terms.StringSegments...)
	for _, term := range lookups {
		users, serr := s.users.SearchUsers(viewerID, term, SearchPageSize)
		if serr != nil {
			return nil, serr
		}
		for _, u := range users {
			if !seen[u.ID] {
				seen[u.ID] = true
				out = append(out, u)
			}
		}
	}
	if out == nil {
		out = []models.UserCompact{}
	}
	return out, nil
}

// TopPosts returns exactly TopPostsCount most-engaged visible root
// posts, widening the time window (30, 60, 120... days, doubling)
// until the page fills or the store holds nothing more. The loop
// trades a handful of bounded queries for one unbounded one.
func (s *Service) TopPosts(viewerID uint) ([]PostView, error) {
	f := repositories.PostFilter{
		ViewerID:  viewerID,
		OnlyRoots: true,
	}
	total, err := s.posts.CountMatching(f)
	if err != nil {
		return nil, err
	}

	var rows []models.Post
	for window := globalWindowDays; ; window *= 2 {
		f.Since = time.Now().AddDate(0, 0, -window)
		rows, err = s.posts.FindPage(f, repositories.OrderEngagementDesc, 0, TopPostsCount)
		if err != nil {
			return nil, err
		}
		if len(rows) == TopPostsCount || int64(len(rows)) >= total {
			break
		}
	}
	return s.enrich(viewerID, rows, false)
}

// GetPost returns a single visible, non-deleted post view.
func (s *Service) GetPost(viewerID, postID uint) (*PostView, error) {
	post, err := s.visiblePost(viewerID, postID)
	if err != nil {
		return nil, err
	}
	views, err := s.enrich(viewerID, []models.Post{*post}, true)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// CreatePost stores a new post or reply and triggers fan-out and the
// realtime signals for it.
func (s *Service) CreatePost(authorID uint, content string, imageURLs []string, replyToID uint) (*PostView, error) {
	post := models.Post{
		AuthorID: authorID,
		Content:  &content,
	}
	for i, url := range imageURLs {
		post.Images = append(post.Images, models.PostImage{Position: i, URL: url})
	}

	var parentAuthorID uint
	if replyToID != 0 {
		parent, err := s.visiblePost(authorID, replyToID)
		if err != nil {
			return nil, err
		}
		parentAuthorID = parent.AuthorID
		post.ReplyToID = &replyToID
	}

	if err := s.posts.CreatePost(&post); err != nil {
		return nil, err
	}

	if replyToID != 0 {
		s.notifyReplyCreated(authorID, post.ID, parentAuthorID)
	} else {
		s.notifyPostCreated(authorID, post.ID)
	}

	views, err := s.enrich(authorID, []models.Post{post}, true)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// DeletePost soft-deletes the author's own post and removes the
// notifications its creation fanned out.
func (s *Service) DeletePost(viewerID, postID uint) error {
	post, err := s.posts.GetPostByID(postID)
	if err != nil {
		return err
	}
	if post.IsDeleted || post.AuthorID != viewerID {
		return apperr.NotFound("post not found")
	}
	if err := s.posts.SoftDeletePost(postID); err != nil {
		return err
	}
	s.notifyPostDeleted(viewerID, postID, post.ReplyToID != nil)
	return nil
}

// ToggleEngagement adds or removes one like/repost/bookmark edge.
// The existence and block checks run before the insert as separate
// queries; a post deleted in between slips through. Known limitation,
// consistent with the rest of the design.
func (s *Service) ToggleEngagement(viewerID, postID uint, kind models.EngagementKind, add bool) (*repositories.EngagementEdge, error) {
	if !kind.Valid() {
		return nil, apperr.Validation("kind", "unknown engagement kind")
	}
	if _, err := s.visiblePost(viewerID, postID); err != nil {
		return nil, err
	}

	if add {
		edge, err := s.engagements.CreateEdge(kind, viewerID, postID)
		if err != nil {
			return nil, err
		}
		s.notifyEngagement(kind, viewerID, postID)
		return edge, nil
	}

	if err := s.engagements.DeleteEdge(kind, viewerID, postID); err != nil {
		return nil, err
	}
	s.notifyEngagementRemoved(kind, viewerID, postID)
	return nil, nil
}

// visiblePost loads a post and rejects deleted or blocked ones. A
// block in either direction answers exactly like a missing post.
func (s *Service) visiblePost(viewerID, postID uint) (*models.Post, error) {
	post, err := s.posts.GetPostByID(postID)
	if err != nil {
		return nil, err
	}
	if post.IsDeleted {
		return nil, apperr.NotFound("post not found")
	}
	if viewerID != 0 && viewerID != post.AuthorID {
		blocked, berr := s.blocks.IsBlockedEither(viewerID, post.AuthorID)
		if berr != nil {
			return nil, berr
		}
		if blocked {
			return nil, apperr.Blocked()
		}
	}
	return post, nil
}

// chronoPage pages a chronological feed with reply context disabled.
func (s *Service) chronoPage(viewerID uint, f repositories.PostFilter, cursorID uint, limit int) (*Page, error) {
	return s.page(viewerID, f, repositories.OrderChrono, cursorID, limit, false)
}

// page runs one cursor-paginated read: boundary probe first, then the
// page itself, then the end comparison against the boundary row.
func (s *Service) page(viewerID uint, f repositories.PostFilter, order repositories.PostOrder, cursorID uint, limit int, withParents bool) (*Page, error) {
	oldest, err := s.posts.FindOldest(f, order)
	if err != nil {
		// An unknown boundary must abort the page, not masquerade as
		// end-of-stream.
		return nil, err
	}
	if oldest == nil {
		return &Page{Posts: []PostView{}, End: endFlag(true)}, nil
	}
	if cursorID != 0 && cursorID == oldest.ID {
		return &Page{Posts: []PostView{}, End: endFlag(true)}, nil
	}

	rows, err := s.posts.FindPage(f, order, cursorID, limit)
	if err != nil {
		return nil, err
	}
	end := len(rows) == 0 || rows[len(rows)-1].ID == oldest.ID

	views, err := s.enrich(viewerID, rows, withParents)
	if err != nil {
		return nil, err
	}
	return &Page{Posts: views, End: endFlag(end)}, nil
}

// newSince returns posts newer than the cursor row. No end flag: the
// caller polls again later.
func (s *Service) newSince(viewerID uint, f repositories.PostFilter, cursorID uint, limit int) (*Page, error) {
	if cursorID == 0 {
		return nil, apperr.Validation("cursor", "cursor is required for type=new")
	}
	rows, err := s.posts.FindNewer(f, cursorID, limit)
	if err != nil {
		return nil, err
	}
	views, err := s.enrich(viewerID, rows, false)
	if err != nil {
		return nil, err
	}
	return &Page{Posts: views}, nil
}

// enrich attaches authors, query-time counts and viewer relationship
// flags to raw post rows, optionally with the parent-post context for
// replies surfaced outside their thread.
func (s *Service) enrich(viewerID uint, rows []models.Post, withParents bool) ([]PostView, error) {
	views := make([]PostView, 0, len(rows))
	if len(rows) == 0 {
		return views, nil
	}

	ids := make([]uint, 0, len(rows))
	var parentIDs []uint
	for i := range rows {
		ids = append(ids, rows[i].ID)
		if withParents && rows[i].ReplyToID != nil {
			parentIDs = append(parentIDs, *rows[i].ReplyToID)
		}
	}

	// Parent context runs through the block predicate like every other
	// read; a hidden parent just leaves ReplyTo unset.
	parents := map[uint]models.Post{}
	if len(parentIDs) > 0 {
		var err error
		parents, err = s.posts.GetPostsByIDs(viewerID, parentIDs)
		if err != nil {
			return nil, err
		}
	}

	allIDs := append(append([]uint{}, ids...), parentIDs...)
	stats, err := s.posts.CountStats(allIDs)
	if err != nil {
		return nil, err
	}
	rels, err := s.engagements.ViewerRelationships(viewerID, allIDs)
	if err != nil {
		return nil, err
	}

	authorIDs := make([]uint, 0, len(rows))
	seen := make(map[uint]bool)
	collectAuthor := func(id uint) {
		if !seen[id] {
			seen[id] = true
			authorIDs = append(authorIDs, id)
		}
	}
	for i := range rows {
		collectAuthor(rows[i].AuthorID)
	}
	for _, p := range parents {
		collectAuthor(p.AuthorID)
	}
	authors, err := s.users.GetCompactByIDs(authorIDs)
	if err != nil {
		return nil, err
	}

	build := func(p models.Post) PostView {
		return PostView{
			Post:         p,
			Author:       authors[p.AuthorID],
			Stats:        stats[p.ID],
			Relationship: rels[p.ID],
		}
	}
	for i := range rows {
		view := build(rows[i])
		if withParents && rows[i].ReplyToID != nil {
			if parent, ok := parents[*rows[i].ReplyToID]; ok {
				parentView := build(parent)
				view.ReplyTo = &parentView
			}
		}
		views = append(views, view)
	}
	return views, nil
}
