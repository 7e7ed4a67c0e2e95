package models

// PostStats carries the aggregate counts computed at query time for one
// post. Counts are never denormalized onto the post row.
type PostStats struct {
	LikesCount   int64 `json:"likes_count"`
	RepostsCount int64 `json:"reposts_count"`
	RepliesCount int64 `json:"replies_count"`
}

// PostRelationship carries the viewer-specific existence flags for one post.
type PostRelationship struct {
	ViewerHasLiked      bool `json:"viewer_has_liked"`
	ViewerHasReposted   bool `json:"viewer_has_reposted"`
	ViewerHasBookmarked bool `json:"viewer_has_bookmarked"`
}
