package feed

import (
	"log"

	"github.com/driftline/driftline-backend/internal/models"
)

// Fan-out is a best-effort side effect: it is not transactional with
// the triggering write and its failures are logged, never propagated.
// A short staleness window between action and notification rows is
// accepted behavior.

// fanOut bulk-inserts one notification per eligible follower of the
// actor and signals each receiver.
func (s *Service) fanOut(typeID models.NotificationType, actorID uint, postID *uint, extraReceivers ...uint) {
	targets, err := s.follows.FanoutTargets(actorID)
	if err != nil {
		log.Printf("fan-out: resolving targets for user %d: %v", actorID, err)
		return
	}
	targets = append(targets, extraReceivers...)

	rows := make([]models.Notification, 0, len(targets))
	seen := make(map[uint]bool, len(targets))
	for _, receiverID := range targets {
		if receiverID == actorID || seen[receiverID] {
			continue
		}
		seen[receiverID] = true
		rows = append(rows, models.Notification{
			TypeID:     typeID,
			PostID:     postID,
			NotifierID: actorID,
			ReceiverID: receiverID,
		})
	}
	if err := s.notifications.CreateBatch(rows); err != nil {
		log.Printf("fan-out: inserting %d notifications for user %d: %v", len(rows), actorID, err)
		return
	}
	for _, row := range rows {
		s.sink.NotificationCreated(row.ReceiverID)
	}
}

// fanOutDelete removes the rows the inverse action invalidates.
func (s *Service) fanOutDelete(typeID models.NotificationType, actorID uint, postID *uint) {
	if err := s.notifications.DeleteMatching(typeID, postID, actorID); err != nil {
		log.Printf("fan-out: deleting notifications of type %d for user %d: %v", typeID, actorID, err)
	}
}

func (s *Service) notifyPostCreated(authorID, postID uint) {
	s.fanOut(models.NotificationPost, authorID, &postID)
	s.sink.NewGlobalPost(postID)
	if followerIDs, err := s.follows.FanoutTargets(authorID); err == nil {
		s.sink.NewFollowedPost(authorID, followerIDs, postID)
	}
}

// notifyReplyCreated fans the reply out to the author's followers and
// additionally notifies the parent post's author.
func (s *Service) notifyReplyCreated(authorID, postID, parentAuthorID uint) {
	if parentAuthorID != 0 && parentAuthorID != authorID {
		s.fanOut(models.NotificationReply, authorID, &postID, parentAuthorID)
	} else {
		s.fanOut(models.NotificationReply, authorID, &postID)
	}
}

func (s *Service) notifyPostDeleted(authorID, postID uint, isReply bool) {
	typeID := models.NotificationPost
	if isReply {
		typeID = models.NotificationReply
	}
	s.fanOutDelete(typeID, authorID, &postID)
}

// notifyEngagement fans out likes and reposts. Bookmarks are private
// and produce no notifications.
func (s *Service) notifyEngagement(kind models.EngagementKind, actorID, postID uint) {
	switch kind {
	case models.EngagementLike:
		s.fanOut(models.NotificationLike, actorID, &postID)
	case models.EngagementRepost:
		s.fanOut(models.NotificationRepost, actorID, &postID)
	}
}

func (s *Service) notifyEngagementRemoved(kind models.EngagementKind, actorID, postID uint) {
	switch kind {
	case models.EngagementLike:
		s.fanOutDelete(models.NotificationLike, actorID, &postID)
	case models.EngagementRepost:
		s.fanOutDelete(models.NotificationRepost, actorID, &postID)
	}
}

// NotifyFollow fans a new follow out to the actor's eligible followers
// and notifies the followee directly.
func (s *Service) NotifyFollow(actorID, followeeID uint) {
	s.fanOut(models.NotificationFollow, actorID, nil, followeeID)
}

// NotifyUnfollow removes every notification row the follow produced.
func (s *Service) NotifyUnfollow(actorID uint) {
	s.fanOutDelete(models.NotificationFollow, actorID, nil)
}
