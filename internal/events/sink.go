package events

import "log"

// Sink receives outbound realtime signals. Delivery is best-effort by
// design: methods return nothing and implementations must never block
// request handling or surface failures to the caller.
type Sink interface {
	NewGlobalPost(postID uint)
	NewFollowedPost(authorID uint, followerIDs []uint, postID uint)
	NotificationCreated(receiverID uint)
	MessageReceived(conversationID string, receiverID uint)
}

// LogSink logs each signal. It stands in for the socket gateway in
// environments without one.
type LogSink struct{}

// NewLogSink creates a new LogSink
func NewLogSink() *LogSink { return &LogSink{} }

func (s *LogSink) NewGlobalPost(postID uint) {
	log.Printf("event: new global post %d", postID)
}

func (s *LogSink) NewFollowedPost(authorID uint, followerIDs []uint, postID uint) {
	log.Printf("event: new post %d from followed author %d to %d followers", postID, authorID, len(followerIDs))
}

func (s *LogSink) NotificationCreated(receiverID uint) {
	log.Printf("event: new notification for user %d", receiverID)
}

func (s *LogSink) MessageReceived(conversationID string, receiverID uint) {
	log.Printf("event: message received in conversation %s for user %d", conversationID, receiverID)
}

// NopSink discards every signal. Used in tests.
type NopSink struct{}

func (NopSink) NewGlobalPost(uint)                 {}
func (NopSink) NewFollowedPost(uint, []uint, uint) {}
func (NopSink) NotificationCreated(uint)           {}
func (NopSink) MessageReceived(string, uint)       {}
