package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Participant is one side of a conversation. IsDeleted hides the
// conversation for that user only; the other side keeps it.
type Participant struct {
	UserID    uint `json:"user_id" bson:"user_id"`
	IsDeleted bool `json:"is_deleted" bson:"is_deleted"`
}

// Conversation is a two-party DM thread stored in MongoDB.
type Conversation struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Participants []Participant      `json:"participants" bson:"participants"`
	CreatedAt    time.Time          `json:"created_at" bson:"created_at"`
}

// OtherParticipant returns the participant that is not userID.
func (c *Conversation) OtherParticipant(userID uint) (Participant, bool) {
	for _, p := range c.Participants {
		if p.UserID != userID {
			return p, true
		}
	}
	return Participant{}, false
}

// HasParticipant reports whether userID belongs to the conversation.
func (c *Conversation) HasParticipant(userID uint) bool {
	for _, p := range c.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// Message is one DM stored in MongoDB. ReadStatus only ever moves
// false -> true, and only for the receiver's copy of the thread.
type Message struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ConversationID primitive.ObjectID `json:"conversation_id" bson:"conversation_id"`
	SenderID       uint               `json:"sender_id" bson:"sender_id"`
	ReceiverID     uint               `json:"receiver_id" bson:"receiver_id"`
	Content        string             `json:"content" bson:"content"`
	ReadStatus     bool               `json:"read_status" bson:"read_status"`
	CreatedAt      time.Time          `json:"created_at" bson:"created_at"`
}

// CreateConversationRequest defines the request body for opening a conversation
type CreateConversationRequest struct {
	UserID uint `json:"user_id" validate:"required"`
}

// CreateMessageRequest defines the request body for sending a message
type CreateMessageRequest struct {
	Content string `json:"content" validate:"required,min=1,max=1000"`
}
