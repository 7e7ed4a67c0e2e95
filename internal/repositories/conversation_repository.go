package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/driftline/driftline-backend/internal/apperr"
	"github.com/driftline/driftline-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConversationRepository defines the interface for direct-message
// storage. Message cursors are ObjectIDs, which sort by insertion.
type ConversationRepository interface {
	GetOrCreateConversation(ctx context.Context, a, b uint) (*models.Conversation, error)
	GetConversationByID(ctx context.Context, id string) (*models.Conversation, error)
	ListConversations(ctx context.Context, userID uint) ([]models.Conversation, error)
	HideConversation(ctx context.Context, id string, userID uint) error
	CreateMessage(ctx context.Context, message *models.Message) error
	FindMessagePage(ctx context.Context, conversationID primitive.ObjectID, cursor string, limit int) ([]models.Message, bool, error)
	MarkMessagesRead(ctx context.Context, conversationID primitive.ObjectID, readerID uint) error
}

// MongoConversationRepository implements ConversationRepository for MongoDB
type MongoConversationRepository struct {
	conversations *mongo.Collection
	messages      *mongo.Collection
}

// NewMongoConversationRepository creates a new MongoConversationRepository
func NewMongoConversationRepository(db *mongo.Database) *MongoConversationRepository {
	return &MongoConversationRepository{
		conversations: db.Collection("conversations"),
		messages:      db.Collection("messages"),
	}
}

// GetOrCreateConversation finds the conversation between a and b,
// creating it when none exists. Sending into a conversation a party had
// hidden un-hides it for both.
func (r *MongoConversationRepository) GetOrCreateConversation(ctx context.Context, a, b uint) (*models.Conversation, error) {
	filter := bson.M{"participants.user_id": bson.M{"$all": bson.A{a, b}}}

	var conv models.Conversation
	err := r.conversations.FindOne(ctx, filter).Decode(&conv)
	if err == nil {
		_, uerr := r.conversations.UpdateOne(ctx, bson.M{"_id": conv.ID},
			bson.M{"$set": bson.M{"participants.$[].is_deleted": false}})
		if uerr != nil {
			return nil, apperr.Internal(uerr)
		}
		return &conv, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.Internal(err)
	}

	conv = models.Conversation{
		ID: primitive.NewObjectID(),
		Participants: []models.Participant{
			{UserID: a},
			{UserID: b},
		},
		CreatedAt: time.Now(),
	}
	if _, err := r.conversations.InsertOne(ctx, conv); err != nil {
		return nil, apperr.Internal(err)
	}
	return &conv, nil
}

// GetConversationByID retrieves a conversation by its hex id
func (r *MongoConversationRepository) GetConversationByID(ctx context.Context, id string) (*models.Conversation, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperr.NotFound("conversation not found")
	}
	var conv models.Conversation
	err = r.conversations.FindOne(ctx, bson.M{"_id": objID}).Decode(&conv)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("conversation not found")
		}
		return nil, apperr.Internal(err)
	}
	return &conv, nil
}

// ListConversations returns the user's conversations, newest first,
// skipping ones the user has hidden.
func (r *MongoConversationRepository) ListConversations(ctx context.Context, userID uint) ([]models.Conversation, error) {
	filter := bson.M{
		"participants": bson.M{"$elemMatch": bson.M{"user_id": userID, "is_deleted": false}},
	}
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: -1}})
	cursor, err := r.conversations.Find(ctx, filter, opts)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer cursor.Close(ctx)

	var conversations []models.Conversation
	if err := cursor.All(ctx, &conversations); err != nil {
		return nil, apperr.Internal(err)
	}
	return conversations, nil
}

// HideConversation soft-deletes the conversation for one participant only
func (r *MongoConversationRepository) HideConversation(ctx context.Context, id string, userID uint) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperr.NotFound("conversation not found")
	}
	res, err := r.conversations.UpdateOne(ctx,
		bson.M{"_id": objID, "participants.user_id": userID},
		bson.M{"$set": bson.M{"participants.$.is_deleted": true}})
	if err != nil {
		return apperr.Internal(err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("conversation not found")
	}
	return nil
}

// CreateMessage inserts a new message
func (r *MongoConversationRepository) CreateMessage(ctx context.Context, message *models.Message) error {
	message.ID = primitive.NewObjectID()
	message.CreatedAt = time.Now()
	if _, err := r.messages.InsertOne(ctx, message); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// FindMessagePage returns the next page of messages, newest first. The
// cursor is the hex id of the last message of the previous page; the
// boundary probe is the conversation's first message.
func (r *MongoConversationRepository) FindMessagePage(ctx context.Context, conversationID primitive.ObjectID, cursor string, limit int) ([]models.Message, bool, error) {
	filter := bson.M{"conversation_id": conversationID}

	var oldest models.Message
	err := r.messages.FindOne(ctx, filter,
		options.FindOne().SetSort(bson.D{{Key: "_id", Value: 1}})).Decode(&oldest)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return []models.Message{}, true, nil
	}
	if err != nil {
		return nil, false, apperr.Internal(err)
	}

	if cursor != "" {
		cursorID, cerr := primitive.ObjectIDFromHex(cursor)
		if cerr != nil {
			return nil, false, apperr.Validation("cursor", "malformed cursor")
		}
		if cursorID == oldest.ID {
			return []models.Message{}, true, nil
		}
		filter["_id"] = bson.M{"$lt": cursorID}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := r.messages.Find(ctx, filter, opts)
	if err != nil {
		return nil, false, apperr.Internal(err)
	}
	defer cur.Close(ctx)

	var messages []models.Message
	if err := cur.All(ctx, &messages); err != nil {
		return nil, false, apperr.Internal(err)
	}

	end := len(messages) == 0 || messages[len(messages)-1].ID == oldest.ID
	return messages, end, nil
}

// MarkMessagesRead marks the other party's unread messages read. The
// boundary is the first currently-unread message; everything from the
// other party at or after it flips to read. With no unread message left
// the unconditional update is a no-op, so re-marking never errors.
func (r *MongoConversationRepository) MarkMessagesRead(ctx context.Context, conversationID primitive.ObjectID, readerID uint) error {
	unreadFilter := bson.M{
		"conversation_id": conversationID,
		"sender_id":       bson.M{"$ne": readerID},
		"read_status":     false,
	}

	var firstUnread models.Message
	err := r.messages.FindOne(ctx, unreadFilter,
		options.FindOne().SetSort(bson.D{{Key: "created_at", Value: 1}})).Decode(&firstUnread)

	update := bson.M{"$set": bson.M{"read_status": true}}
	switch {
	case err == nil:
		_, uerr := r.messages.UpdateMany(ctx, bson.M{
			"conversation_id": conversationID,
			"sender_id":       bson.M{"$ne": readerID},
			"created_at":      bson.M{"$gte": firstUnread.CreatedAt},
		}, update)
		if uerr != nil {
			return apperr.Internal(uerr)
		}
	case errors.Is(err, mongo.ErrNoDocuments):
		_, uerr := r.messages.UpdateMany(ctx, bson.M{
			"conversation_id": conversationID,
			"sender_id":       bson.M{"$ne": readerID},
		}, update)
		if uerr != nil {
			return apperr.Internal(uerr)
		}
	default:
		return apperr.Internal(err)
	}
	return nil
}
