package repositories

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hakuasns/backend/internal/apperr"
	"github.com/hakuasns/backend/internal/models"
)

// MessageRepository defines the interface for message data operations
type MessageRepository interface {
	CreateMessage(ctx context.Context, message *models.Message) error
	GetMessageByID(ctx context.Context, id string) (*models.Message, error)
	ListVisible(ctx context.Context, conversationID string) ([]models.Message, error)
	LatestVisible(ctx context.Context, conversationID string) (*models.Message, error)
	EditMessage(ctx context.Context, id, text string, at time.Time) error
	SoftDeleteMessage(ctx context.Context, id string, at time.Time) error
	SoftDeleteByConversation(ctx context.Context, conversationID string, at time.Time) error
	MarkRead(ctx context.Context, id string, at time.Time) error
	MarkAllRead(ctx context.Context, conversationID, readerID string, at time.Time) (int64, error)
}

// MongoMessageRepository implements MessageRepository for MongoDB
type MongoMessageRepository struct {
	collection *mongo.Collection
}

// NewMongoMessageRepository creates a new MongoMessageRepository
func NewMongoMessageRepository(db *mongo.Database) *MongoMessageRepository {
	return &MongoMessageRepository{collection: db.Collection("messages")}
}

// CreateMessage creates a new message
func (r *MongoMessageRepository) CreateMessage(ctx context.Context, message *models.Message) error {
	message.ID = primitive.NewObjectID()
	message.CreatedAt = time.Now()
	message.UpdatedAt = time.Now()
	_, err := r.collection.InsertOne(ctx, message)
	return err
}

// GetMessageByID retrieves a message by ID
func (r *MongoMessageRepository) GetMessageByID(ctx context.Context, id string) (*models.Message, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid message ID format: %w", apperr.ErrInvalidInput)
	}

	var message models.Message
	err = r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&message)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("message: %w", apperr.ErrNotFound)
		}
		return nil, err
	}
	return &message, nil
}

// ListVisible retrieves non-deleted messages of a conversation, oldest first
func (r *MongoMessageRepository) ListVisible(ctx context.Context, conversationID string) ([]models.Message, error) {
	objID, err := primitive.ObjectIDFromHex(conversationID)
	if err != nil {
		return nil, fmt.Errorf("invalid conversation ID format: %w", apperr.ErrInvalidInput)
	}

	filter := bson.M{"conversation_id": objID, "deleted_at": nil}
	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var messages []models.Message
	if err = cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// LatestVisible retrieves the newest non-deleted message of a conversation
func (r *MongoMessageRepository) LatestVisible(ctx context.Context, conversationID string) (*models.Message, error) {
	objID, err := primitive.ObjectIDFromHex(conversationID)
	if err != nil {
		return nil, fmt.Errorf("invalid conversation ID format: %w", apperr.ErrInvalidInput)
	}

	filter := bson.M{"conversation_id": objID, "deleted_at": nil}
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})

	var message models.Message
	err = r.collection.FindOne(ctx, filter, opts).Decode(&message)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("message: %w", apperr.ErrNotFound)
		}
		return nil, err
	}
	return &message, nil
}

// EditMessage replaces a message's text and flags it as edited
func (r *MongoMessageRepository) EditMessage(ctx context.Context, id, text string, at time.Time) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid message ID format: %w", apperr.ErrInvalidInput)
	}

	update := bson.M{
		"$set": bson.M{
			"text":       text,
			"edited":     true,
			"edited_at":  at,
			"updated_at": at,
		},
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID, "deleted_at": nil}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("message: %w", apperr.ErrNotFound)
	}
	return nil
}

// SoftDeleteMessage marks a message deleted without removing the document
func (r *MongoMessageRepository) SoftDeleteMessage(ctx context.Context, id string, at time.Time) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid message ID format: %w", apperr.ErrInvalidInput)
	}

	update := bson.M{"$set": bson.M{"deleted_at": at, "updated_at": at}}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID, "deleted_at": nil}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("message: %w", apperr.ErrNotFound)
	}
	return nil
}

// SoftDeleteByConversation marks every message of a conversation deleted
func (r *MongoMessageRepository) SoftDeleteByConversation(ctx context.Context, conversationID string, at time.Time) error {
	objID, err := primitive.ObjectIDFromHex(conversationID)
	if err != nil {
		return fmt.Errorf("invalid conversation ID format: %w", apperr.ErrInvalidInput)
	}

	update := bson.M{"$set": bson.M{"deleted_at": at, "updated_at": at}}
	_, err = r.collection.UpdateMany(ctx, bson.M{"conversation_id": objID, "deleted_at": nil}, update)
	return err
}

// MarkRead flags one message as read
func (r *MongoMessageRepository) MarkRead(ctx context.Context, id string, at time.Time) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid message ID format: %w", apperr.ErrInvalidInput)
	}

	update := bson.M{"$set": bson.M{"read": true, "read_at": at, "updated_at": at}}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("message: %w", apperr.ErrNotFound)
	}
	return nil
}

// MarkAllRead flags every unread message sent to the reader in one conversation.
// Returns the number of messages updated.
func (r *MongoMessageRepository) MarkAllRead(ctx context.Context, conversationID, readerID string, at time.Time) (int64, error) {
	convID, err := primitive.ObjectIDFromHex(conversationID)
	if err != nil {
		return 0, fmt.Errorf("invalid conversation ID format: %w", apperr.ErrInvalidInput)
	}
	reader, err := primitive.ObjectIDFromHex(readerID)
	if err != nil {
		return 0, fmt.Errorf("invalid user ID format: %w", apperr.ErrInvalidInput)
	}

	filter := bson.M{
		"conversation_id": convID,
		"sender":          bson.M{"$ne": reader},
		"read":            false,
		"deleted_at":      nil,
	}
	update := bson.M{"$set": bson.M{"read": true, "read_at": at, "updated_at": at}}
	res, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
