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

// ConversationRepository defines the interface for conversation data operations
type ConversationRepository interface {
	CreateConversation(ctx context.Context, conversation *models.Conversation) error
	GetConversationByID(ctx context.Context, id string) (*models.Conversation, error)
	FindByMembers(ctx context.Context, memberA, memberB string) (*models.Conversation, error)
	ListByMember(ctx context.Context, userID string) ([]models.Conversation, error)
	DeleteConversation(ctx context.Context, id string) error
	SetLastMessage(ctx context.Context, id string, messageID *primitive.ObjectID, text string, at *time.Time) error
	IncrementUnread(ctx context.Context, id string, memberIDs []string) error
	ResetUnread(ctx context.Context, id, userID string) error
}

// MongoConversationRepository implements ConversationRepository for MongoDB
type MongoConversationRepository struct {
	collection *mongo.Collection
}

// NewMongoConversationRepository creates a new MongoConversationRepository
func NewMongoConversationRepository(db *mongo.Database) *MongoConversationRepository {
	return &MongoConversationRepository{collection: db.Collection("conversations")}
}

// CreateConversation creates a new conversation with zeroed unread counters
func (r *MongoConversationRepository) CreateConversation(ctx context.Context, conversation *models.Conversation) error {
	conversation.ID = primitive.NewObjectID()
	conversation.CreatedAt = time.Now()
	conversation.UpdatedAt = time.Now()
	if conversation.UnreadCount == nil {
		conversation.UnreadCount = make(map[string]int, len(conversation.Members))
	}
	for _, m := range conversation.Members {
		if _, ok := conversation.UnreadCount[m.Hex()]; !ok {
			conversation.UnreadCount[m.Hex()] = 0
		}
	}
	_, err := r.collection.InsertOne(ctx, conversation)
	return err
}

// GetConversationByID retrieves a conversation by ID
func (r *MongoConversationRepository) GetConversationByID(ctx context.Context, id string) (*models.Conversation, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid conversation ID format: %w", apperr.ErrInvalidInput)
	}

	var conversation models.Conversation
	err = r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&conversation)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("conversation: %w", apperr.ErrNotFound)
		}
		return nil, err
	}
	return &conversation, nil
}

// FindByMembers retrieves the conversation holding exactly this member pair
func (r *MongoConversationRepository) FindByMembers(ctx context.Context, memberA, memberB string) (*models.Conversation, error) {
	idA, err := primitive.ObjectIDFromHex(memberA)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID format: %w", apperr.ErrInvalidInput)
	}
	idB, err := primitive.ObjectIDFromHex(memberB)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID format: %w", apperr.ErrInvalidInput)
	}

	var conversation models.Conversation
	err = r.collection.FindOne(ctx, bson.M{"members": bson.M{"$all": []primitive.ObjectID{idA, idB}}}).Decode(&conversation)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("conversation: %w", apperr.ErrNotFound)
		}
		return nil, err
	}
	return &conversation, nil
}

// ListByMember retrieves a user's conversations, most recently active first
func (r *MongoConversationRepository) ListByMember(ctx context.Context, userID string) ([]models.Conversation, error) {
	objID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID format: %w", apperr.ErrInvalidInput)
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "last_message_at", Value: -1}, {Key: "updated_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"members": objID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var conversations []models.Conversation
	if err = cursor.All(ctx, &conversations); err != nil {
		return nil, err
	}
	return conversations, nil
}

// DeleteConversation deletes a conversation by ID
func (r *MongoConversationRepository) DeleteConversation(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid conversation ID format: %w", apperr.ErrInvalidInput)
	}

	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("conversation: %w", apperr.ErrNotFound)
	}
	return nil
}

// SetLastMessage updates the last-message pointer. A nil messageID clears it.
func (r *MongoConversationRepository) SetLastMessage(ctx context.Context, id string, messageID *primitive.ObjectID, text string, at *time.Time) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid conversation ID format: %w", apperr.ErrInvalidInput)
	}

	update := bson.M{
		"$set": bson.M{
			"last_message_id":   messageID,
			"last_message_text": text,
			"last_message_at":   at,
			"updated_at":        time.Now(),
		},
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("conversation: %w", apperr.ErrNotFound)
	}
	return nil
}

// IncrementUnread bumps the unread counter for each of the given members
func (r *MongoConversationRepository) IncrementUnread(ctx context.Context, id string, memberIDs []string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid conversation ID format: %w", apperr.ErrInvalidInput)
	}
	if len(memberIDs) == 0 {
		return nil
	}

	inc := bson.M{}
	for _, m := range memberIDs {
		inc["unread_count."+m] = 1
	}
	update := bson.M{
		"$inc": inc,
		"$set": bson.M{"updated_at": time.Now()},
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("conversation: %w", apperr.ErrNotFound)
	}
	return nil
}

// ResetUnread zeroes the unread counter for one member
func (r *MongoConversationRepository) ResetUnread(ctx context.Context, id, userID string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid conversation ID format: %w", apperr.ErrInvalidInput)
	}

	update := bson.M{
		"$set": bson.M{
			"unread_count." + userID: 0,
			"updated_at":             time.Now(),
		},
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("conversation: %w", apperr.ErrNotFound)
	}
	return nil
}
