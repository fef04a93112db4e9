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

// PostLikeCount is one post's number of like notifications in a day window
type PostLikeCount struct {
	PostID primitive.ObjectID `bson:"_id"`
	Count  int                `bson:"count"`
}

// NotificationRepository defines the interface for notification data operations
type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification *models.Notification) error
	GetByReceiver(ctx context.Context, receiverID string, limit int64) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, receiverID string) error
	MarkAllRead(ctx context.Context, receiverID string) error
	CountUnread(ctx context.Context, receiverID string) (int64, error)
	AggregateDailyLikes(ctx context.Context, from, to time.Time, limit int64) ([]PostLikeCount, error)
}

// MongoNotificationRepository implements NotificationRepository for MongoDB
type MongoNotificationRepository struct {
	collection *mongo.Collection
}

// NewMongoNotificationRepository creates a new MongoNotificationRepository
func NewMongoNotificationRepository(db *mongo.Database) *MongoNotificationRepository {
	return &MongoNotificationRepository{collection: db.Collection("notifications")}
}

// CreateNotification creates a new notification
func (r *MongoNotificationRepository) CreateNotification(ctx context.Context, notification *models.Notification) error {
	notification.ID = primitive.NewObjectID()
	notification.CreatedAt = time.Now()
	notification.UpdatedAt = time.Now()
	_, err := r.collection.InsertOne(ctx, notification)
	return err
}

// GetByReceiver retrieves a user's notifications, newest first
func (r *MongoNotificationRepository) GetByReceiver(ctx context.Context, receiverID string, limit int64) ([]models.Notification, error) {
	objID, err := primitive.ObjectIDFromHex(receiverID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID format: %w", apperr.ErrInvalidInput)
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)
	cursor, err := r.collection.Find(ctx, bson.M{"receiver": objID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var notifications []models.Notification
	if err = cursor.All(ctx, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkRead flags one notification as read. The receiver filter keeps a user
// from touching somebody else's notification.
func (r *MongoNotificationRepository) MarkRead(ctx context.Context, id, receiverID string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid notification ID format: %w", apperr.ErrInvalidInput)
	}
	receiver, err := primitive.ObjectIDFromHex(receiverID)
	if err != nil {
		return fmt.Errorf("invalid user ID format: %w", apperr.ErrInvalidInput)
	}

	update := bson.M{"$set": bson.M{"is_read": true, "updated_at": time.Now()}}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID, "receiver": receiver}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("notification: %w", apperr.ErrNotFound)
	}
	return nil
}

// MarkAllRead flags all of a user's notifications as read
func (r *MongoNotificationRepository) MarkAllRead(ctx context.Context, receiverID string) error {
	objID, err := primitive.ObjectIDFromHex(receiverID)
	if err != nil {
		return fmt.Errorf("invalid user ID format: %w", apperr.ErrInvalidInput)
	}

	update := bson.M{"$set": bson.M{"is_read": true, "updated_at": time.Now()}}
	_, err = r.collection.UpdateMany(ctx, bson.M{"receiver": objID, "is_read": false}, update)
	return err
}

// CountUnread counts a user's unread notifications
func (r *MongoNotificationRepository) CountUnread(ctx context.Context, receiverID string) (int64, error) {
	objID, err := primitive.ObjectIDFromHex(receiverID)
	if err != nil {
		return 0, fmt.Errorf("invalid user ID format: %w", apperr.ErrInvalidInput)
	}
	return r.collection.CountDocuments(ctx, bson.M{"receiver": objID, "is_read": false})
}

// AggregateDailyLikes counts like notifications per post inside a time
// window, most liked first. Used to rebuild the daily like ranking when the
// cache is cold.
func (r *MongoNotificationRepository) AggregateDailyLikes(ctx context.Context, from, to time.Time, limit int64) ([]PostLikeCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"type":       models.NotificationLike,
			"post_id":    bson.M{"$ne": nil},
			"created_at": bson.M{"$gte": from, "$lt": to},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$post_id",
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.M{"count": -1}}},
		{{Key: "$limit", Value: limit}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []PostLikeCount
	if err = cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}
