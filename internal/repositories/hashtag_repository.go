package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hakuasns/backend/internal/models"
)

// HashtagRepository defines the interface for hashtag data operations
type HashtagRepository interface {
	IncrementTag(ctx context.Context, tag, date string) error
	TopForDate(ctx context.Context, date string, limit int64) ([]models.Hashtag, error)
	AggregateSince(ctx context.Context, sinceDate string, limit int64) ([]models.Hashtag, error)
}

// MongoHashtagRepository implements HashtagRepository for MongoDB
type MongoHashtagRepository struct {
	collection *mongo.Collection
}

// NewMongoHashtagRepository creates a new MongoHashtagRepository
func NewMongoHashtagRepository(db *mongo.Database) *MongoHashtagRepository {
	return &MongoHashtagRepository{collection: db.Collection("hashtags")}
}

// IncrementTag bumps the counter for a (tag, date) pair, creating it on first use
func (r *MongoHashtagRepository) IncrementTag(ctx context.Context, tag, date string) error {
	filter := bson.M{"tag": tag, "date": date}
	update := bson.M{
		"$inc": bson.M{"count": 1},
		"$set": bson.M{"updated_at": time.Now()},
		"$setOnInsert": bson.M{
			"created_at": time.Now(),
		},
	}
	opts := options.Update().SetUpsert(true)
	_, err := r.collection.UpdateOne(ctx, filter, update, opts)
	return err
}

// TopForDate retrieves the most used tags for one day
func (r *MongoHashtagRepository) TopForDate(ctx context.Context, date string, limit int64) ([]models.Hashtag, error) {
	findOptions := options.Find().
		SetSort(bson.D{{Key: "count", Value: -1}}).
		SetLimit(limit)
	cursor, err := r.collection.Find(ctx, bson.M{"date": date}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var hashtags []models.Hashtag
	if err = cursor.All(ctx, &hashtags); err != nil {
		return nil, err
	}
	return hashtags, nil
}

// AggregateSince sums tag counts from sinceDate onward, most used first
func (r *MongoHashtagRepository) AggregateSince(ctx context.Context, sinceDate string, limit int64) ([]models.Hashtag, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"date": bson.M{"$gte": sinceDate}}}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$tag",
			"count": bson.M{"$sum": "$count"},
		}}},
		{{Key: "$sort", Value: bson.M{"count": -1}}},
		{{Key: "$limit", Value: limit}},
		{{Key: "$project", Value: bson.M{
			"_id":   0,
			"tag":   "$_id",
			"count": 1,
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var hashtags []models.Hashtag
	if err = cursor.All(ctx, &hashtags); err != nil {
		return nil, err
	}
	return hashtags, nil
}
