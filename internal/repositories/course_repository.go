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

// CourseRepository defines the interface for classroom course data operations
type CourseRepository interface {
	UpsertCourses(ctx context.Context, userID primitive.ObjectID, courses []models.Course) error
	ListForUser(ctx context.Context, userID string) ([]models.Course, error)
}

// MongoCourseRepository implements CourseRepository for MongoDB
type MongoCourseRepository struct {
	collection *mongo.Collection
}

// NewMongoCourseRepository creates a new MongoCourseRepository
func NewMongoCourseRepository(db *mongo.Database) *MongoCourseRepository {
	return &MongoCourseRepository{collection: db.Collection("courses")}
}

// UpsertCourses stores synced courses and adds the syncing user to each
// course's member list
func (r *MongoCourseRepository) UpsertCourses(ctx context.Context, userID primitive.ObjectID, courses []models.Course) error {
	now := time.Now()
	for i := range courses {
		c := &courses[i]
		filter := bson.M{"google_course_id": c.GoogleCourseID}
		update := bson.M{
			"$set": bson.M{
				"name":                c.Name,
				"section":             c.Section,
				"description_heading": c.DescriptionHeading,
				"alternate_link":      c.AlternateLink,
				"owner_id":            c.OwnerID,
				"last_synced_at":      now,
				"updated_at":          now,
			},
			"$addToSet": bson.M{"members": userID},
			"$setOnInsert": bson.M{
				"_id":        primitive.NewObjectID(),
				"created_at": now,
			},
		}
		opts := options.Update().SetUpsert(true)
		if _, err := r.collection.UpdateOne(ctx, filter, update, opts); err != nil {
			return err
		}
	}
	return nil
}

// ListForUser retrieves the courses a user belongs to
func (r *MongoCourseRepository) ListForUser(ctx context.Context, userID string) ([]models.Course, error) {
	objID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID format: %w", apperr.ErrInvalidInput)
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"members": objID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var courses []models.Course
	if err = cursor.All(ctx, &courses); err != nil {
		return nil, err
	}
	return courses, nil
}
