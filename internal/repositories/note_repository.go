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

// NoteRepository defines the interface for note data operations
type NoteRepository interface {
	CreateNote(ctx context.Context, note *models.Note) error
	GetNoteByID(ctx context.Context, id string) (*models.Note, error)
	DeleteNote(ctx context.Context, id string) error
	DeleteAllForUser(ctx context.Context, userID string) error
	ListActiveForUsers(ctx context.Context, userIDs []primitive.ObjectID, now time.Time) ([]models.Note, error)
}

// MongoNoteRepository implements NoteRepository for MongoDB
type MongoNoteRepository struct {
	collection *mongo.Collection
}

// NewMongoNoteRepository creates a new MongoNoteRepository
func NewMongoNoteRepository(db *mongo.Database) *MongoNoteRepository {
	return &MongoNoteRepository{collection: db.Collection("notes")}
}

// CreateNote creates a new note
func (r *MongoNoteRepository) CreateNote(ctx context.Context, note *models.Note) error {
	note.ID = primitive.NewObjectID()
	note.CreatedAt = time.Now()
	note.UpdatedAt = time.Now()
	_, err := r.collection.InsertOne(ctx, note)
	return err
}

// GetNoteByID retrieves a note by ID
func (r *MongoNoteRepository) GetNoteByID(ctx context.Context, id string) (*models.Note, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid note ID format: %w", apperr.ErrInvalidInput)
	}

	var note models.Note
	err = r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&note)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("note: %w", apperr.ErrNotFound)
		}
		return nil, err
	}
	return &note, nil
}

// DeleteNote deletes a note by ID
func (r *MongoNoteRepository) DeleteNote(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid note ID format: %w", apperr.ErrInvalidInput)
	}

	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("note: %w", apperr.ErrNotFound)
	}
	return nil
}

// DeleteAllForUser removes every note a user has. Keeps the one-note-per-user
// rule when a new note is posted.
func (r *MongoNoteRepository) DeleteAllForUser(ctx context.Context, userID string) error {
	objID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return fmt.Errorf("invalid user ID format: %w", apperr.ErrInvalidInput)
	}

	_, err = r.collection.DeleteMany(ctx, bson.M{"user_id": objID})
	return err
}

// ListActiveForUsers retrieves unexpired notes for a set of users, newest first
func (r *MongoNoteRepository) ListActiveForUsers(ctx context.Context, userIDs []primitive.ObjectID, now time.Time) ([]models.Note, error) {
	if len(userIDs) == 0 {
		return []models.Note{}, nil
	}

	filter := bson.M{
		"user_id":    bson.M{"$in": userIDs},
		"expires_at": bson.M{"$gt": now},
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var notes []models.Note
	if err = cursor.All(ctx, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}
