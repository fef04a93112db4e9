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

// WeeklyTotal is one user's total study minutes since a week start
type WeeklyTotal struct {
	UserID  primitive.ObjectID `bson:"_id"`
	Minutes int                `bson:"minutes"`
}

// LearningRepository defines the interface for learning session and goal data
type LearningRepository interface {
	FindActiveSession(ctx context.Context, userID string) (*models.LearningSession, error)
	CreateSession(ctx context.Context, session *models.LearningSession) error
	UpdateSession(ctx context.Context, id string, fields bson.M) error
	ListSessions(ctx context.Context, userID string, from, to time.Time, limit int64) ([]models.LearningSession, error)
	SumMinutesSince(ctx context.Context, userID string, since time.Time) (int, error)
	SumMinutesAll(ctx context.Context, userID string) (int, error)
	DailyTotals(ctx context.Context, userID string, since time.Time) ([]models.DailyMinutes, error)
	DistinctDays(ctx context.Context, userID string) ([]string, error)
	AggregateWeeklyTotals(ctx context.Context, weekStart time.Time, limit int64) ([]WeeklyTotal, error)
	UpsertGoal(ctx context.Context, goal *models.LearningGoal) error
	ListGoals(ctx context.Context, userID string) ([]models.LearningGoal, error)
	DeleteGoal(ctx context.Context, id, userID string) error
}

// MongoLearningRepository implements LearningRepository for MongoDB
type MongoLearningRepository struct {
	sessions *mongo.Collection
	goals    *mongo.Collection
}

// NewMongoLearningRepository creates a new MongoLearningRepository
func NewMongoLearningRepository(db *mongo.Database) *MongoLearningRepository {
	return &MongoLearningRepository{
		sessions: db.Collection("learning_sessions"),
		goals:    db.Collection("learning_goals"),
	}
}

// FindActiveSession retrieves a user's running session, if any
func (r *MongoLearningRepository) FindActiveSession(ctx context.Context, userID string) (*models.LearningSession, error) {
	objID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID format: %w", apperr.ErrInvalidInput)
	}

	var session models.LearningSession
	err = r.sessions.FindOne(ctx, bson.M{"user_id": objID, "is_active": true}).Decode(&session)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("learning session: %w", apperr.ErrNotFound)
		}
		return nil, err
	}
	return &session, nil
}

// CreateSession creates a new learning session
func (r *MongoLearningRepository) CreateSession(ctx context.Context, session *models.LearningSession) error {
	session.ID = primitive.NewObjectID()
	session.CreatedAt = time.Now()
	session.UpdatedAt = time.Now()
	_, err := r.sessions.InsertOne(ctx, session)
	return err
}

// UpdateSession updates the given fields on a session
func (r *MongoLearningRepository) UpdateSession(ctx context.Context, id string, fields bson.M) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid session ID format: %w", apperr.ErrInvalidInput)
	}

	fields["updated_at"] = time.Now()
	res, err := r.sessions.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("learning session: %w", apperr.ErrNotFound)
	}
	return nil
}

// ListSessions retrieves a user's sessions, newest first, optionally bounded
// to a start-time range. Zero bounds are open.
func (r *MongoLearningRepository) ListSessions(ctx context.Context, userID string, from, to time.Time, limit int64) ([]models.LearningSession, error) {
	objID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID format: %w", apperr.ErrInvalidInput)
	}

	filter := bson.M{"user_id": objID}
	window := bson.M{}
	if !from.IsZero() {
		window["$gte"] = from
	}
	if !to.IsZero() {
		window["$lt"] = to
	}
	if len(window) > 0 {
		filter["start_time"] = window
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "start_time", Value: -1}}).
		SetLimit(limit)
	cursor, err := r.sessions.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sessions []models.LearningSession
	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *MongoLearningRepository) sumMinutes(ctx context.Context, match bson.M) (int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":     nil,
			"minutes": bson.M{"$sum": "$duration"},
		}}},
	}

	cursor, err := r.sessions.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	var result []struct {
		Minutes int `bson:"minutes"`
	}
	if err = cursor.All(ctx, &result); err != nil {
		return 0, err
	}
	if len(result) == 0 {
		return 0, nil
	}
	return result[0].Minutes, nil
}

// SumMinutesSince totals a user's completed minutes from a point in time
func (r *MongoLearningRepository) SumMinutesSince(ctx context.Context, userID string, since time.Time) (int, error) {
	objID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return 0, fmt.Errorf("invalid user ID format: %w", apperr.ErrInvalidInput)
	}
	return r.sumMinutes(ctx, bson.M{
		"user_id":    objID,
		"is_active":  false,
		"start_time": bson.M{"$gte": since},
	})
}

// SumMinutesAll totals all of a user's completed minutes
func (r *MongoLearningRepository) SumMinutesAll(ctx context.Context, userID string) (int, error) {
	objID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return 0, fmt.Errorf("invalid user ID format: %w", apperr.ErrInvalidInput)
	}
	return r.sumMinutes(ctx, bson.M{"user_id": objID, "is_active": false})
}

// DailyTotals groups a user's completed minutes by calendar day
func (r *MongoLearningRepository) DailyTotals(ctx context.Context, userID string, since time.Time) ([]models.DailyMinutes, error) {
	objID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID format: %w", apperr.ErrInvalidInput)
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"user_id":    objID,
			"is_active":  false,
			"start_time": bson.M{"$gte": since},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{"$dateToString": bson.M{
				"format": "%Y-%m-%d",
				"date":   "$start_time",
			}},
			"total_minutes": bson.M{"$sum": "$duration"},
		}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}

	cursor, err := r.sessions.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var totals []models.DailyMinutes
	if err = cursor.All(ctx, &totals); err != nil {
		return nil, err
	}
	return totals, nil
}

// DistinctDays lists the calendar days on which a user completed a session,
// ascending. Feeds streak calculation.
func (r *MongoLearningRepository) DistinctDays(ctx context.Context, userID string) ([]string, error) {
	objID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID format: %w", apperr.ErrInvalidInput)
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user_id": objID, "is_active": false}}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{"$dateToString": bson.M{
				"format": "%Y-%m-%d",
				"date":   "$start_time",
			}},
		}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}

	cursor, err := r.sessions.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Day string `bson:"_id"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	days := make([]string, 0, len(rows))
	for _, row := range rows {
		days = append(days, row.Day)
	}
	return days, nil
}

// AggregateWeeklyTotals sums completed minutes per user since a week start,
// most minutes first. Used to rebuild the weekly study ranking when the
// cache is cold.
func (r *MongoLearningRepository) AggregateWeeklyTotals(ctx context.Context, weekStart time.Time, limit int64) ([]WeeklyTotal, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"is_active":  false,
			"start_time": bson.M{"$gte": weekStart},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":     "$user_id",
			"minutes": bson.M{"$sum": "$duration"},
		}}},
		{{Key: "$sort", Value: bson.M{"minutes": -1}}},
		{{Key: "$limit", Value: limit}},
	}

	cursor, err := r.sessions.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var totals []WeeklyTotal
	if err = cursor.All(ctx, &totals); err != nil {
		return nil, err
	}
	return totals, nil
}

// UpsertGoal creates or replaces a user's goal for one period type
func (r *MongoLearningRepository) UpsertGoal(ctx context.Context, goal *models.LearningGoal) error {
	filter := bson.M{"user_id": goal.UserID, "type": goal.Type}
	update := bson.M{
		"$set": bson.M{
			"target_minutes": goal.TargetMinutes,
			"is_active":      true,
			"updated_at":     time.Now(),
		},
		"$setOnInsert": bson.M{
			"_id":        primitive.NewObjectID(),
			"user_id":    goal.UserID,
			"type":       goal.Type,
			"created_at": time.Now(),
		},
	}
	opts := options.Update().SetUpsert(true)
	_, err := r.goals.UpdateOne(ctx, filter, update, opts)
	return err
}

// ListGoals retrieves a user's active goals
func (r *MongoLearningRepository) ListGoals(ctx context.Context, userID string) ([]models.LearningGoal, error) {
	objID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID format: %w", apperr.ErrInvalidInput)
	}

	cursor, err := r.goals.Find(ctx, bson.M{"user_id": objID, "is_active": true})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var goals []models.LearningGoal
	if err = cursor.All(ctx, &goals); err != nil {
		return nil, err
	}
	return goals, nil
}

// DeleteGoal deactivates one of the user's goals. The row is kept so past
// goal history survives.
func (r *MongoLearningRepository) DeleteGoal(ctx context.Context, id, userID string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid goal ID format: %w", apperr.ErrInvalidInput)
	}
	owner, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return fmt.Errorf("invalid user ID format: %w", apperr.ErrInvalidInput)
	}

	res, err := r.goals.UpdateOne(ctx,
		bson.M{"_id": objID, "user_id": owner, "is_active": true},
		bson.M{"$set": bson.M{"is_active": false, "updated_at": time.Now()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("learning goal: %w", apperr.ErrNotFound)
	}
	return nil
}
