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

// UserRepository defines the interface for user data operations
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByGoogleID(ctx context.Context, googleID string) (*models.User, error)
	UpdateUser(ctx context.Context, id string, fields bson.M) error
	DeleteUser(ctx context.Context, id string) error
	SearchUsers(ctx context.Context, query string, limit int64) ([]models.User, error)
	GetSummaries(ctx context.Context, ids []primitive.ObjectID) ([]models.UserSummary, error)

	AddFollower(ctx context.Context, userID, followerID string) error
	RemoveFollower(ctx context.Context, userID, followerID string) error
	AddFollowing(ctx context.Context, userID, followingID string) error
	RemoveFollowing(ctx context.Context, userID, followingID string) error

	SetFCMToken(ctx context.Context, id, token string) error
	ClearFCMToken(ctx context.Context, id string) error
	UpdateOAuthTokens(ctx context.Context, id, accessToken, refreshToken string) error
}

// MongoUserRepository implements UserRepository for MongoDB
type MongoUserRepository struct {
	collection *mongo.Collection
}

// NewMongoUserRepository creates a new MongoUserRepository
func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{collection: db.Collection("users")}
}

// CreateUser inserts a new user; duplicate username/email is a conflict
func (r *MongoUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	user.ID = primitive.NewObjectID()
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	if user.Followers == nil {
		user.Followers = []primitive.ObjectID{}
	}
	if user.Following == nil {
		user.Following = []primitive.ObjectID{}
	}
	_, err := r.collection.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("username or email taken: %w", apperr.ErrConflict)
	}
	return err
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("user: %w", apperr.ErrNotFound)
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByID retrieves a user by ID
func (r *MongoUserRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID format: %w", apperr.ErrInvalidInput)
	}
	return r.findOne(ctx, bson.M{"_id": objID})
}

// GetUserByEmail retrieves a user by email
func (r *MongoUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

// GetUserByUsername retrieves a user by username
func (r *MongoUserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

// GetUserByGoogleID retrieves a user by their federated Google identity
func (r *MongoUserRepository) GetUserByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"google_id": googleID})
}

// UpdateUser applies a $set of the given fields
func (r *MongoUserRepository) UpdateUser(ctx context.Context, id string, fields bson.M) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid user ID format: %w", apperr.ErrInvalidInput)
	}
	fields["updated_at"] = time.Now()
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user: %w", apperr.ErrNotFound)
	}
	return nil
}

// DeleteUser removes a user document
func (r *MongoUserRepository) DeleteUser(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid user ID format: %w", apperr.ErrInvalidInput)
	}
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("user: %w", apperr.ErrNotFound)
	}
	return nil
}

// SearchUsers finds users whose username contains the query, case-insensitive
func (r *MongoUserRepository) SearchUsers(ctx context.Context, query string, limit int64) ([]models.User, error) {
	findOptions := options.Find().SetLimit(limit)
	cursor, err := r.collection.Find(ctx, bson.M{
		"username": bson.M{"$regex": query, "$options": "i"},
	}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err = cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// GetSummaries hydrates id/username/picture for the given user ids. Missing
// users are silently absent from the result.
func (r *MongoUserRepository) GetSummaries(ctx context.Context, ids []primitive.ObjectID) ([]models.UserSummary, error) {
	if len(ids) == 0 {
		return []models.UserSummary{}, nil
	}
	projection := options.Find().SetProjection(bson.M{"username": 1, "profile_picture": 1})
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, projection)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	summaries := []models.UserSummary{}
	for cursor.Next(ctx) {
		var user models.User
		if err := cursor.Decode(&user); err != nil {
			continue
		}
		summaries = append(summaries, user.Summary())
	}
	return summaries, cursor.Err()
}

func (r *MongoUserRepository) updateArray(ctx context.Context, userID, op, field, memberID string) error {
	objID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return fmt.Errorf("invalid user ID format: %w", apperr.ErrInvalidInput)
	}
	memberObjID, err := primitive.ObjectIDFromHex(memberID)
	if err != nil {
		return fmt.Errorf("invalid user ID format: %w", apperr.ErrInvalidInput)
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{op: bson.M{field: memberObjID}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user: %w", apperr.ErrNotFound)
	}
	return nil
}

// AddFollower records followerID in userID's follower set ($addToSet keeps
// the relationship at most once even under races)
func (r *MongoUserRepository) AddFollower(ctx context.Context, userID, followerID string) error {
	return r.updateArray(ctx, userID, "$addToSet", "followers", followerID)
}

// RemoveFollower removes followerID from userID's follower set
func (r *MongoUserRepository) RemoveFollower(ctx context.Context, userID, followerID string) error {
	return r.updateArray(ctx, userID, "$pull", "followers", followerID)
}

// AddFollowing records followingID in userID's following set
func (r *MongoUserRepository) AddFollowing(ctx context.Context, userID, followingID string) error {
	return r.updateArray(ctx, userID, "$addToSet", "following", followingID)
}

// RemoveFollowing removes followingID from userID's following set
func (r *MongoUserRepository) RemoveFollowing(ctx context.Context, userID, followingID string) error {
	return r.updateArray(ctx, userID, "$pull", "following", followingID)
}

// SetFCMToken stores the device push token
func (r *MongoUserRepository) SetFCMToken(ctx context.Context, id, token string) error {
	return r.UpdateUser(ctx, id, bson.M{"fcm_token": token})
}

// ClearFCMToken drops a stale device push token
func (r *MongoUserRepository) ClearFCMToken(ctx context.Context, id string) error {
	return r.UpdateUser(ctx, id, bson.M{"fcm_token": ""})
}

// UpdateOAuthTokens persists refreshed federated tokens. An empty refresh
// token leaves the stored one untouched (Google only returns it on the first
// consent).
func (r *MongoUserRepository) UpdateOAuthTokens(ctx context.Context, id, accessToken, refreshToken string) error {
	fields := bson.M{"access_token": accessToken}
	if refreshToken != "" {
		fields["refresh_token"] = refreshToken
	}
	return r.UpdateUser(ctx, id, fields)
}
