package services

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hakuasns/backend/internal/apperr"
	"github.com/hakuasns/backend/internal/models"
	"github.com/hakuasns/backend/internal/repositories"
)

// FollowService maintains the follower/following arrays on both sides of a
// follow edge and raises the follow notification.
type FollowService struct {
	users         repositories.UserRepository
	notifications *NotificationService
}

// NewFollowService creates a new FollowService
func NewFollowService(users repositories.UserRepository, notifications *NotificationService) *FollowService {
	return &FollowService{users: users, notifications: notifications}
}

func (s *FollowService) pair(ctx context.Context, followerID, targetID string) (*models.User, primitive.ObjectID, error) {
	if followerID == targetID {
		return nil, primitive.NilObjectID, fmt.Errorf("cannot follow yourself: %w", apperr.ErrInvalidInput)
	}
	follower, err := primitive.ObjectIDFromHex(followerID)
	if err != nil {
		return nil, primitive.NilObjectID, fmt.Errorf("invalid user ID format: %w", apperr.ErrInvalidInput)
	}
	target, err := s.users.GetUserByID(ctx, targetID)
	if err != nil {
		return nil, primitive.NilObjectID, err
	}
	return target, follower, nil
}

// Follow adds the caller to the target's followers and the target to the
// caller's following list. Following twice is a conflict.
func (s *FollowService) Follow(ctx context.Context, followerID, targetID string) error {
	target, follower, err := s.pair(ctx, followerID, targetID)
	if err != nil {
		return err
	}
	for _, f := range target.Followers {
		if f == follower {
			return fmt.Errorf("already following this user: %w", apperr.ErrConflict)
		}
	}

	if err := s.users.AddFollower(ctx, targetID, followerID); err != nil {
		return err
	}
	if err := s.users.AddFollowing(ctx, followerID, targetID); err != nil {
		return err
	}

	if s.notifications != nil {
		if err := s.notifications.Notify(ctx, followerID, targetID, models.NotificationFollow, nil); err != nil {
			return err
		}
	}
	return nil
}

// Unfollow removes the follow edge from both sides. Unfollowing a user you do
// not follow is a conflict.
func (s *FollowService) Unfollow(ctx context.Context, followerID, targetID string) error {
	target, follower, err := s.pair(ctx, followerID, targetID)
	if err != nil {
		return err
	}
	following := false
	for _, f := range target.Followers {
		if f == follower {
			following = true
			break
		}
	}
	if !following {
		return fmt.Errorf("not following this user: %w", apperr.ErrConflict)
	}

	if err := s.users.RemoveFollower(ctx, targetID, followerID); err != nil {
		return err
	}
	return s.users.RemoveFollowing(ctx, followerID, targetID)
}

// Followers returns summaries of the users following the given user.
func (s *FollowService) Followers(ctx context.Context, userID string) ([]models.UserSummary, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.users.GetSummaries(ctx, user.Followers)
}

// Following returns summaries of the users the given user follows.
func (s *FollowService) Following(ctx context.Context, userID string) ([]models.UserSummary, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.users.GetSummaries(ctx, user.Following)
}
