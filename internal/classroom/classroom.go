// Package classroom syncs a user's Google Classroom courses into the local
// course collection using the OAuth tokens captured at Google sign-in.
package classroom

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/oauth2"
	classroomapi "google.golang.org/api/classroom/v1"
	"google.golang.org/api/option"

	"github.com/hakuasns/backend/internal/apperr"
	"github.com/hakuasns/backend/internal/models"
	"github.com/hakuasns/backend/internal/repositories"
)

// tokenWriter persists refreshed OAuth tokens onto the user document.
type tokenWriter interface {
	UpdateOAuthTokens(ctx context.Context, id, accessToken, refreshToken string) error
}

// persistingTokenSource writes tokens back whenever the wrapped source hands
// out a new access token, so the next sync starts from the latest grant
// instead of re-refreshing against Google. A failed write is logged and
// retried on the next token fetch. Google omits the refresh token unless it
// rotated one; UpdateOAuthTokens keeps the stored value when it is empty.
type persistingTokenSource struct {
	ctx    context.Context
	base   oauth2.TokenSource
	users  tokenWriter
	userID string
	last   string
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != p.last {
		if err := p.users.UpdateOAuthTokens(p.ctx, p.userID, tok.AccessToken, tok.RefreshToken); err != nil {
			log.Printf("failed to persist refreshed google tokens for user %s: %v", p.userID, err)
		} else {
			p.last = tok.AccessToken
		}
	}
	return tok, nil
}

// Service lists and syncs Classroom courses.
type Service struct {
	oauth   *oauth2.Config
	users   repositories.UserRepository
	courses repositories.CourseRepository
}

// NewService creates a new classroom Service
func NewService(oauth *oauth2.Config, users repositories.UserRepository, courses repositories.CourseRepository) *Service {
	return &Service{oauth: oauth, users: users, courses: courses}
}

// Sync pulls the user's active courses from the Classroom API and upserts
// them locally. A user who never granted Classroom access gets an
// authorization error rather than an empty list.
func (s *Service) Sync(ctx context.Context, userID string) ([]models.Course, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.RefreshToken == "" {
		return nil, fmt.Errorf("google account not linked: %w", apperr.ErrUnauthorized)
	}

	// The stored token carries no expiry, so it is presented as expired and
	// the source refreshes it up front; the refreshed token is written back.
	source := &persistingTokenSource{
		ctx: ctx,
		base: s.oauth.TokenSource(ctx, &oauth2.Token{
			AccessToken:  user.AccessToken,
			RefreshToken: user.RefreshToken,
			Expiry:       time.Now().Add(-time.Minute),
		}),
		users:  s.users,
		userID: userID,
		last:   user.AccessToken,
	}
	srv, err := classroomapi.NewService(ctx, option.WithTokenSource(source))
	if err != nil {
		return nil, fmt.Errorf("classroom client: %w", apperr.ErrUpstream)
	}

	resp, err := srv.Courses.List().CourseStates("ACTIVE").PageSize(50).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("classroom course list: %w", apperr.ErrUpstream)
	}

	courses := make([]models.Course, 0, len(resp.Courses))
	for _, c := range resp.Courses {
		courses = append(courses, models.Course{
			GoogleCourseID:     c.Id,
			Name:               c.Name,
			Section:            c.Section,
			DescriptionHeading: c.DescriptionHeading,
			AlternateLink:      c.AlternateLink,
			OwnerID:            c.OwnerId,
		})
	}

	if err := s.courses.UpsertCourses(ctx, user.ID, courses); err != nil {
		return nil, err
	}
	return s.courses.ListForUser(ctx, userID)
}

// List returns the user's locally stored courses without hitting Google.
func (s *Service) List(ctx context.Context, userID string) ([]models.Course, error) {
	return s.courses.ListForUser(ctx, userID)
}
