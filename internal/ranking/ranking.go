// Package ranking maintains the weekly study-time and daily post-like
// leaderboards on Redis sorted sets, with MongoDB aggregation as the durable
// fallback when a cache key is cold. Reads never fail over a cache problem;
// they fall through to the store and reseed the key for the next read.
package ranking

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hakuasns/backend/internal/cache"
	"github.com/hakuasns/backend/internal/models"
	"github.com/hakuasns/backend/internal/repositories"
)

const (
	topSize   = 10
	weeklyTTL = 14 * 24 * time.Hour
	dailyTTL  = 48 * time.Hour
)

// Entry is one leaderboard row. The study ranking scores users in minutes;
// the post ranking scores posts in likes, with the author's display data and
// a text excerpt attached.
type Entry struct {
	Rank           int    `json:"rank"`
	UserID         string `json:"user_id"`
	Username       string `json:"username"`
	ProfilePicture string `json:"profile_picture"`
	PostID         string `json:"post_id,omitempty"`
	Excerpt        string `json:"excerpt,omitempty"`
	Score          int    `json:"score"`
}

// StudyAggregator rebuilds weekly study totals from the durable store.
type StudyAggregator interface {
	AggregateWeeklyTotals(ctx context.Context, weekStart time.Time, limit int64) ([]repositories.WeeklyTotal, error)
}

// LikeAggregator rebuilds per-post daily like counts from the durable store.
type LikeAggregator interface {
	AggregateDailyLikes(ctx context.Context, from, to time.Time, limit int64) ([]repositories.PostLikeCount, error)
}

// SummaryReader joins board members with their display data.
type SummaryReader interface {
	GetSummaries(ctx context.Context, ids []primitive.ObjectID) ([]models.UserSummary, error)
}

// PostReader joins the like board's post members with their documents.
type PostReader interface {
	GetPostByID(ctx context.Context, id string) (*models.Post, error)
}

// Service owns both leaderboards.
type Service struct {
	store         cache.Store
	learning      StudyAggregator
	notifications LikeAggregator
	users         SummaryReader
	posts         PostReader

	dayOffset time.Duration
	now       func() time.Time
}

// NewService creates a ranking service. dayOffsetHours shifts the daily
// ranking's day boundary, so a value of 9 rolls the board at 09:00.
func NewService(
	store cache.Store,
	learning StudyAggregator,
	notifications LikeAggregator,
	users SummaryReader,
	posts PostReader,
	dayOffsetHours int,
) *Service {
	return &Service{
		store:         store,
		learning:      learning,
		notifications: notifications,
		users:         users,
		posts:         posts,
		dayOffset:     time.Duration(dayOffsetHours) * time.Hour,
		now:           time.Now,
	}
}

// WeeklyKey returns the study leaderboard key for the UTC week containing t.
// Weeks are numbered by splitting the year into seven-day blocks.
func WeeklyKey(t time.Time) string {
	t = t.UTC()
	week := (t.YearDay() + 6) / 7
	return fmt.Sprintf("learning:ranking:weekly:%d:%d", t.Year(), week)
}

// weekStart returns the first instant of the seven-day block containing t.
func weekStart(t time.Time) time.Time {
	t = t.UTC()
	week := (t.YearDay() + 6) / 7
	jan1 := time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	return jan1.AddDate(0, 0, (week-1)*7)
}

// DailyLikeKey returns the like leaderboard key for the shifted UTC day
// containing t.
func (s *Service) DailyLikeKey(t time.Time) string {
	day := t.UTC().Add(-s.dayOffset).Format("2006-01-02")
	return "posts:ranking:daily:" + day
}

// dayWindow returns the shifted-day bounds containing t.
func (s *Service) dayWindow(t time.Time) (time.Time, time.Time) {
	shifted := t.UTC().Add(-s.dayOffset)
	start := time.Date(shifted.Year(), shifted.Month(), shifted.Day(), 0, 0, 0, 0, time.UTC)
	start = start.Add(s.dayOffset)
	return start, start.Add(24 * time.Hour)
}

// AddStudyMinutes credits minutes to the current week's board.
func (s *Service) AddStudyMinutes(ctx context.Context, userID string, minutes int) error {
	key := WeeklyKey(s.now())
	if err := s.store.ZIncrBy(ctx, key, float64(minutes), userID); err != nil {
		return err
	}
	if err := s.store.Expire(ctx, key, weeklyTTL); err != nil {
		log.Printf("failed to set expiry on %s: %v", key, err)
	}
	return nil
}

// AddPostLikes credits delta likes (negative on unlike) to the liked post on
// the current day's board.
func (s *Service) AddPostLikes(ctx context.Context, postID string, delta int) error {
	key := s.DailyLikeKey(s.now())
	if err := s.store.ZIncrBy(ctx, key, float64(delta), postID); err != nil {
		return err
	}
	if err := s.store.Expire(ctx, key, dailyTTL); err != nil {
		log.Printf("failed to set expiry on %s: %v", key, err)
	}
	return nil
}

// WeeklyStudyTop returns the current week's study leaderboard. A cold key is
// rebuilt from the session store.
func (s *Service) WeeklyStudyTop(ctx context.Context) ([]Entry, error) {
	now := s.now()
	key := WeeklyKey(now)
	members, err := s.store.ZRevRangeWithScores(ctx, key, 0, topSize-1)
	if err != nil {
		log.Printf("ranking read from %s failed, falling back to store: %v", key, err)
		members = nil
	}
	if len(members) > 0 {
		return s.hydrate(ctx, members)
	}

	totals, err := s.learning.AggregateWeeklyTotals(ctx, weekStart(now), topSize)
	if err != nil {
		return nil, err
	}
	members = make([]cache.Member, 0, len(totals))
	for _, t := range totals {
		members = append(members, cache.Member{Member: t.UserID.Hex(), Score: float64(t.Minutes)})
	}
	s.reseed(ctx, key, members, weeklyTTL)
	return s.hydrate(ctx, members)
}

// DailyLikeTop returns the current day's most liked posts. A cold key is
// rebuilt from the notification store.
func (s *Service) DailyLikeTop(ctx context.Context) ([]Entry, error) {
	now := s.now()
	key := s.DailyLikeKey(now)
	members, err := s.store.ZRevRangeWithScores(ctx, key, 0, topSize-1)
	if err != nil {
		log.Printf("ranking read from %s failed, falling back to store: %v", key, err)
		members = nil
	}
	if len(members) > 0 {
		return s.hydratePosts(ctx, members)
	}

	from, to := s.dayWindow(now)
	counts, err := s.notifications.AggregateDailyLikes(ctx, from, to, topSize)
	if err != nil {
		return nil, err
	}
	members = make([]cache.Member, 0, len(counts))
	for _, c := range counts {
		members = append(members, cache.Member{Member: c.PostID.Hex(), Score: float64(c.Count)})
	}
	s.reseed(ctx, key, members, dailyTTL)
	return s.hydratePosts(ctx, members)
}

// reseed rewrites a board key from a durable aggregation in one round trip.
// Best effort; the hydrated result is served either way.
func (s *Service) reseed(ctx context.Context, key string, members []cache.Member, ttl time.Duration) {
	if len(members) == 0 {
		return
	}
	if err := s.store.Pipelined(ctx, func(b cache.Batch) {
		b.Del(key)
		for _, m := range members {
			b.ZAdd(key, m.Score, m.Member)
		}
		b.Expire(key, ttl)
	}); err != nil {
		log.Printf("failed to reseed ranking key %s: %v", key, err)
	}
}

// hydrate joins board members with user summaries. Members whose user row is
// gone are dropped; ranks are assigned by board position so the gap shows.
func (s *Service) hydrate(ctx context.Context, members []cache.Member) ([]Entry, error) {
	if len(members) == 0 {
		return []Entry{}, nil
	}

	ids := make([]primitive.ObjectID, 0, len(members))
	for _, m := range members {
		id, err := primitive.ObjectIDFromHex(m.Member)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	summaries, err := s.users.GetSummaries(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.UserSummary, len(summaries))
	for _, sum := range summaries {
		byID[sum.ID.Hex()] = sum
	}

	entries := make([]Entry, 0, len(members))
	for i, m := range members {
		sum, ok := byID[m.Member]
		if !ok {
			continue
		}
		entries = append(entries, Entry{
			Rank:           i + 1,
			UserID:         m.Member,
			Username:       sum.Username,
			ProfilePicture: sum.ProfilePicture,
			Score:          int(m.Score),
		})
	}
	return entries, nil
}

const excerptRunes = 80

func excerpt(desc string) string {
	r := []rune(desc)
	if len(r) <= excerptRunes {
		return desc
	}
	return string(r[:excerptRunes])
}

// hydratePosts joins like-board members with their post documents and the
// post author's display data. Members whose post is gone are dropped; ranks
// are assigned by board position so the gap shows.
func (s *Service) hydratePosts(ctx context.Context, members []cache.Member) ([]Entry, error) {
	if len(members) == 0 {
		return []Entry{}, nil
	}

	entries := make([]Entry, 0, len(members))
	authorIDs := make([]primitive.ObjectID, 0, len(members))
	for i, m := range members {
		post, err := s.posts.GetPostByID(ctx, m.Member)
		if err != nil {
			continue
		}
		authorIDs = append(authorIDs, post.UserID)
		entries = append(entries, Entry{
			Rank:    i + 1,
			UserID:  post.UserID.Hex(),
			PostID:  m.Member,
			Excerpt: excerpt(post.Desc),
			Score:   int(m.Score),
		})
	}

	summaries, err := s.users.GetSummaries(ctx, authorIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.UserSummary, len(summaries))
	for _, sum := range summaries {
		byID[sum.ID.Hex()] = sum
	}
	for i := range entries {
		if sum, ok := byID[entries[i].UserID]; ok {
			entries[i].Username = sum.Username
			entries[i].ProfilePicture = sum.ProfilePicture
		}
	}
	return entries, nil
}
