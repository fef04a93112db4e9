package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hakuasns/backend/internal/apperr"
	"github.com/hakuasns/backend/internal/models"
	"github.com/hakuasns/backend/internal/repositories"
)

// StudyRanker receives completed study minutes for the weekly ranking.
type StudyRanker interface {
	AddStudyMinutes(ctx context.Context, userID string, minutes int) error
}

// LearningService tracks study sessions, per-window stats, streaks and goals.
// At most one session per user runs at a time.
type LearningService struct {
	learning repositories.LearningRepository
	ranker   StudyRanker
	now      func() time.Time
}

// NewLearningService creates a new LearningService
func NewLearningService(learning repositories.LearningRepository, ranker StudyRanker) *LearningService {
	return &LearningService{learning: learning, ranker: ranker, now: time.Now}
}

// StartSession opens a new study session. Starting while one is already
// running is a conflict.
func (s *LearningService) StartSession(ctx context.Context, userID string, req *models.StartSessionRequest) (*models.LearningSession, error) {
	owner, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID format: %w", apperr.ErrInvalidInput)
	}

	if _, err := s.learning.FindActiveSession(ctx, userID); err == nil {
		return nil, fmt.Errorf("a session is already running: %w", apperr.ErrConflict)
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	session := &models.LearningSession{
		UserID:    owner,
		Subject:   req.Subject,
		StartTime: s.now(),
		IsActive:  true,
	}
	if err := s.learning.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// StopSession closes the user's running session, records its duration in
// whole minutes and feeds the weekly ranking.
func (s *LearningService) StopSession(ctx context.Context, userID string) (*models.LearningSession, error) {
	session, err := s.learning.FindActiveSession(ctx, userID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, fmt.Errorf("no running session: %w", apperr.ErrNotFound)
		}
		return nil, err
	}

	end := s.now()
	minutes := int(end.Sub(session.StartTime).Round(time.Minute) / time.Minute)
	if minutes < 0 {
		minutes = 0
	}

	fields := bson.M{
		"end_time":  end,
		"duration":  minutes,
		"is_active": false,
	}
	if err := s.learning.UpdateSession(ctx, session.ID.Hex(), fields); err != nil {
		return nil, err
	}
	session.EndTime = &end
	session.Duration = minutes
	session.IsActive = false

	if s.ranker != nil && minutes > 0 {
		if err := s.ranker.AddStudyMinutes(ctx, userID, minutes); err != nil {
			log.Printf("failed to record study minutes for user %s: %v", userID, err)
		}
	}
	return session, nil
}

// ActiveSession returns the user's running session, if any.
func (s *LearningService) ActiveSession(ctx context.Context, userID string) (*models.LearningSession, error) {
	return s.learning.FindActiveSession(ctx, userID)
}

// ListSessions returns the user's most recent sessions, optionally bounded
// to a start-time range.
func (s *LearningService) ListSessions(ctx context.Context, userID string, from, to time.Time, limit int64) ([]models.LearningSession, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.learning.ListSessions(ctx, userID, from, to, limit)
}

// Stats sums the user's completed minutes over today, the last 7 days, the
// last 30 days and all time, with per-day buckets for the last 7 days.
func (s *LearningService) Stats(ctx context.Context, userID string) (*models.LearningStats, error) {
	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	today, err := s.learning.SumMinutesSince(ctx, userID, dayStart)
	if err != nil {
		return nil, err
	}
	week, err := s.learning.SumMinutesSince(ctx, userID, dayStart.AddDate(0, 0, -6))
	if err != nil {
		return nil, err
	}
	month, err := s.learning.SumMinutesSince(ctx, userID, dayStart.AddDate(0, 0, -29))
	if err != nil {
		return nil, err
	}
	total, err := s.learning.SumMinutesAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	daily, err := s.learning.DailyTotals(ctx, userID, dayStart.AddDate(0, 0, -6))
	if err != nil {
		return nil, err
	}

	return &models.LearningStats{
		Today:      today,
		Week:       week,
		Month:      month,
		Total:      total,
		DailyStats: daily,
	}, nil
}

// Streak computes the user's current and longest runs of consecutive
// learning days. The current streak survives when today has no session yet,
// as long as yesterday had one.
func (s *LearningService) Streak(ctx context.Context, userID string) (*models.StreakInfo, error) {
	days, err := s.learning.DistinctDays(ctx, userID)
	if err != nil {
		return nil, err
	}
	info := &models.StreakInfo{LearningDates: days}
	if len(days) == 0 {
		return info, nil
	}

	const layout = "2006-01-02"
	longest, run := 1, 1
	for i := 1; i < len(days); i++ {
		prev, err1 := time.Parse(layout, days[i-1])
		cur, err2 := time.Parse(layout, days[i])
		if err1 != nil || err2 != nil {
			continue
		}
		if cur.Sub(prev) == 24*time.Hour {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	info.LongestStreak = longest

	now := s.now()
	today := now.Format(layout)
	yesterday := now.AddDate(0, 0, -1).Format(layout)
	last := days[len(days)-1]
	if last == today || last == yesterday {
		info.CurrentStreak = run
		if len(days) == 1 {
			info.CurrentStreak = 1
		}
	}
	return info, nil
}

// SetGoal creates or replaces the user's goal for one period type.
func (s *LearningService) SetGoal(ctx context.Context, userID string, req *models.SetGoalRequest) (*models.LearningGoal, error) {
	owner, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID format: %w", apperr.ErrInvalidInput)
	}

	goal := &models.LearningGoal{
		UserID:        owner,
		Type:          req.Type,
		TargetMinutes: req.TargetMinutes,
		IsActive:      true,
	}
	if err := s.learning.UpsertGoal(ctx, goal); err != nil {
		return nil, err
	}
	return goal, nil
}

// ListGoals returns the user's active goals.
func (s *LearningService) ListGoals(ctx context.Context, userID string) ([]models.LearningGoal, error) {
	return s.learning.ListGoals(ctx, userID)
}

// DeleteGoal deactivates one of the caller's goals.
func (s *LearningService) DeleteGoal(ctx context.Context, userID, goalID string) error {
	return s.learning.DeleteGoal(ctx, goalID, userID)
}
