package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hakuasns/backend/internal/apperr"
	"github.com/hakuasns/backend/internal/models"
)

type recordingRanker struct {
	userID  string
	minutes int
	calls   int
}

func (r *recordingRanker) AddStudyMinutes(ctx context.Context, userID string, minutes int) error {
	r.userID = userID
	r.minutes = minutes
	r.calls++
	return nil
}

func newLearningFixture(t *testing.T) (*LearningService, *fakeLearningRepo, *recordingRanker, string) {
	t.Helper()
	repo := newFakeLearningRepo()
	ranker := &recordingRanker{}
	svc := NewLearningService(repo, ranker)
	svc.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }
	return svc, repo, ranker, primitive.NewObjectID().Hex()
}

func TestStartSessionWhileRunningIsConflict(t *testing.T) {
	svc, _, _, userID := newLearningFixture(t)
	ctx := context.Background()

	session, err := svc.StartSession(ctx, userID, &models.StartSessionRequest{Subject: "math"})
	require.NoError(t, err)
	assert.True(t, session.IsActive)
	assert.Equal(t, "math", session.Subject)

	_, err = svc.StartSession(ctx, userID, &models.StartSessionRequest{})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestStopSessionRecordsMinutesAndFeedsRanking(t *testing.T) {
	svc, _, ranker, userID := newLearningFixture(t)
	ctx := context.Background()

	start := svc.now()
	_, err := svc.StartSession(ctx, userID, &models.StartSessionRequest{Subject: "english"})
	require.NoError(t, err)

	svc.now = func() time.Time { return start.Add(25*time.Minute + 20*time.Second) }
	stopped, err := svc.StopSession(ctx, userID)
	require.NoError(t, err)
	assert.False(t, stopped.IsActive)
	assert.Equal(t, 25, stopped.Duration)
	require.NotNil(t, stopped.EndTime)

	assert.Equal(t, 1, ranker.calls)
	assert.Equal(t, userID, ranker.userID)
	assert.Equal(t, 25, ranker.minutes)

	_, err = svc.StopSession(ctx, userID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestStopSessionUnderAMinuteSkipsRanking(t *testing.T) {
	svc, _, ranker, userID := newLearningFixture(t)
	ctx := context.Background()

	start := svc.now()
	_, err := svc.StartSession(ctx, userID, &models.StartSessionRequest{})
	require.NoError(t, err)

	svc.now = func() time.Time { return start.Add(10 * time.Second) }
	stopped, err := svc.StopSession(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 0, stopped.Duration)
	assert.Equal(t, 0, ranker.calls)
}

func TestStatsSumsWindows(t *testing.T) {
	svc, repo, _, userID := newLearningFixture(t)
	ctx := context.Background()
	owner, err := primitive.ObjectIDFromHex(userID)
	require.NoError(t, err)

	now := svc.now()
	for _, s := range []models.LearningSession{
		{UserID: owner, StartTime: now.Add(-2 * time.Hour), Duration: 30},
		{UserID: owner, StartTime: now.AddDate(0, 0, -3), Duration: 45},
		{UserID: owner, StartTime: now.AddDate(0, 0, -20), Duration: 60},
		{UserID: owner, StartTime: now.AddDate(0, 0, -90), Duration: 120},
	} {
		session := s
		require.NoError(t, repo.CreateSession(ctx, &session))
	}

	stats, err := svc.Stats(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 30, stats.Today)
	assert.Equal(t, 75, stats.Week)
	assert.Equal(t, 135, stats.Month)
	assert.Equal(t, 255, stats.Total)
}

func TestStreakCountsConsecutiveDays(t *testing.T) {
	svc, repo, _, userID := newLearningFixture(t)

	// Three-day run ending yesterday, after an older two-day run.
	repo.days = []string{
		"2026-02-01", "2026-02-02",
		"2026-03-07", "2026-03-08", "2026-03-09",
	}

	streak, err := svc.Streak(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 3, streak.CurrentStreak)
	assert.Equal(t, 3, streak.LongestStreak)
	assert.Len(t, streak.LearningDates, 5)
}

func TestStreakBrokenWhenLastDayIsOld(t *testing.T) {
	svc, repo, _, userID := newLearningFixture(t)

	repo.days = []string{"2026-03-01", "2026-03-02", "2026-03-03", "2026-03-04"}

	streak, err := svc.Streak(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 0, streak.CurrentStreak)
	assert.Equal(t, 4, streak.LongestStreak)
}

func TestStreakEmptyWithoutSessions(t *testing.T) {
	svc, _, _, userID := newLearningFixture(t)

	streak, err := svc.Streak(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 0, streak.CurrentStreak)
	assert.Equal(t, 0, streak.LongestStreak)
}

func TestListSessionsHonorsDateRange(t *testing.T) {
	svc, repo, _, userID := newLearningFixture(t)
	ctx := context.Background()
	owner, err := primitive.ObjectIDFromHex(userID)
	require.NoError(t, err)

	now := svc.now()
	for _, start := range []time.Time{now, now.AddDate(0, 0, -5), now.AddDate(0, 0, -40)} {
		require.NoError(t, repo.CreateSession(ctx, &models.LearningSession{UserID: owner, StartTime: start}))
	}

	sessions, err := svc.ListSessions(ctx, userID, now.AddDate(0, 0, -7), time.Time{}, 0)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)

	sessions, err = svc.ListSessions(ctx, userID, time.Time{}, time.Time{}, 0)
	require.NoError(t, err)
	assert.Len(t, sessions, 3)
}

func TestDeleteGoalOwnOnly(t *testing.T) {
	svc, _, _, userID := newLearningFixture(t)
	ctx := context.Background()

	goal, err := svc.SetGoal(ctx, userID, &models.SetGoalRequest{Type: "daily", TargetMinutes: 30})
	require.NoError(t, err)

	err = svc.DeleteGoal(ctx, primitive.NewObjectID().Hex(), goal.ID.Hex())
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	require.NoError(t, svc.DeleteGoal(ctx, userID, goal.ID.Hex()))
	goals, err := svc.ListGoals(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, goals)
}

func TestSetGoalReplacesSameType(t *testing.T) {
	svc, _, _, userID := newLearningFixture(t)
	ctx := context.Background()

	first, err := svc.SetGoal(ctx, userID, &models.SetGoalRequest{Type: "daily", TargetMinutes: 30})
	require.NoError(t, err)
	second, err := svc.SetGoal(ctx, userID, &models.SetGoalRequest{Type: "daily", TargetMinutes: 60})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	_, err = svc.SetGoal(ctx, userID, &models.SetGoalRequest{Type: "weekly", TargetMinutes: 300})
	require.NoError(t, err)

	goals, err := svc.ListGoals(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, goals, 2)
}
