package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LearningSession tracks one study interval. At most one session per user may
// be active at a time; duration in minutes is computed when it stops.
type LearningSession struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID    primitive.ObjectID `json:"user_id" bson:"user_id"`
	Subject   string             `json:"subject" bson:"subject"`
	StartTime time.Time          `json:"start_time" bson:"start_time"`
	EndTime   *time.Time         `json:"end_time,omitempty" bson:"end_time,omitempty"`
	Duration  int                `json:"duration" bson:"duration"` // minutes
	IsActive  bool               `json:"is_active" bson:"is_active"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}

// LearningGoal is a per-user study-time target, unique per (user, type).
type LearningGoal struct {
	ID            primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID        primitive.ObjectID `json:"user_id" bson:"user_id"`
	Type          string             `json:"type" bson:"type"` // daily, weekly, monthly
	TargetMinutes int                `json:"target_minutes" bson:"target_minutes"`
	IsActive      bool               `json:"is_active" bson:"is_active"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at" bson:"updated_at"`
}

// StartSessionRequest defines the request body for starting a session
type StartSessionRequest struct {
	Subject string `json:"subject" validate:"omitempty,max=50"`
}

// SetGoalRequest defines the request body for setting a goal
type SetGoalRequest struct {
	Type          string `json:"type" validate:"required,oneof=daily weekly monthly"`
	TargetMinutes int    `json:"target_minutes" validate:"required,min=1"`
}

// DailyMinutes is one per-day bucket in the stats response
type DailyMinutes struct {
	Date         string `json:"date" bson:"_id"`
	TotalMinutes int    `json:"total_minutes" bson:"total_minutes"`
}

// LearningStats sums study minutes over the standard windows
type LearningStats struct {
	Today      int            `json:"today"`
	Week       int            `json:"week"`
	Month      int            `json:"month"`
	Total      int            `json:"total"`
	DailyStats []DailyMinutes `json:"daily_stats"`
}

// StreakInfo reports current and longest consecutive learning-day runs
type StreakInfo struct {
	CurrentStreak int      `json:"current_streak"`
	LongestStreak int      `json:"longest_streak"`
	LearningDates []string `json:"learning_dates"`
}
