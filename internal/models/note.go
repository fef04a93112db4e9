package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NoteTTL is how long an ephemeral status note stays visible.
const NoteTTL = 24 * time.Hour

// Note is an ephemeral status message. Each user has at most one live note;
// creating a new one replaces the old. Expiry is enforced both by query
// filter and by a TTL index on expires_at.
type Note struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID    primitive.ObjectID `json:"user_id" bson:"user_id"`
	Text      string             `json:"text" bson:"text"`
	ExpiresAt time.Time          `json:"expires_at" bson:"expires_at"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`

	User *UserSummary `json:"user,omitempty" bson:"-"`
}

// CreateNoteRequest defines the request body for creating a note
type CreateNoteRequest struct {
	Text string `json:"text" validate:"required,max=60"`
}
