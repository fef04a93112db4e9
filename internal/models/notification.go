package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification types
const (
	NotificationLike    = "like"
	NotificationComment = "comment"
	NotificationFollow  = "follow"
)

// Notification represents a durable notification row in MongoDB
type Notification struct {
	ID        primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	Sender    primitive.ObjectID  `json:"sender" bson:"sender"`
	Receiver  primitive.ObjectID  `json:"receiver" bson:"receiver"`
	Type      string              `json:"type" bson:"type"`
	PostID    *primitive.ObjectID `json:"post_id,omitempty" bson:"post_id,omitempty"`
	IsRead    bool                `json:"is_read" bson:"is_read"`
	CreatedAt time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time           `json:"updated_at" bson:"updated_at"`
}

// NotificationSnapshot is the denormalized JSON form cached in the capped
// per-user recent-notifications list. The durable row stays authoritative;
// the snapshot may drift and is rebuilt from the store on cache miss.
type NotificationSnapshot struct {
	ID             string    `json:"id"`
	SenderID       string    `json:"sender_id"`
	SenderName     string    `json:"sender_name"`
	SenderPicture  string    `json:"sender_picture"`
	Type           string    `json:"type"`
	PostID         string    `json:"post_id,omitempty"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}
