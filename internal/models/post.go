package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post represents a social media post stored in MongoDB. Likes are kept as a
// set of user ids on the document; the comment count is denormalized and
// maintained with atomic increments.
type Post struct {
	ID           primitive.ObjectID   `json:"id,omitempty" bson:"_id,omitempty"`
	UserID       primitive.ObjectID   `json:"user_id" bson:"user_id"`
	Desc         string               `json:"desc" bson:"desc"`
	Img          string               `json:"img,omitempty" bson:"img,omitempty"`
	Video        string               `json:"video,omitempty" bson:"video,omitempty"`
	File         string               `json:"file,omitempty" bson:"file,omitempty"`
	Likes        []primitive.ObjectID `json:"likes" bson:"likes"`
	CommentCount int                  `json:"comment_count" bson:"comment_count"`
	CreatedAt    time.Time            `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at" bson:"updated_at"`

	// Hydrated at read time for timeline views, never persisted.
	User *UserSummary `json:"user,omitempty" bson:"user,omitempty"`
}

// CreatePostRequest defines the request body for creating a new post
type CreatePostRequest struct {
	Desc  string `json:"desc" validate:"required,min=1,max=500"`
	Img   string `json:"img,omitempty" validate:"omitempty,url"`
	Video string `json:"video,omitempty" validate:"omitempty,url"`
	File  string `json:"file,omitempty" validate:"omitempty,url"`
}

// UpdatePostRequest defines the request body for updating an existing post
type UpdatePostRequest struct {
	Desc  string `json:"desc,omitempty" validate:"omitempty,min=1,max=500"`
	Img   string `json:"img,omitempty" validate:"omitempty,url"`
	Video string `json:"video,omitempty" validate:"omitempty,url"`
}
