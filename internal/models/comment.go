package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Comment represents a comment on a post stored in MongoDB
type Comment struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	PostID    primitive.ObjectID `json:"post_id" bson:"post_id"`
	UserID    primitive.ObjectID `json:"user_id" bson:"user_id"`
	Desc      string             `json:"desc" bson:"desc"`
	Img       string             `json:"img,omitempty" bson:"img,omitempty"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`

	User *UserSummary `json:"user,omitempty" bson:"user,omitempty"`
}

// CreateCommentRequest defines the request body for creating a comment
type CreateCommentRequest struct {
	Desc string `json:"desc" validate:"required,min=1,max=500"`
	Img  string `json:"img,omitempty" validate:"omitempty,url"`
}
