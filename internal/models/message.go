package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Attachment is a file or image reference carried by a message
type Attachment struct {
	Type     string `json:"type" bson:"type"` // "image" or "file"
	URL      string `json:"url" bson:"url"`
	Filename string `json:"filename,omitempty" bson:"filename,omitempty"`
}

// Message represents a direct message stored in MongoDB. Deletion is logical:
// a non-nil DeletedAt hides the message from every read path while keeping
// the document for audit.
type Message struct {
	ID             primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	ConversationID primitive.ObjectID `json:"conversation_id" bson:"conversation_id"`
	Sender         primitive.ObjectID `json:"sender" bson:"sender"`
	Text           string             `json:"text" bson:"text"`
	Read           bool               `json:"read" bson:"read"`
	ReadAt         *time.Time         `json:"read_at,omitempty" bson:"read_at,omitempty"`
	Attachments    []Attachment       `json:"attachments" bson:"attachments"`
	DeletedAt      *time.Time         `json:"-" bson:"deleted_at,omitempty"`
	Edited         bool               `json:"edited" bson:"edited"`
	EditedAt       *time.Time         `json:"edited_at,omitempty" bson:"edited_at,omitempty"`
	CreatedAt      time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at" bson:"updated_at"`

	SenderSummary *UserSummary `json:"sender_summary,omitempty" bson:"-"`
}

// SendMessageRequest defines the request body for sending a message
type SendMessageRequest struct {
	ConversationID string       `json:"conversation_id" validate:"required"`
	Text           string       `json:"text" validate:"required_without=Attachments,max=2000"`
	Attachments    []Attachment `json:"attachments,omitempty"`
}

// EditMessageRequest defines the request body for editing a message
type EditMessageRequest struct {
	Text string `json:"text" validate:"required,min=1,max=2000"`
}
