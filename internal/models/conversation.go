package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Conversation groups an ordered set of members with a denormalized snapshot
// of the most recent visible message for list views, plus a per-member unread
// counter map. Counter keys are always a subset of the member ids.
type Conversation struct {
	ID              primitive.ObjectID   `json:"id,omitempty" bson:"_id,omitempty"`
	Members         []primitive.ObjectID `json:"members" bson:"members"`
	LastMessageID   *primitive.ObjectID  `json:"last_message_id,omitempty" bson:"last_message_id,omitempty"`
	LastMessageText string               `json:"last_message_text,omitempty" bson:"last_message_text,omitempty"`
	LastMessageAt   *time.Time           `json:"last_message_at,omitempty" bson:"last_message_at,omitempty"`
	UnreadCount     map[string]int       `json:"unread_count" bson:"unread_count"`
	CreatedAt       time.Time            `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at" bson:"updated_at"`

	// Hydrated for list views, never persisted.
	MemberSummaries []UserSummary `json:"member_summaries,omitempty" bson:"-"`
	MyUnreadCount   int           `json:"my_unread_count" bson:"-"`
}

// HasMember reports whether the given user id belongs to the conversation.
func (c *Conversation) HasMember(userID primitive.ObjectID) bool {
	for _, m := range c.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// CreateConversationRequest defines the request body for opening a conversation
type CreateConversationRequest struct {
	ReceiverID string `json:"receiver_id" validate:"required"`
}
