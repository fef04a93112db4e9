package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents an account stored in MongoDB. Password and the federated
// OAuth tokens are never serialized to JSON.
type User struct {
	ID              primitive.ObjectID   `json:"id,omitempty" bson:"_id,omitempty"`
	Username        string               `json:"username" bson:"username"`
	Email           string               `json:"email" bson:"email"`
	Password        string               `json:"-" bson:"password,omitempty"`
	GoogleID        string               `json:"-" bson:"google_id,omitempty"`
	ProfilePicture  string               `json:"profile_picture" bson:"profile_picture"`
	CoverPicture    string               `json:"cover_picture" bson:"cover_picture"`
	BackgroundColor string               `json:"background_color" bson:"background_color"`
	Font            string               `json:"font" bson:"font"`
	Desc            string               `json:"desc" bson:"desc"`
	AccessToken     string               `json:"-" bson:"access_token,omitempty"`
	RefreshToken    string               `json:"-" bson:"refresh_token,omitempty"`
	FCMToken        string               `json:"-" bson:"fcm_token,omitempty"`
	Followers       []primitive.ObjectID `json:"followers" bson:"followers"`
	Following       []primitive.ObjectID `json:"following" bson:"following"`
	AgreedToPrivacy bool                 `json:"has_agreed_to_privacy_policy" bson:"has_agreed_to_privacy_policy"`
	CreatedAt       time.Time            `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at" bson:"updated_at"`
}

// UserSummary is the denormalized slice of a user embedded in list views,
// notification snapshots and ranking entries.
type UserSummary struct {
	ID             primitive.ObjectID `json:"id" bson:"_id"`
	Username       string             `json:"username" bson:"username"`
	ProfilePicture string             `json:"profile_picture" bson:"profile_picture"`
}

// Summary strips a user down to the fields shared with other users.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:             u.ID,
		Username:       u.Username,
		ProfilePicture: u.ProfilePicture,
	}
}

// RegisterRequest defines the request body for local registration
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=2,max=30"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginRequest defines the request body for local login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateSettingsRequest defines the request body for profile settings updates
type UpdateSettingsRequest struct {
	Username        string `json:"username,omitempty" validate:"omitempty,min=2,max=30"`
	ProfilePicture  string `json:"profile_picture,omitempty" validate:"omitempty,url"`
	BackgroundColor string `json:"background_color,omitempty"`
	Font            string `json:"font,omitempty"`
	CoverPicture    string `json:"cover_picture,omitempty" validate:"omitempty,url"`
	Desc            string `json:"desc,omitempty" validate:"omitempty,max=50"`
}

// RegisterDeviceRequest carries the FCM device token for push delivery
type RegisterDeviceRequest struct {
	FCMToken string `json:"fcm_token" validate:"required"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}
