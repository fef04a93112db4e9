// Package push delivers mobile notifications through Firebase Cloud
// Messaging. Users without a registered device token are skipped, and tokens
// FCM reports as dead are cleared from the user record so they are not
// retried forever.
package push

import (
	"context"
	"errors"
	"log"

	"firebase.google.com/go/v4/messaging"

	"github.com/hakuasns/backend/internal/apperr"
	"github.com/hakuasns/backend/internal/models"
)

// TokenStore reads and clears stored device tokens.
type TokenStore interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	ClearFCMToken(ctx context.Context, id string) error
}

// Sender sends FCM pushes. A nil messaging client turns every send into a
// no-op, which is how deployments without Firebase credentials run.
type Sender struct {
	client *messaging.Client
	users  TokenStore
}

// NewSender creates a new Sender
func NewSender(client *messaging.Client, users TokenStore) *Sender {
	return &Sender{client: client, users: users}
}

// SendToUser pushes a notification to the user's registered device.
func (s *Sender) SendToUser(ctx context.Context, userID, title, body string, data map[string]string) error {
	if s.client == nil {
		return nil
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil
		}
		return err
	}
	if user.FCMToken == "" {
		return nil
	}

	message := &messaging.Message{
		Token: user.FCMToken,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
					Badge: badge(1),
				},
			},
		},
	}

	if _, err := s.client.Send(ctx, message); err != nil {
		if messaging.IsRegistrationTokenNotRegistered(err) {
			log.Printf("clearing dead device token for user %s", userID)
			if clearErr := s.users.ClearFCMToken(ctx, userID); clearErr != nil {
				log.Printf("failed to clear device token for user %s: %v", userID, clearErr)
			}
			return nil
		}
		return err
	}
	return nil
}

func badge(n int) *int {
	return &n
}
