package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hakuasns/backend/internal/apperr"
	"github.com/hakuasns/backend/internal/cache"
	"github.com/hakuasns/backend/internal/models"
	"github.com/hakuasns/backend/internal/realtime"
	"github.com/hakuasns/backend/internal/repositories"
)

const (
	// recentNotificationsMax caps the cached per-user notification list.
	recentNotificationsMax = 50
	recentNotificationsTTL = 7 * 24 * time.Hour
)

func recentNotificationsKey(userID string) string {
	return "notifications:recent:" + userID
}

// Emitter is the slice of the realtime gateway the notification service needs.
type Emitter interface {
	EmitToUser(userID, event string, data interface{})
}

// PushSender delivers a mobile push notification. Implementations must treat
// users without a registered device as a no-op, not an error.
type PushSender interface {
	SendToUser(ctx context.Context, userID, title, body string, data map[string]string) error
}

// NotificationService stores notifications durably in MongoDB and fans each
// one out on three best-effort paths: a capped per-user cache list, the
// receiver's live socket connection and a mobile push. Only the durable write
// can fail a request; fan-out failures are logged and dropped.
type NotificationService struct {
	notifications repositories.NotificationRepository
	users         repositories.UserRepository
	store         cache.Store
	emitter       Emitter
	push          PushSender
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(
	notifications repositories.NotificationRepository,
	users repositories.UserRepository,
	store cache.Store,
	emitter Emitter,
	push PushSender,
) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		users:         users,
		store:         store,
		emitter:       emitter,
		push:          push,
	}
}

// Notify stores a notification and fans it out. Notifying yourself is a
// silent no-op so like/comment flows do not need to special-case it.
func (s *NotificationService) Notify(ctx context.Context, senderID, receiverID, notificationType string, postID *primitive.ObjectID) error {
	if senderID == receiverID {
		return nil
	}

	sender, err := primitive.ObjectIDFromHex(senderID)
	if err != nil {
		return fmt.Errorf("invalid user ID format: %w", apperr.ErrInvalidInput)
	}
	receiver, err := primitive.ObjectIDFromHex(receiverID)
	if err != nil {
		return fmt.Errorf("invalid user ID format: %w", apperr.ErrInvalidInput)
	}

	notification := &models.Notification{
		Sender:   sender,
		Receiver: receiver,
		Type:     notificationType,
		PostID:   postID,
	}
	if err := s.notifications.CreateNotification(ctx, notification); err != nil {
		return err
	}

	senderUser, err := s.users.GetUserByID(ctx, senderID)
	if err != nil {
		log.Printf("failed to load sender %s for notification fan-out: %v", senderID, err)
		return nil
	}

	snapshot := s.snapshot(notification, senderUser)
	go s.fanOut(receiverID, senderUser.Username, notificationType, snapshot)
	return nil
}

func (s *NotificationService) snapshot(n *models.Notification, sender *models.User) models.NotificationSnapshot {
	snap := models.NotificationSnapshot{
		ID:            n.ID.Hex(),
		SenderID:      sender.ID.Hex(),
		SenderName:    sender.Username,
		SenderPicture: sender.ProfilePicture,
		Type:          n.Type,
		IsRead:        n.IsRead,
		CreatedAt:     n.CreatedAt,
	}
	if n.PostID != nil {
		snap.PostID = n.PostID.Hex()
	}
	return snap
}

// fanOut runs detached from the request. Each leg is independent so a cache
// failure still lets the socket and push legs go out.
func (s *NotificationService) fanOut(receiverID, senderName, notificationType string, snapshot models.NotificationSnapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if payload, err := json.Marshal(snapshot); err == nil {
		key := recentNotificationsKey(receiverID)
		if err := s.store.Pipelined(ctx, func(b cache.Batch) {
			b.LPush(key, string(payload))
			b.LTrim(key, 0, recentNotificationsMax-1)
			b.Expire(key, recentNotificationsTTL)
		}); err != nil {
			log.Printf("failed to cache notification for user %s: %v", receiverID, err)
		}
	}

	if s.emitter != nil {
		s.emitter.EmitToUser(receiverID, realtime.EventGetNotification, snapshot)
	}

	if s.push != nil {
		body := pushBody(senderName, notificationType)
		if err := s.push.SendToUser(ctx, receiverID, "HakuaSNS", body, map[string]string{
			"type":    notificationType,
			"post_id": snapshot.PostID,
		}); err != nil {
			log.Printf("failed to push notification to user %s: %v", receiverID, err)
		}
	}
}

func pushBody(senderName, notificationType string) string {
	switch notificationType {
	case models.NotificationLike:
		return senderName + " liked your post"
	case models.NotificationComment:
		return senderName + " commented on your post"
	case models.NotificationFollow:
		return senderName + " started following you"
	default:
		return senderName + " sent you a notification"
	}
}

// Feed returns the user's recent notifications, cache first. On a miss the
// durable rows are read from MongoDB and the cache list is reseeded in the
// background so the next read hits.
func (s *NotificationService) Feed(ctx context.Context, userID string) ([]models.NotificationSnapshot, error) {
	key := recentNotificationsKey(userID)
	cached, err := s.store.LRange(ctx, key, 0, recentNotificationsMax-1)
	if err == nil && len(cached) > 0 {
		snapshots := make([]models.NotificationSnapshot, 0, len(cached))
		for _, raw := range cached {
			var snap models.NotificationSnapshot
			if err := json.Unmarshal([]byte(raw), &snap); err != nil {
				log.Printf("dropping corrupt cached notification for user %s: %v", userID, err)
				continue
			}
			snapshots = append(snapshots, snap)
		}
		if len(snapshots) > 0 {
			return snapshots, nil
		}
	}

	notifications, err := s.notifications.GetByReceiver(ctx, userID, recentNotificationsMax)
	if err != nil {
		return nil, err
	}

	seen := make(map[primitive.ObjectID]bool)
	var senderIDs []primitive.ObjectID
	for _, n := range notifications {
		if !seen[n.Sender] {
			seen[n.Sender] = true
			senderIDs = append(senderIDs, n.Sender)
		}
	}
	summaries, err := s.users.GetSummaries(ctx, senderIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]models.UserSummary, len(summaries))
	for _, sum := range summaries {
		byID[sum.ID] = sum
	}

	snapshots := make([]models.NotificationSnapshot, 0, len(notifications))
	for _, n := range notifications {
		sum, ok := byID[n.Sender]
		if !ok {
			continue
		}
		snap := models.NotificationSnapshot{
			ID:            n.ID.Hex(),
			SenderID:      sum.ID.Hex(),
			SenderName:    sum.Username,
			SenderPicture: sum.ProfilePicture,
			Type:          n.Type,
			IsRead:        n.IsRead,
			CreatedAt:     n.CreatedAt,
		}
		if n.PostID != nil {
			snap.PostID = n.PostID.Hex()
		}
		snapshots = append(snapshots, snap)
	}

	go s.reseed(userID, snapshots)
	return snapshots, nil
}

// reseed rebuilds the cache list from a durable read. Entries are pushed in
// reverse so the newest ends up at the head.
func (s *NotificationService) reseed(userID string, snapshots []models.NotificationSnapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	key := recentNotificationsKey(userID)
	if err := s.store.Pipelined(ctx, func(b cache.Batch) {
		b.Del(key)
		for i := len(snapshots) - 1; i >= 0; i-- {
			payload, err := json.Marshal(snapshots[i])
			if err != nil {
				continue
			}
			b.LPush(key, string(payload))
		}
		b.LTrim(key, 0, recentNotificationsMax-1)
		b.Expire(key, recentNotificationsTTL)
	}); err != nil {
		log.Printf("failed to reseed notification cache for user %s: %v", userID, err)
	}
}

// MarkRead flags one notification as read and invalidates the cached list.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	if err := s.notifications.MarkRead(ctx, notificationID, userID); err != nil {
		return err
	}
	if err := s.store.Del(ctx, recentNotificationsKey(userID)); err != nil {
		log.Printf("failed to invalidate notification cache for user %s: %v", userID, err)
	}
	return nil
}

// MarkAllRead flags all of the user's notifications as read and invalidates
// the cached list.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	if err := s.notifications.MarkAllRead(ctx, userID); err != nil {
		return err
	}
	if err := s.store.Del(ctx, recentNotificationsKey(userID)); err != nil {
		log.Printf("failed to invalidate notification cache for user %s: %v", userID, err)
	}
	return nil
}

// UnreadCount counts the user's unread notifications from the durable store.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.notifications.CountUnread(ctx, userID)
}
