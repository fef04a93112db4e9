package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hakuasns/backend/internal/cache"
	"github.com/hakuasns/backend/internal/models"
	"github.com/hakuasns/backend/internal/realtime"
)

type notificationFixture struct {
	svc     *NotificationService
	repo    *fakeNotificationRepo
	store   cache.Store
	gateway *fakeChatGateway
	push    *fakePushSender
	alice   *models.User
	bob     *models.User
}

func newNotificationFixture(t *testing.T) *notificationFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	store := cache.NewRedisWithClient(client)

	alice := &models.User{ID: primitive.NewObjectID(), Username: "alice"}
	bob := &models.User{ID: primitive.NewObjectID(), Username: "bob"}
	repo := newFakeNotificationRepo()
	gateway := &fakeChatGateway{}
	push := &fakePushSender{}
	svc := NewNotificationService(repo, newFakeUserRepo(alice, bob), store, gateway, push)
	return &notificationFixture{
		svc: svc, repo: repo, store: store,
		gateway: gateway, push: push,
		alice: alice, bob: bob,
	}
}

func (f *notificationFixture) cachedCount(t *testing.T, userID string) int {
	t.Helper()
	entries, err := f.store.LRange(context.Background(), recentNotificationsKey(userID), 0, -1)
	if err != nil {
		return 0
	}
	return len(entries)
}

func TestNotifyStoresAndFansOut(t *testing.T) {
	f := newNotificationFixture(t)
	ctx := context.Background()
	postID := primitive.NewObjectID()

	require.NoError(t, f.svc.Notify(ctx, f.alice.ID.Hex(), f.bob.ID.Hex(), models.NotificationLike, &postID))

	require.Len(t, f.repo.notifications, 1)
	stored := f.repo.notifications[0]
	assert.Equal(t, models.NotificationLike, stored.Type)
	assert.Equal(t, f.bob.ID, stored.Receiver)

	// Fan-out runs detached from the request.
	require.Eventually(t, func() bool {
		return len(f.gateway.emittedEvents()) == 1 && len(f.push.sent()) == 1
	}, time.Second, 10*time.Millisecond)

	emitted := f.gateway.emittedEvents()[0]
	assert.Equal(t, f.bob.ID.Hex(), emitted.UserID)
	assert.Equal(t, realtime.EventGetNotification, emitted.Event)
	snap, ok := emitted.Data.(models.NotificationSnapshot)
	require.True(t, ok)
	assert.Equal(t, "alice", snap.SenderName)
	assert.Equal(t, postID.Hex(), snap.PostID)

	pushed := f.push.sent()[0]
	assert.Equal(t, f.bob.ID.Hex(), pushed.UserID)
	assert.Equal(t, "alice liked your post", pushed.Body)

	assert.Eventually(t, func() bool {
		return f.cachedCount(t, f.bob.ID.Hex()) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestNotifySelfIsNoOp(t *testing.T) {
	f := newNotificationFixture(t)

	require.NoError(t, f.svc.Notify(context.Background(), f.alice.ID.Hex(), f.alice.ID.Hex(), models.NotificationLike, nil))
	assert.Empty(t, f.repo.notifications)
}

func TestFeedReadsCacheFirst(t *testing.T) {
	f := newNotificationFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Notify(ctx, f.alice.ID.Hex(), f.bob.ID.Hex(), models.NotificationFollow, nil))
	require.Eventually(t, func() bool {
		return f.cachedCount(t, f.bob.ID.Hex()) == 1
	}, time.Second, 10*time.Millisecond)

	feed, err := f.svc.Feed(ctx, f.bob.ID.Hex())
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, models.NotificationFollow, feed[0].Type)
	assert.Equal(t, "alice", feed[0].SenderName)
}

func TestFeedMissRebuildsFromStoreAndReseeds(t *testing.T) {
	f := newNotificationFixture(t)
	ctx := context.Background()

	// Durable rows exist but the cache list does not.
	for i := 0; i < 3; i++ {
		require.NoError(t, f.repo.CreateNotification(ctx, &models.Notification{
			Sender:   f.alice.ID,
			Receiver: f.bob.ID,
			Type:     models.NotificationLike,
		}))
	}

	feed, err := f.svc.Feed(ctx, f.bob.ID.Hex())
	require.NoError(t, err)
	require.Len(t, feed, 3)
	// Newest first from the durable read.
	assert.Equal(t, f.repo.notifications[2].ID.Hex(), feed[0].ID)

	// Background reseed fills the cache so the next read hits it.
	require.Eventually(t, func() bool {
		return f.cachedCount(t, f.bob.ID.Hex()) == 3
	}, time.Second, 10*time.Millisecond)

	again, err := f.svc.Feed(ctx, f.bob.ID.Hex())
	require.NoError(t, err)
	require.Len(t, again, 3)
	assert.Equal(t, feed[0].ID, again[0].ID)
}

func TestFeedEmptyWithoutNotifications(t *testing.T) {
	f := newNotificationFixture(t)

	feed, err := f.svc.Feed(context.Background(), f.bob.ID.Hex())
	require.NoError(t, err)
	assert.Empty(t, feed)
}

func TestMarkReadInvalidatesCache(t *testing.T) {
	f := newNotificationFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Notify(ctx, f.alice.ID.Hex(), f.bob.ID.Hex(), models.NotificationComment, nil))
	require.Eventually(t, func() bool {
		return f.cachedCount(t, f.bob.ID.Hex()) == 1
	}, time.Second, 10*time.Millisecond)

	id := f.repo.notifications[0].ID.Hex()
	require.NoError(t, f.svc.MarkRead(ctx, f.bob.ID.Hex(), id))
	assert.True(t, f.repo.notifications[0].IsRead)
	assert.Equal(t, 0, f.cachedCount(t, f.bob.ID.Hex()))
}

func TestMarkAllReadClearsUnreadCount(t *testing.T) {
	f := newNotificationFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Notify(ctx, f.alice.ID.Hex(), f.bob.ID.Hex(), models.NotificationLike, nil))
	require.NoError(t, f.svc.Notify(ctx, f.alice.ID.Hex(), f.bob.ID.Hex(), models.NotificationComment, nil))

	unread, err := f.svc.UnreadCount(ctx, f.bob.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread)

	require.NoError(t, f.svc.MarkAllRead(ctx, f.bob.ID.Hex()))
	unread, err = f.svc.UnreadCount(ctx, f.bob.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, int64(0), unread)
}

func TestPushBodyPerType(t *testing.T) {
	assert.Equal(t, "alice liked your post", pushBody("alice", models.NotificationLike))
	assert.Equal(t, "alice commented on your post", pushBody("alice", models.NotificationComment))
	assert.Equal(t, "alice started following you", pushBody("alice", models.NotificationFollow))
}
