package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hakuasns/backend/internal/apperr"
	"github.com/hakuasns/backend/internal/models"
	"github.com/hakuasns/backend/internal/realtime"
	"github.com/hakuasns/backend/internal/repositories"
)

// In-memory repository fakes shared by the service tests. They cover the
// behavior the services rely on and return ErrNotFound like the Mongo
// implementations do.

type fakeUserRepo struct {
	users map[string]*models.User
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[string]*models.User)}
	for _, u := range users {
		r.users[u.ID.Hex()] = u
	}
	return r
}

func (r *fakeUserRepo) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	r.users[user.ID.Hex()] = user
	return nil
}

func (r *fakeUserRepo) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("user: %w", apperr.ErrNotFound)
}

func (r *fakeUserRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, fmt.Errorf("user: %w", apperr.ErrNotFound)
}

func (r *fakeUserRepo) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, fmt.Errorf("user: %w", apperr.ErrNotFound)
}

func (r *fakeUserRepo) GetUserByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	for _, u := range r.users {
		if u.GoogleID == googleID {
			return u, nil
		}
	}
	return nil, fmt.Errorf("user: %w", apperr.ErrNotFound)
}

func (r *fakeUserRepo) UpdateUser(ctx context.Context, id string, fields bson.M) error {
	if _, ok := r.users[id]; !ok {
		return fmt.Errorf("user: %w", apperr.ErrNotFound)
	}
	return nil
}

func (r *fakeUserRepo) DeleteUser(ctx context.Context, id string) error {
	if _, ok := r.users[id]; !ok {
		return fmt.Errorf("user: %w", apperr.ErrNotFound)
	}
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) SearchUsers(ctx context.Context, query string, limit int64) ([]models.User, error) {
	return nil, nil
}

func (r *fakeUserRepo) GetSummaries(ctx context.Context, ids []primitive.ObjectID) ([]models.UserSummary, error) {
	summaries := []models.UserSummary{}
	for _, id := range ids {
		if u, ok := r.users[id.Hex()]; ok {
			summaries = append(summaries, u.Summary())
		}
	}
	return summaries, nil
}

func (r *fakeUserRepo) AddFollower(ctx context.Context, userID, followerID string) error {
	u, ok := r.users[userID]
	if !ok {
		return fmt.Errorf("user: %w", apperr.ErrNotFound)
	}
	id, _ := primitive.ObjectIDFromHex(followerID)
	u.Followers = append(u.Followers, id)
	return nil
}

func (r *fakeUserRepo) RemoveFollower(ctx context.Context, userID, followerID string) error {
	u, ok := r.users[userID]
	if !ok {
		return fmt.Errorf("user: %w", apperr.ErrNotFound)
	}
	id, _ := primitive.ObjectIDFromHex(followerID)
	u.Followers = removeID(u.Followers, id)
	return nil
}

func (r *fakeUserRepo) AddFollowing(ctx context.Context, userID, followingID string) error {
	u, ok := r.users[userID]
	if !ok {
		return fmt.Errorf("user: %w", apperr.ErrNotFound)
	}
	id, _ := primitive.ObjectIDFromHex(followingID)
	u.Following = append(u.Following, id)
	return nil
}

func (r *fakeUserRepo) RemoveFollowing(ctx context.Context, userID, followingID string) error {
	u, ok := r.users[userID]
	if !ok {
		return fmt.Errorf("user: %w", apperr.ErrNotFound)
	}
	id, _ := primitive.ObjectIDFromHex(followingID)
	u.Following = removeID(u.Following, id)
	return nil
}

func (r *fakeUserRepo) SetFCMToken(ctx context.Context, id, token string) error   { return nil }
func (r *fakeUserRepo) ClearFCMToken(ctx context.Context, id string) error        { return nil }
func (r *fakeUserRepo) UpdateOAuthTokens(ctx context.Context, id, accessToken, refreshToken string) error {
	return nil
}

func removeID(ids []primitive.ObjectID, target primitive.ObjectID) []primitive.ObjectID {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

type fakeConversationRepo struct {
	conversations map[string]*models.Conversation
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{conversations: make(map[string]*models.Conversation)}
}

func (r *fakeConversationRepo) CreateConversation(ctx context.Context, c *models.Conversation) error {
	c.ID = primitive.NewObjectID()
	c.CreatedAt = time.Now()
	c.UpdatedAt = time.Now()
	if c.UnreadCount == nil {
		c.UnreadCount = make(map[string]int)
	}
	for _, m := range c.Members {
		if _, ok := c.UnreadCount[m.Hex()]; !ok {
			c.UnreadCount[m.Hex()] = 0
		}
	}
	r.conversations[c.ID.Hex()] = c
	return nil
}

func (r *fakeConversationRepo) GetConversationByID(ctx context.Context, id string) (*models.Conversation, error) {
	if c, ok := r.conversations[id]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("conversation: %w", apperr.ErrNotFound)
}

func (r *fakeConversationRepo) FindByMembers(ctx context.Context, memberA, memberB string) (*models.Conversation, error) {
	a, _ := primitive.ObjectIDFromHex(memberA)
	b, _ := primitive.ObjectIDFromHex(memberB)
	for _, c := range r.conversations {
		if c.HasMember(a) && c.HasMember(b) {
			return c, nil
		}
	}
	return nil, fmt.Errorf("conversation: %w", apperr.ErrNotFound)
}

func (r *fakeConversationRepo) ListByMember(ctx context.Context, userID string) ([]models.Conversation, error) {
	id, _ := primitive.ObjectIDFromHex(userID)
	var out []models.Conversation
	for _, c := range r.conversations {
		if c.HasMember(id) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *fakeConversationRepo) DeleteConversation(ctx context.Context, id string) error {
	if _, ok := r.conversations[id]; !ok {
		return fmt.Errorf("conversation: %w", apperr.ErrNotFound)
	}
	delete(r.conversations, id)
	return nil
}

func (r *fakeConversationRepo) SetLastMessage(ctx context.Context, id string, messageID *primitive.ObjectID, text string, at *time.Time) error {
	c, ok := r.conversations[id]
	if !ok {
		return fmt.Errorf("conversation: %w", apperr.ErrNotFound)
	}
	c.LastMessageID = messageID
	c.LastMessageText = text
	c.LastMessageAt = at
	return nil
}

func (r *fakeConversationRepo) IncrementUnread(ctx context.Context, id string, memberIDs []string) error {
	c, ok := r.conversations[id]
	if !ok {
		return fmt.Errorf("conversation: %w", apperr.ErrNotFound)
	}
	for _, m := range memberIDs {
		c.UnreadCount[m]++
	}
	return nil
}

func (r *fakeConversationRepo) ResetUnread(ctx context.Context, id, userID string) error {
	c, ok := r.conversations[id]
	if !ok {
		return fmt.Errorf("conversation: %w", apperr.ErrNotFound)
	}
	c.UnreadCount[userID] = 0
	return nil
}

type fakeMessageRepo struct {
	messages []*models.Message
	clock    time.Time
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{clock: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
}

func (r *fakeMessageRepo) CreateMessage(ctx context.Context, m *models.Message) error {
	m.ID = primitive.NewObjectID()
	r.clock = r.clock.Add(time.Second)
	m.CreatedAt = r.clock
	m.UpdatedAt = r.clock
	r.messages = append(r.messages, m)
	return nil
}

func (r *fakeMessageRepo) GetMessageByID(ctx context.Context, id string) (*models.Message, error) {
	for _, m := range r.messages {
		if m.ID.Hex() == id {
			return m, nil
		}
	}
	return nil, fmt.Errorf("message: %w", apperr.ErrNotFound)
}

func (r *fakeMessageRepo) ListVisible(ctx context.Context, conversationID string) ([]models.Message, error) {
	var out []models.Message
	for _, m := range r.messages {
		if m.ConversationID.Hex() == conversationID && m.DeletedAt == nil {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) LatestVisible(ctx context.Context, conversationID string) (*models.Message, error) {
	var latest *models.Message
	for _, m := range r.messages {
		if m.ConversationID.Hex() != conversationID || m.DeletedAt != nil {
			continue
		}
		if latest == nil || m.CreatedAt.After(latest.CreatedAt) {
			latest = m
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("message: %w", apperr.ErrNotFound)
	}
	return latest, nil
}

func (r *fakeMessageRepo) EditMessage(ctx context.Context, id, text string, at time.Time) error {
	m, err := r.GetMessageByID(ctx, id)
	if err != nil {
		return err
	}
	m.Text = text
	m.Edited = true
	m.EditedAt = &at
	return nil
}

func (r *fakeMessageRepo) SoftDeleteMessage(ctx context.Context, id string, at time.Time) error {
	m, err := r.GetMessageByID(ctx, id)
	if err != nil {
		return err
	}
	m.DeletedAt = &at
	return nil
}

func (r *fakeMessageRepo) SoftDeleteByConversation(ctx context.Context, conversationID string, at time.Time) error {
	for _, m := range r.messages {
		if m.ConversationID.Hex() == conversationID && m.DeletedAt == nil {
			m.DeletedAt = &at
		}
	}
	return nil
}

func (r *fakeMessageRepo) MarkRead(ctx context.Context, id string, at time.Time) error {
	m, err := r.GetMessageByID(ctx, id)
	if err != nil {
		return err
	}
	m.Read = true
	m.ReadAt = &at
	return nil
}

func (r *fakeMessageRepo) MarkAllRead(ctx context.Context, conversationID, readerID string, at time.Time) (int64, error) {
	var updated int64
	for _, m := range r.messages {
		if m.ConversationID.Hex() != conversationID || m.DeletedAt != nil {
			continue
		}
		if m.Sender.Hex() == readerID || m.Read {
			continue
		}
		m.Read = true
		m.ReadAt = &at
		updated++
	}
	return updated, nil
}

type fakeNoteRepo struct {
	notes map[string]*models.Note
}

func newFakeNoteRepo() *fakeNoteRepo {
	return &fakeNoteRepo{notes: make(map[string]*models.Note)}
}

func (r *fakeNoteRepo) CreateNote(ctx context.Context, n *models.Note) error {
	n.ID = primitive.NewObjectID()
	n.CreatedAt = time.Now()
	n.UpdatedAt = time.Now()
	r.notes[n.ID.Hex()] = n
	return nil
}

func (r *fakeNoteRepo) GetNoteByID(ctx context.Context, id string) (*models.Note, error) {
	if n, ok := r.notes[id]; ok {
		return n, nil
	}
	return nil, fmt.Errorf("note: %w", apperr.ErrNotFound)
}

func (r *fakeNoteRepo) DeleteNote(ctx context.Context, id string) error {
	if _, ok := r.notes[id]; !ok {
		return fmt.Errorf("note: %w", apperr.ErrNotFound)
	}
	delete(r.notes, id)
	return nil
}

func (r *fakeNoteRepo) DeleteAllForUser(ctx context.Context, userID string) error {
	for id, n := range r.notes {
		if n.UserID.Hex() == userID {
			delete(r.notes, id)
		}
	}
	return nil
}

func (r *fakeNoteRepo) ListActiveForUsers(ctx context.Context, userIDs []primitive.ObjectID, now time.Time) ([]models.Note, error) {
	members := make(map[primitive.ObjectID]bool, len(userIDs))
	for _, id := range userIDs {
		members[id] = true
	}
	var out []models.Note
	for _, n := range r.notes {
		if members[n.UserID] && n.ExpiresAt.After(now) {
			out = append(out, *n)
		}
	}
	return out, nil
}

type fakeLearningRepo struct {
	sessions map[string]*models.LearningSession
	goals    map[string]*models.LearningGoal
	days     []string
}

func newFakeLearningRepo() *fakeLearningRepo {
	return &fakeLearningRepo{
		sessions: make(map[string]*models.LearningSession),
		goals:    make(map[string]*models.LearningGoal),
	}
}

func (r *fakeLearningRepo) FindActiveSession(ctx context.Context, userID string) (*models.LearningSession, error) {
	for _, s := range r.sessions {
		if s.UserID.Hex() == userID && s.IsActive {
			return s, nil
		}
	}
	return nil, fmt.Errorf("session: %w", apperr.ErrNotFound)
}

func (r *fakeLearningRepo) CreateSession(ctx context.Context, s *models.LearningSession) error {
	s.ID = primitive.NewObjectID()
	s.CreatedAt = time.Now()
	s.UpdatedAt = time.Now()
	r.sessions[s.ID.Hex()] = s
	return nil
}

func (r *fakeLearningRepo) UpdateSession(ctx context.Context, id string, fields bson.M) error {
	s, ok := r.sessions[id]
	if !ok {
		return fmt.Errorf("session: %w", apperr.ErrNotFound)
	}
	if v, ok := fields["end_time"].(time.Time); ok {
		s.EndTime = &v
	}
	if v, ok := fields["duration"].(int); ok {
		s.Duration = v
	}
	if v, ok := fields["is_active"].(bool); ok {
		s.IsActive = v
	}
	return nil
}

func (r *fakeLearningRepo) ListSessions(ctx context.Context, userID string, from, to time.Time, limit int64) ([]models.LearningSession, error) {
	var out []models.LearningSession
	for _, s := range r.sessions {
		if s.UserID.Hex() != userID {
			continue
		}
		if !from.IsZero() && s.StartTime.Before(from) {
			continue
		}
		if !to.IsZero() && !s.StartTime.Before(to) {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

func (r *fakeLearningRepo) SumMinutesSince(ctx context.Context, userID string, since time.Time) (int, error) {
	total := 0
	for _, s := range r.sessions {
		if s.UserID.Hex() == userID && !s.IsActive && !s.StartTime.Before(since) {
			total += s.Duration
		}
	}
	return total, nil
}

func (r *fakeLearningRepo) SumMinutesAll(ctx context.Context, userID string) (int, error) {
	total := 0
	for _, s := range r.sessions {
		if s.UserID.Hex() == userID && !s.IsActive {
			total += s.Duration
		}
	}
	return total, nil
}

func (r *fakeLearningRepo) DailyTotals(ctx context.Context, userID string, since time.Time) ([]models.DailyMinutes, error) {
	return nil, nil
}

func (r *fakeLearningRepo) DistinctDays(ctx context.Context, userID string) ([]string, error) {
	return r.days, nil
}

func (r *fakeLearningRepo) AggregateWeeklyTotals(ctx context.Context, weekStart time.Time, limit int64) ([]repositories.WeeklyTotal, error) {
	return nil, nil
}

func (r *fakeLearningRepo) UpsertGoal(ctx context.Context, goal *models.LearningGoal) error {
	key := goal.UserID.Hex() + ":" + goal.Type
	if existing, ok := r.goals[key]; ok {
		existing.TargetMinutes = goal.TargetMinutes
		existing.IsActive = goal.IsActive
		goal.ID = existing.ID
		return nil
	}
	goal.ID = primitive.NewObjectID()
	r.goals[key] = goal
	return nil
}

func (r *fakeLearningRepo) ListGoals(ctx context.Context, userID string) ([]models.LearningGoal, error) {
	var out []models.LearningGoal
	for _, g := range r.goals {
		if g.UserID.Hex() == userID && g.IsActive {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (r *fakeLearningRepo) DeleteGoal(ctx context.Context, id, userID string) error {
	for _, g := range r.goals {
		if g.ID.Hex() == id && g.UserID.Hex() == userID && g.IsActive {
			g.IsActive = false
			return nil
		}
	}
	return fmt.Errorf("learning goal: %w", apperr.ErrNotFound)
}

type fakeHashtagRepo struct {
	counts map[string]map[string]int // date -> tag -> count
}

func newFakeHashtagRepo() *fakeHashtagRepo {
	return &fakeHashtagRepo{counts: make(map[string]map[string]int)}
}

func (r *fakeHashtagRepo) IncrementTag(ctx context.Context, tag, date string) error {
	if r.counts[date] == nil {
		r.counts[date] = make(map[string]int)
	}
	r.counts[date][tag]++
	return nil
}

func (r *fakeHashtagRepo) TopForDate(ctx context.Context, date string, limit int64) ([]models.Hashtag, error) {
	return sortTags(r.counts[date], limit), nil
}

func (r *fakeHashtagRepo) AggregateSince(ctx context.Context, sinceDate string, limit int64) ([]models.Hashtag, error) {
	merged := make(map[string]int)
	for date, tags := range r.counts {
		if date < sinceDate {
			continue
		}
		for tag, n := range tags {
			merged[tag] += n
		}
	}
	return sortTags(merged, limit), nil
}

func sortTags(tags map[string]int, limit int64) []models.Hashtag {
	var out []models.Hashtag
	for tag, n := range tags {
		out = append(out, models.Hashtag{Tag: tag, Count: n})
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].Count > out[i].Count {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out
}

type fakeNotificationRepo struct {
	notifications []*models.Notification
	clock         time.Time
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{clock: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
}

func (r *fakeNotificationRepo) CreateNotification(ctx context.Context, n *models.Notification) error {
	n.ID = primitive.NewObjectID()
	r.clock = r.clock.Add(time.Second)
	n.CreatedAt = r.clock
	n.UpdatedAt = r.clock
	r.notifications = append(r.notifications, n)
	return nil
}

func (r *fakeNotificationRepo) GetByReceiver(ctx context.Context, receiverID string, limit int64) ([]models.Notification, error) {
	var out []models.Notification
	for i := len(r.notifications) - 1; i >= 0; i-- {
		n := r.notifications[i]
		if n.Receiver.Hex() == receiverID {
			out = append(out, *n)
		}
		if int64(len(out)) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) MarkRead(ctx context.Context, id, receiverID string) error {
	for _, n := range r.notifications {
		if n.ID.Hex() == id && n.Receiver.Hex() == receiverID {
			n.IsRead = true
			return nil
		}
	}
	return fmt.Errorf("notification: %w", apperr.ErrNotFound)
}

func (r *fakeNotificationRepo) MarkAllRead(ctx context.Context, receiverID string) error {
	for _, n := range r.notifications {
		if n.Receiver.Hex() == receiverID {
			n.IsRead = true
		}
	}
	return nil
}

func (r *fakeNotificationRepo) CountUnread(ctx context.Context, receiverID string) (int64, error) {
	var count int64
	for _, n := range r.notifications {
		if n.Receiver.Hex() == receiverID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *fakeNotificationRepo) AggregateDailyLikes(ctx context.Context, from, to time.Time, limit int64) ([]repositories.PostLikeCount, error) {
	return nil, nil
}

// fakeChatGateway records realtime pushes. Guarded because notification
// fan-out runs on its own goroutine.
type fakeChatGateway struct {
	mu       sync.Mutex
	messages []realtime.ChatMessage
	receipts []realtime.ReadReceipt
	emitted  []emittedEvent
}

type emittedEvent struct {
	UserID string
	Event  string
	Data   interface{}
}

func (g *fakeChatGateway) SendMessage(msg realtime.ChatMessage) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.messages = append(g.messages, msg)
}

func (g *fakeChatGateway) MarkAsRead(r realtime.ReadReceipt) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.receipts = append(g.receipts, r)
}

func (g *fakeChatGateway) EmitToUser(userID, event string, data interface{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.emitted = append(g.emitted, emittedEvent{UserID: userID, Event: event, Data: data})
}

func (g *fakeChatGateway) sentMessages() []realtime.ChatMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]realtime.ChatMessage(nil), g.messages...)
}

func (g *fakeChatGateway) sentReceipts() []realtime.ReadReceipt {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]realtime.ReadReceipt(nil), g.receipts...)
}

func (g *fakeChatGateway) emittedEvents() []emittedEvent {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]emittedEvent(nil), g.emitted...)
}

type pushCall struct {
	UserID string
	Title  string
	Body   string
	Data   map[string]string
}

type fakePushSender struct {
	mu    sync.Mutex
	calls []pushCall
}

func (p *fakePushSender) SendToUser(ctx context.Context, userID, title, body string, data map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, pushCall{UserID: userID, Title: title, Body: body, Data: data})
	return nil
}

func (p *fakePushSender) sent() []pushCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]pushCall(nil), p.calls...)
}
