package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hakuasns/backend/internal/apperr"
	"github.com/hakuasns/backend/internal/models"
	"github.com/hakuasns/backend/internal/realtime"
	"github.com/hakuasns/backend/internal/repositories"
)

// ChatGateway is the slice of the realtime gateway the message service needs.
type ChatGateway interface {
	SendMessage(msg realtime.ChatMessage)
	MarkAsRead(r realtime.ReadReceipt)
}

// MessageService owns conversations, direct messages and their unread
// counters. Every mutation keeps the conversation's last-message snapshot and
// per-member unread map consistent with the visible message set.
type MessageService struct {
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
	users         repositories.UserRepository
	gateway       ChatGateway
}

// NewMessageService creates a new MessageService
func NewMessageService(
	conversations repositories.ConversationRepository,
	messages repositories.MessageRepository,
	users repositories.UserRepository,
	gateway ChatGateway,
) *MessageService {
	return &MessageService{
		conversations: conversations,
		messages:      messages,
		users:         users,
		gateway:       gateway,
	}
}

// OpenConversation returns the existing conversation between the two users or
// creates one with both unread counters at zero.
func (s *MessageService) OpenConversation(ctx context.Context, userID, receiverID string) (*models.Conversation, error) {
	if userID == receiverID {
		return nil, fmt.Errorf("cannot open a conversation with yourself: %w", apperr.ErrInvalidInput)
	}

	me, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID format: %w", apperr.ErrInvalidInput)
	}
	other, err := primitive.ObjectIDFromHex(receiverID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID format: %w", apperr.ErrInvalidInput)
	}

	if _, err := s.users.GetUserByID(ctx, receiverID); err != nil {
		return nil, err
	}

	existing, err := s.conversations.FindByMembers(ctx, userID, receiverID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	conversation := &models.Conversation{Members: []primitive.ObjectID{me, other}}
	if err := s.conversations.CreateConversation(ctx, conversation); err != nil {
		return nil, err
	}
	return conversation, nil
}

// ListConversations returns the user's conversations newest-activity first,
// hydrated with member summaries and the caller's own unread count.
func (s *MessageService) ListConversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	conversations, err := s.conversations.ListByMember(ctx, userID)
	if err != nil {
		return nil, err
	}

	seen := make(map[primitive.ObjectID]bool)
	var memberIDs []primitive.ObjectID
	for _, c := range conversations {
		for _, m := range c.Members {
			if !seen[m] {
				seen[m] = true
				memberIDs = append(memberIDs, m)
			}
		}
	}

	summaries, err := s.users.GetSummaries(ctx, memberIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.UserSummary, len(summaries))
	for _, sum := range summaries {
		byID[sum.ID.Hex()] = sum
	}

	for i := range conversations {
		c := &conversations[i]
		c.MyUnreadCount = c.UnreadCount[userID]
		for _, m := range c.Members {
			if sum, ok := byID[m.Hex()]; ok {
				c.MemberSummaries = append(c.MemberSummaries, sum)
			}
		}
	}
	return conversations, nil
}

func (s *MessageService) memberConversation(ctx context.Context, conversationID, userID string) (*models.Conversation, error) {
	conversation, err := s.conversations.GetConversationByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	me, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID format: %w", apperr.ErrInvalidInput)
	}
	if !conversation.HasMember(me) {
		return nil, fmt.Errorf("not a member of this conversation: %w", apperr.ErrForbidden)
	}
	return conversation, nil
}

// SendMessage stores a message, bumps the unread counter of every other
// member, updates the conversation snapshot and pushes the message to the
// receiver's live connection if there is one.
func (s *MessageService) SendMessage(ctx context.Context, senderID string, req *models.SendMessageRequest) (*models.Message, error) {
	conversation, err := s.memberConversation(ctx, req.ConversationID, senderID)
	if err != nil {
		return nil, err
	}

	sender, err := primitive.ObjectIDFromHex(senderID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID format: %w", apperr.ErrInvalidInput)
	}

	message := &models.Message{
		ConversationID: conversation.ID,
		Sender:         sender,
		Text:           req.Text,
		Attachments:    req.Attachments,
	}
	if err := s.messages.CreateMessage(ctx, message); err != nil {
		return nil, err
	}

	var others []string
	for _, m := range conversation.Members {
		if m != sender {
			others = append(others, m.Hex())
		}
	}

	at := message.CreatedAt
	if err := s.conversations.SetLastMessage(ctx, req.ConversationID, &message.ID, message.Text, &at); err != nil {
		log.Printf("failed to update last message for conversation %s: %v", req.ConversationID, err)
	}
	if err := s.conversations.IncrementUnread(ctx, req.ConversationID, others); err != nil {
		log.Printf("failed to increment unread for conversation %s: %v", req.ConversationID, err)
	}

	senderUser, err := s.users.GetUserByID(ctx, senderID)
	if err == nil {
		summary := senderUser.Summary()
		message.SenderSummary = &summary
		if s.gateway != nil {
			for _, receiverID := range others {
				s.gateway.SendMessage(realtime.ChatMessage{
					SenderID:             senderID,
					SenderName:           senderUser.Username,
					SenderProfilePicture: senderUser.ProfilePicture,
					ReceiverID:           receiverID,
					Text:                 message.Text,
					ConversationID:       req.ConversationID,
				})
			}
		}
	}
	return message, nil
}

// ListMessages returns the visible messages of a conversation oldest first,
// hydrated with sender summaries.
func (s *MessageService) ListMessages(ctx context.Context, userID, conversationID string) ([]models.Message, error) {
	if _, err := s.memberConversation(ctx, conversationID, userID); err != nil {
		return nil, err
	}

	messages, err := s.messages.ListVisible(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	seen := make(map[primitive.ObjectID]bool)
	var senderIDs []primitive.ObjectID
	for _, m := range messages {
		if !seen[m.Sender] {
			seen[m.Sender] = true
			senderIDs = append(senderIDs, m.Sender)
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
	for i := range messages {
		if sum, ok := byID[messages[i].Sender]; ok {
			messages[i].SenderSummary = &sum
		}
	}
	return messages, nil
}

// EditMessage replaces the text of the caller's own message.
func (s *MessageService) EditMessage(ctx context.Context, userID, messageID, text string) (*models.Message, error) {
	message, err := s.messages.GetMessageByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if message.Sender.Hex() != userID {
		return nil, fmt.Errorf("cannot edit another user's message: %w", apperr.ErrForbidden)
	}
	if message.DeletedAt != nil {
		return nil, fmt.Errorf("message: %w", apperr.ErrNotFound)
	}

	now := time.Now()
	if err := s.messages.EditMessage(ctx, messageID, text, now); err != nil {
		return nil, err
	}
	message.Text = text
	message.Edited = true
	message.EditedAt = &now

	conversation, err := s.conversations.GetConversationByID(ctx, message.ConversationID.Hex())
	if err == nil && conversation.LastMessageID != nil && *conversation.LastMessageID == message.ID {
		at := message.CreatedAt
		if err := s.conversations.SetLastMessage(ctx, conversation.ID.Hex(), &message.ID, text, &at); err != nil {
			log.Printf("failed to refresh last message text for conversation %s: %v", conversation.ID.Hex(), err)
		}
	}
	return message, nil
}

// DeleteMessage soft-deletes the caller's own message. When the deleted
// message was the conversation's last message the snapshot is recomputed from
// the newest remaining visible message, or cleared when none remains.
func (s *MessageService) DeleteMessage(ctx context.Context, userID, messageID string) error {
	message, err := s.messages.GetMessageByID(ctx, messageID)
	if err != nil {
		return err
	}
	if message.Sender.Hex() != userID {
		return fmt.Errorf("cannot delete another user's message: %w", apperr.ErrForbidden)
	}

	if err := s.messages.SoftDeleteMessage(ctx, messageID, time.Now()); err != nil {
		return err
	}

	conversationID := message.ConversationID.Hex()
	conversation, err := s.conversations.GetConversationByID(ctx, conversationID)
	if err != nil {
		return nil
	}
	if conversation.LastMessageID == nil || *conversation.LastMessageID != message.ID {
		return nil
	}

	latest, err := s.messages.LatestVisible(ctx, conversationID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return s.conversations.SetLastMessage(ctx, conversationID, nil, "", nil)
		}
		return err
	}
	at := latest.CreatedAt
	return s.conversations.SetLastMessage(ctx, conversationID, &latest.ID, latest.Text, &at)
}

// MarkMessageRead flags one message addressed to the caller as read and
// forwards a receipt to the sender's live connection.
func (s *MessageService) MarkMessageRead(ctx context.Context, userID, messageID string) error {
	message, err := s.messages.GetMessageByID(ctx, messageID)
	if err != nil {
		return err
	}
	if message.DeletedAt != nil {
		return fmt.Errorf("message: %w", apperr.ErrNotFound)
	}
	if message.Sender.Hex() == userID {
		return fmt.Errorf("cannot mark your own message read: %w", apperr.ErrInvalidInput)
	}
	conversationID := message.ConversationID.Hex()
	if _, err := s.memberConversation(ctx, conversationID, userID); err != nil {
		return err
	}

	if err := s.messages.MarkRead(ctx, messageID, time.Now()); err != nil {
		return err
	}
	if s.gateway != nil {
		s.gateway.MarkAsRead(realtime.ReadReceipt{
			ConversationID: conversationID,
			ReaderID:       userID,
			SenderID:       message.Sender.Hex(),
		})
	}
	return nil
}

// MarkAllRead flags every message sent to the caller in the conversation as
// read, zeroes the caller's unread counter and notifies the other members'
// live connections.
func (s *MessageService) MarkAllRead(ctx context.Context, userID, conversationID string) (int64, error) {
	conversation, err := s.memberConversation(ctx, conversationID, userID)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	updated, err := s.messages.MarkAllRead(ctx, conversationID, userID, now)
	if err != nil {
		return 0, err
	}
	if err := s.conversations.ResetUnread(ctx, conversationID, userID); err != nil {
		log.Printf("failed to reset unread for conversation %s: %v", conversationID, err)
	}

	if s.gateway != nil {
		me, _ := primitive.ObjectIDFromHex(userID)
		for _, m := range conversation.Members {
			if m != me {
				s.gateway.MarkAsRead(realtime.ReadReceipt{
					ConversationID: conversationID,
					ReaderID:       userID,
					SenderID:       m.Hex(),
				})
			}
		}
	}
	return updated, nil
}

// DeleteConversation removes a conversation the caller belongs to. Its
// messages are soft-deleted first so the documents survive for audit.
func (s *MessageService) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	if _, err := s.memberConversation(ctx, conversationID, userID); err != nil {
		return err
	}
	if err := s.messages.SoftDeleteByConversation(ctx, conversationID, time.Now()); err != nil {
		return err
	}
	return s.conversations.DeleteConversation(ctx, conversationID)
}

// UnreadTotal sums the caller's unread counters across all conversations.
func (s *MessageService) UnreadTotal(ctx context.Context, userID string) (int, error) {
	conversations, err := s.conversations.ListByMember(ctx, userID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, c := range conversations {
		total += c.UnreadCount[userID]
	}
	return total, nil
}
