package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hakuasns/backend/internal/apperr"
	"github.com/hakuasns/backend/internal/models"
	"github.com/hakuasns/backend/internal/repositories"
)

// NoteService owns the short-lived status notes. A user has at most one note
// at a time and every note expires a fixed interval after creation.
type NoteService struct {
	notes repositories.NoteRepository
	users repositories.UserRepository
	now   func() time.Time
}

// NewNoteService creates a new NoteService
func NewNoteService(notes repositories.NoteRepository, users repositories.UserRepository) *NoteService {
	return &NoteService{notes: notes, users: users, now: time.Now}
}

// CreateNote replaces the user's current note with a new one. Any earlier
// notes are removed first so the one-note rule holds even after a crash left
// stale rows behind.
func (s *NoteService) CreateNote(ctx context.Context, userID string, req *models.CreateNoteRequest) (*models.Note, error) {
	owner, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID format: %w", apperr.ErrInvalidInput)
	}

	if err := s.notes.DeleteAllForUser(ctx, userID); err != nil {
		return nil, err
	}

	note := &models.Note{
		UserID:    owner,
		Text:      req.Text,
		ExpiresAt: s.now().Add(models.NoteTTL),
	}
	if err := s.notes.CreateNote(ctx, note); err != nil {
		return nil, err
	}
	return note, nil
}

// DeleteNote removes the caller's own note.
func (s *NoteService) DeleteNote(ctx context.Context, userID, noteID string) error {
	note, err := s.notes.GetNoteByID(ctx, noteID)
	if err != nil {
		return err
	}
	if note.UserID.Hex() != userID {
		return fmt.Errorf("cannot delete another user's note: %w", apperr.ErrForbidden)
	}
	return s.notes.DeleteNote(ctx, noteID)
}

// Timeline returns the unexpired notes of the caller and everyone they
// follow, with the caller's own note first when present.
func (s *NoteService) Timeline(ctx context.Context, userID string) ([]models.Note, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := append([]primitive.ObjectID{user.ID}, user.Following...)
	notes, err := s.notes.ListActiveForUsers(ctx, ids, s.now())
	if err != nil {
		return nil, err
	}

	summaries, err := s.users.GetSummaries(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]models.UserSummary, len(summaries))
	for _, sum := range summaries {
		byID[sum.ID] = sum
	}

	ordered := make([]models.Note, 0, len(notes))
	for i := range notes {
		if notes[i].UserID == user.ID {
			ordered = append(ordered, notes[i])
		}
	}
	for i := range notes {
		if notes[i].UserID != user.ID {
			ordered = append(ordered, notes[i])
		}
	}
	for i := range ordered {
		if sum, ok := byID[ordered[i].UserID]; ok {
			ordered[i].User = &sum
		}
	}
	return ordered, nil
}
