// Package notes exposes a caller's notes: ownership-scoped reads and
// writes, plus the ordered, filtered listing clients see.
package notes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"notekeeper/apperr"
	"notekeeper/models"
	"notekeeper/store"
)

type Service struct {
	notes  store.NoteStore
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

func NewService(notes store.NoteStore, logger *slog.Logger) *Service {
	return &Service{
		notes:  notes,
		logger: logger,
		now:    time.Now,
		newID:  func() string { return ulid.Make().String() },
	}
}

// List returns the caller's notes, pinned first, newest first within each
// group. Notes with equal createdAt keep store insertion order.
func (s *Service) List(ctx context.Context, callerID string, filter models.NoteFilter) ([]models.Note, error) {
	if callerID == "" {
		return nil, apperr.ErrUnauthenticated
	}

	owned, err := s.notes.FindByOwner(ctx, callerID)
	if err != nil {
		return nil, s.storageFailure(ctx, "list notes", err)
	}

	out := make([]models.Note, 0, len(owned))
	for _, n := range owned {
		if matches(n, filter) {
			out = append(out, n)
		}
	}
	Sort(out)
	return out, nil
}

// Sort orders notes for listing. It is stable, so callers passing notes in
// insertion order get insertion order among createdAt ties.
func Sort(notes []models.Note) {
	sort.SliceStable(notes, func(i, j int) bool {
		a, b := notes[i], notes[j]
		if a.IsPinned != b.IsPinned {
			return a.IsPinned
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}

func matches(n models.Note, f models.NoteFilter) bool {
	if f.Category != "" {
		category := n.Category
		if category == "" {
			category = models.DefaultCategory
		}
		if category != f.Category {
			return false
		}
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		return strings.Contains(strings.ToLower(n.Title), q) ||
			strings.Contains(strings.ToLower(n.Content), q)
	}
	return true
}

func (s *Service) Create(ctx context.Context, callerID string, in models.NoteInput) (models.Note, error) {
	if callerID == "" {
		return models.Note{}, apperr.ErrUnauthenticated
	}
	if strings.TrimSpace(in.Title) == "" {
		return models.Note{}, fmt.Errorf("title is required: %w", apperr.ErrInvalidInput)
	}

	note := models.Note{
		ID:        s.newID(),
		Title:     in.Title,
		Category:  models.DefaultCategory,
		// Stores keep microseconds; the returned note must match a re-read.
		CreatedAt: s.now().UTC().Truncate(time.Microsecond),
		OwnerID:   callerID,
	}
	if in.Content != nil {
		note.Content = *in.Content
	}
	if in.Category != nil && *in.Category != "" {
		note.Category = *in.Category
	}
	if in.IsPinned != nil {
		note.IsPinned = *in.IsPinned
	}

	if err := s.notes.Insert(ctx, note); err != nil {
		return models.Note{}, s.storageFailure(ctx, "insert note", err)
	}
	return note, nil
}

// Update applies only the fields present in patch. A note owned by someone
// else is reported exactly like a missing one.
func (s *Service) Update(ctx context.Context, callerID, id string, patch models.NotePatch) (models.Note, error) {
	existing, err := s.owned(ctx, callerID, id)
	if err != nil {
		return models.Note{}, err
	}

	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return models.Note{}, fmt.Errorf("title cannot be empty: %w", apperr.ErrInvalidInput)
	}
	if patch.Category != nil && *patch.Category == "" {
		category := models.DefaultCategory
		patch.Category = &category
	}
	if patch.Empty() {
		return existing, nil
	}

	updated, err := s.notes.Update(ctx, id, patch)
	if errors.Is(err, store.ErrNotFound) {
		return models.Note{}, apperr.ErrNotFound
	}
	if err != nil {
		return models.Note{}, s.storageFailure(ctx, "update note", err)
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, callerID, id string) (models.DeleteResult, error) {
	if _, err := s.owned(ctx, callerID, id); err != nil {
		return models.DeleteResult{}, err
	}

	err := s.notes.Remove(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return models.DeleteResult{}, apperr.ErrNotFound
	}
	if err != nil {
		return models.DeleteResult{}, s.storageFailure(ctx, "delete note", err)
	}
	return models.DeleteResult{Deleted: true}, nil
}

// owned loads note id if and only if callerID owns it.
func (s *Service) owned(ctx context.Context, callerID, id string) (models.Note, error) {
	if callerID == "" {
		return models.Note{}, apperr.ErrUnauthenticated
	}

	note, err := s.notes.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) || (err == nil && note.OwnerID != callerID) {
		return models.Note{}, apperr.ErrNotFound
	}
	if err != nil {
		return models.Note{}, s.storageFailure(ctx, "find note", err)
	}
	return note, nil
}

func (s *Service) storageFailure(ctx context.Context, op string, err error) error {
	s.logger.ErrorContext(ctx, "note store failure", slog.String("op", op), slog.String("error", err.Error()))
	return fmt.Errorf("%s: %w: %w", op, apperr.ErrStorageFailure, err)
}
