package filestore

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"sync"

	"notekeeper/models"
	"notekeeper/store"
)

const notesFile = "notes.json"

// NoteStore keeps notes in insertion order. Every mutation persists the full
// set before it becomes visible in memory.
type NoteStore struct {
	mu    sync.Mutex
	file  snapshot[models.Note]
	notes []models.Note
}

var _ store.NoteStore = (*NoteStore)(nil)

// OpenNoteStore loads dir/notes.json, creating it empty on first run.
func OpenNoteStore(dir string) (*NoteStore, error) {
	s := &NoteStore{file: snapshot[models.Note]{path: filepath.Join(dir, notesFile)}}

	notes, exists, err := s.file.load()
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := s.file.save(nil); err != nil {
			return nil, err
		}
	}

	seen := make(map[string]struct{}, len(notes))
	for _, n := range notes {
		if _, dup := seen[n.ID]; dup {
			return nil, fmt.Errorf("%s: note id %q stored twice", s.file.path, n.ID)
		}
		seen[n.ID] = struct{}{}
	}
	s.notes = notes
	return s, nil
}

func (s *NoteStore) indexOf(id string) int {
	return slices.IndexFunc(s.notes, func(n models.Note) bool { return n.ID == id })
}

func (s *NoteStore) Insert(_ context.Context, note models.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(note.ID) >= 0 {
		return store.ErrDuplicateKey
	}

	next := append(slices.Clip(s.notes), note)
	if err := s.file.save(next); err != nil {
		return err
	}
	s.notes = next
	return nil
}

func (s *NoteStore) FindByID(_ context.Context, id string) (models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return models.Note{}, store.ErrNotFound
	}
	return s.notes[i], nil
}

func (s *NoteStore) FindByOwner(_ context.Context, ownerID string) ([]models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Note, 0)
	for _, n := range s.notes {
		if n.OwnerID == ownerID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *NoteStore) Update(_ context.Context, id string, patch models.NotePatch) (models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return models.Note{}, store.ErrNotFound
	}

	next := slices.Clone(s.notes)
	patch.Apply(&next[i])
	if err := s.file.save(next); err != nil {
		return models.Note{}, err
	}
	s.notes = next
	return next[i], nil
}

func (s *NoteStore) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return store.ErrNotFound
	}

	next := slices.Delete(slices.Clone(s.notes), i, i+1)
	if err := s.file.save(next); err != nil {
		return err
	}
	s.notes = next
	return nil
}
