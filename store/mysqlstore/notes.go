package mysqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"notekeeper/models"
	"notekeeper/store"
)

const noteColumns = "id, title, content, category, is_pinned, created_at, user_id"

type scanner interface {
	Scan(dest ...any) error
}

func scanNote(row scanner) (models.Note, error) {
	var n models.Note
	err := row.Scan(&n.ID, &n.Title, &n.Content, &n.Category, &n.IsPinned, &n.CreatedAt, &n.OwnerID)
	return n, err
}

type NoteStore struct {
	db *sql.DB
}

var _ store.NoteStore = (*NoteStore)(nil)

func NewNoteStore(db *sql.DB) *NoteStore {
	return &NoteStore{db: db}
}

func (s *NoteStore) Insert(ctx context.Context, n models.Note) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO notes ("+noteColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		n.ID, n.Title, n.Content, n.Category, n.IsPinned, n.CreatedAt, n.OwnerID,
	)
	if isDuplicate(err) {
		return store.ErrDuplicateKey
	}
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

func (s *NoteStore) FindByID(ctx context.Context, id string) (models.Note, error) {
	n, err := scanNote(s.db.QueryRowContext(ctx, "SELECT "+noteColumns+" FROM notes WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Note{}, store.ErrNotFound
	}
	if err != nil {
		return models.Note{}, fmt.Errorf("select note: %w", err)
	}
	return n, nil
}

func (s *NoteStore) FindByOwner(ctx context.Context, ownerID string) ([]models.Note, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+noteColumns+" FROM notes WHERE user_id = ? ORDER BY seq ASC", ownerID)
	if err != nil {
		return nil, fmt.Errorf("select notes: %w", err)
	}
	defer rows.Close()

	notes := make([]models.Note, 0)
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// Update locks the row, applies the patch and writes it back in one transaction.
func (s *NoteStore) Update(ctx context.Context, id string, patch models.NotePatch) (models.Note, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Note{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	n, err := scanNote(tx.QueryRowContext(ctx, "SELECT "+noteColumns+" FROM notes WHERE id = ? FOR UPDATE", id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Note{}, store.ErrNotFound
	}
	if err != nil {
		return models.Note{}, fmt.Errorf("select note: %w", err)
	}

	patch.Apply(&n)
	_, err = tx.ExecContext(ctx,
		"UPDATE notes SET title = ?, content = ?, category = ?, is_pinned = ? WHERE id = ?",
		n.Title, n.Content, n.Category, n.IsPinned, id,
	)
	if err != nil {
		return models.Note{}, fmt.Errorf("update note: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return models.Note{}, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

func (s *NoteStore) Remove(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM notes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
