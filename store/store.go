// Package store declares the persistence contracts for accounts and notes.
// Implementations live in the filestore and mysqlstore subpackages.
package store

import (
	"context"
	"errors"

	"notekeeper/models"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicateKey = errors.New("duplicate key")
)

// AccountStore is the Credential Store: email -> account.
type AccountStore interface {
	FindByEmail(ctx context.Context, email string) (models.Account, error)
	Insert(ctx context.Context, account models.Account) error
	LoadAll(ctx context.Context) ([]models.Account, error)
}

// NoteStore holds notes keyed by id. FindByOwner returns notes in insertion order.
type NoteStore interface {
	Insert(ctx context.Context, note models.Note) error
	FindByID(ctx context.Context, id string) (models.Note, error)
	FindByOwner(ctx context.Context, ownerID string) ([]models.Note, error)
	Update(ctx context.Context, id string, patch models.NotePatch) (models.Note, error)
	Remove(ctx context.Context, id string) error
}
