// Package mysqlstore implements the store contracts on MySQL.
package mysqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"notekeeper/models"
	"notekeeper/store"
)

// ER_DUP_ENTRY
const errDuplicateEntry = 1062

func isDuplicate(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == errDuplicateEntry
}

type AccountStore struct {
	db *sql.DB
}

var _ store.AccountStore = (*AccountStore)(nil)

func NewAccountStore(db *sql.DB) *AccountStore {
	return &AccountStore{db: db}
}

func (s *AccountStore) FindByEmail(ctx context.Context, email string) (models.Account, error) {
	var a models.Account
	err := s.db.QueryRowContext(ctx,
		"SELECT id, email, password_hash, created_at FROM users WHERE email = ?", email,
	).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, store.ErrNotFound
	}
	if err != nil {
		return models.Account{}, fmt.Errorf("select user: %w", err)
	}
	return a, nil
}

func (s *AccountStore) Insert(ctx context.Context, a models.Account) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)",
		a.ID, a.Email, a.PasswordHash, a.CreatedAt,
	)
	if isDuplicate(err) {
		return store.ErrDuplicateKey
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *AccountStore) LoadAll(ctx context.Context) ([]models.Account, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, email, password_hash, created_at FROM users")
	if err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	defer rows.Close()

	accounts := make([]models.Account, 0)
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}
