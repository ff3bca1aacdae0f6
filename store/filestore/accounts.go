package filestore

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"notekeeper/models"
	"notekeeper/store"
)

const accountsFile = "accounts.json"

type AccountStore struct {
	mu       sync.Mutex
	file     snapshot[models.Account]
	accounts []models.Account
	byEmail  map[string]int
}

var _ store.AccountStore = (*AccountStore)(nil)

// OpenAccountStore loads dir/accounts.json, creating it empty on first run.
func OpenAccountStore(dir string) (*AccountStore, error) {
	s := &AccountStore{
		file:    snapshot[models.Account]{path: filepath.Join(dir, accountsFile)},
		byEmail: make(map[string]int),
	}

	accounts, exists, err := s.file.load()
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := s.file.save(nil); err != nil {
			return nil, err
		}
	}

	for i, a := range accounts {
		if _, dup := s.byEmail[a.Email]; dup {
			return nil, fmt.Errorf("%s: email %q stored twice", s.file.path, a.Email)
		}
		s.byEmail[a.Email] = i
	}
	s.accounts = accounts
	return s, nil
}

func (s *AccountStore) FindByEmail(_ context.Context, email string) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.byEmail[email]
	if !ok {
		return models.Account{}, store.ErrNotFound
	}
	return s.accounts[i], nil
}

func (s *AccountStore) Insert(_ context.Context, account models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[account.Email]; ok {
		return store.ErrDuplicateKey
	}

	next := append(s.accounts[:len(s.accounts):len(s.accounts)], account)
	if err := s.file.save(next); err != nil {
		return err
	}
	s.accounts = next
	s.byEmail[account.Email] = len(next) - 1
	return nil
}

func (s *AccountStore) LoadAll(_ context.Context) ([]models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Account, len(s.accounts))
	copy(out, s.accounts)
	return out, nil
}
