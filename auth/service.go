// Package auth registers accounts, checks login attempts and issues and
// verifies bearer tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"notekeeper/apperr"
	"notekeeper/models"
	"notekeeper/store"
)

type Service struct {
	accounts store.AccountStore
	hasher   *Hasher
	tokens   *TokenIssuer
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(accounts store.AccountStore, hasher *Hasher, tokens *TokenIssuer, logger *slog.Logger) *Service {
	return &Service{
		accounts: accounts,
		hasher:   hasher,
		tokens:   tokens,
		logger:   logger,
		now:      time.Now,
	}
}

func validateCredentials(email, password string) error {
	if strings.TrimSpace(email) == "" {
		return fmt.Errorf("email is required: %w", apperr.ErrInvalidInput)
	}
	if strings.TrimSpace(email) != email {
		return fmt.Errorf("email has surrounding whitespace: %w", apperr.ErrInvalidInput)
	}
	if local, domain, ok := strings.Cut(email, "@"); !ok || local == "" || domain == "" {
		return fmt.Errorf("email is malformed: %w", apperr.ErrInvalidInput)
	}
	if password == "" {
		return fmt.Errorf("password is required: %w", apperr.ErrInvalidInput)
	}
	return nil
}

// Register creates an account. The returned summary never includes the hash.
func (s *Service) Register(ctx context.Context, email, password string) (models.AccountSummary, error) {
	if err := validateCredentials(email, password); err != nil {
		return models.AccountSummary{}, err
	}

	_, err := s.accounts.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return models.AccountSummary{}, apperr.ErrDuplicateAccount
	case !errors.Is(err, store.ErrNotFound):
		return models.AccountSummary{}, s.storageFailure(ctx, "find account", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return models.AccountSummary{}, err
	}

	account := models.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC().Truncate(time.Microsecond),
	}
	if err := s.accounts.Insert(ctx, account); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return models.AccountSummary{}, apperr.ErrDuplicateAccount
		}
		return models.AccountSummary{}, s.storageFailure(ctx, "insert account", err)
	}

	s.logger.InfoContext(ctx, "account registered", slog.String("account_id", account.ID))
	return models.AccountSummary{ID: account.ID, Email: account.Email, CreatedAt: account.CreatedAt}, nil
}

// Authenticate checks the credentials and mints a session token. Unknown
// email and wrong password fail identically.
func (s *Service) Authenticate(ctx context.Context, email, password string) (models.LoginResult, error) {
	account, err := s.accounts.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.hasher.Burn(password)
		return models.LoginResult{}, apperr.ErrInvalidCredentials
	case err != nil:
		return models.LoginResult{}, s.storageFailure(ctx, "find account", err)
	}

	if !s.hasher.Matches(account.PasswordHash, password) {
		return models.LoginResult{}, apperr.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(account.ID, account.Email)
	if err != nil {
		return models.LoginResult{}, err
	}
	return models.LoginResult{
		Token: token,
		User:  models.UserRef{ID: account.ID, Email: account.Email},
	}, nil
}

// VerifyToken returns the identity carried by token, or ok == false.
func (s *Service) VerifyToken(token string) (models.Identity, bool) {
	return s.tokens.Verify(token)
}

func (s *Service) storageFailure(ctx context.Context, op string, err error) error {
	s.logger.ErrorContext(ctx, "credential store failure", slog.String("op", op), slog.String("error", err.Error()))
	return fmt.Errorf("%s: %w: %w", op, apperr.ErrStorageFailure, err)
}
