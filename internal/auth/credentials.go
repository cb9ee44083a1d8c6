// Package auth registers and authenticates users and manages their
// server-side sessions.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"moneh/internal/core"
	"moneh/internal/log"
	"moneh/internal/storage"
)

type CredentialService struct {
	users  storage.UserRepository
	hasher PasswordHasher
	logger *log.Logger
	now    func() time.Time
}

func NewCredentialService(users storage.UserRepository, hasher PasswordHasher, logger *log.Logger) *CredentialService {
	if logger == nil {
		logger = log.Discard()
	}
	return &CredentialService{
		users:  users,
		hasher: hasher,
		logger: logger.WithComponent(log.ComponentAuth),
		now:    time.Now,
	}
}

// Register validates the submission and creates the account. Checks run in
// order: required fields, confirmation, length limits, availability.
func (s *CredentialService) Register(ctx context.Context, username, password, confirm string) (core.UserID, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	confirm = strings.TrimSpace(confirm)

	switch {
	case username == "" || password == "":
		return 0, core.ErrCredentialsRequired
	case password != confirm:
		return 0, core.ErrPasswordMismatch
	case utf8.RuneCountInString(password) < core.MinPasswordLength:
		return 0, core.ErrPasswordTooShort
	case utf8.RuneCountInString(username) > core.MaxUsernameLength:
		return 0, core.ErrUsernameTooLong
	}

	_, err := s.users.GetUserByUsername(ctx, username)
	switch {
	case err == nil:
		return 0, core.ErrUsernameTaken
	case !errors.Is(err, core.ErrNotFound):
		return 0, core.WrapStore("lookup user", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return 0, core.WrapStore("hash password", err)
	}

	id, err := s.users.CreateUser(ctx, core.User{
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		// UNIQUE constraint backstop for a concurrent registration
		return 0, err
	}

	s.logger.InfoContext(ctx, "User registered", log.FieldUserID, int64(id), log.FieldOperation, log.OpRegister)
	return id, nil
}

// Authenticate returns the user whose password matches. Unknown usernames
// and wrong passwords both yield core.ErrAuth.
func (s *CredentialService) Authenticate(ctx context.Context, username, password string) (core.User, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		return core.User{}, core.ErrLoginFieldsRequired
	}

	u, err := s.users.GetUserByUsername(ctx, username)
	if errors.Is(err, core.ErrNotFound) {
		s.logger.InfoContext(ctx, "Login failed", log.FieldOperation, log.OpLogin)
		return core.User{}, core.ErrAuth
	}
	if err != nil {
		return core.User{}, core.WrapStore("lookup user", err)
	}

	if err := s.hasher.Verify(u.PasswordHash, password); err != nil {
		if !errors.Is(err, ErrHashMismatch) {
			s.logger.WarnContext(ctx, "Password verification error", log.FieldUserID, int64(u.ID), log.FieldError, err)
		}
		s.logger.InfoContext(ctx, "Login failed", log.FieldOperation, log.OpLogin)
		return core.User{}, core.ErrAuth
	}

	return u, nil
}
