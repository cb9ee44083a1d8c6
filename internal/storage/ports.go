// Package storage defines the persistence ports used by the auth and
// services packages and provides the default SQLite implementation.
package storage

import (
	"context"
	"time"

	"moneh/internal/core"
)

// UserRepository persists accounts. CreateUser returns core.ErrUsernameTaken
// when the UNIQUE constraint fires; lookups return core.ErrNotFound.
type UserRepository interface {
	CreateUser(ctx context.Context, u core.User) (core.UserID, error)
	GetUser(ctx context.Context, id core.UserID) (core.User, error)
	GetUserByUsername(ctx context.Context, username string) (core.User, error)
}

// EntryRepository reads entries and opens write transactions.
type EntryRepository interface {
	// ListEntries returns the owner's entries newest first.
	ListEntries(ctx context.Context, owner core.UserID) ([]core.Entry, error)
	// InTx runs fn in a transaction that commits when fn returns nil and
	// rolls back otherwise.
	InTx(ctx context.Context, fn func(tx EntryTx) error) error
}

// EntryTx is the set of entry operations available inside a transaction.
// It is not scoped to an owner; callers check ownership.
type EntryTx interface {
	FindEntry(ctx context.Context, id core.EntryID) (core.Entry, error)
	InsertEntry(ctx context.Context, e core.Entry) (core.EntryID, error)
	UpdateEntry(ctx context.Context, e core.Entry) error
	DeleteEntry(ctx context.Context, id core.EntryID) error
}

type SessionRepository interface {
	CreateSession(ctx context.Context, s core.Session) error
	GetSession(ctx context.Context, id string) (core.Session, error)
	DeleteSession(ctx context.Context, id string) error
	// DeleteExpiredSessions removes sessions that expired at or before now
	// and reports how many were removed.
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// Repository is the full persistence surface of one backend.
type Repository interface {
	UserRepository
	EntryRepository
	SessionRepository

	Ping(ctx context.Context) error
	Close() error
}
