// Package memory is an in-process storage.Repository for tests, demos and
// the memory:// backend. Nothing survives a restart.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"moneh/internal/core"
	"moneh/internal/storage"
)

type Store struct {
	mu        sync.RWMutex
	users     map[core.UserID]core.User
	usernames map[string]core.UserID
	entries   map[core.EntryID]core.Entry
	sessions  map[string]core.Session
	lastUser  core.UserID
	lastEntry core.EntryID
}

var _ storage.Repository = (*Store)(nil)

func New() *Store {
	return &Store{
		users:     map[core.UserID]core.User{},
		usernames: map[string]core.UserID{},
		entries:   map[core.EntryID]core.Entry{},
		sessions:  map[string]core.Session{},
	}
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

func (s *Store) CreateUser(_ context.Context, u core.User) (core.UserID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.usernames[u.Username]; ok {
		return 0, core.ErrUsernameTaken
	}
	s.lastUser++
	u.ID = s.lastUser
	s.users[u.ID] = u
	s.usernames[u.Username] = u.ID
	return u.ID, nil
}

func (s *Store) GetUser(_ context.Context, id core.UserID) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, core.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	s.mu.RLock()
	id, ok := s.usernames[username]
	s.mu.RUnlock()
	if !ok {
		return core.User{}, core.ErrNotFound
	}
	return s.GetUser(ctx, id)
}

// ListEntries returns the owner's entries ordered by created_at then id,
// both descending.
func (s *Store) ListEntries(_ context.Context, owner core.UserID) ([]core.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []core.Entry{}
	for _, e := range s.entries {
		if e.UserID == owner {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b core.Entry) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return int(b.ID - a.ID)
	})
	return out, nil
}

// InTx serializes writers and applies fn to a copy of the entries, swapping
// it in only when fn succeeds.
func (s *Store) InTx(_ context.Context, fn func(tx storage.EntryTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &memTx{entries: maps.Clone(s.entries), last: s.lastEntry, users: s.users}
	if err := fn(tx); err != nil {
		return err
	}
	s.entries = tx.entries
	s.lastEntry = tx.last
	return nil
}

type memTx struct {
	entries map[core.EntryID]core.Entry
	users   map[core.UserID]core.User
	last    core.EntryID
}

func (t *memTx) FindEntry(_ context.Context, id core.EntryID) (core.Entry, error) {
	e, ok := t.entries[id]
	if !ok {
		return core.Entry{}, core.ErrNotFound
	}
	return e, nil
}

func (t *memTx) InsertEntry(_ context.Context, e core.Entry) (core.EntryID, error) {
	if _, ok := t.users[e.UserID]; !ok {
		return 0, core.WrapStore("insert entry", errForeignKey)
	}
	t.last++
	e.ID = t.last
	t.entries[e.ID] = e
	return e.ID, nil
}

func (t *memTx) UpdateEntry(_ context.Context, e core.Entry) error {
	cur, ok := t.entries[e.ID]
	if !ok {
		return core.ErrNotFound
	}
	cur.Amount = e.Amount
	cur.Description = e.Description
	cur.Category = e.Category
	t.entries[e.ID] = cur
	return nil
}

func (t *memTx) DeleteEntry(_ context.Context, id core.EntryID) error {
	if _, ok := t.entries[id]; !ok {
		return core.ErrNotFound
	}
	delete(t.entries, id)
	return nil
}

func (s *Store) CreateSession(_ context.Context, sess core.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[sess.UserID]; !ok {
		return core.WrapStore("create session", errForeignKey)
	}
	s.sessions[sess.ID] = sess
	return nil
}

func (s *Store) GetSession(_ context.Context, id string) (core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return core.Session{}, core.ErrNotFound
	}
	return sess, nil
}

func (s *Store) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *Store) DeleteExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, sess := range s.sessions {
		if sess.Expired(now) {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}
