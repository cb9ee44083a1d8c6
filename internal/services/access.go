package services

import (
	"context"

	"moneh/internal/core"
	"moneh/internal/storage"
)

// withOwnedEntry is the single ownership gate for entry access. Inside one
// transaction it loads the entry, hides it unless owner owns it, and hands
// it to fn. A missing entry and a foreign entry both yield core.ErrNotFound.
func (s *EntryService) withOwnedEntry(ctx context.Context, owner core.UserID, id core.EntryID, fn func(tx storage.EntryTx, e *core.Entry) error) error {
	if owner == 0 {
		return core.ErrUnauthenticated
	}
	if id <= 0 {
		return core.ErrNotFound
	}

	return s.repo.InTx(ctx, func(tx storage.EntryTx) error {
		e, err := tx.FindEntry(ctx, id)
		if err != nil {
			return err
		}
		if e.UserID != owner {
			return core.ErrNotFound
		}
		return fn(tx, &e)
	})
}
