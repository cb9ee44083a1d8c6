// Package storagetest holds the behaviour every storage.Repository
// implementation must share. Backends call Run from their own tests.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneh/internal/core"
	"moneh/internal/storage"
)

// Opener returns a fresh, empty repository. Cleanup is the opener's job.
type Opener func(t *testing.T) storage.Repository

var base = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

// Run executes the shared repository suite against open.
func Run(t *testing.T, open Opener) {
	t.Run("Users", func(t *testing.T) { testUsers(t, open(t)) })
	t.Run("EntriesRoundTrip", func(t *testing.T) { testEntriesRoundTrip(t, open(t)) })
	t.Run("ListOrderAndScope", func(t *testing.T) { testListOrderAndScope(t, open(t)) })
	t.Run("TxRollback", func(t *testing.T) { testTxRollback(t, open(t)) })
	t.Run("UpdateDelete", func(t *testing.T) { testUpdateDelete(t, open(t)) })
	t.Run("Sessions", func(t *testing.T) { testSessions(t, open(t)) })
}

func mustUser(t *testing.T, repo storage.Repository, name string) core.UserID {
	t.Helper()
	id, err := repo.CreateUser(context.Background(), core.User{Username: name, PasswordHash: "hash-" + name, CreatedAt: base})
	require.NoError(t, err)
	require.NotZero(t, id)
	return id
}

func mustInsert(t *testing.T, repo storage.Repository, e core.Entry) core.EntryID {
	t.Helper()
	var id core.EntryID
	err := repo.InTx(context.Background(), func(tx storage.EntryTx) error {
		var err error
		id, err = tx.InsertEntry(context.Background(), e)
		return err
	})
	require.NoError(t, err)
	return id
}

func testUsers(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	id := mustUser(t, repo, "alice")

	u, err := repo.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, "hash-alice", u.PasswordHash)
	assert.True(t, base.Equal(u.CreatedAt))

	byID, err := repo.GetUser(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)

	_, err = repo.CreateUser(ctx, core.User{Username: "alice", PasswordHash: "x", CreatedAt: base})
	assert.ErrorIs(t, err, core.ErrUsernameTaken)

	_, err = repo.GetUserByUsername(ctx, "bob")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = repo.GetUser(ctx, id+100)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func testEntriesRoundTrip(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	owner := mustUser(t, repo, "alice")
	in := core.Entry{
		UserID:      owner,
		Amount:      decimal.RequireFromString("-12.34"),
		Description: "Groceries",
		Type:        core.Expense,
		Category:    "Food",
		CreatedAt:   base,
	}
	id := mustInsert(t, repo, in)

	err := repo.InTx(ctx, func(tx storage.EntryTx) error {
		got, err := tx.FindEntry(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, got.ID)
		assert.Equal(t, owner, got.UserID)
		assert.True(t, in.Amount.Equal(got.Amount), "amount %s", got.Amount)
		assert.Equal(t, in.Description, got.Description)
		assert.Equal(t, core.Expense, got.Type)
		assert.Equal(t, in.Category, got.Category)
		assert.True(t, base.Equal(got.CreatedAt))

		_, err = tx.FindEntry(ctx, id+100)
		assert.ErrorIs(t, err, core.ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func testListOrderAndScope(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	alice := mustUser(t, repo, "alice")
	bob := mustUser(t, repo, "bob")

	empty, err := repo.ListEntries(ctx, alice)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	first := mustInsert(t, repo, core.Entry{UserID: alice, Amount: decimal.NewFromInt(10), Type: core.Income, CreatedAt: base})
	second := mustInsert(t, repo, core.Entry{UserID: alice, Amount: decimal.NewFromInt(-3), Type: core.Expense, CreatedAt: base.Add(time.Hour)})
	// same timestamp as second: id breaks the tie
	third := mustInsert(t, repo, core.Entry{UserID: alice, Amount: decimal.NewFromInt(-1), Type: core.Expense, CreatedAt: base.Add(time.Hour)})
	mustInsert(t, repo, core.Entry{UserID: bob, Amount: decimal.NewFromInt(99), Type: core.Income, CreatedAt: base})

	list, err := repo.ListEntries(ctx, alice)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []core.EntryID{third, second, first}, []core.EntryID{list[0].ID, list[1].ID, list[2].ID})

	bobs, err := repo.ListEntries(ctx, bob)
	require.NoError(t, err)
	require.Len(t, bobs, 1)
	assert.Equal(t, bob, bobs[0].UserID)
}

func testTxRollback(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	owner := mustUser(t, repo, "alice")
	boom := errors.New("boom")

	err := repo.InTx(ctx, func(tx storage.EntryTx) error {
		_, err := tx.InsertEntry(ctx, core.Entry{UserID: owner, Amount: decimal.NewFromInt(5), Type: core.Income, CreatedAt: base})
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	list, err := repo.ListEntries(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func testUpdateDelete(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	owner := mustUser(t, repo, "alice")
	id := mustInsert(t, repo, core.Entry{UserID: owner, Amount: decimal.NewFromInt(-10), Type: core.Expense, Description: "a", CreatedAt: base})

	err := repo.InTx(ctx, func(tx storage.EntryTx) error {
		e, err := tx.FindEntry(ctx, id)
		if err != nil {
			return err
		}
		e.Amount = decimal.RequireFromString("-25.50")
		e.Description = "b"
		e.Category = "c"
		return tx.UpdateEntry(ctx, e)
	})
	require.NoError(t, err)

	list, err := repo.ListEntries(ctx, owner)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Amount.Equal(decimal.RequireFromString("-25.5")))
	assert.Equal(t, "b", list[0].Description)
	assert.Equal(t, "c", list[0].Category)
	assert.Equal(t, core.Expense, list[0].Type)

	err = repo.InTx(ctx, func(tx storage.EntryTx) error {
		return tx.UpdateEntry(ctx, core.Entry{ID: id + 100, Amount: decimal.NewFromInt(1)})
	})
	assert.ErrorIs(t, err, core.ErrNotFound)

	err = repo.InTx(ctx, func(tx storage.EntryTx) error { return tx.DeleteEntry(ctx, id) })
	require.NoError(t, err)
	err = repo.InTx(ctx, func(tx storage.EntryTx) error { return tx.DeleteEntry(ctx, id) })
	assert.ErrorIs(t, err, core.ErrNotFound)

	list, err = repo.ListEntries(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func testSessions(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	owner := mustUser(t, repo, "alice")

	live := core.Session{ID: "live", UserID: owner, CreatedAt: base, ExpiresAt: base.Add(time.Hour)}
	stale := core.Session{ID: "stale", UserID: owner, CreatedAt: base, ExpiresAt: base.Add(time.Minute)}
	require.NoError(t, repo.CreateSession(ctx, live))
	require.NoError(t, repo.CreateSession(ctx, stale))

	got, err := repo.GetSession(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, owner, got.UserID)
	assert.True(t, live.ExpiresAt.Equal(got.ExpiresAt))

	n, err := repo.DeleteExpiredSessions(ctx, base.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.GetSession(ctx, "stale")
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, repo.DeleteSession(ctx, "live"))
	_, err = repo.GetSession(ctx, "live")
	assert.ErrorIs(t, err, core.ErrNotFound)

	// deleting a missing session is not an error
	assert.NoError(t, repo.DeleteSession(ctx, "live"))
}
