package storage_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"moneh/internal/storage"
	"moneh/internal/storage/storagetest"
)

func TestSQLiteRepository(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Repository {
		repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "moneh.db"))
		require.NoError(t, err)
		t.Cleanup(func() { repo.Close() })
		return repo
	})
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moneh.db")
	repo, err := storage.NewSQLiteRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	require.NoError(t, storage.RunMigrations(storage.DSN(path)))
}
