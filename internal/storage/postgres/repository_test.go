package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneh/internal/storage"
	"moneh/internal/storage/storagetest"
)

func openTestRepository(t *testing.T) *Repository {
	t.Helper()
	url := os.Getenv("MONEH_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("MONEH_TEST_POSTGRES_URL not set")
	}
	repo, err := Open(context.Background(), url)
	require.NoError(t, err)
	_, err = repo.pool.Exec(context.Background(), `TRUNCATE users, entries, sessions RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestRepository(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Repository {
		return openTestRepository(t)
	})
}

func TestMigrateURL(t *testing.T) {
	tests := map[string]string{
		"postgres://u:p@localhost:5432/moneh":   "pgx5://u:p@localhost:5432/moneh",
		"postgresql://u:p@localhost:5432/moneh": "pgx5://u:p@localhost:5432/moneh",
		"pgx5://already":                        "pgx5://already",
	}
	for in, want := range tests {
		assert.Equal(t, want, migrateURL(in), in)
	}
}
