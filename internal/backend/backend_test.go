package backend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneh/internal/log"
)

func TestParseDatabaseURL(t *testing.T) {
	tests := []struct {
		in      string
		want    Config
		wantErr bool
	}{
		{in: "sqlite://./data/moneh.db", want: Config{Type: SQLite, SQLitePath: "./data/moneh.db"}},
		{in: "sqlite:///var/lib/moneh.db", want: Config{Type: SQLite, SQLitePath: "/var/lib/moneh.db"}},
		{in: "postgres://u:p@db:5432/moneh", want: Config{Type: Postgres, PostgresURL: "postgres://u:p@db:5432/moneh"}},
		{in: "postgresql://db/moneh", want: Config{Type: Postgres, PostgresURL: "postgresql://db/moneh"}},
		{in: "memory://", want: Config{Type: Memory}},
		{in: "sqlite://", wantErr: true},
		{in: "mysql://db", wantErr: true},
		{in: "./data/moneh.db", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseDatabaseURL(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestOpenSQLiteAndMemory(t *testing.T) {
	ctx := context.Background()

	res, err := OpenURL(ctx, "sqlite://"+filepath.Join(t.TempDir(), "moneh.db"), log.Discard())
	require.NoError(t, err)
	assert.Equal(t, SQLite, res.Type)
	require.NoError(t, res.Repository.Ping(ctx))
	require.NoError(t, res.Cleanup())

	res, err = OpenURL(ctx, "memory://", nil)
	require.NoError(t, err)
	assert.Equal(t, Memory, res.Type)
	require.NoError(t, res.Repository.Ping(ctx))
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	_, err := Open(context.Background(), Config{Type: SQLite}, nil)
	assert.Error(t, err)
	_, err = Open(context.Background(), Config{Type: "sheets"}, nil)
	assert.Error(t, err)
}
