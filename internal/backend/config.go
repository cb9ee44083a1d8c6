package backend

import (
	"fmt"
	"strings"
)

// Config holds configuration for backend creation
type Config struct {
	Type Type

	// SQLitePath is the database file for the sqlite backend.
	SQLitePath string
	// PostgresURL is the connection string for the postgres backend.
	PostgresURL string
}

// ParseDatabaseURL maps a DATABASE_URL value to a backend Config:
//
//	sqlite://./data/moneh.db   -> SQLite file ./data/moneh.db
//	sqlite:///var/lib/moneh.db -> SQLite file /var/lib/moneh.db
//	postgres://... or postgresql://...
//	memory://
func ParseDatabaseURL(raw string) (Config, error) {
	scheme, rest, ok := strings.Cut(strings.TrimSpace(raw), "://")
	if !ok {
		return Config{}, fmt.Errorf("database URL %q has no scheme", raw)
	}

	switch strings.ToLower(scheme) {
	case "sqlite":
		if rest == "" {
			return Config{}, fmt.Errorf("database URL %q has no sqlite file path", raw)
		}
		return Config{Type: SQLite, SQLitePath: rest}, nil
	case "postgres", "postgresql":
		return Config{Type: Postgres, PostgresURL: raw}, nil
	case "memory":
		return Config{Type: Memory}, nil
	default:
		return Config{}, fmt.Errorf("unsupported database URL scheme %q: must be one of %v", scheme, Types())
	}
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case Postgres:
		if c.PostgresURL == "" {
			return fmt.Errorf("connection URL is required for postgres backend")
		}
	case Memory:
	}

	return nil
}
