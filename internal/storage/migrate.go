package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// The users, entries and sessions tables for SQLite.
//
//go:embed migrations/*.sql
var schema embed.FS

// RunMigrations applies every pending schema step to the SQLite file at dsn.
// An up-to-date schema is not an error.
func RunMigrations(dsn string) error {
	// migrate closes the handle it is given, so it gets its own.
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("open sqlite schema connection: %w", err)
	}
	defer conn.Close()

	m, err := newSQLiteMigrator(conn)
	if err != nil {
		return err
	}
	defer m.Close()

	switch err := m.Up(); {
	case err == nil, errors.Is(err, migrate.ErrNoChange):
		return nil
	default:
		return fmt.Errorf("apply sqlite schema: %w", err)
	}
}

func newSQLiteMigrator(conn *sql.DB) (*migrate.Migrate, error) {
	steps, err := iofs.New(schema, "migrations")
	if err != nil {
		return nil, fmt.Errorf("read embedded sqlite schema: %w", err)
	}
	target, err := sqlite.WithInstance(conn, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("bind sqlite schema target: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", steps, "sqlite", target)
	if err != nil {
		return nil, fmt.Errorf("prepare sqlite schema: %w", err)
	}
	return m, nil
}
