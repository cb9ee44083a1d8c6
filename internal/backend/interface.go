// Package backend selects and opens the storage.Repository named by the
// DATABASE_URL setting.
package backend

import (
	"moneh/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result contains the repository and its cleanup function
type Result struct {
	Repository storage.Repository
	Type       Type
	Cleanup    CleanupFunc
}

// Type represents the kind of backend
type Type string

const (
	SQLite   Type = "sqlite"
	Postgres Type = "postgres"
	Memory   Type = "memory"
)

// String implements fmt.Stringer
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is valid
func (t Type) IsValid() bool {
	switch t {
	case SQLite, Postgres, Memory:
		return true
	default:
		return false
	}
}

// Types returns all valid backend types
func Types() []Type {
	return []Type{SQLite, Postgres, Memory}
}
