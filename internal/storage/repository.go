package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"moneh/internal/core"
)

// SQLiteRepository implements Repository on a local SQLite file.
type SQLiteRepository struct {
	db *sql.DB
}

var _ Repository = (*SQLiteRepository)(nil)

// DSN returns the driver connection string for the database file at path.
func DSN(path string) string {
	return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// applies pending migrations.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; transactions never wait on a second connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return core.WrapStore("ping", r.db.PingContext(ctx))
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// Users

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.UserID, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)`,
		u.Username, u.PasswordHash, formatTime(u.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return 0, core.ErrUsernameTaken
		}
		return 0, core.WrapStore("create user", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, core.WrapStore("create user", err)
	}
	return core.UserID(id), nil
}

const userColumns = `id, username, password_hash, created_at`

func (r *SQLiteRepository) GetUser(ctx context.Context, id core.UserID) (core.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser("get user", row)
}

func (r *SQLiteRepository) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return scanUser("get user by username", row)
}

func scanUser(op string, row *sql.Row) (core.User, error) {
	var (
		u       core.User
		created string
	)
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.User{}, core.ErrNotFound
		}
		return core.User{}, core.WrapStore(op, err)
	}
	t, err := parseTime(created)
	if err != nil {
		return core.User{}, core.WrapStore(op, err)
	}
	u.CreatedAt = t
	return u, nil
}

// Entries

const entryColumns = `id, user_id, amount, description, type, category, created_at`

func (r *SQLiteRepository) ListEntries(ctx context.Context, owner core.UserID) ([]core.Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE user_id = ? ORDER BY created_at DESC, id DESC`, owner)
	if err != nil {
		return nil, core.WrapStore("list entries", err)
	}
	defer rows.Close()

	entries := []core.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, core.WrapStore("list entries", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, core.WrapStore("list entries", err)
	}
	return entries, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(s rowScanner) (core.Entry, error) {
	var (
		e               core.Entry
		amount, typ, ts string
	)
	if err := s.Scan(&e.ID, &e.UserID, &amount, &e.Description, &typ, &e.Category, &ts); err != nil {
		return core.Entry{}, err
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return core.Entry{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	created, err := parseTime(ts)
	if err != nil {
		return core.Entry{}, err
	}
	e.Amount = d
	e.Type = core.EntryType(typ)
	e.CreatedAt = created
	return e, nil
}

func (r *SQLiteRepository) InTx(ctx context.Context, fn func(tx EntryTx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.WrapStore("begin tx", err)
	}
	if err := fn(&sqliteTx{q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return core.WrapStore("commit tx", err)
	}
	return nil
}

type sqliteTx struct {
	q querier
}

func (t *sqliteTx) FindEntry(ctx context.Context, id core.EntryID) (core.Entry, error) {
	row := t.q.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Entry{}, core.ErrNotFound
	}
	return e, core.WrapStore("find entry", err)
}

func (t *sqliteTx) InsertEntry(ctx context.Context, e core.Entry) (core.EntryID, error) {
	res, err := t.q.ExecContext(ctx,
		`INSERT INTO entries (user_id, amount, description, type, category, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		e.UserID, core.FormatAmount(e.Amount), e.Description, string(e.Type), e.Category, formatTime(e.CreatedAt))
	if err != nil {
		return 0, core.WrapStore("insert entry", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, core.WrapStore("insert entry", err)
	}
	return core.EntryID(id), nil
}

func (t *sqliteTx) UpdateEntry(ctx context.Context, e core.Entry) error {
	res, err := t.q.ExecContext(ctx,
		`UPDATE entries SET amount = ?, description = ?, category = ? WHERE id = ?`,
		core.FormatAmount(e.Amount), e.Description, e.Category, e.ID)
	if err != nil {
		return core.WrapStore("update entry", err)
	}
	return requireAffected("update entry", res)
}

func (t *sqliteTx) DeleteEntry(ctx context.Context, id core.EntryID) error {
	res, err := t.q.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return core.WrapStore("delete entry", err)
	}
	return requireAffected("delete entry", res)
}

func requireAffected(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return core.WrapStore(op, err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// Sessions

func (r *SQLiteRepository) CreateSession(ctx context.Context, s core.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		s.ID, s.UserID, formatTime(s.CreatedAt), formatTime(s.ExpiresAt))
	return core.WrapStore("create session", err)
}

func (r *SQLiteRepository) GetSession(ctx context.Context, id string) (core.Session, error) {
	var (
		s                core.Session
		created, expires string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, expires_at FROM sessions WHERE id = ?`, id).
		Scan(&s.ID, &s.UserID, &created, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Session{}, core.ErrNotFound
	}
	if err != nil {
		return core.Session{}, core.WrapStore("get session", err)
	}
	if s.CreatedAt, err = parseTime(created); err != nil {
		return core.Session{}, core.WrapStore("get session", err)
	}
	if s.ExpiresAt, err = parseTime(expires); err != nil {
		return core.Session{}, core.WrapStore("get session", err)
	}
	return s, nil
}

func (r *SQLiteRepository) DeleteSession(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return core.WrapStore("delete session", err)
}

func (r *SQLiteRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, formatTime(now))
	if err != nil {
		return 0, core.WrapStore("delete expired sessions", err)
	}
	n, err := res.RowsAffected()
	return n, core.WrapStore("delete expired sessions", err)
}
