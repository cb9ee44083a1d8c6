// Package postgres implements storage.Repository on PostgreSQL through a
// pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"moneh/internal/core"
	"moneh/internal/storage"
)

const uniqueViolation = "23505"

type Repository struct {
	pool *pgxpool.Pool
}

var _ storage.Repository = (*Repository)(nil)

// Open migrates the database at url and connects a pool to it.
func Open(ctx context.Context, url string) (*Repository, error) {
	if err := RunMigrations(url); err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Repository{pool: pool}, nil
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return core.WrapStore("ping", r.pool.Ping(ctx))
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func (r *Repository) CreateUser(ctx context.Context, u core.User) (core.UserID, error) {
	var id core.UserID
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (username, password_hash, created_at) VALUES ($1, $2, $3) RETURNING id`,
		u.Username, u.PasswordHash, u.CreatedAt.UTC()).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, core.ErrUsernameTaken
		}
		return 0, core.WrapStore("create user", err)
	}
	return id, nil
}

func (r *Repository) GetUser(ctx context.Context, id core.UserID) (core.User, error) {
	return r.getUser(ctx, "get user", `SELECT id, username, password_hash, created_at FROM users WHERE id = $1`, id)
}

func (r *Repository) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	return r.getUser(ctx, "get user by username", `SELECT id, username, password_hash, created_at FROM users WHERE username = $1`, username)
}

func (r *Repository) getUser(ctx context.Context, op, query string, arg any) (core.User, error) {
	var u core.User
	err := r.pool.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.User{}, core.ErrNotFound
	}
	if err != nil {
		return core.User{}, core.WrapStore(op, err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

// Amounts cross the wire as text so decimal never goes through float64.
const entryColumns = `id, user_id, amount::text, description, type, category, created_at`

func scanEntry(row pgx.Row) (core.Entry, error) {
	var (
		e           core.Entry
		amount, typ string
	)
	if err := row.Scan(&e.ID, &e.UserID, &amount, &e.Description, &typ, &e.Category, &e.CreatedAt); err != nil {
		return core.Entry{}, err
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return core.Entry{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	e.Amount = d
	e.Type = core.EntryType(typ)
	e.CreatedAt = e.CreatedAt.UTC()
	return e, nil
}

func (r *Repository) ListEntries(ctx context.Context, owner core.UserID) ([]core.Entry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, owner)
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

func (r *Repository) InTx(ctx context.Context, fn func(tx storage.EntryTx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return core.WrapStore("begin tx", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	return core.WrapStore("commit tx", tx.Commit(ctx))
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) FindEntry(ctx context.Context, id core.EntryID) (core.Entry, error) {
	e, err := scanEntry(t.tx.QueryRow(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Entry{}, core.ErrNotFound
	}
	return e, core.WrapStore("find entry", err)
}

func (t *pgTx) InsertEntry(ctx context.Context, e core.Entry) (core.EntryID, error) {
	var id core.EntryID
	err := t.tx.QueryRow(ctx,
		`INSERT INTO entries (user_id, amount, description, type, category, created_at)
		 VALUES ($1, $2::numeric, $3, $4, $5, $6) RETURNING id`,
		e.UserID, core.FormatAmount(e.Amount), e.Description, string(e.Type), e.Category, e.CreatedAt.UTC()).Scan(&id)
	if err != nil {
		return 0, core.WrapStore("insert entry", err)
	}
	return id, nil
}

func (t *pgTx) UpdateEntry(ctx context.Context, e core.Entry) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE entries SET amount = $1::numeric, description = $2, category = $3 WHERE id = $4`,
		core.FormatAmount(e.Amount), e.Description, e.Category, e.ID)
	if err != nil {
		return core.WrapStore("update entry", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (t *pgTx) DeleteEntry(ctx context.Context, id core.EntryID) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM entries WHERE id = $1`, id)
	if err != nil {
		return core.WrapStore("delete entry", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *Repository) CreateSession(ctx context.Context, s core.Session) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sessions (id, user_id, created_at, expires_at) VALUES ($1, $2, $3, $4)`,
		s.ID, s.UserID, s.CreatedAt.UTC(), s.ExpiresAt.UTC())
	return core.WrapStore("create session", err)
}

func (r *Repository) GetSession(ctx context.Context, id string) (core.Session, error) {
	var s core.Session
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, created_at, expires_at FROM sessions WHERE id = $1`, id).
		Scan(&s.ID, &s.UserID, &s.CreatedAt, &s.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Session{}, core.ErrNotFound
	}
	if err != nil {
		return core.Session{}, core.WrapStore("get session", err)
	}
	s.CreatedAt, s.ExpiresAt = s.CreatedAt.UTC(), s.ExpiresAt.UTC()
	return s, nil
}

func (r *Repository) DeleteSession(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return core.WrapStore("delete session", err)
}

func (r *Repository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now.UTC())
	if err != nil {
		return 0, core.WrapStore("delete expired sessions", err)
	}
	return tag.RowsAffected(), nil
}
