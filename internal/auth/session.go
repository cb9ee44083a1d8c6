package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"moneh/internal/core"
	"moneh/internal/log"
	"moneh/internal/storage"
)

// Claims is the payload of a session cookie. The JWT id is the session id.
type Claims struct {
	UserID core.UserID `json:"uid"`
	jwt.RegisteredClaims
}

// SessionManager issues and resolves session cookies backed by server-side
// session rows, so logout and expiry take effect even for a valid token.
type SessionManager struct {
	sessions storage.SessionRepository
	secret   []byte
	ttl      time.Duration
	logger   *log.Logger
	now      func() time.Time
}

func NewSessionManager(sessions storage.SessionRepository, secret string, ttl time.Duration, logger *log.Logger) *SessionManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &SessionManager{
		sessions: sessions,
		secret:   []byte(secret),
		ttl:      ttl,
		logger:   logger.WithComponent(log.ComponentAuth),
		now:      time.Now,
	}
}

// TTL is the lifetime of new sessions.
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// Start creates a session for userID and returns the signed cookie value.
func (m *SessionManager) Start(ctx context.Context, userID core.UserID) (string, core.Session, error) {
	now := m.now().UTC()
	sess := core.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.sessions.CreateSession(ctx, sess); err != nil {
		return "", core.Session{}, err
	}

	token, err := m.sign(sess)
	if err != nil {
		_ = m.sessions.DeleteSession(ctx, sess.ID)
		return "", core.Session{}, core.WrapStore("sign session", err)
	}

	m.logger.InfoContext(ctx, "Session started", log.FieldUserID, int64(userID), log.FieldOperation, log.OpLogin)
	return token, sess, nil
}

func (m *SessionManager) sign(sess core.Session) (string, error) {
	claims := &Claims{
		UserID: sess.UserID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID,
			IssuedAt:  jwt.NewNumericDate(sess.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *SessionManager) parse(token string, opts ...jwt.ParserOption) (*Claims, error) {
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now))
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.ID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// Resolve returns the live session behind token. Any signature, expiry or
// lookup failure is core.ErrUnauthenticated; store failures are ErrStore.
func (m *SessionManager) Resolve(ctx context.Context, token string) (core.Session, error) {
	if token == "" {
		return core.Session{}, core.ErrUnauthenticated
	}
	claims, err := m.parse(token)
	if err != nil {
		m.logger.DebugContext(ctx, "Rejected session token", log.FieldError, err)
		return core.Session{}, core.ErrUnauthenticated
	}

	sess, err := m.sessions.GetSession(ctx, claims.ID)
	if errors.Is(err, core.ErrNotFound) {
		return core.Session{}, core.ErrUnauthenticated
	}
	if err != nil {
		return core.Session{}, err
	}
	if sess.UserID != claims.UserID || sess.Expired(m.now()) {
		return core.Session{}, core.ErrUnauthenticated
	}
	return sess, nil
}

// End deletes the session behind token. Tokens that do not verify are
// ignored; an expired token still removes its row.
func (m *SessionManager) End(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	claims, err := m.parse(token, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil
	}
	if err := m.sessions.DeleteSession(ctx, claims.ID); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	m.logger.InfoContext(ctx, "Session ended", log.FieldUserID, int64(claims.UserID), log.FieldOperation, log.OpLogout)
	return nil
}

// PruneExpired deletes every expired session row.
func (m *SessionManager) PruneExpired(ctx context.Context) (int64, error) {
	n, err := m.sessions.DeleteExpiredSessions(ctx, m.now().UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		m.logger.InfoContext(ctx, "Pruned expired sessions", "count", n, log.FieldOperation, log.OpPrune)
	}
	return n, nil
}
