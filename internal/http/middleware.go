package http

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"moneh/internal/core"
	"moneh/internal/log"
)

const sessionCookieName = "moneh_session"

// Identity is the authenticated user of a request.
type Identity struct {
	UserID   core.UserID
	Username string
}

type identityKey struct{}

func withIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity stored by requireUser.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok && id.UserID != 0
}

// currentUser resolves the session cookie without enforcing it.
func (s *Server) currentUser(r *http.Request) (Identity, bool) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil || c.Value == "" {
		return Identity{}, false
	}
	sess, err := s.sessions.Resolve(r.Context(), c.Value)
	if err != nil {
		if !errors.Is(err, core.ErrUnauthenticated) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Session lookup failed", log.FieldError, err)
		}
		return Identity{}, false
	}
	u, err := s.users.GetUser(r.Context(), sess.UserID)
	if err != nil {
		return Identity{}, false
	}
	return Identity{UserID: u.ID, Username: u.Username}, true
}

// requireUser redirects anonymous requests to the login page, remembering
// the requested path, and stores the identity in the request context.
func (s *Server) requireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.currentUser(r)
		if !ok {
			if _, err := r.Cookie(sessionCookieName); err == nil {
				s.clearSessionCookie(w)
			}
			target := "/login"
			if r.Method == http.MethodGet && r.URL.Path != "/" {
				target += "?next=" + url.QueryEscape(r.URL.RequestURI())
			}
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
		ctx := withIdentity(r.Context(), id)
		ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldUserID, int64(id.UserID)))
		next(w, r.WithContext(ctx))
	}
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.sessions.TTL().Seconds()),
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
