package http

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// NotificationType is the category of a flash notice.
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
	NotificationInfo    NotificationType = "info"
)

// Flash is a one-shot notice shown on the next rendered page.
type Flash struct {
	Kind    NotificationType `json:"kind"`
	Message string           `json:"message"`
}

const (
	flashCookieName = "moneh_flash"
	flashAudience   = "moneh-flash"
	flashTTL        = 5 * time.Minute
)

type flashClaims struct {
	Messages []Flash `json:"msgs"`
	jwt.RegisteredClaims
}

// flasher stores notices in a signed cookie so they survive one redirect.
type flasher struct {
	secret []byte
	secure bool
	now    func() time.Time
}

// set replaces any pending notices with msgs.
func (f *flasher) set(w http.ResponseWriter, msgs ...Flash) {
	if len(msgs) == 0 {
		return
	}
	now := f.now()
	claims := flashClaims{
		Messages: msgs,
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{flashAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(flashTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(f.secret)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(flashTTL.Seconds()),
		HttpOnly: true,
		Secure:   f.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// pop returns the pending notices and clears the cookie. Tampered or
// expired cookies yield nothing.
func (f *flasher) pop(w http.ResponseWriter, r *http.Request) []Flash {
	c, err := r.Cookie(flashCookieName)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   f.secure,
		SameSite: http.SameSiteLaxMode,
	})

	var claims flashClaims
	_, err = jwt.ParseWithClaims(c.Value, &claims, func(*jwt.Token) (any, error) {
		return f.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(flashAudience),
		jwt.WithTimeFunc(f.now),
	)
	if err != nil {
		return nil
	}
	return claims.Messages
}
