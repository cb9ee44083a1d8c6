package http

import (
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"

	"moneh/internal/core"
	"moneh/internal/log"
)

type authPage struct {
	pageData
	Next string
}

func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.currentUser(r); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, r, "register.html", authPage{pageData: s.page(w, r, "Register")})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.redirectWithFlash(w, r, "/register", NotificationError, "Invalid request.")
		return
	}

	_, err := s.creds.Register(r.Context(),
		sanitizeInput(r.PostForm.Get("username")),
		r.PostForm.Get("password"),
		r.PostForm.Get("confirm_password"))
	if err != nil {
		s.failAndRedirect(w, r, "/register", log.OpRegister, err)
		return
	}

	atomic.AddInt64(&s.appMetrics.registrations, 1)
	s.redirectWithFlash(w, r, "/login", NotificationSuccess, "Registration successful! Please log in.")
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	next := r.URL.Query().Get("next")
	if _, ok := s.currentUser(r); ok {
		http.Redirect(w, r, safeNext(next), http.StatusSeeOther)
		return
	}
	data := authPage{pageData: s.page(w, r, "Log in")}
	if n := safeNext(next); n != "/" {
		data.Next = n
	}
	s.render(w, r, "login.html", data)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	next := r.URL.Query().Get("next")
	if err := r.ParseForm(); err != nil {
		s.redirectWithFlash(w, r, loginURL(next), NotificationError, "Invalid request.")
		return
	}
	if next == "" {
		next = r.PostForm.Get("next")
	}

	u, err := s.creds.Authenticate(r.Context(),
		sanitizeInput(r.PostForm.Get("username")),
		r.PostForm.Get("password"))
	if err != nil {
		if errors.Is(err, core.ErrAuth) {
			atomic.AddInt64(&s.appMetrics.failedLogins, 1)
		}
		s.failAndRedirect(w, r, loginURL(next), log.OpLogin, err)
		return
	}

	token, _, err := s.sessions.Start(r.Context(), u.ID)
	if err != nil {
		s.failAndRedirect(w, r, loginURL(next), log.OpLogin, err)
		return
	}

	s.setSessionCookie(w, token)
	atomic.AddInt64(&s.appMetrics.logins, 1)
	s.redirectWithFlash(w, r, safeNext(next), NotificationSuccess, fmt.Sprintf("Welcome back, %s!", u.Username))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookieName); err == nil {
		if err := s.sessions.End(r.Context(), c.Value); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Failed to end session", log.FieldError, err)
		}
	}
	s.clearSessionCookie(w)
	s.redirectWithFlash(w, r, "/login", NotificationInfo, "You have been logged out.")
}
