package http

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"moneh/internal/core"
	"moneh/internal/log"
)

// templateFuncs are available to every page.
var templateFuncs = template.FuncMap{
	"amount": func(d decimal.Decimal) string { return core.FormatAmount(d) },
	// magnitude renders an amount without its sign, for edit forms.
	"magnitude": func(d decimal.Decimal) string { return core.FormatAmount(d.Abs()) },
	"tierMessage": func(t core.WarningTier) string { return t.Message() },
}

// pageData is the common part of every rendered page.
type pageData struct {
	Title   string
	User    *Identity
	Flashes []Flash
}

// render executes a page into a buffer first so a template failure can
// still produce a clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentTemplate).ErrorContext(r.Context(),
			"Template execution failed", log.FieldError, err, "template", name)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// page builds the common page fields, consuming pending flash notices.
func (s *Server) page(w http.ResponseWriter, r *http.Request, title string) pageData {
	p := pageData{Title: title, Flashes: s.flash.pop(w, r)}
	if id, ok := IdentityFrom(r.Context()); ok {
		p.User = &id
	}
	return p
}

// redirectWithFlash stores one notice and redirects with 303.
func (s *Server) redirectWithFlash(w http.ResponseWriter, r *http.Request, target string, kind NotificationType, msg string) {
	s.flash.set(w, Flash{Kind: kind, Message: msg})
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// failAndRedirect maps err to its user notice, logs anything that is not
// the user's fault, and redirects to target.
func (s *Server) failAndRedirect(w http.ResponseWriter, r *http.Request, target, op string, err error) {
	if !isUserError(err) {
		s.events.Failed(r.Context(), "Request failed", op, err, nil)
	}
	s.redirectWithFlash(w, r, target, NotificationError, core.UserMessage(err))
}

func isUserError(err error) bool {
	for _, kind := range []error{core.ErrValidation, core.ErrAuth, core.ErrNotFound, core.ErrUnauthenticated} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// safeNext returns next when it is a local absolute path, otherwise "/".
func safeNext(next string) string {
	next = strings.TrimSpace(next)
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return "/"
	}
	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" {
		return "/"
	}
	return next
}

// loginURL is the login page, carrying next when it is worth keeping.
func loginURL(next string) string {
	if next = safeNext(next); next == "/" {
		return "/login"
	}
	return "/login?next=" + url.QueryEscape(next)
}

// parseEntryID reads the {id} path value. Malformed ids behave like
// unknown ones.
func parseEntryID(r *http.Request) (core.EntryID, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.ErrNotFound
	}
	return core.EntryID(id), nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

func isNotFound(err error) bool {
	return errors.Is(err, core.ErrNotFound)
}
