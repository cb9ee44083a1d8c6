package http

import (
	"bytes"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"moneh/internal/core"
	"moneh/internal/export"
	"moneh/internal/log"
)

type indexPage struct {
	pageData
	Summary core.Summary
}

type editPage struct {
	pageData
	Entry core.Entry
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())

	data := indexPage{pageData: s.page(w, r, "Moneh")}
	sum, err := s.entries.Summary(r.Context(), id.UserID)
	if err != nil {
		// Render the page anyway; the notice tells the user the list is missing.
		s.events.Failed(r.Context(), "Failed to load entries", log.OpList, err, nil)
		data.Flashes = append(data.Flashes, Flash{Kind: NotificationError, Message: core.UserMessage(err)})
		sum = core.Summarize(nil)
	}
	data.Summary = sum
	s.render(w, r, "index.html", data)
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	if err := r.ParseForm(); err != nil {
		s.redirectWithFlash(w, r, "/", NotificationError, "Invalid request.")
		return
	}

	in := core.NewEntry{
		Amount:      r.PostForm.Get("amount"),
		Type:        r.PostForm.Get("type"),
		Category:    sanitizeInput(r.PostForm.Get("category")),
		Description: sanitizeInput(r.PostForm.Get("description")),
	}
	if _, err := s.entries.Create(r.Context(), id.UserID, in); err != nil {
		s.failAndRedirect(w, r, "/", log.OpCreate, err)
		return
	}

	atomic.AddInt64(&s.appMetrics.entriesCreated, 1)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleEditForm(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	entryID, err := parseEntryID(r)
	if err != nil {
		s.failAndRedirect(w, r, "/", log.OpRead, err)
		return
	}
	e, err := s.entries.Get(r.Context(), id.UserID, entryID)
	if err != nil {
		s.failAndRedirect(w, r, "/", log.OpRead, err)
		return
	}
	s.render(w, r, "edit.html", editPage{pageData: s.page(w, r, "Edit entry"), Entry: e})
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	entryID, err := parseEntryID(r)
	if err != nil {
		s.failAndRedirect(w, r, "/", log.OpUpdate, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		s.redirectWithFlash(w, r, editURL(entryID), NotificationError, "Invalid request.")
		return
	}

	// Fields absent from the form stay unchanged.
	var patch core.EntryPatch
	if _, ok := r.PostForm["amount"]; ok {
		v := r.PostForm.Get("amount")
		patch.Amount = &v
	}
	if _, ok := r.PostForm["description"]; ok {
		v := sanitizeInput(r.PostForm.Get("description"))
		patch.Description = &v
	}
	if _, ok := r.PostForm["category"]; ok {
		v := sanitizeInput(r.PostForm.Get("category"))
		patch.Category = &v
	}

	if _, err := s.entries.Update(r.Context(), id.UserID, entryID, patch); err != nil {
		target := "/"
		if isUserError(err) && !isNotFound(err) {
			target = editURL(entryID)
		}
		s.failAndRedirect(w, r, target, log.OpUpdate, err)
		return
	}

	atomic.AddInt64(&s.appMetrics.entriesUpdated, 1)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	entryID, err := parseEntryID(r)
	if err != nil {
		s.failAndRedirect(w, r, "/", log.OpDelete, err)
		return
	}
	if err := s.entries.Delete(r.Context(), id.UserID, entryID); err != nil {
		s.failAndRedirect(w, r, "/", log.OpDelete, err)
		return
	}

	atomic.AddInt64(&s.appMetrics.entriesDeleted, 1)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleExport streams the user's entries as an xlsx workbook.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	sum, err := s.entries.Summary(r.Context(), id.UserID)
	if err != nil {
		s.failAndRedirect(w, r, "/", log.OpRead, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, sum); err != nil {
		s.failAndRedirect(w, r, "/", log.OpRead, err)
		return
	}

	atomic.AddInt64(&s.appMetrics.exports, 1)
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", export.Filename(id.Username, time.Now())))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func editURL(id core.EntryID) string {
	return fmt.Sprintf("/edit/%d", id)
}
