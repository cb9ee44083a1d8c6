package log

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"moneh/internal/core"
)

// Events writes the records several packages share: request start and
// end, entry changes and failures. Each record goes through Scoped, so it
// carries the request attributes when there are any.
type Events struct {
	logger *Logger
}

func NewEvents(logger *Logger) *Events {
	if logger == nil {
		logger = Discard()
	}
	return &Events{logger: logger}
}

func (e *Events) RequestStarted(ctx context.Context, r *http.Request, clientIP string) {
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent"), r.Header.Get("Referer")).
		WithClientIP(clientIP)
	Scoped(ctx, e.logger).DebugContext(ctx, "HTTP request started", fields.ToSlice()...)
}

// RequestFinished logs at info, warn for 4xx and error for 5xx.
func (e *Events) RequestFinished(ctx context.Context, r *http.Request, status int, elapsed time.Duration, clientIP string) {
	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}

	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", "").
		WithHTTPResponse(status, elapsed.Milliseconds(), status < 400).
		WithClientIP(clientIP)
	fields[FieldDurationHuman] = elapsed.String()

	Scoped(ctx, e.logger).Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
}

// EntryChanged records a committed entry mutation.
func (e *Events) EntryChanged(ctx context.Context, op string, entry core.Entry) {
	fields := NewFields().WithEntry(entry).WithOperation(op)
	Scoped(ctx, e.logger).InfoContext(ctx, "Entry committed", fields.ToSlice()...)
}

// Failed logs err at error level. fields may be nil.
func (e *Events) Failed(ctx context.Context, msg, op string, err error, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	fields = fields.WithError(err).WithOperation(op)
	Scoped(ctx, e.logger).ErrorContext(ctx, msg, fields.ToSlice()...)
}
