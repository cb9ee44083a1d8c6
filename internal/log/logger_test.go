package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneh/internal/core"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestComponentTagging(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, Format: "json", Level: slog.LevelDebug})

	logger.WithComponent(ComponentAuth).Info("hello", FieldUserID, 7)

	out := buf.String()
	assert.Contains(t, out, `"component":"auth"`)
	assert.Contains(t, out, `"user_id":7`)
	assert.Equal(t, 1, strings.Count(out, `"component"`))
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	l := FromContext(context.Background())
	require.NotNil(t, l)
	assert.Equal(t, "unknown", l.Component())
}

func TestNewContextRoundTrip(t *testing.T) {
	logger := Discard().WithComponent(ComponentHTTP)
	ctx := NewContext(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx))
}

func TestScopedCarriesRequestAttributes(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Output: &buf, Format: "json"})
	ctx := NewContext(context.Background(), base.WithComponent(ComponentHTTP).With(FieldRequestID, "req_1"))

	Scoped(ctx, base.WithComponent(ComponentEntries)).Info("changed")
	out := buf.String()
	assert.Contains(t, out, `"request_id":"req_1"`)
	assert.Contains(t, out, `"component":"entries"`)

	fallback := base.WithComponent(ComponentWorker)
	assert.Same(t, fallback, Scoped(context.Background(), fallback))
}

func TestEventsRequestFinishedLevels(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusSeeOther, "INFO"},
		{http.StatusNotFound, "WARN"},
		{http.StatusInternalServerError, "ERROR"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		events := NewEvents(New(Config{Output: &buf, Format: "json", Component: ComponentHTTP}))
		r := httptest.NewRequest(http.MethodGet, "/edit/3?x=1", nil)

		events.RequestFinished(context.Background(), r, tt.status, 1500*time.Millisecond, "10.0.0.1")

		out := buf.String()
		assert.Contains(t, out, `"level":"`+tt.level+`"`, tt.status)
		assert.Contains(t, out, `"path":"/edit/3"`)
		assert.Contains(t, out, `"duration_ms":1500`)
		assert.Contains(t, out, `"duration_human":"1.5s"`)
	}
}

func TestEventsFailed(t *testing.T) {
	var buf bytes.Buffer
	events := NewEvents(New(Config{Output: &buf, Format: "json", Component: ComponentEntries}))

	events.Failed(context.Background(), "Failed to publish entry event", OpCreate, errors.New("broker down"),
		NewFields().WithEntry(core.Entry{ID: 4, UserID: 2, Amount: decimal.NewFromInt(10), Type: core.Income}))

	out := buf.String()
	assert.Contains(t, out, `"level":"ERROR"`)
	assert.Contains(t, out, `"error":"broker down"`)
	assert.Contains(t, out, `"operation":"create"`)
	assert.Contains(t, out, `"entry_id":4`)
}

func TestWithEntryOmitsDescription(t *testing.T) {
	f := NewFields().WithEntry(core.Entry{
		ID:          3,
		UserID:      9,
		Amount:      decimal.RequireFromString("-4.5"),
		Type:        core.Expense,
		Description: "private note",
		Category:    "Food",
	})
	assert.Equal(t, "-4.50", f[FieldAmount])
	assert.Equal(t, int64(3), f[FieldEntryID])
	for _, v := range f {
		assert.NotEqual(t, "private note", v)
	}
}
