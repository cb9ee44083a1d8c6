package http

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneh/internal/auth"
	"moneh/internal/cache"
	"moneh/internal/core"
	"moneh/internal/services"
	"moneh/internal/storage/memory"
)

const testSecret = "test-secret"

type testApp struct {
	t      *testing.T
	srv    *Server
	ts     *httptest.Server
	store  *memory.Store
	client *http.Client
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	store := memory.New()
	srv := NewServer(":0", Deps{
		Users:              store,
		Credentials:        auth.NewCredentialService(store, auth.NewBcryptHasher(4), nil),
		Sessions:           auth.NewSessionManager(store, testSecret, time.Hour, nil),
		Entries:            services.NewEntryService(store, nil, cache.NewLRUCache[core.UserID, core.Summary](8, time.Minute), nil),
		Ping:               store.Ping,
		SecretKey:          testSecret,
		RateLimitPerMinute: 1000,
	})
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Shutdown(context.Background())
	})
	return &testApp{t: t, srv: srv, ts: ts, store: store, client: newClient(t)}
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

// page is the final response after redirects.
type page struct {
	status int
	path   string
	query  string
	body   string
	header http.Header
}

func (a *testApp) do(c *http.Client, method, path string, form url.Values) page {
	a.t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequest(method, a.ts.URL+path, body)
	require.NoError(a.t, err)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	resp, err := c.Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	return page{
		status: resp.StatusCode,
		path:   resp.Request.URL.Path,
		query:  resp.Request.URL.RawQuery,
		body:   string(b),
		header: resp.Header,
	}
}

func (a *testApp) register(c *http.Client, username, password string) page {
	return a.do(c, http.MethodPost, "/register", url.Values{
		"username":         {username},
		"password":         {password},
		"confirm_password": {password},
	})
}

func (a *testApp) login(c *http.Client, username, password string) page {
	return a.do(c, http.MethodPost, "/login", url.Values{
		"username": {username},
		"password": {password},
	})
}

func (a *testApp) signup(c *http.Client, username string) core.UserID {
	a.t.Helper()
	a.register(c, username, "secret1")
	p := a.login(c, username, "secret1")
	require.Equal(a.t, "/", p.path)
	u, err := a.store.GetUserByUsername(context.Background(), username)
	require.NoError(a.t, err)
	return u.ID
}

func (a *testApp) entries(owner core.UserID) []core.Entry {
	a.t.Helper()
	list, err := a.store.ListEntries(context.Background(), owner)
	require.NoError(a.t, err)
	return list
}

func TestAnonymousIsRedirectedToLogin(t *testing.T) {
	app := newTestApp(t)

	p := app.do(app.client, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, p.status)
	assert.Equal(t, "/login", p.path)
	assert.Empty(t, p.query)

	p = app.do(app.client, http.MethodGet, "/edit/3", nil)
	assert.Equal(t, "/login", p.path)
	assert.Equal(t, "next="+url.QueryEscape("/edit/3"), p.query)
}

func TestRegisterFlow(t *testing.T) {
	app := newTestApp(t)

	p := app.do(app.client, http.MethodPost, "/register", url.Values{
		"username":         {"alice"},
		"password":         {"secret1"},
		"confirm_password": {"secret2"},
	})
	assert.Equal(t, "/register", p.path)
	assert.Contains(t, p.body, "Passwords do not match.")
	_, err := app.store.GetUserByUsername(context.Background(), "alice")
	assert.ErrorIs(t, err, core.ErrNotFound)

	p = app.register(app.client, "alice", "secret1")
	assert.Equal(t, "/login", p.path)
	assert.Contains(t, p.body, "Registration successful! Please log in.")

	p = app.register(app.client, "alice", "secret1")
	assert.Equal(t, "/register", p.path)
	assert.Contains(t, p.body, "Username already exists.")

	p = app.register(app.client, "bob", "123")
	assert.Contains(t, p.body, "Password must be at least 6 characters long.")
}

func TestLoginFlow(t *testing.T) {
	app := newTestApp(t)
	app.register(app.client, "alice", "secret1")

	p := app.login(app.client, "alice", "wrong-pass")
	assert.Equal(t, "/login", p.path)
	assert.Contains(t, p.body, "Invalid username or password.")

	p = app.login(app.client, "nobody", "secret1")
	assert.Contains(t, p.body, "Invalid username or password.")

	p = app.login(app.client, "", "")
	assert.Contains(t, p.body, "Please enter both username and password.")

	p = app.login(app.client, "alice", "secret1")
	assert.Equal(t, "/", p.path)
	assert.Contains(t, p.body, "Welcome back, alice!")
	assert.Contains(t, p.body, "Balance")

	// The flash is shown once.
	p = app.do(app.client, http.MethodGet, "/", nil)
	assert.NotContains(t, p.body, "Welcome back")

	p = app.do(app.client, http.MethodGet, "/logout", nil)
	assert.Equal(t, "/login", p.path)
	assert.Contains(t, p.body, "You have been logged out.")

	p = app.do(app.client, http.MethodGet, "/", nil)
	assert.Equal(t, "/login", p.path)
}

func TestLoginHonoursLocalNext(t *testing.T) {
	app := newTestApp(t)
	app.register(app.client, "alice", "secret1")

	form := url.Values{"username": {"alice"}, "password": {"secret1"}}
	p := app.do(app.client, http.MethodPost, "/login?next="+url.QueryEscape("/export.xlsx"), form)
	assert.Equal(t, "/export.xlsx", p.path)

	c := newClient(t)
	p = app.do(c, http.MethodPost, "/login?next="+url.QueryEscape("//evil.example/x"), form)
	assert.Equal(t, "/", p.path)
}

func TestEntryLifecycle(t *testing.T) {
	app := newTestApp(t)
	alice := app.signup(app.client, "alice")

	p := app.do(app.client, http.MethodPost, "/moneh-enter", url.Values{
		"amount":      {"12.50"},
		"type":        {"expense"},
		"category":    {"food"},
		"description": {""},
	})
	assert.Equal(t, "/", p.path)
	assert.Contains(t, p.body, "-12.50")
	assert.Contains(t, p.body, "Your balance is negative!")

	list := app.entries(alice)
	require.Len(t, list, 1)
	assert.Equal(t, "-12.5", list[0].Amount.String())
	assert.Equal(t, "food", list[0].Description)
	id := list[0].ID

	p = app.do(app.client, http.MethodGet, editURL(id), nil)
	assert.Equal(t, http.StatusOK, p.status)
	assert.Contains(t, p.body, `value="12.50"`)

	p = app.do(app.client, http.MethodPost, editURL(id), url.Values{
		"amount":      {"5"},
		"description": {"lunch"},
		"category":    {"food"},
	})
	assert.Equal(t, "/", p.path)
	list = app.entries(alice)
	require.Len(t, list, 1)
	assert.Equal(t, "-5", list[0].Amount.String())
	assert.Equal(t, "lunch", list[0].Description)

	p = app.do(app.client, http.MethodPost, editURL(id), url.Values{"amount": {"abc"}})
	assert.Equal(t, editURL(id), p.path)
	assert.Contains(t, p.body, "Amount must be a positive number.")

	p = app.do(app.client, http.MethodPost, "/moneh-enter", url.Values{
		"amount": {"30"},
		"type":   {"income"},
	})
	assert.Contains(t, p.body, "25.00")
	assert.NotContains(t, p.body, "Your balance is negative!")

	p = app.do(app.client, http.MethodPost, "/delete/"+itoa(id), nil)
	assert.Equal(t, "/", p.path)
	assert.Len(t, app.entries(alice), 1)
}

func TestCreateRejectsBadInput(t *testing.T) {
	app := newTestApp(t)
	alice := app.signup(app.client, "alice")

	p := app.do(app.client, http.MethodPost, "/moneh-enter", url.Values{"amount": {""}, "type": {"expense"}})
	assert.Equal(t, "/", p.path)
	assert.Contains(t, p.body, "Amount is required.")

	p = app.do(app.client, http.MethodPost, "/moneh-enter", url.Values{"amount": {"3"}, "type": {"gift"}})
	assert.Contains(t, p.body, "Type must be income or expense.")

	assert.Empty(t, app.entries(alice))
}

func TestCrossUserAccess(t *testing.T) {
	app := newTestApp(t)
	alice := app.signup(app.client, "alice")
	app.do(app.client, http.MethodPost, "/moneh-enter", url.Values{"amount": {"10"}, "type": {"income"}, "category": {"salary"}})
	id := app.entries(alice)[0].ID

	bobClient := newClient(t)
	app.signup(bobClient, "bob")

	p := app.do(bobClient, http.MethodPost, "/delete/"+itoa(id), nil)
	assert.Equal(t, "/", p.path)
	assert.Contains(t, p.body, "Entry not found.")

	p = app.do(bobClient, http.MethodGet, editURL(id), nil)
	assert.Equal(t, "/", p.path)
	assert.Contains(t, p.body, "Entry not found.")

	p = app.do(bobClient, http.MethodPost, editURL(id), url.Values{"amount": {"999"}})
	assert.Contains(t, p.body, "Entry not found.")

	p = app.do(bobClient, http.MethodGet, "/", nil)
	assert.NotContains(t, p.body, "salary")

	list := app.entries(alice)
	require.Len(t, list, 1)
	assert.Equal(t, "10", list[0].Amount.String())

	p = app.do(bobClient, http.MethodGet, "/edit/not-a-number", nil)
	assert.Contains(t, p.body, "Entry not found.")
}

func TestExport(t *testing.T) {
	app := newTestApp(t)
	app.signup(app.client, "alice")
	app.do(app.client, http.MethodPost, "/moneh-enter", url.Values{"amount": {"10"}, "type": {"income"}})

	p := app.do(app.client, http.MethodGet, "/export.xlsx", nil)
	assert.Equal(t, http.StatusOK, p.status)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", p.header.Get("Content-Type"))
	assert.Contains(t, p.header.Get("Content-Disposition"), "moneh_alice_")
	assert.True(t, strings.HasPrefix(p.body, "PK"), "xlsx is a zip archive")
}

func TestOperationalEndpoints(t *testing.T) {
	app := newTestApp(t)

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		p := app.do(app.client, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, p.status, path)
	}

	p := app.do(app.client, http.MethodGet, "/readyz", nil)
	assert.Contains(t, p.body, `"database":"ok"`)

	p = app.do(app.client, http.MethodGet, "/metrics", nil)
	assert.Contains(t, p.body, "http_requests_total")

	p = app.do(app.client, http.MethodGet, "/static/style.css", nil)
	assert.Equal(t, http.StatusOK, p.status)
}

func TestSecurityHeaders(t *testing.T) {
	app := newTestApp(t)

	p := app.do(app.client, http.MethodGet, "/login", nil)
	assert.Equal(t, "DENY", p.header.Get("X-Frame-Options"))
	assert.Equal(t, "no-store", p.header.Get("Cache-Control"))
	assert.NotEmpty(t, p.header.Get("X-Request-ID"))
}

func itoa(id core.EntryID) string {
	return strings.TrimPrefix(editURL(id), "/edit/")
}
