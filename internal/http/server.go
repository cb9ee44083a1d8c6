package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"moneh/internal/auth"
	"moneh/internal/core"
	"moneh/internal/log"
	"moneh/internal/middleware/ratelimit"
	"moneh/internal/middleware/security"
	"moneh/internal/middleware/trace"
	"moneh/internal/storage"
	appweb "moneh/web"
)

// Ports used by the handlers.
type (
	Credentials interface {
		Register(ctx context.Context, username, password, confirm string) (core.UserID, error)
		Authenticate(ctx context.Context, username, password string) (core.User, error)
	}

	Sessions interface {
		Start(ctx context.Context, userID core.UserID) (string, core.Session, error)
		Resolve(ctx context.Context, token string) (core.Session, error)
		End(ctx context.Context, token string) error
		TTL() time.Duration
	}

	Entries interface {
		Create(ctx context.Context, owner core.UserID, in core.NewEntry) (core.Entry, error)
		Get(ctx context.Context, owner core.UserID, id core.EntryID) (core.Entry, error)
		Update(ctx context.Context, owner core.UserID, id core.EntryID, patch core.EntryPatch) (core.Entry, error)
		Delete(ctx context.Context, owner core.UserID, id core.EntryID) error
		Summary(ctx context.Context, owner core.UserID) (core.Summary, error)
	}
)

var (
	_ Credentials = (*auth.CredentialService)(nil)
	_ Sessions    = (*auth.SessionManager)(nil)
)

// Deps are the collaborators of the web server. Ping and Logger are optional.
type Deps struct {
	Users        storage.UserRepository
	Credentials  Credentials
	Sessions     Sessions
	Entries      Entries
	Ping         func(ctx context.Context) error
	Logger       *log.Logger
	SecretKey    string
	CookieSecure bool
	// RateLimitPerMinute caps POSTs per client IP. Zero uses the default.
	RateLimitPerMinute int
}

type Server struct {
	http.Server
	templates *template.Template

	users        storage.UserRepository
	creds        Credentials
	sessions     Sessions
	entries      Entries
	ping         func(ctx context.Context) error
	logger       *log.Logger
	events       *log.Events
	flash        *flasher
	cookieSecure bool

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware

	appMetrics   *appMetrics
	shutdownOnce sync.Once
}

type appMetrics struct {
	uptime         time.Time
	registrations  int64
	logins         int64
	failedLogins   int64
	entriesCreated int64
	entriesUpdated int64
	entriesDeleted int64
	exports        int64
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	limitCfg := ratelimit.DefaultConfig()
	if deps.RateLimitPerMinute > 0 {
		limitCfg.RequestsPerMinute = deps.RateLimitPerMinute
	}

	mux := http.NewServeMux()
	s := &Server{
		users:            deps.Users,
		creds:            deps.Credentials,
		sessions:         deps.Sessions,
		entries:          deps.Entries,
		ping:             deps.Ping,
		logger:           logger,
		events:           log.NewEvents(logger),
		cookieSecure:     deps.CookieSecure,
		flash:            &flasher{secret: []byte(deps.SecretKey), secure: deps.CookieSecure, now: time.Now},
		rateLimiter:      ratelimit.NewLimiter(limitCfg),
		securityDetector: security.NewDetector(logger),
		appMetrics:       &appMetrics{uptime: time.Now()},
	}
	s.traceMiddleware = trace.NewMiddleware(s.securityDetector.ExtractClientIP, logger)

	// Parse embedded templates at startup.
	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Error("Failed parsing templates", log.FieldError, err)
	} else {
		s.templates = t
	}

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /register", s.handleRegisterForm)
	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("GET /login", s.handleLoginForm)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("GET /logout", s.requireUser(s.handleLogout))

	mux.HandleFunc("GET /{$}", s.requireUser(s.handleIndex))
	mux.HandleFunc("POST /moneh-enter", s.requireUser(s.handleCreateEntry))
	mux.HandleFunc("GET /edit/{id}", s.requireUser(s.handleEditForm))
	mux.HandleFunc("POST /edit/{id}", s.requireUser(s.handleUpdateEntry))
	mux.HandleFunc("POST /delete/{id}", s.requireUser(s.handleDeleteEntry))
	mux.HandleFunc("GET /export.xlsx", s.requireUser(s.handleExport))

	var handler http.Handler = mux
	handler = security.NoStore(handler)
	handler = s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.onRateLimited)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)
	handler = s.securityDetector.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request, retryAfter time.Duration) {
	s.logger.WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path,
		"retry_after", retryAfter.String())
	ratelimit.TooManyRequests(w, r, retryAfter)
}

// Shutdown gracefully shuts down the server and the limiter's sweep.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
