// Package ratelimit throttles form submissions per client with a sliding
// one-minute window.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"moneh/internal/cache"
)

const window = time.Minute

// Limiter keeps, per client, the timestamps of the requests it accepted
// during the last minute. Clients live in a bounded LRU; a client silent
// for a whole window expires from it.
type Limiter struct {
	mu      sync.Mutex
	clients *cache.LRUCache[string, *history]
	now     func() time.Time
	limit   int
	methods map[string]bool
	hits    atomic.Int64

	sweepEvery time.Duration
	stop       chan struct{}
	stopOnce   sync.Once
}

type history struct {
	accepted []time.Time
}

// trim drops timestamps that fell out of the window ending at now.
func (h *history) trim(now time.Time) {
	cutoff := now.Add(-window)
	i := 0
	for i < len(h.accepted) && !h.accepted[i].After(cutoff) {
		i++
	}
	h.accepted = h.accepted[i:]
}

type Config struct {
	RequestsPerMinute int
	// MaxClients bounds how many clients are tracked at once.
	MaxClients    int
	SweepInterval time.Duration
	// Methods lists the HTTP methods that are counted. Empty counts all.
	Methods []string
}

func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		MaxClients:        10000,
		SweepInterval:     5 * time.Minute,
		Methods:           []string{http.MethodPost},
	}
}

// NewLimiter creates a limiter and starts sweeping idle clients.
// Call Stop to end the sweep.
func NewLimiter(config Config) *Limiter {
	rl := newLimiter(config)
	go rl.sweep()
	return rl
}

func newLimiter(config Config) *Limiter {
	def := DefaultConfig()
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = def.RequestsPerMinute
	}
	if config.MaxClients <= 0 {
		config.MaxClients = def.MaxClients
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = def.SweepInterval
	}
	methods := make(map[string]bool, len(config.Methods))
	for _, m := range config.Methods {
		methods[m] = true
	}
	return &Limiter{
		clients:    cache.NewLRUCache[string, *history](config.MaxClients, window),
		now:        time.Now,
		limit:      config.RequestsPerMinute,
		methods:    methods,
		sweepEvery: config.SweepInterval,
		stop:       make(chan struct{}),
	}
}

func (rl *Limiter) setClock(now func() time.Time) {
	rl.now = now
	rl.clients.SetClock(now)
}

// Allow records a request from client. When the client is over its limit
// it returns false and how long until the oldest accepted request leaves
// the window.
func (rl *Limiter) Allow(client string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	h, ok := rl.clients.Get(client)
	if !ok {
		h = &history{}
	}
	h.trim(now)

	if len(h.accepted) >= rl.limit {
		rl.hits.Add(1)
		return false, h.accepted[0].Add(window).Sub(now)
	}
	h.accepted = append(h.accepted, now)
	rl.clients.Set(client, h)
	return true, 0
}

func (rl *Limiter) counts(method string) bool {
	return len(rl.methods) == 0 || rl.methods[method]
}

func (rl *Limiter) sweep() {
	ticker := time.NewTicker(rl.sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.clients.CleanExpired()
		case <-rl.stop:
			return
		}
	}
}

func (rl *Limiter) ActiveClients() int {
	return rl.clients.Size()
}

func (rl *Limiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

type Metrics struct {
	TotalHits   int64
	ClientCount int64
}

func (rl *Limiter) GetMetrics() Metrics {
	return Metrics{
		TotalHits:   rl.hits.Load(),
		ClientCount: int64(rl.ActiveClients()),
	}
}

// RejectFunc answers a throttled request. retryAfter is never below one second.
type RejectFunc func(w http.ResponseWriter, r *http.Request, retryAfter time.Duration)

// Middleware throttles the counted methods per client key. A nil reject
// answers 429 with a Retry-After header.
func (rl *Limiter) Middleware(clientKey func(*http.Request) string, reject RejectFunc) func(http.Handler) http.Handler {
	if reject == nil {
		reject = TooManyRequests
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.counts(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			if ok, wait := rl.Allow(clientKey(r)); !ok {
				reject(w, r, max(wait, time.Second))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// TooManyRequests is the default RejectFunc.
func TooManyRequests(w http.ResponseWriter, r *http.Request, retryAfter time.Duration) {
	w.Header().Set("Retry-After", RetryAfterSeconds(retryAfter))
	http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
}

// RetryAfterSeconds renders d as whole seconds, rounded up.
func RetryAfterSeconds(d time.Duration) string {
	secs := int64((d + time.Second - 1) / time.Second)
	return strconv.FormatInt(max(secs, 1), 10)
}
