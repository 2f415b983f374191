package server

import (
	"context"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/quotelane/exchange-cli/internal/model"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// requestIDMiddleware propagates the caller's X-Request-ID or mints one.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", requestID(r.Context())),
		)
	})
}

// actorFrom reads the caller's declared identity from headers.
// Authentication happens upstream; the exchange trusts the gateway.
func actorFrom(r *http.Request) model.Actor {
	return model.Actor{
		ID:   strings.TrimSpace(r.Header.Get("X-Actor-ID")),
		Role: model.Role(strings.TrimSpace(r.Header.Get("X-Actor-Role"))),
	}
}

const maxLimiterClients = 10000

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiter tracks a token bucket per caller, keyed by actor ID
// when present and remote host otherwise.
type clientLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientEntry
	rps     rate.Limit
	burst   int
}

func newClientLimiter(rps float64, burst int) *clientLimiter {
	if rps <= 0 {
		rps = 10
	}
	if burst < 1 {
		burst = 1
	}
	return &clientLimiter{
		clients: make(map[string]*clientEntry),
		rps:     rate.Limit(rps),
		burst:   burst,
	}
}

func (cl *clientLimiter) allow(key string) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	entry, ok := cl.clients[key]
	if !ok {
		if len(cl.clients) >= maxLimiterClients {
			cl.evictOldest()
		}
		entry = &clientEntry{limiter: rate.NewLimiter(cl.rps, cl.burst)}
		cl.clients[key] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter.Allow()
}

// evictOldest drops the least recently seen tenth of the map. Caller
// holds the lock.
func (cl *clientLimiter) evictOldest() {
	type aged struct {
		key  string
		seen time.Time
	}
	all := make([]aged, 0, len(cl.clients))
	for k, v := range cl.clients {
		all = append(all, aged{key: k, seen: v.lastSeen})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].seen.Before(all[j].seen) })
	drop := len(all) / 10
	if drop < 1 {
		drop = 1
	}
	for _, a := range all[:drop] {
		delete(cl.clients, a.key)
	}
}

func limiterKey(r *http.Request) string {
	if actor := strings.TrimSpace(r.Header.Get("X-Actor-ID")); actor != "" {
		return actor
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func rateLimitMiddleware(cl *clientLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cl.allow(limiterKey(r)) {
				writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
