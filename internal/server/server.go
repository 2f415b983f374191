// Package server exposes the exchange over HTTP: carrier quoting, the
// connection lifecycle, and the lead ledger.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/quotelane/exchange-cli/internal/connection"
	"github.com/quotelane/exchange-cli/internal/ledger"
	"github.com/quotelane/exchange-cli/internal/rating"
	"github.com/quotelane/exchange-cli/internal/store"
	"github.com/quotelane/exchange-cli/pkg/events"
)

// Config carries the router's middleware settings.
type Config struct {
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
}

// Server wires the domain services into HTTP handlers.
type Server struct {
	store  store.Store
	engine *rating.Engine
	conns  *connection.Service
	leads  *ledger.Ledger
	pub    events.Publisher
}

// Option configures a Server.
type Option func(*Server)

// WithPublisher attaches an event publisher. Without one, events are
// dropped.
func WithPublisher(pub events.Publisher) Option {
	return func(s *Server) { s.pub = pub }
}

// New builds a Server over the given collaborators.
func New(st store.Store, engine *rating.Engine, conns *connection.Service, leads *ledger.Ledger, opts ...Option) *Server {
	s := &Server{
		store:  st,
		engine: engine,
		conns:  conns,
		leads:  leads,
		pub:    events.NopPublisher{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the chi router with the standard middleware stack.
func (s *Server) Handler(cfg Config) http.Handler {
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(logMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Actor-ID", "X-Actor-Role", "X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(rateLimitMiddleware(newClientLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)))

	r.Get("/health", s.handleHealth)
	r.Post("/quotes", s.handleQuotes)

	r.Route("/connections", func(r chi.Router) {
		r.Get("/", s.handleListConnections)
		r.Post("/", s.handleInitiateConnection)
		r.Get("/{id}", s.handleGetConnection)
		r.Post("/{id}/terms", s.handleSetTerms)
		r.Patch("/{id}/terms", s.handleUpdateTerms)
		r.Post("/{id}/accept", s.handleAccept)
		r.Post("/{id}/decline", s.handleDecline)
		r.Post("/{id}/reject", s.handleReject)
		r.Post("/{id}/terminate", s.handleTerminate)
	})

	r.Route("/leads", func(r chi.Router) {
		r.Get("/", s.handleListLeads)
		r.Post("/", s.handleSubmitLead)
		r.Get("/{id}", s.handleGetLead)
		r.Post("/{id}/status", s.handleUpdateLeadStatus)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		zap.L().Warn("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// publish sends an event without failing the request that triggered it.
func (s *Server) publish(r *http.Request, key string, payload any) {
	if err := s.pub.Publish(r.Context(), key, payload); err != nil {
		zap.L().Warn("event publish failed", zap.String("key", key), zap.Error(err))
	}
}
