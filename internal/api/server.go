// Package api exposes the aggregation, expiry and notification operations
// over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/amishk599/agregador/internal/model"
	"github.com/amishk599/agregador/internal/notifier"
	"github.com/amishk599/agregador/internal/pipeline"
)

// Aggregator runs one aggregation pass.
type Aggregator interface {
	Run(ctx context.Context, sourceID string) (pipeline.Report, error)
}

// Sweeper deactivates expired listings.
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) ([]model.Listing, error)
}

// Notifier dispatches one user notification.
type Notifier interface {
	Send(ctx context.Context, req notifier.Request) (model.Notification, error)
}

// Server holds the handler dependencies.
type Server struct {
	aggregator Aggregator
	sweeper    Sweeper
	notifier   Notifier
	version    string
	logger     *slog.Logger
	now        func() time.Time
}

func NewServer(agg Aggregator, sw Sweeper, n Notifier, version string, logger *slog.Logger) *Server {
	return &Server{
		aggregator: agg,
		sweeper:    sw,
		notifier:   n,
		version:    version,
		logger:     logger,
		now:        time.Now,
	}
}

// Handler returns the routed handler with its middleware stack.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Get("/health", s.handleHealth)
	r.Post("/agregar-vagas", s.handleAggregate)
	r.Post("/desativar-vagas-expiradas", s.handleSweep)
	r.Post("/enviar-notificacao", s.handleNotify)
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"elapsed", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// cors allows browser clients to call the endpoints directly.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
