package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/vncsmyrnk/voting-api/internal/metrics"
	"go.uber.org/zap"
)

func NewHandler(voteHandler *VoteHandler, healthHandler *HealthHandler, m *metrics.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(m.Middleware)

	r.Post("/vote", voteHandler.Vote)

	r.Get("/healthz", healthHandler.Live)
	r.Get("/readyz", healthHandler.Ready)
	r.Method(http.MethodGet, "/metrics", m.Handler())

	return r
}
