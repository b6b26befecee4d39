package rest

import (
	"log/slog"
	"net/http"
)

// NewRouter assembles the HTTP surface: scoring endpoints, health probes and
// an optional metrics handler, wrapped in request logging.
func NewRouter(scoring *ScoringHandler, health *HealthHandler, metrics http.Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	scoring.RegisterRoutes(mux)
	health.RegisterRoutes(mux)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
	return LoggingMiddleware(logger)(mux)
}
