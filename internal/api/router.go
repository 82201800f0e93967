package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"taxreport/internal/logger"
	"taxreport/internal/taxreport"
)

// NewRouter creates the Chi router with all API routes mounted.
func NewRouter(source taxreport.ChargeSource, engine *taxreport.Engine) http.Handler {
	h := &Handlers{
		source: source,
		engine: engine,
		now:    time.Now,
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/tax-reports", h.GetTaxReport)
	})

	return r
}

// requestLogger logs each request with the zerolog logger.
func requestLogger(next http.Handler) http.Handler {
	log := logger.WithComponent("api")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}
