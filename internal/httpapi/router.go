// Package httpapi exposes the editing pipeline over HTTP.
//
// Routes:
//
//	POST /api/unify        multipart form, returns {"images": [data URLs]}
//	GET  /api/overlay.svg  caption layer preview
//	GET  /health           liveness
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/ironsheep/image-edit-mcp/internal/pipeline"
)

// Config holds router settings.
type Config struct {
	RequestTimeout time.Duration
	MaxUploadBytes int64
}

// NewRouter creates the API router with all routes configured.
func NewRouter(p *pipeline.Pipeline, logger zerolog.Logger, cfg Config) http.Handler {
	logger = logger.With().Str("component", "http").Logger()
	h := NewHandler(p, logger, cfg.MaxUploadBytes)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(cfg.RequestTimeout))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"image-edit"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/unify", h.Unify)
		r.Get("/overlay.svg", h.OverlaySVG)
	})

	return r
}

// requestLogger logs one line per request with zerolog.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info().
					Str("request_id", chimiddleware.GetReqID(r.Context())).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Int("bytes", ww.BytesWritten()).
					Dur("elapsed", time.Since(start)).
					Msg("request")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
