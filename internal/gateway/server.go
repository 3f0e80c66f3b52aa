package gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// buildRouter assembles the HTTP surface:
//
//	GET  /health                         public
//	GET  /metrics                        public
//	GET  /status, /api/...               admin, only when auth is configured
//	*    <webhook paths>                 mounted at runtime by channels
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if g.config.AccessLog && g.logger != nil {
		r.Use(accessLog(g.logger))
	}
	if g.metrics != nil {
		r.Use(g.metrics.middleware)
	}

	r.Get("/health", g.handleHealth())
	if g.registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(g.registry, promhttp.HandlerOpts{
			ErrorLog: slog.NewLogLogger(g.logHandler(), slog.LevelWarn),
		}))
	}

	if g.config.Auth.IsConfigured() {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(g.config.Auth, g.logger, g.metrics))
			r.Get("/status", g.handleStatus())
			r.Route("/api", func(r chi.Router) {
				r.Get("/modules", g.handleGetAllModules())
				r.Get("/config", g.handleGetConfig())
				r.Post("/config/reload", g.handleReloadConfig())
				r.Post("/channels/{channel}/send", g.handleChannelSend())
			})
		})
	}

	// Channel webhooks live outside chi's tree so they can be added and
	// removed while the server runs.
	if g.dispatcher != nil {
		r.NotFound(g.dispatcher.ServeHTTP)
	}

	return r
}

func (g *Gateway) logHandler() slog.Handler {
	if g.logger == nil {
		return slog.Default().Handler()
	}
	return g.logger.Handler()
}

// accessLog logs one debug line per request with the chi request id.
func accessLog(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		})
	}
}
