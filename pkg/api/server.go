// Package api PvP Observer REST API
//
// @title           PvP Observer REST API
// @version         1.0.0
// @description     Upload a match store, get recovered matches and player tiers back.
// @host            localhost:8080
// @BasePath        /api/v1
//
// @securityDefinitions.apikey ApiKeyAuth
// @in              header
// @name            X-API-Key
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

const defaultShutdownTimeout = 10 * time.Second

// NewRouter builds the HTTP routes for s
func NewRouter(s *Server) http.Handler {
	metrics := s.metrics
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	origins := s.config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Prometheus metrics endpoint (unprotected for scraping)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(metrics.InstrumentAuthMiddleware(apiKeyMiddleware(s.config.APIKey)))

		// Health check
		r.Get("/health", metrics.InstrumentHandler("GET", "/api/v1/health", s.handleHealth))

		// Recovery
		r.Post("/recover", metrics.InstrumentHandler("POST", "/api/v1/recover", s.handleRecover))

		// Statistics
		r.Post("/stats", metrics.InstrumentHandler("POST", "/api/v1/stats", s.handleUploadStats))
		r.Get("/stats", metrics.InstrumentHandler("GET", "/api/v1/stats", s.handleArchiveStats))
		r.Get("/players", metrics.InstrumentHandler("GET", "/api/v1/players", s.handlePlayers))

		// Archive
		r.Get("/matches", metrics.InstrumentHandler("GET", "/api/v1/matches", s.handleListMatches))
		r.Get("/matches/{id}", metrics.InstrumentHandler("GET", "/api/v1/matches/{id}", s.handleGetMatch))
		r.Delete("/matches/{id}", metrics.InstrumentHandler("DELETE", "/api/v1/matches/{id}", s.handleDeleteMatch))
	})

	return r
}

// StartServer serves the API until ctx is cancelled, then shuts down
// gracefully.
func StartServer(ctx context.Context, backends Backends, config ServerConfig, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	server := NewServer(backends, config, NewMetrics(), logger)

	addr := net.JoinHostPort(config.Bind, strconv.Itoa(config.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return serve(ctx, ln, NewRouter(server), config, logger)
}

func serve(ctx context.Context, ln net.Listener, handler http.Handler, config ServerConfig, logger *zap.Logger) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("starting PvP Observer REST API server",
		zap.String("addr", ln.Addr().String()),
		zap.String("metrics", fmt.Sprintf("http://%s/metrics", ln.Addr())))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := config.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	logger.Info("shutting down API server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
