package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/ashureev/devgenie/internal/analysis"
	"github.com/ashureev/devgenie/internal/api"
	"github.com/ashureev/devgenie/internal/config"
	"github.com/ashureev/devgenie/internal/identity"
	"github.com/ashureev/devgenie/internal/live"
	"github.com/ashureev/devgenie/internal/llm"
	"github.com/ashureev/devgenie/internal/middleware"
	"github.com/ashureev/devgenie/internal/provider"
	"github.com/ashureev/devgenie/internal/store"
	"github.com/ashureev/devgenie/internal/sweeper"
	"github.com/ashureev/devgenie/web"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the DevGenie web server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "listen port (overrides PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogger(os.Stdout, slog.LevelInfo)

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if servePort != "" {
		cfg.Port = servePort
	}
	setupLogger(os.Stdout, cfg.LogLevel)

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "provider", cfg.LLM.Provider)

	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(cmd.Context()); err != nil {
		return fmt.Errorf("database health check: %w", err)
	}
	slog.Info("Database connected", "path", cfg.DBPath)

	client := provider.New(cfg.LLM, cfg.Timeout.LLMRequest)
	if !llm.IsConfigured(client) {
		slog.Warn("Model provider not configured, analysis requests will fail", "provider", client.Name())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conns := live.NewConns()
	r := newRouter(ctx, cfg, repo, client, conns)

	// No WriteTimeout: model calls and WebSocket follow-ups run long.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       120 * time.Second,
	}

	sweepDone := sweeper.Start(ctx, repo, sweeper.Config{
		TTL:        cfg.SessionTTL,
		MaxRetries: cfg.Retry.DatabaseMaxRetries,
		BaseDelay:  cfg.Retry.DatabaseRetryBaseDelay,
	})

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			stop()
			<-sweepDone
			return fmt.Errorf("server failed: %w", err)
		}
	}
	stop()

	slog.Info("Shutting down gracefully...")
	conns.CloseAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeout.Shutdown)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	<-sweepDone

	slog.Info("Server stopped successfully")
	return nil
}

// newRouter wires every HTTP route. ctx bounds background goroutines such as
// rate limiter eviction.
func newRouter(ctx context.Context, cfg *config.Config, repo store.Repository, client llm.Client, conns *live.Conns) http.Handler {
	svc := analysis.NewService(client, repo, analysis.Options{
		MaxCodeLength: cfg.Limits.MaxCodeLength,
		HistoryLimit:  cfg.HistoryLimit,
		Timeout:       cfg.Timeout.LLMRequest,
		SaveRetries:   cfg.Retry.DatabaseMaxRetries,
		RetryDelay:    cfg.Retry.DatabaseRetryBaseDelay,
	})
	limiter := middleware.NewRateLimiter(ctx, cfg.RateLimit.RequestsPerWindow, cfg.RateLimit.WindowDuration)

	h := api.NewHandler(svc, repo, cfg)
	healthHandler := api.NewHealthHandler(repo, client, cfg)
	wsHandler := live.NewHandler(svc, limiter, conns, cfg.CORSOrigins)

	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.CORSOrigins))

	// Public routes.
	healthHandler.RegisterHealth(r)

	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(repo, cfg.IsDevelopment()))
		h.RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(limiter, func(r *http.Request) string {
				return identity.UserIDFromContext(r.Context())
			}))
			h.RegisterModelRoutes(r)
		})

		// WebSocket endpoint. Asks are rate limited per frame.
		r.Get("/ws/followup", wsHandler.ServeHTTP)
	})

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler())
	return r
}
