package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/ashureev/contactform/internal/agent"
	"github.com/ashureev/contactform/internal/api"
	"github.com/ashureev/contactform/internal/config"
	"github.com/ashureev/contactform/internal/health"
	"github.com/ashureev/contactform/internal/intake"
	"github.com/ashureev/contactform/internal/middleware"
	"github.com/ashureev/contactform/internal/notify"
	"github.com/ashureev/contactform/internal/store"
	"github.com/ashureev/contactform/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func runServer(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	logLevel.Set(cfg.LogLevel)
	logger := slog.Default()

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(ctx); err != nil {
		return fmt.Errorf("database health check: %w", err)
	}
	slog.Info("Database connected", "path", cfg.DBPath)

	notifier, err := newNotifier(cfg, logger)
	if err != nil {
		return err
	}

	agentCfg := agent.DefaultConfig()
	agentCfg.Delay = cfg.Agent.Delay
	sim := agent.NewSimulator(agentCfg, logger)
	defer sim.Close()

	opts := intake.DefaultOptions()
	opts.PollAttempts = cfg.Submit.PollAttempts
	opts.PollInterval = cfg.Submit.PollInterval
	opts.RequireData = cfg.Submit.NotifyRequiresData
	if cfg.PublicBaseURL != "" {
		opts.PublicBaseURL = cfg.PublicBaseURL
	}
	svc := intake.NewService(repo, sim, notifier, opts, logger)

	// Initialize handlers. Submissions outlive their client connection but not the server.
	formHandler := api.NewHandler(repo, sim, svc, cfg.AllowedOrigins).WithLifetime(ctx)
	healthHandler := api.NewHealthHandler(repo)

	// Setup router.
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	healthHandler.RegisterHealth(r)
	formHandler.RegisterRoutes(r)

	// Serve embedded form (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	// Submissions hold the request open while the agent runs, and the status
	// stream is a WebSocket, so there is no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return sim.RunSweeper(gctx, cfg.Agent.SweepInterval, cfg.Agent.ResultTTL)
	})

	if cfg.GRPCHealthPort != "" {
		hs := health.NewServer(repo, logger)
		g.Go(func() error {
			return hs.ListenAndServe(gctx, ":"+cfg.GRPCHealthPort)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("Server stopped successfully")
	return nil
}

func newNotifier(cfg *config.Config, logger *slog.Logger) (notify.Notifier, error) {
	if !cfg.SMTP.Enabled() {
		slog.Info("EMAIL_HOST not set, confirmation emails will only be logged")
		return notify.NewLogNotifier(logger), nil
	}

	n, err := notify.NewSMTP(notify.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Secure:   cfg.SMTP.Secure,
		User:     cfg.SMTP.User,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		FromName: cfg.SMTP.FromName,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize smtp notifier: %w", err)
	}
	slog.Info("SMTP notifier ready", "host", cfg.SMTP.Host, "port", cfg.SMTP.Port)
	return n, nil
}
