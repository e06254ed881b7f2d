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

	"github.com/gdg-garage/vegfest-api/internal/approval"
	"github.com/gdg-garage/vegfest-api/internal/audit"
	"github.com/gdg-garage/vegfest-api/internal/auth"
	"github.com/gdg-garage/vegfest-api/internal/config"
	"github.com/gdg-garage/vegfest-api/internal/database"
	"github.com/gdg-garage/vegfest-api/internal/handlers"
	"github.com/gdg-garage/vegfest-api/internal/logging"
	"github.com/gdg-garage/vegfest-api/internal/notifier"
	"github.com/gdg-garage/vegfest-api/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load Configuration
	cfg := config.LoadConfig()
	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	// Connect to Database
	db := database.Connect(cfg)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Discord is optional; without it there are no notifications and no
	// approver role lookups.
	var (
		discordNotifier *notifier.DiscordNotifier
		roles           auth.RoleChecker
		notify          notifier.Notifier
	)
	session, err := notifier.NewDiscordSession(cfg.DiscordBotToken)
	if err != nil {
		logger.Warn("discord notifier not initialized", "error", err)
	} else {
		discordNotifier = notifier.NewDiscordNotifier(session, cfg.DiscordGuildID, cfg.DiscordNotificationsChannelID,
			notifier.WithLogger(logger))
		roles = discordNotifier
		notify = discordNotifier
	}

	auditRecorder := audit.NewAsyncRecorder(audit.NewWriter(db), cfg.AuditQueueSize,
		audit.WithLogger(logger),
		audit.WithMetrics(audit.NewMetrics(registry)),
	)

	engineOpts := []approval.Option{
		approval.WithLogger(logger),
		approval.WithMetrics(approval.NewMetrics(registry)),
		approval.WithMaxAttempts(cfg.StatusChangeMaxAttempts),
	}
	if discordNotifier != nil {
		engineOpts = append(engineOpts, approval.WithNotifier(discordNotifier))
	}
	engine, err := approval.New(store.NewRegistrationStore(db), auditRecorder, engineOpts...)
	if err != nil {
		logger.Error("failed to create approval engine", "error", err)
		os.Exit(1)
	}

	authHandler := auth.NewAuthHandler(cfg, db, roles, auth.WithLogger(logger))
	registrationHandler := handlers.NewRegistrationHandler(db, notify, authHandler)

	// Initialize Router
	r := chi.NewRouter()

	// Register Routes
	handlers.RegisterRoutes(r, handlers.Handlers{
		Auth:         authHandler,
		Registration: registrationHandler,
		Admin:        handlers.NewAdminHandler(db, engine, auditRecorder, authHandler, logger),
		APIKeys:      handlers.NewAPIKeyHandler(db, authHandler),
		Export:       handlers.NewExportHandler(db, authHandler, logger),
		Metrics:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", "error", err)
	}
	if err := auditRecorder.Close(shutdownCtx); err != nil {
		logger.Warn("audit queue not drained", "error", err)
	}
	if session != nil {
		session.Close()
	}
	logger.Info("server stopped")
}
