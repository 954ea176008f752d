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

	"reconciliation-console/internal/apiclient"
	"reconciliation-console/internal/config"
	handler "reconciliation-console/internal/handlers"
	"reconciliation-console/internal/logging"
	"reconciliation-console/internal/repository"
	"reconciliation-console/internal/routes"
	"reconciliation-console/internal/services/reconciliation"
	"reconciliation-console/internal/session"
	"reconciliation-console/internal/view"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env
	envErr := godotenv.Load()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	cfg := config.LoadOrEnv(path)
	logger := logging.New(cfg.Logging)
	slog.SetDefault(logger)
	if envErr != nil {
		logger.Info("no .env file found, relying on system env")
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	db, err := config.InitDB(cfg.Database)
	if err != nil {
		return err
	}
	auditRepo := repository.NewAuditLogRepository(db)

	client, err := apiclient.New(cfg.API, logger)
	if err != nil {
		return err
	}

	renderer, err := view.NewRenderer()
	if err != nil {
		return err
	}

	store := session.NewStore(func(id string, flash *reconciliation.Flash) *reconciliation.Page {
		return reconciliation.NewPage(client,
			reconciliation.WithSessionID(id),
			reconciliation.WithNotifier(flash),
			reconciliation.WithAuditor(auditRepo),
			reconciliation.WithLogger(logger),
		)
	}, cfg.Session.IdleTimeout, logger)
	if err := store.StartSweeper(cfg.Session.SweepSchedule); err != nil {
		return err
	}
	defer store.Stop()

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	// CORS config
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r,
		handler.NewConsoleHandler(store, renderer, logger, false),
		handler.NewAuditHandler(auditRepo),
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("console listening", "addr", srv.Addr, "api", cfg.API.BaseURL)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
