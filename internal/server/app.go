// Package server initializes and runs the benchmarking API server. It opens
// the database, runs migrations, builds the keyring and services, and serves
// the HTTP API until interrupted.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/cryptox"
	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/logging"
	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/server/config"
	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/server/httpapi"
	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/server/repositories/repomanager"
	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/server/services"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	keyring *cryptox.Keyring
	handler http.Handler
}

func NewApp(cfg *config.Config) (*App, error) {
	logger := logging.NewJSON()

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	keyring, err := cryptox.NewKeyringFromPassphrase([]byte(cfg.EncryptionPassphrase), []byte(cfg.EncryptionSalt))
	if err != nil {
		return nil, fmt.Errorf("keyring init error: %w", err)
	}

	userService := services.NewUserService(db, rm, keyring, logger)
	benchmarkService := services.NewBenchmarkService(db, rm, logger)
	reportService := services.NewReportService(db, rm, cfg, logger)

	handler := httpapi.NewRouter(httpapi.RouterConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		AuthHandler:    httpapi.NewAuthHandler(userService, []byte(cfg.SecretKey), cfg.AccessTokenValidityDuration, logger),
		UserHandler:    httpapi.NewUserHandler(userService, logger),
		MetricsHandler: httpapi.NewMetricsHandler(benchmarkService, reportService, logger),
		Auth:           httpapi.NewAuthMiddleware([]byte(cfg.SecretKey), logger),
		RateLimiter:    httpapi.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
	})

	return &App{
		config:  cfg,
		logger:  logger,
		db:      db,
		keyring: keyring,
		handler: handler,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves the HTTP API until the context is cancelled or a termination
// signal arrives, then shuts down gracefully, wipes the keyring, and closes
// the database.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting app", "addr", app.config.EndpointAddrHTTP)

	app.initSignalHandler(cancelFunc)

	srv := &http.Server{
		Addr:    app.config.EndpointAddrHTTP,
		Handler: app.handler,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error(ctx, "http server error", "error", err)
			cancelFunc()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(shutdownCtx, "shutdown error", "error", err)
	}

	app.keyring.Wipe()
	if err := app.db.Close(); err != nil {
		app.logger.Error(shutdownCtx, "db close error", "error", err)
	}

	app.logger.Info(shutdownCtx, "app stopped")
}
