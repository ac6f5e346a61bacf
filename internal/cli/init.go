// Package cli provides the initialization steps shared by the tracker
// subcommands.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tracker/internal/config"
	applog "tracker/internal/log"
	"tracker/internal/storage"
)

// SetupLogger builds the process logger from cfg and installs it as the
// slog default.
func SetupLogger(cfg *config.Config) *applog.Logger {
	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: applog.ComponentApp,
		Output:    os.Stdout,
	})
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and runs validate on it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(validate func(*config.Config) error) (*config.Config, *applog.Logger) {
	cfg := config.Load()
	logger := SetupLogger(cfg)
	if validate == nil {
		validate = (*config.Config).Validate
	}
	if err := validate(cfg); err != nil {
		logger.Error("Configuration validation failed",
			applog.FieldError, err,
			applog.FieldErrorType, applog.ErrorTypeConfiguration)
		os.Exit(1)
	}
	return cfg, logger
}

// StorageConfig maps the process configuration onto the store settings.
func StorageConfig(cfg *config.Config) storage.Config {
	return storage.Config{
		Driver:       cfg.DBDriver,
		DSN:          cfg.DatabaseDSN(),
		FallbackDSNs: cfg.DatabaseFallbacks,
		MaxOpenConns: cfg.DBMaxOpenConns,
	}
}

// InitStore opens the database and brings the schema up to date.
func InitStore(ctx context.Context, logger *applog.Logger, cfg *config.Config) (*storage.Store, error) {
	openCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	store, err := storage.Open(openCtx, StorageConfig(cfg))
	if err != nil {
		logger.Error("Failed to open database",
			applog.FieldError, err,
			applog.FieldErrorType, applog.ErrorTypeDatabase,
			"driver", cfg.DBDriver)
		return nil, err
	}
	if err := store.Initialize(openCtx); err != nil {
		store.Close()
		logger.Error("Failed to initialize schema",
			applog.FieldError, err,
			applog.FieldErrorType, applog.ErrorTypeDatabase,
			applog.FieldOperation, applog.OpMigrate)
		return nil, err
	}
	return store, nil
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM.
// Cleanup runs after cancellation and the returned channel closes when it
// finishes or the timeout elapses, whichever comes first.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup(shutdownCtx)
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete", applog.FieldOperation, applog.OpShutdown)
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached", applog.FieldOperation, applog.OpShutdown)
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup ends.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
