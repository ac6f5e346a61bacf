package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"tracker/internal/amqp"
	"tracker/internal/cli"
	"tracker/internal/config"
	"tracker/internal/extract"
	apphttp "tracker/internal/http"
	applog "tracker/internal/log"
	"tracker/internal/metrics"
	"tracker/internal/services"
	"tracker/internal/session"
	"tracker/internal/workflow"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web interface",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("port", "", "listen port (overrides PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger := cli.LoadAndValidateConfig((*config.Config).ValidateServe)
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}

	store, err := cli.InitStore(cmd.Context(), logger, cfg)
	if err != nil {
		return err
	}
	m := metrics.New()
	opts := []services.Option{
		services.WithMetrics(m),
		services.WithLogger(logger.WithComponent(applog.ComponentStorage)),
	}
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger.WithComponent(applog.ComponentAMQP))
		if err != nil {
			// Entries are still saved; only the change journal is skipped.
			logger.Warn("AMQP unavailable, change events disabled", applog.FieldError, err)
		} else {
			opts = append(opts, services.WithPublisher(client))
			logger.Info("Publishing change events", "exchange", cfg.AMQPExchange)
		}
	}
	entries := services.NewEntryService(store, opts...)
	defer entries.Close()

	completer, err := extract.NewOpenAICompleter(extract.Config{
		APIType:    cfg.OpenAIAPIType,
		Endpoint:   cfg.OpenAIEndpoint,
		APIKey:     cfg.OpenAIAPIKey,
		Deployment: cfg.OpenAIDeployment,
		APIVersion: cfg.OpenAIAPIVersion,
	})
	if err != nil {
		return fmt.Errorf("completion client: %w", err)
	}
	extractor := extract.NewClient(completer, extract.WithLogger(logger.WithComponent(applog.ComponentExtract)))
	flow := workflow.New(extractor, entries,
		workflow.WithMetrics(m),
		workflow.WithLogger(logger.WithComponent(applog.ComponentWorkflow)))

	sessions := session.NewStore(session.Config{
		MaxSize:       cfg.SessionMax,
		TTL:           cfg.SessionTTL,
		DefaultBudget: cfg.BudgetDefault,
	})
	sessions.StartCleanup(time.Minute, func(removed int) {
		m.SetActiveSessions(sessions.Size())
		if removed > 0 {
			logger.Debug("Expired sessions removed", "count", removed)
		}
	})
	defer sessions.Stop()

	srv, err := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		IdentityHeader:     cfg.IdentityHeader,
		DefaultUser:        cfg.DefaultUserEmail,
		CurrencySymbol:     cfg.CurrencySymbol,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		SessionTTL:         cfg.SessionTTL,
	}, apphttp.Dependencies{
		Entries:  entries,
		Flow:     flow,
		Sessions: sessions,
		Ready:    store,
		Metrics:  m,
		Logger:   logger.WithComponent(applog.ComponentHTTP),
	})
	if err != nil {
		return err
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
	})

	logger.Info("Starting tracker server",
		"port", cfg.Port,
		"driver", store.Driver(),
		applog.FieldOperation, applog.OpStartup)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		return err
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
	return nil
}
