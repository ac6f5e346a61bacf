package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tracker/internal/amqp"
	"tracker/internal/cli"
	"tracker/internal/config"
	applog "tracker/internal/log"
	"tracker/internal/metrics"
	"tracker/internal/sheets"
	gsheet "tracker/internal/sheets/google"
	"tracker/internal/sheets/memory"
	"tracker/internal/worker"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Copy entry change events into the journal sheet",
	RunE:  runWorker,
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, logger := cli.LoadAndValidateConfig((*config.Config).ValidateWorker)
	logger = logger.WithComponent(applog.ComponentWorker)
	logger.Info("Starting journal worker")

	var journal sheets.JournalWriter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.New(cmd.Context(), gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			Sheet:           cfg.GoogleJournalSheet,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		}, logger.WithComponent(applog.ComponentSheets))
		if err != nil {
			return fmt.Errorf("google sheets client: %w", err)
		}
		if err := client.EnsureHeader(cmd.Context()); err != nil {
			return fmt.Errorf("journal header: %w", err)
		}
		journal = client
		logger.Info("Google Sheets journal initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		journal = memory.New()
		logger.Warn("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, events are kept in memory")
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger.WithComponent(applog.ComponentAMQP))
	if err != nil {
		return fmt.Errorf("amqp client: %w", err)
	}
	defer client.Close()

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, nil)
	w := worker.NewJournalWorker(client, journal, metrics.New(), logger)
	if err := w.Run(ctx); err != nil {
		logger.Error("Journal worker stopped", applog.FieldError, err)
		return err
	}

	cli.WaitForShutdown(ctx, done)
	processed, failed := w.Stats()
	logger.Info("Journal worker stopped gracefully", "processed", processed, "failed", failed)
	return nil
}
