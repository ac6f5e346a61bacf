package main

import (
	"github.com/spf13/cobra"

	"tracker/internal/cli"
	applog "tracker/internal/log"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the logs table and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger := cli.LoadAndValidateConfig(nil)
		store, err := cli.InitStore(cmd.Context(), logger, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		logger.Info("Schema is up to date",
			"driver", store.Driver(),
			applog.FieldOperation, applog.OpMigrate)
		return nil
	},
}
