package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/hamed0406/statechecker/internal/repo/postgres"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the state tables in PostgreSQL",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Database.URL == "" {
			return errors.New("database.url is not set")
		}
		pg, err := postgres.New(cmd.Context(), cfg.Database.URL, logger)
		if err != nil {
			return err
		}
		defer pg.Close()
		if err := pg.Migrate(cmd.Context()); err != nil {
			return err
		}
		logger.Info("migrated")
		return nil
	},
}
