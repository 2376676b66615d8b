package main

import (
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Run all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(c *cobra.Command, args []string) error {
		store := cfg.NewStore()
		if err := store.Connect(); err != nil {
			return err
		}
		defer store.Close()

		version, err := store.Migrate()
		if err != nil {
			return err
		}

		logger.Info().Uint("version", version).Msg("Migrated")
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the last migration",
	Args:  cobra.NoArgs,
	RunE: func(c *cobra.Command, args []string) error {
		store := cfg.NewStore()
		if err := store.Connect(); err != nil {
			return err
		}
		defer store.Close()

		if err := store.MigrateDown(); err != nil {
			return err
		}

		logger.Info().Msg("Rolled back")
		return nil
	},
}
