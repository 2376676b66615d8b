// Command newsroom runs the news site and its maintenance tasks.
package main

import (
	"os"

	"github.com/jhchabran/newsroom/cmd"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	configPath string

	cfg    *cmd.Config
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "newsroom",
	Short:         "A news site where users comment the news",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(c *cobra.Command, args []string) error {
		cfg = cmd.DefaultConfig()
		if err := cfg.LoadFile(configPath); err != nil {
			return err
		}
		logger = cmd.SetupLogger(cfg)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.json", "Path to the configuration file")

	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(importRSSCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}
