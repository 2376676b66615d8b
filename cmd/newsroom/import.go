package main

import (
	"github.com/jhchabran/newsroom/feeds"
	"github.com/spf13/cobra"
)

var importRSSCmd = &cobra.Command{
	Use:   "import-rss <url>",
	Short: "Publish every item of an RSS or Atom feed as a news",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		store := cfg.NewStore()
		if err := store.Connect(); err != nil {
			return err
		}
		defer store.Close()

		if _, err := store.Migrate(); err != nil {
			return err
		}

		importer := feeds.NewImporter(store, logger.With().Str("component", "feeds").Logger())
		_, err := importer.Import(c.Context(), args[0])
		return err
	},
}
