package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/obsidianstack/clusterstats/server/internal/api"
	"github.com/obsidianstack/clusterstats/server/internal/nodes"
	"github.com/obsidianstack/clusterstats/server/internal/stats"
)

func newSnapshotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Scrape every node once and print one cluster snapshot as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			s := cfg.Server

			cat, err := openCatalog(s.Catalog)
			if err != nil {
				return err
			}
			defer cat.Close() //nolint:errcheck

			reg := nodes.NewRegistry(s.Nodes.TTL)
			reg.SetTargets(nodes.TargetsFromConfig(s.Nodes))
			scraper, err := nodes.NewScraper(s.Nodes)
			if err != nil {
				return err
			}
			nodes.NewPoller(reg, scraper, s.Nodes.ScrapeInterval).Poll(cmd.Context())

			snap, err := stats.NewAssembler(reg, cat, cat, cat, cat).Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(api.NewClusterStatsResponse(snap))
		},
	}
}
