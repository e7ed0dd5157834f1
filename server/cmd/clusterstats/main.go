// Command clusterstats serves cluster statistics for a distributed query
// engine: node topology, per-source dataset counts, recent job throughput and
// reflection state.
//
// Usage:
//
//	clusterstats serve    --config config.yaml
//	clusterstats snapshot --config config.yaml
//	clusterstats seed     --config config.yaml --fixture fixture.yaml
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/obsidianstack/clusterstats/server/internal/catalog"
	"github.com/obsidianstack/clusterstats/server/internal/config"
)

var configPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "clusterstats:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "clusterstats",
		Short:         "Cluster statistics service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config file")

	root.AddCommand(newServeCmd(), newSnapshotCmd(), newSeedCmd())
	return root
}

// loadConfig reads the config file and installs the JSON logger at the
// configured level.
func loadConfig() (*config.Config, error) {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Server.SlogLevel()})))
	return cfg, nil
}

func openCatalog(cfg config.CatalogConfig) (*catalog.Catalog, error) {
	return catalog.Open(catalog.Config{
		Path:       cfg.Path,
		InMemory:   cfg.InMemory,
		SyncWrites: cfg.SyncWrites,
		GCInterval: cfg.GCInterval,
	})
}
