package main

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/obsidianstack/clusterstats/server/internal/catalog"
)

func newSeedCmd() *cobra.Command {
	var fixturePath string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a YAML fixture into the catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if fixturePath == "" {
				return errors.New("--fixture is required")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Server.Catalog.InMemory {
				slog.Warn("seeding an in-memory catalog; data is discarded on exit")
			}

			fx, err := catalog.LoadFixture(fixturePath)
			if err != nil {
				return err
			}
			cat, err := openCatalog(cfg.Server.Catalog)
			if err != nil {
				return err
			}
			defer cat.Close() //nolint:errcheck

			if err := cat.Seed(cmd.Context(), fx); err != nil {
				return err
			}
			slog.Info("catalog seeded", "fixture", fixturePath,
				"sources", len(fx.Sources), "datasets", len(fx.Datasets), "jobs", len(fx.Jobs))
			return nil
		},
	}
	cmd.Flags().StringVar(&fixturePath, "fixture", "", "path to the YAML fixture")
	return cmd
}
