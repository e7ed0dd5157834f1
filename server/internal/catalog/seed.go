package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/obsidianstack/clusterstats/pkg/types"
)

// Fixture is a YAML description of catalog contents, loaded by Seed.
type Fixture struct {
	Users    []string             `yaml:"users"`
	Sources  []types.SourceConfig `yaml:"sources"`
	Spaces   []types.SpaceConfig  `yaml:"spaces"`
	Datasets []FixtureDataset     `yaml:"datasets"`
	Jobs     []types.JobRecord    `yaml:"jobs"`

	Accelerations    []types.Acceleration    `yaml:"accelerations"`
	Materializations []types.Materialization `yaml:"materializations"`
}

// FixtureDataset is a dataset with a dotted path, e.g. "mysource.db.orders".
type FixtureDataset struct {
	Path    string            `yaml:"path"`
	Type    types.DatasetType `yaml:"type"`
	Sources []string          `yaml:"sources"`
}

// LoadFixture reads and parses a fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read fixture %q: %w", path, err)
	}
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("catalog: parse fixture: %w", err)
	}
	return &f, nil
}

// Seed writes every record of f into the catalog. Sources and spaces are
// written before the datasets rooted at them.
func (c *Catalog) Seed(ctx context.Context, f *Fixture) error {
	for _, u := range f.Users {
		if err := c.PutUser(ctx, u); err != nil {
			return err
		}
	}
	for _, src := range f.Sources {
		if _, err := c.PutSource(ctx, src); err != nil {
			return fmt.Errorf("catalog: seed: %w", err)
		}
	}
	for _, sp := range f.Spaces {
		sp.Version = nil
		err := c.AddOrUpdateSpace(ctx, types.NewNamespaceKey(sp.Name), sp, "")
		if errors.Is(err, types.ErrConcurrentModification) {
			slog.Info("catalog: seed: space already exists", "space", sp.Name)
			continue
		}
		if err != nil {
			return fmt.Errorf("catalog: seed: %w", err)
		}
	}
	for _, ds := range f.Datasets {
		cfg := types.DatasetConfig{
			Path:    types.NamespaceKey(strings.Split(ds.Path, ".")),
			Type:    ds.Type,
			Sources: ds.Sources,
		}
		if err := c.PutDataset(ctx, cfg); err != nil {
			return fmt.Errorf("catalog: seed: %w", err)
		}
	}
	for _, j := range f.Jobs {
		if err := c.RecordJob(ctx, j); err != nil {
			return err
		}
	}
	for _, acc := range f.Accelerations {
		if err := c.PutAcceleration(ctx, acc); err != nil {
			return err
		}
	}
	for _, m := range f.Materializations {
		if err := c.PutMaterialization(ctx, m); err != nil {
			return err
		}
	}
	return nil
}
