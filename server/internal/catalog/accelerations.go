package catalog

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/obsidianstack/clusterstats/pkg/types"
)

// PutAcceleration adds or replaces an acceleration and its layouts.
func (c *Catalog) PutAcceleration(ctx context.Context, acc types.Acceleration) error {
	if acc.ID == "" {
		return fmt.Errorf("catalog: put acceleration: empty id")
	}
	return c.update(ctx, func(txn *badger.Txn) error {
		return setJSON(txn, accelerationKey(acc.ID), acc)
	})
}

// PutMaterialization adds or replaces one materialization of a layout.
func (c *Catalog) PutMaterialization(ctx context.Context, m types.Materialization) error {
	if m.ID == "" || m.LayoutID == "" {
		return fmt.Errorf("catalog: put materialization: id and layout id are required")
	}
	return c.update(ctx, func(txn *badger.Txn) error {
		return setJSON(txn, materializationKey(m), m)
	})
}

// Accelerations returns every acceleration ordered by id.
func (c *Catalog) Accelerations(ctx context.Context) ([]types.Acceleration, error) {
	out := make([]types.Acceleration, 0)
	err := c.view(ctx, func(txn *badger.Txn) error {
		return scanPrefix(txn, []byte(prefixAcceleration), func(acc types.Acceleration) error {
			out = append(out, acc)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: list accelerations: %w", err)
	}
	return out, nil
}

// Materializations returns every materialization of a layout ordered by id.
func (c *Catalog) Materializations(ctx context.Context, layoutID string) ([]types.Materialization, error) {
	out := make([]types.Materialization, 0)
	err := c.view(ctx, func(txn *badger.Txn) error {
		return scanPrefix(txn, materializationPrefix(layoutID), func(m types.Materialization) error {
			out = append(out, m)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: materializations of %q: %w", layoutID, err)
	}
	return out, nil
}
