package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/obsidianstack/clusterstats/pkg/types"
)

// PutSource registers or replaces a source. A source without an ID gets one.
func (c *Catalog) PutSource(ctx context.Context, src types.SourceConfig) (types.SourceConfig, error) {
	if err := validName(src.Name); err != nil {
		return types.SourceConfig{}, &types.NamespaceError{Op: "put source", Key: src.Name, Err: err}
	}

	err := c.update(ctx, func(txn *badger.Txn) error {
		taken, err := exists(txn, spaceKey(src.Name))
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("name already used by a space")
		}

		var prev types.SourceConfig
		switch err := getJSON(txn, sourceKey(src.Name), &prev); {
		case err == nil:
			if src.ID == "" {
				src.ID = prev.ID
			}
		case !errors.Is(err, types.ErrNotFound):
			return err
		}
		if src.ID == "" {
			src.ID = uuid.NewString()
		}
		return setJSON(txn, sourceKey(src.Name), src)
	})
	if err != nil {
		return types.SourceConfig{}, &types.NamespaceError{Op: "put source", Key: src.Name, Err: err}
	}
	return src, nil
}

// Sources returns every registered source ordered by name.
func (c *Catalog) Sources(ctx context.Context) ([]types.SourceConfig, error) {
	out := make([]types.SourceConfig, 0)
	err := c.view(ctx, func(txn *badger.Txn) error {
		return scanPrefix(txn, []byte(prefixSource), func(src types.SourceConfig) error {
			out = append(out, src)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: list sources: %w", err)
	}
	return out, nil
}

// PutUser registers a user name that writes may be attributed to.
func (c *Catalog) PutUser(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("catalog: put user: empty name")
	}
	return c.update(ctx, func(txn *badger.Txn) error {
		return txn.Set(userKey(name), []byte("{}"))
	})
}
