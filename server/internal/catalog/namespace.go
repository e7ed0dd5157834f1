package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/obsidianstack/clusterstats/pkg/types"
)

// PutDataset adds or replaces a dataset. Its root must be a registered source
// or space.
func (c *Catalog) PutDataset(ctx context.Context, ds types.DatasetConfig) error {
	if len(ds.Path) < 2 {
		return &types.NamespaceError{Op: "put dataset", Key: ds.Path.String(), Err: errors.New("path needs a root and a name")}
	}
	for _, p := range ds.Path {
		if err := validName(p); err != nil {
			return &types.NamespaceError{Op: "put dataset", Key: ds.Path.String(), Err: err}
		}
	}
	switch ds.Type {
	case types.PhysicalDataset, types.VirtualDataset:
	default:
		return &types.NamespaceError{Op: "put dataset", Key: ds.Path.String(), Err: fmt.Errorf("unknown dataset type %q", ds.Type)}
	}

	err := c.update(ctx, func(txn *badger.Txn) error {
		ok, err := rootExists(txn, ds.Path.Root())
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("root %q: %w", ds.Path.Root(), types.ErrNotFound)
		}
		return setJSON(txn, datasetKey(ds.Path), ds)
	})
	if err != nil {
		return &types.NamespaceError{Op: "put dataset", Key: ds.Path.String(), Err: err}
	}
	return nil
}

// DatasetCount returns the number of datasets, physical or virtual, anywhere
// below key. The root of key must be a registered source or space.
func (c *Catalog) DatasetCount(ctx context.Context, key types.NamespaceKey) (int, error) {
	var n int
	err := c.view(ctx, func(txn *badger.Txn) error {
		ok, err := rootExists(txn, key.Root())
		if err != nil {
			return err
		}
		if !ok {
			return types.ErrNotFound
		}

		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		prefix := datasetChildrenPrefix(key)
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, &types.NamespaceError{Op: "count", Key: key.String(), Err: err}
	}
	return n, nil
}

// Counts answers every query in one pass over the datasets. The result is
// positionally aligned with queries.
func (c *Catalog) Counts(ctx context.Context, queries ...types.SearchQuery) ([]int, error) {
	for _, q := range queries {
		if q.Field != types.DatasetSourcesField {
			return nil, &types.NamespaceError{Op: "counts", Key: q.Field, Err: fmt.Errorf("unsupported search field %q", q.Field)}
		}
	}

	counts := make([]int, len(queries))
	if len(queries) == 0 {
		return counts, nil
	}

	err := c.view(ctx, func(txn *badger.Txn) error {
		return scanPrefix(txn, []byte(prefixDataset), func(ds types.DatasetConfig) error {
			if ds.Type != types.VirtualDataset {
				return nil
			}
			for i, q := range queries {
				if containsFold(ds.Sources, q.Value) {
					counts[i]++
				}
			}
			return nil
		})
	})
	if err != nil {
		return nil, &types.NamespaceError{Op: "counts", Err: err}
	}
	return counts, nil
}

func rootExists(txn *badger.Txn, root string) (bool, error) {
	if root == "" {
		return false, nil
	}
	ok, err := exists(txn, sourceKey(root))
	if err != nil || ok {
		return ok, err
	}
	return exists(txn, spaceKey(root))
}

func containsFold(values []string, v string) bool {
	for _, s := range values {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
