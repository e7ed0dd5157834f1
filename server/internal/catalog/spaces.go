package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/obsidianstack/clusterstats/pkg/types"
)

// AddOrUpdateSpace creates the space at key, or updates it when cfg carries
// the currently stored version. A write without a version over an existing
// space, or with a stale version, fails with types.ErrConcurrentModification.
//
// When user is non-empty it must be a registered user.
func (c *Catalog) AddOrUpdateSpace(ctx context.Context, key types.NamespaceKey, cfg types.SpaceConfig, user string) error {
	name := key.Root()
	if len(key) != 1 {
		return &types.NamespaceError{Op: "write space", Key: key.String(), Err: errors.New("space path must have exactly one component")}
	}
	if err := validName(name); err != nil {
		return &types.NamespaceError{Op: "write space", Key: key.String(), Err: err}
	}

	var userErr *types.UserNotFoundError
	err := c.update(ctx, func(txn *badger.Txn) error {
		if user != "" {
			ok, err := exists(txn, userKey(user))
			if err != nil {
				return err
			}
			if !ok {
				userErr = &types.UserNotFoundError{User: user}
				return userErr
			}
		}

		taken, err := exists(txn, sourceKey(name))
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("name already used by a source")
		}

		var stored types.SpaceConfig
		err = getJSON(txn, spaceKey(name), &stored)
		found := err == nil
		if err != nil && !errors.Is(err, types.ErrNotFound) {
			return err
		}

		next := types.SpaceConfig{
			ID:          cfg.ID,
			Name:        name,
			Description: cfg.Description,
		}
		switch {
		case cfg.Version == nil && found:
			return types.ErrConcurrentModification
		case cfg.Version == nil:
			if next.ID == "" {
				next.ID = uuid.NewString()
			}
			v := int64(0)
			next.Version = &v
			next.CreatedAt = c.now().UTC()
		case !found || stored.Version == nil || *stored.Version != *cfg.Version:
			return types.ErrConcurrentModification
		default:
			next.ID = stored.ID
			v := *stored.Version + 1
			next.Version = &v
			next.CreatedAt = stored.CreatedAt
		}
		return setJSON(txn, spaceKey(name), next)
	})

	switch {
	case err == nil:
		return nil
	case userErr != nil:
		return userErr
	case errors.Is(err, badger.ErrConflict):
		return &types.NamespaceError{Op: "write space", Key: key.String(), Err: types.ErrConcurrentModification}
	default:
		return &types.NamespaceError{Op: "write space", Key: key.String(), Err: err}
	}
}

// Space returns the space stored at key.
func (c *Catalog) Space(ctx context.Context, key types.NamespaceKey) (types.SpaceConfig, error) {
	var cfg types.SpaceConfig
	err := c.view(ctx, func(txn *badger.Txn) error {
		return getJSON(txn, spaceKey(key.Root()), &cfg)
	})
	if err != nil {
		return types.SpaceConfig{}, &types.NamespaceError{Op: "get space", Key: key.String(), Err: err}
	}
	return cfg, nil
}
