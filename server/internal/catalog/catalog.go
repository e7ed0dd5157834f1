package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/obsidianstack/clusterstats/pkg/types"
)

// Config controls how the catalog database is opened.
type Config struct {
	// Path is the badger directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps all data in memory; used by tests and the snapshot command.
	InMemory bool

	// SyncWrites fsyncs every write.
	SyncWrites bool

	// GCInterval is how often value log GC runs. Zero disables it.
	GCInterval time.Duration
}

// Catalog is a badger-backed namespace, source, job and acceleration store.
// All methods are safe for concurrent use.
type Catalog struct {
	db     *badger.DB
	now    func() time.Time
	stopGC chan struct{}
	doneGC chan struct{}
}

// Open opens (or creates) the catalog database.
func Open(cfg Config) (*Catalog, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("catalog: path is required for a persistent catalog")
		}
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("catalog: create directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(&badgerLogger{logger: slog.Default().With("component", "badger")})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("catalog: open badger: %w", err)
	}

	c := &Catalog{db: db, now: time.Now}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		c.stopGC = make(chan struct{})
		c.doneGC = make(chan struct{})
		go c.runGC(cfg.GCInterval)
	}
	return c, nil
}

// OpenInMemory opens an empty in-memory catalog.
func OpenInMemory() (*Catalog, error) {
	return Open(Config{InMemory: true})
}

// Close stops value log GC and closes the database.
func (c *Catalog) Close() error {
	if c.stopGC != nil {
		close(c.stopGC)
		<-c.doneGC
	}
	return c.db.Close()
}

func (c *Catalog) runGC(interval time.Duration) {
	defer close(c.doneGC)
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-c.stopGC:
			return
		case <-t.C:
			// ErrNoRewrite only means there was nothing to collect.
			if err := c.db.RunValueLogGC(0.5); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				slog.Warn("catalog: value log GC failed", "err", err)
			}
		}
	}
}

func (c *Catalog) view(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.db.View(fn)
}

func (c *Catalog) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.db.Update(fn)
}

// getJSON loads key into v. It returns types.ErrNotFound for a missing key.
func getJSON(txn *badger.Txn, key []byte, v interface{}) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return types.ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(txn *badger.Txn, key []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return txn.Set(key, data)
}

func exists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return false, nil
	default:
		return false, err
	}
}

// scanPrefix decodes every value under prefix, in key order, calling fn with
// a fresh T for each.
func scanPrefix[T any](txn *badger.Txn, prefix []byte, fn func(T) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var v T
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &v)
		}); err != nil {
			return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
		}
		if err := fn(v); err != nil {
			return err
		}
	}
	return nil
}

// badgerLogger routes badger's internal logging through slog.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
