package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/obsidianstack/clusterstats/pkg/types"
)

// RecordJob stores one executed job.
func (c *Catalog) RecordJob(ctx context.Context, j types.JobRecord) error {
	if j.ID == "" {
		return fmt.Errorf("catalog: record job: empty id")
	}
	return c.update(ctx, func(txn *badger.Txn) error {
		return setJSON(txn, jobKey(j), j)
	})
}

// JobStats counts the jobs started in [from, to) per job type. Every known
// job type is reported, in types.JobTypes order; jobs of other types are
// appended after them in first-seen order.
func (c *Catalog) JobStats(ctx context.Context, from, to time.Time) ([]types.JobTypeStats, error) {
	counts := make(map[types.JobType]int, len(types.JobTypes))
	var extra []types.JobType

	err := c.view(ctx, func(txn *badger.Txn) error {
		prefix := []byte(prefixJob)
		start := []byte(jobTimeKey(from))
		end := jobTimeKey(to)

		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: true, PrefetchSize: 100, Prefix: prefix})
		defer it.Close()

		for it.Seek(start); it.ValidForPrefix(prefix); it.Next() {
			k := it.Item().Key()
			if string(k[:len(end)]) >= end {
				break
			}
			var j types.JobRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &j)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", k, err)
			}
			if _, seen := counts[j.Type]; !seen && !knownJobType(j.Type) {
				extra = append(extra, j.Type)
			}
			counts[j.Type]++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: job stats: %w", err)
	}

	out := make([]types.JobTypeStats, 0, len(types.JobTypes)+len(extra))
	for _, jt := range types.JobTypes {
		out = append(out, types.JobTypeStats{Type: jt, Count: counts[jt]})
	}
	for _, jt := range extra {
		out = append(out, types.JobTypeStats{Type: jt, Count: counts[jt]})
	}
	return out, nil
}

func knownJobType(jt types.JobType) bool {
	for _, k := range types.JobTypes {
		if k == jt {
			return true
		}
	}
	return false
}
