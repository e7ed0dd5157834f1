package stats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/obsidianstack/clusterstats/pkg/types"
)

// CollectSources returns one SourceStat per source, in enumeration order.
//
// A namespace failure while counting one source's physical datasets marks only
// that source's count Unavailable. Virtual dataset counts are fetched with a
// single batched query; if it fails with a namespace error every virtual count
// stays Unavailable. Any other error is returned.
func CollectSources(ctx context.Context, sources []types.SourceConfig, ns NamespaceService) ([]SourceStat, error) {
	out := make([]SourceStat, 0, len(sources))
	queries := make([]types.SearchQuery, 0, len(sources))

	for _, src := range sources {
		stat := SourceStat{ID: src.ID, Type: src.Type}

		n, err := ns.DatasetCount(ctx, types.NewNamespaceKey(src.Name))
		switch {
		case err == nil:
			stat.PhysicalDatasets = Known(n)
		case isNamespaceError(err):
			slog.Warn("stats: failed to get dataset count", "source", src.Name, "err", err)
		default:
			return nil, fmt.Errorf("dataset count for source %q: %w", src.Name, err)
		}

		out = append(out, stat)
		queries = append(queries, types.NewTermQuery(types.DatasetSourcesField, src.Name))
	}

	counts, err := ns.Counts(ctx, queries...)
	if err != nil {
		if !isNamespaceError(err) {
			return nil, fmt.Errorf("virtual dataset counts: %w", err)
		}
		slog.Warn("stats: failed to get vds counts", "sources", len(sources), "err", err)
		return out, nil
	}

	for i, c := range counts {
		if i >= len(out) {
			break
		}
		out[i].VirtualDatasets = Known(c)
	}
	return out, nil
}

func isNamespaceError(err error) bool {
	var nsErr *types.NamespaceError
	return errors.As(err, &nsErr)
}
