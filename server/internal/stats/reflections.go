package stats

import (
	"context"
	"fmt"

	"github.com/obsidianstack/clusterstats/pkg/types"
)

// ReduceReflections aggregates the reflection state of every layout of every
// acceleration.
//
// Every materialization's footprint counts towards TotalReflectionSizeBytes,
// whatever its state. Each layout is then represented by its latest terminal
// (DONE or FAILED) materialization, if it has one.
func ReduceReflections(ctx context.Context, accel AccelerationService) (ReflectionAggregate, error) {
	var agg ReflectionAggregate

	accelerations, err := accel.Accelerations(ctx)
	if err != nil {
		return ReflectionAggregate{}, fmt.Errorf("list accelerations: %w", err)
	}

	for _, acc := range accelerations {
		for _, layout := range acc.AllLayouts() {
			ms, err := accel.Materializations(ctx, layout.ID)
			if err != nil {
				return ReflectionAggregate{}, fmt.Errorf("materializations of layout %q: %w", layout.ID, err)
			}

			agg.TotalReflectionSizeBytes += totalFootprint(ms)

			latest, ok := latestTerminal(ms)
			if !ok {
				continue
			}
			if layout.Incremental {
				agg.IncrementalReflectionCount++
			}
			switch latest.State {
			case types.MaterializationDone:
				agg.ActiveReflections++
				agg.LatestReflectionsSizeBytes += latest.FootprintBytes
			case types.MaterializationFailed:
				agg.ErrorReflections++
			}
		}
	}
	return agg, nil
}

// totalFootprint sums the footprint of every materialization.
func totalFootprint(ms []types.Materialization) int64 {
	var total int64
	for _, m := range ms {
		total += m.FootprintBytes
	}
	return total
}

// latestTerminal returns the terminal materialization with the greatest start
// time. On equal start times the first one in ms wins.
func latestTerminal(ms []types.Materialization) (types.Materialization, bool) {
	var (
		latest types.Materialization
		found  bool
	)
	for _, m := range ms {
		if !m.State.Terminal() {
			continue
		}
		if !found || m.StartTime.After(latest.StartTime) {
			latest = m
			found = true
		}
	}
	return latest, found
}
