package stats

import (
	"context"
	"time"

	"github.com/obsidianstack/clusterstats/pkg/types"
)

// JobStatsWindow is the trailing window job statistics are reported for.
const JobStatsWindow = 7 * 24 * time.Hour

// CollectJobStats returns the job type counts for the JobStatsWindow ending at now.
func CollectJobStats(ctx context.Context, jobs JobService, now time.Time) ([]types.JobTypeStats, error) {
	return jobs.JobStats(ctx, now.Add(-JobStatsWindow), now)
}
