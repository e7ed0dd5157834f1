package stats

import (
	"context"
	"time"

	"github.com/obsidianstack/clusterstats/pkg/types"
)

// NodeEndpointInfo is the lightweight stat record of one cluster node.
type NodeEndpointInfo struct {
	Address              string
	AvailableCores       int
	MaxDirectMemoryBytes int64
	StartedAt            time.Time
}

// Count is a dataset count that may be unknown because its lookup failed.
// The zero value is Unavailable.
type Count struct {
	n     int
	known bool
}

// Known returns a Count holding n.
func Known(n int) Count { return Count{n: n, known: true} }

// Unavailable returns a Count whose lookup failed.
func Unavailable() Count { return Count{} }

// Value returns the count and whether it is known.
func (c Count) Value() (int, bool) { return c.n, c.known }

// SourceStat holds the dataset counts of one registered source.
type SourceStat struct {
	ID               string
	Type             string
	PhysicalDatasets Count
	VirtualDatasets  Count
}

// ReflectionAggregate summarises the state of every reflection in the cluster.
type ReflectionAggregate struct {
	ActiveReflections          int
	ErrorReflections           int
	TotalReflectionSizeBytes   int64
	LatestReflectionsSizeBytes int64
	IncrementalReflectionCount int
}

// ClusterSnapshot is the full statistics snapshot for one request.
type ClusterSnapshot struct {
	Coordinators    []NodeEndpointInfo
	Executors       []NodeEndpointInfo
	Sources         []SourceStat
	JobStats        []types.JobTypeStats
	ReflectionStats ReflectionAggregate
}

// UnavailableSources returns how many sources have at least one unknown count.
func (s ClusterSnapshot) UnavailableSources() int {
	var n int
	for _, src := range s.Sources {
		_, pok := src.PhysicalDatasets.Value()
		_, vok := src.VirtualDatasets.Value()
		if !pok || !vok {
			n++
		}
	}
	return n
}

// NodeRegistry lists the live cluster members.
type NodeRegistry interface {
	Coordinators(ctx context.Context) ([]types.NodeDescriptor, error)
	Executors(ctx context.Context) ([]types.NodeDescriptor, error)
}

// SourceService enumerates the registered data sources.
type SourceService interface {
	Sources(ctx context.Context) ([]types.SourceConfig, error)
}

// NamespaceService answers dataset count queries.
//
// Counts returns one result per query, positionally aligned with its input.
// Both methods report namespace lookup failures as *types.NamespaceError.
type NamespaceService interface {
	DatasetCount(ctx context.Context, key types.NamespaceKey) (int, error)
	Counts(ctx context.Context, queries ...types.SearchQuery) ([]int, error)
}

// JobService reports job throughput per job type.
type JobService interface {
	JobStats(ctx context.Context, from, to time.Time) ([]types.JobTypeStats, error)
}

// AccelerationService exposes accelerations and their materializations.
type AccelerationService interface {
	Accelerations(ctx context.Context) ([]types.Acceleration, error)
	Materializations(ctx context.Context, layoutID string) ([]types.Materialization, error)
}
