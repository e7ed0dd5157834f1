package stats

import (
	"context"
	"fmt"
	"time"
)

// Assembler composes a ClusterSnapshot from its collaborators.
// It keeps no state between calls and is safe for concurrent use.
type Assembler struct {
	nodes   NodeRegistry
	sources SourceService
	ns      NamespaceService
	jobs    JobService
	accel   AccelerationService
	now     func() time.Time // injectable for deterministic tests
}

// NewAssembler returns an Assembler reading from the given collaborators.
func NewAssembler(nodes NodeRegistry, sources SourceService, ns NamespaceService, jobs JobService, accel AccelerationService) *Assembler {
	return &Assembler{
		nodes:   nodes,
		sources: sources,
		ns:      ns,
		jobs:    jobs,
		accel:   accel,
		now:     time.Now,
	}
}

// Snapshot computes the cluster statistics. It fails as a whole if any
// collaborator fails outside the locally recovered namespace lookups.
func (a *Assembler) Snapshot(ctx context.Context) (ClusterSnapshot, error) {
	var snap ClusterSnapshot

	executors, err := a.nodes.Executors(ctx)
	if err != nil {
		return ClusterSnapshot{}, fmt.Errorf("stats: executors: %w", err)
	}
	snap.Executors = BuildEndpoints(executors)

	coordinators, err := a.nodes.Coordinators(ctx)
	if err != nil {
		return ClusterSnapshot{}, fmt.Errorf("stats: coordinators: %w", err)
	}
	snap.Coordinators = BuildEndpoints(coordinators)

	sources, err := a.sources.Sources(ctx)
	if err != nil {
		return ClusterSnapshot{}, fmt.Errorf("stats: list sources: %w", err)
	}
	if snap.Sources, err = CollectSources(ctx, sources, a.ns); err != nil {
		return ClusterSnapshot{}, fmt.Errorf("stats: sources: %w", err)
	}

	if snap.JobStats, err = CollectJobStats(ctx, a.jobs, a.now()); err != nil {
		return ClusterSnapshot{}, fmt.Errorf("stats: job stats: %w", err)
	}

	if snap.ReflectionStats, err = ReduceReflections(ctx, a.accel); err != nil {
		return ClusterSnapshot{}, fmt.Errorf("stats: reflections: %w", err)
	}

	return snap, nil
}
