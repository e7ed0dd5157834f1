// Package stats computes the point-in-time cluster statistics snapshot.
//
// The snapshot is reduced from raw per-entity records exposed by external
// collaborators (node registry, source and namespace services, job tracker,
// acceleration service):
//
//   - BuildEndpoints projects node descriptors into NodeEndpointInfo records.
//   - CollectSources resolves a physical dataset count per source (one lookup
//     each, isolated per source) and the virtual dataset counts of all sources
//     in one batched query (isolated as a unit).
//   - CollectJobStats fetches job type counts for the trailing JobStatsWindow.
//   - ReduceReflections walks every acceleration, layout and materialization,
//     picks the latest terminal materialization per layout and accumulates the
//     reflection counters.
//   - Assembler.Snapshot runs all of the above and returns one ClusterSnapshot.
//
// Only namespace lookup failures (*types.NamespaceError) inside CollectSources
// are recovered locally; they leave the affected counts Unavailable. Every
// other collaborator error fails the whole snapshot.
//
// Nothing in this package holds state between snapshots, so an Assembler may
// be shared by concurrent requests without locking.
package stats
