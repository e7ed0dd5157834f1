package stats

import (
	"context"
	"errors"
	"time"

	"github.com/obsidianstack/clusterstats/pkg/types"
)

var errBackend = errors.New("backend unavailable")

func nsErr(op string) error {
	return &types.NamespaceError{Op: op, Err: errBackend}
}

type fakeNodes struct {
	coordinators []types.NodeDescriptor
	executors    []types.NodeDescriptor
	err          error
}

func (f *fakeNodes) Coordinators(context.Context) ([]types.NodeDescriptor, error) {
	return f.coordinators, f.err
}

func (f *fakeNodes) Executors(context.Context) ([]types.NodeDescriptor, error) {
	return f.executors, f.err
}

type fakeSources struct {
	sources []types.SourceConfig
	err     error
}

func (f *fakeSources) Sources(context.Context) ([]types.SourceConfig, error) {
	return f.sources, f.err
}

// fakeNamespace answers DatasetCount from pds (missing names fail with
// pdsErr) and Counts from vds keyed by term value.
type fakeNamespace struct {
	pds       map[string]int
	pdsErr    error
	vds       map[string]int
	countsErr error

	countCalls int
	lastBatch  []types.SearchQuery
}

func (f *fakeNamespace) DatasetCount(_ context.Context, key types.NamespaceKey) (int, error) {
	n, ok := f.pds[key.Root()]
	if !ok {
		return 0, f.pdsErr
	}
	return n, nil
}

func (f *fakeNamespace) Counts(_ context.Context, queries ...types.SearchQuery) ([]int, error) {
	f.countCalls++
	f.lastBatch = queries
	if f.countsErr != nil {
		return nil, f.countsErr
	}
	out := make([]int, 0, len(queries))
	for _, q := range queries {
		out = append(out, f.vds[q.Value])
	}
	return out, nil
}

type fakeJobs struct {
	stats    []types.JobTypeStats
	err      error
	from, to time.Time
}

func (f *fakeJobs) JobStats(_ context.Context, from, to time.Time) ([]types.JobTypeStats, error) {
	f.from, f.to = from, to
	return f.stats, f.err
}

type fakeAccel struct {
	accelerations []types.Acceleration
	byLayout      map[string][]types.Materialization
	listErr       error
	matErr        error
}

func (f *fakeAccel) Accelerations(context.Context) ([]types.Acceleration, error) {
	return f.accelerations, f.listErr
}

func (f *fakeAccel) Materializations(_ context.Context, layoutID string) ([]types.Materialization, error) {
	if f.matErr != nil {
		return nil, f.matErr
	}
	return f.byLayout[layoutID], nil
}

func at(sec int64) time.Time { return time.Unix(sec, 0).UTC() }

func mat(id string, state types.MaterializationState, start int64, footprint int64) types.Materialization {
	return types.Materialization{ID: id, State: state, StartTime: at(start), FootprintBytes: footprint}
}
