package stats

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obsidianstack/clusterstats/pkg/types"
)

func threeSources() []types.SourceConfig {
	return []types.SourceConfig{
		{ID: "id-a", Name: "a", Type: "S3"},
		{ID: "id-b", Name: "b", Type: "POSTGRES"},
		{ID: "id-c", Name: "c", Type: "HDFS"},
	}
}

func TestCollectSources_AllSucceed(t *testing.T) {
	ns := &fakeNamespace{
		pds: map[string]int{"a": 3, "b": 0, "c": 12},
		vds: map[string]int{"a": 1, "b": 5, "c": 0},
	}

	got, err := CollectSources(context.Background(), threeSources(), ns)
	require.NoError(t, err)
	require.Len(t, got, 3)

	wantPDS := []int{3, 0, 12}
	wantVDS := []int{1, 5, 0}
	for i, s := range got {
		assert.Equal(t, threeSources()[i].ID, s.ID)
		assert.Equal(t, threeSources()[i].Type, s.Type)

		pds, ok := s.PhysicalDatasets.Value()
		assert.True(t, ok)
		assert.Equal(t, wantPDS[i], pds)

		vds, ok := s.VirtualDatasets.Value()
		assert.True(t, ok)
		assert.Equal(t, wantVDS[i], vds)
	}
}

func TestCollectSources_OnePhysicalLookupFails(t *testing.T) {
	ns := &fakeNamespace{
		pds:    map[string]int{"a": 3, "c": 12}, // "b" is missing
		pdsErr: nsErr("count"),
		vds:    map[string]int{"a": 1, "b": 5, "c": 2},
	}

	got, err := CollectSources(context.Background(), threeSources(), ns)
	require.NoError(t, err)
	require.Len(t, got, 3)

	_, ok := got[1].PhysicalDatasets.Value()
	assert.False(t, ok, "failed source must be unavailable")

	n, ok := got[0].PhysicalDatasets.Value()
	assert.True(t, ok)
	assert.Equal(t, 3, n)
	n, ok = got[2].PhysicalDatasets.Value()
	assert.True(t, ok)
	assert.Equal(t, 12, n)

	// The failed physical lookup does not affect the virtual count.
	n, ok = got[1].VirtualDatasets.Value()
	assert.True(t, ok)
	assert.Equal(t, 5, n)
	assert.Equal(t, "id-b", got[1].ID)
}

func TestCollectSources_BatchFailureLeavesAllVirtualUnavailable(t *testing.T) {
	ns := &fakeNamespace{
		pds:       map[string]int{"a": 3, "b": 4, "c": 5},
		countsErr: nsErr("counts"),
	}

	got, err := CollectSources(context.Background(), threeSources(), ns)
	require.NoError(t, err)
	require.Len(t, got, 3)

	for _, s := range got {
		_, ok := s.VirtualDatasets.Value()
		assert.False(t, ok, "source %s", s.ID)
		_, ok = s.PhysicalDatasets.Value()
		assert.True(t, ok, "source %s", s.ID)
	}
	assert.Equal(t, 1, ns.countCalls)
}

func TestCollectSources_SingleBatchedQueryInSourceOrder(t *testing.T) {
	ns := &fakeNamespace{pds: map[string]int{"a": 1, "b": 1, "c": 1}}

	_, err := CollectSources(context.Background(), threeSources(), ns)
	require.NoError(t, err)

	assert.Equal(t, 1, ns.countCalls)
	assert.Equal(t, []types.SearchQuery{
		{Field: types.DatasetSourcesField, Value: "a"},
		{Field: types.DatasetSourcesField, Value: "b"},
		{Field: types.DatasetSourcesField, Value: "c"},
	}, ns.lastBatch)
}

func TestCollectSources_NonNamespaceErrorPropagates(t *testing.T) {
	ns := &fakeNamespace{pds: map[string]int{}, pdsErr: errBackend}

	_, err := CollectSources(context.Background(), threeSources(), ns)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errBackend))
}

func TestCollectSources_NonNamespaceBatchErrorPropagates(t *testing.T) {
	ns := &fakeNamespace{pds: map[string]int{"a": 1, "b": 1, "c": 1}, countsErr: errBackend}

	_, err := CollectSources(context.Background(), threeSources(), ns)
	require.ErrorIs(t, err, errBackend)
}

func TestCollectSources_Empty(t *testing.T) {
	ns := &fakeNamespace{}

	got, err := CollectSources(context.Background(), nil, ns)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestCount_ZeroValueIsUnavailable(t *testing.T) {
	var c Count
	_, ok := c.Value()
	assert.False(t, ok)

	n, ok := Known(0).Value()
	assert.True(t, ok)
	assert.Equal(t, 0, n)
}
