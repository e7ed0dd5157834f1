package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obsidianstack/clusterstats/pkg/types"
)

func openTest(t *testing.T) *Catalog {
	t.Helper()
	c, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func seedSources(t *testing.T, c *Catalog, names ...string) {
	t.Helper()
	for _, n := range names {
		_, err := c.PutSource(context.Background(), types.SourceConfig{Name: n, Type: "S3"})
		require.NoError(t, err)
	}
}

func putDataset(t *testing.T, c *Catalog, typ types.DatasetType, sources []string, path ...string) {
	t.Helper()
	require.NoError(t, c.PutDataset(context.Background(), types.DatasetConfig{
		Path: types.NewNamespaceKey(path...), Type: typ, Sources: sources,
	}))
}

func isNamespaceError(err error) bool {
	var nsErr *types.NamespaceError
	return errors.As(err, &nsErr)
}

func TestOpen_PersistentRequiresPath(t *testing.T) {
	_, err := Open(Config{})
	require.Error(t, err)
}

func TestOpen_PersistentReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "catalog")
	ctx := context.Background()

	c, err := Open(Config{Path: dir, SyncWrites: true})
	require.NoError(t, err)
	_, err = c.PutSource(ctx, types.SourceConfig{Name: "lake", Type: "S3"})
	require.NoError(t, err)
	require.NoError(t, c.Close())

	_, err = os.Stat(dir)
	require.NoError(t, err)

	c2, err := Open(Config{Path: dir})
	require.NoError(t, err)
	defer c2.Close()

	srcs, err := c2.Sources(ctx)
	require.NoError(t, err)
	require.Len(t, srcs, 1)
	assert.Equal(t, "lake", srcs[0].Name)
}

func TestPutSource_AssignsAndKeepsID(t *testing.T) {
	c := openTest(t)
	ctx := context.Background()

	first, err := c.PutSource(ctx, types.SourceConfig{Name: "pg", Type: "POSTGRES"})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)

	second, err := c.PutSource(ctx, types.SourceConfig{Name: "PG", Type: "POSTGRES"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestSources_OrderedByName(t *testing.T) {
	c := openTest(t)
	seedSources(t, c, "zeta", "alpha", "mid")

	srcs, err := c.Sources(context.Background())
	require.NoError(t, err)
	require.Len(t, srcs, 3)
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, []string{srcs[0].Name, srcs[1].Name, srcs[2].Name})
}

func TestDatasetCount(t *testing.T) {
	c := openTest(t)
	seedSources(t, c, "lake", "lakehouse")
	putDataset(t, c, types.PhysicalDataset, nil, "lake", "raw", "orders")
	putDataset(t, c, types.PhysicalDataset, nil, "lake", "raw", "customers")
	putDataset(t, c, types.PhysicalDataset, nil, "lake", "events")
	putDataset(t, c, types.PhysicalDataset, nil, "lakehouse", "t1")

	n, err := c.DatasetCount(context.Background(), types.NewNamespaceKey("lake"))
	require.NoError(t, err)
	assert.Equal(t, 3, n, "sibling root lakehouse must not be counted")

	n, err = c.DatasetCount(context.Background(), types.NewNamespaceKey("LAKE", "raw"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestDatasetCount_UnknownRoot(t *testing.T) {
	c := openTest(t)

	_, err := c.DatasetCount(context.Background(), types.NewNamespaceKey("nope"))
	require.Error(t, err)
	assert.True(t, isNamespaceError(err))
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestPutDataset_Validation(t *testing.T) {
	c := openTest(t)
	seedSources(t, c, "lake")
	ctx := context.Background()

	err := c.PutDataset(ctx, types.DatasetConfig{Path: types.NewNamespaceKey("lake"), Type: types.PhysicalDataset})
	assert.True(t, isNamespaceError(err), "root-only path")

	err = c.PutDataset(ctx, types.DatasetConfig{Path: types.NewNamespaceKey("ghost", "t"), Type: types.PhysicalDataset})
	assert.ErrorIs(t, err, types.ErrNotFound)

	err = c.PutDataset(ctx, types.DatasetConfig{Path: types.NewNamespaceKey("lake", "t"), Type: "TABLE"})
	assert.True(t, isNamespaceError(err), "unknown type")
}

func TestCounts_PositionallyAligned(t *testing.T) {
	c := openTest(t)
	ctx := context.Background()
	seedSources(t, c, "a", "b", "c")
	require.NoError(t, c.AddOrUpdateSpace(ctx, types.NewNamespaceKey("analytics"), types.SpaceConfig{}, ""))

	putDataset(t, c, types.VirtualDataset, []string{"a"}, "analytics", "v1")
	putDataset(t, c, types.VirtualDataset, []string{"a", "c"}, "analytics", "v2")
	putDataset(t, c, types.VirtualDataset, []string{"C"}, "analytics", "v3")
	putDataset(t, c, types.PhysicalDataset, []string{"b"}, "b", "p1")

	counts, err := c.Counts(ctx,
		types.NewTermQuery(types.DatasetSourcesField, "c"),
		types.NewTermQuery(types.DatasetSourcesField, "b"),
		types.NewTermQuery(types.DatasetSourcesField, "a"),
	)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 0, 2}, counts)
}

func TestCounts_EmptyAndUnsupportedField(t *testing.T) {
	c := openTest(t)

	counts, err := c.Counts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, counts)

	_, err = c.Counts(context.Background(), types.NewTermQuery("owner", "x"))
	require.Error(t, err)
	assert.True(t, isNamespaceError(err))
}

func TestCatalog_CancelledContext(t *testing.T) {
	c := openTest(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Sources(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestJobStats_WindowAndOrder(t *testing.T) {
	c := openTest(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	jobs := []types.JobRecord{
		{ID: "old", Type: types.JobTypeUI, StartedAt: base.Add(-time.Hour)},
		{ID: "j1", Type: types.JobTypeUI, StartedAt: base},
		{ID: "j2", Type: types.JobTypeUI, StartedAt: base.Add(time.Minute)},
		{ID: "j3", Type: types.JobTypeAcceleration, StartedAt: base.Add(2 * time.Minute)},
		{ID: "j4", Type: "REST", StartedAt: base.Add(3 * time.Minute)},
		{ID: "edge", Type: types.JobTypeUI, StartedAt: base.Add(time.Hour)},
	}
	for _, j := range jobs {
		require.NoError(t, c.RecordJob(ctx, j))
	}

	got, err := c.JobStats(ctx, base, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []types.JobTypeStats{
		{Type: types.JobTypeUI, Count: 2},
		{Type: types.JobTypeExternal, Count: 0},
		{Type: types.JobTypeAcceleration, Count: 1},
		{Type: types.JobTypeDownload, Count: 0},
		{Type: types.JobTypeInternal, Count: 0},
		{Type: "REST", Count: 1},
	}, got)
}

func TestAccelerationsAndMaterializations(t *testing.T) {
	c := openTest(t)
	ctx := context.Background()

	require.NoError(t, c.PutAcceleration(ctx, types.Acceleration{
		ID:         "acc-1",
		RawLayouts: []types.Layout{{ID: "l1", Incremental: true}},
	}))
	require.NoError(t, c.PutMaterialization(ctx, types.Materialization{ID: "m2", LayoutID: "l1", State: types.MaterializationDone}))
	require.NoError(t, c.PutMaterialization(ctx, types.Materialization{ID: "m1", LayoutID: "l1", State: types.MaterializationFailed}))
	require.NoError(t, c.PutMaterialization(ctx, types.Materialization{ID: "x", LayoutID: "l10", State: types.MaterializationDone}))

	accs, err := c.Accelerations(ctx)
	require.NoError(t, err)
	require.Len(t, accs, 1)
	assert.True(t, accs[0].RawLayouts[0].Incremental)

	ms, err := c.Materializations(ctx, "l1")
	require.NoError(t, err)
	require.Len(t, ms, 2, "layout l10 must not leak into l1")
	assert.Equal(t, "m1", ms[0].ID)

	ms, err = c.Materializations(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, ms)
}
