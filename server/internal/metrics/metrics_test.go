package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/obsidianstack/clusterstats/server/internal/stats"
)

func TestRecorder_ObserveSuccess(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	snap := stats.ClusterSnapshot{
		Sources: []stats.SourceStat{
			{ID: "1", PhysicalDatasets: stats.Known(3), VirtualDatasets: stats.Unavailable()},
			{ID: "2", PhysicalDatasets: stats.Unavailable(), VirtualDatasets: stats.Unavailable()},
		},
		ReflectionStats: stats.ReflectionAggregate{ActiveReflections: 4, ErrorReflections: 1},
	}
	r.Observe(snap, 20*time.Millisecond, nil)

	if got := testutil.ToFloat64(r.requests.WithLabelValues(StatusOK)); got != 1 {
		t.Errorf("requests{ok}: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.unavailable.WithLabelValues("physical")); got != 1 {
		t.Errorf("unavailable{physical}: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.unavailable.WithLabelValues("virtual")); got != 2 {
		t.Errorf("unavailable{virtual}: got %v, want 2", got)
	}

	want := `
# HELP clusterstats_reflections Reflections in the last snapshot, by state of their latest terminal materialization.
# TYPE clusterstats_reflections gauge
clusterstats_reflections{state="active"} 4
clusterstats_reflections{state="error"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(want), "clusterstats_reflections"); err != nil {
		t.Errorf("reflections gauge: %v", err)
	}
	if n := testutil.CollectAndCount(r.duration); n != 1 {
		t.Errorf("duration series: got %d, want 1", n)
	}
}

func TestRecorder_ObserveError(t *testing.T) {
	r := New(prometheus.NewRegistry())
	r.Observe(stats.ClusterSnapshot{}, time.Millisecond, errors.New("catalog down"))

	if got := testutil.ToFloat64(r.requests.WithLabelValues(StatusError)); got != 1 {
		t.Errorf("requests{error}: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.requests.WithLabelValues(StatusOK)); got != 0 {
		t.Errorf("requests{ok}: got %v, want 0", got)
	}
	if n := testutil.CollectAndCount(r.reflections); n != 0 {
		t.Errorf("reflections series after error: got %d, want 0", n)
	}
}
