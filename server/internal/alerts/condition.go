package alerts

import (
	"strconv"
	"strings"

	"github.com/obsidianstack/clusterstats/server/internal/stats"
)

// sourceFieldPrefix marks fields evaluated once per source.
const sourceFieldPrefix = "source."

// condition is a parsed "field operator value" rule expression.
type condition struct {
	field     string
	op        string
	threshold float64
}

// parseCondition parses expressions such as:
//
//	executors < 1
//	coordinators == 0
//	unavailable_sources > 0
//	error_reflections >= 1
//	active_reflections < 5
//	total_reflection_size_bytes > 1e12
//	latest_reflection_size_bytes > 5e11
//	incremental_reflections < 1
//	jobs == 0
//	source.physical_datasets < 0
//	source.virtual_datasets == 0
//
// A source count that is unavailable evaluates as -1.
// It reports false if the expression cannot be parsed or the field is unknown.
func parseCondition(expr string) (condition, bool) {
	parts := strings.Fields(expr)
	if len(parts) != 3 {
		return condition{}, false
	}
	switch parts[1] {
	case ">", ">=", "<", "<=", "==", "!=":
	default:
		return condition{}, false
	}
	threshold, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return condition{}, false
	}
	c := condition{field: parts[0], op: parts[1], threshold: threshold}
	if c.perSource() {
		_, ok := sourceField(c.field, stats.SourceStat{})
		return c, ok
	}
	_, ok := clusterField(c.field, stats.ClusterSnapshot{})
	return c, ok
}

func (c condition) perSource() bool { return strings.HasPrefix(c.field, sourceFieldPrefix) }

// clusterField maps a cluster-wide field name to its value in the snapshot.
func clusterField(field string, snap stats.ClusterSnapshot) (float64, bool) {
	r := snap.ReflectionStats
	switch field {
	case "coordinators":
		return float64(len(snap.Coordinators)), true
	case "executors":
		return float64(len(snap.Executors)), true
	case "sources":
		return float64(len(snap.Sources)), true
	case "unavailable_sources":
		return float64(snap.UnavailableSources()), true
	case "active_reflections":
		return float64(r.ActiveReflections), true
	case "error_reflections":
		return float64(r.ErrorReflections), true
	case "incremental_reflections":
		return float64(r.IncrementalReflectionCount), true
	case "total_reflection_size_bytes":
		return float64(r.TotalReflectionSizeBytes), true
	case "latest_reflection_size_bytes":
		return float64(r.LatestReflectionsSizeBytes), true
	case "jobs":
		var n int
		for _, j := range snap.JobStats {
			n += j.Count
		}
		return float64(n), true
	default:
		return 0, false
	}
}

// sourceField maps a per-source field name to its value.
func sourceField(field string, s stats.SourceStat) (float64, bool) {
	var c stats.Count
	switch strings.TrimPrefix(field, sourceFieldPrefix) {
	case "physical_datasets":
		c = s.PhysicalDatasets
	case "virtual_datasets":
		c = s.VirtualDatasets
	default:
		return 0, false
	}
	if n, ok := c.Value(); ok {
		return float64(n), true
	}
	return -1, true
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	case "!=":
		return v != threshold
	default:
		return false
	}
}
