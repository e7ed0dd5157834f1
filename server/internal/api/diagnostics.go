package api

import (
	"fmt"
	"sort"
	"strings"

	"github.com/obsidianstack/clusterstats/server/internal/stats"
)

// DiagnosticHint is one human-readable insight about the cluster's state.
type DiagnosticHint struct {
	// Key is a stable machine-readable identifier (used for dedup/ordering).
	Key string `json:"key"`
	// Level is "ok" | "info" | "warning" | "critical"
	Level string `json:"level"`
	// Title is a short label.
	Title string `json:"title"`
	// Detail is the full explanation.
	Detail string `json:"detail"`
	// Value is an optional numeric value associated with this hint.
	Value *float64 `json:"value,omitempty"`
}

var levelRank = map[string]int{"critical": 0, "warning": 1, "info": 2, "ok": 3}

// computeDiagnostics derives hints from a snapshot, critical first, then
// warnings, then info. A snapshot with nothing to report yields one "ok" hint.
func computeDiagnostics(snap stats.ClusterSnapshot) []DiagnosticHint {
	var hints []DiagnosticHint

	if len(snap.Coordinators) == 0 {
		hints = append(hints, DiagnosticHint{
			Key:   "no_coordinators",
			Level: "critical",
			Title: "No live coordinators",
			Detail: "No coordinator answered its metrics endpoint within the node TTL. " +
				"Queries cannot be planned until one is back. Check the coordinator " +
				"process and that its metrics address in server.nodes.coordinators is reachable.",
		})
	}

	if len(snap.Executors) == 0 {
		hints = append(hints, DiagnosticHint{
			Key:   "no_executors",
			Level: "critical",
			Title: "No live executors",
			Detail: "No executor answered its metrics endpoint within the node TTL, " +
				"so no query can run. Check the executor processes and server.nodes.executors.",
		})
	}

	var unavailable []string
	for _, s := range snap.Sources {
		_, pok := s.PhysicalDatasets.Value()
		_, vok := s.VirtualDatasets.Value()
		if !pok || !vok {
			unavailable = append(unavailable, s.ID)
		}
	}
	if n := len(unavailable); n > 0 {
		v := float64(n)
		hints = append(hints, DiagnosticHint{
			Key:   "source_counts_unavailable",
			Level: "warning",
			Title: fmt.Sprintf("%d source(s) without counts", n),
			Detail: fmt.Sprintf(
				"Dataset counts could not be read for %s. These are reported as -1. "+
					"The namespace lookup failed for them; the other sources are unaffected. "+
					"Check the server log for the namespace error.",
				strings.Join(unavailable, ", ")),
			Value: &v,
		})
	}

	if r := snap.ReflectionStats; r.ErrorReflections > 0 {
		v := float64(r.ErrorReflections)
		hints = append(hints, DiagnosticHint{
			Key:   "failed_reflections",
			Level: "warning",
			Title: fmt.Sprintf("%d failed reflection(s)", r.ErrorReflections),
			Detail: fmt.Sprintf(
				"%d reflection(s) last finished in FAILED state, so queries fall back to "+
					"the underlying data for them. %d reflection(s) are active.",
				r.ErrorReflections, r.ActiveReflections),
			Value: &v,
		})
	}

	var jobs int
	for _, j := range snap.JobStats {
		jobs += j.Count
	}
	if jobs == 0 && len(snap.Executors) > 0 {
		hints = append(hints, DiagnosticHint{
			Key:    "no_recent_jobs",
			Level:  "info",
			Title:  "No jobs in 7 days",
			Detail: "The cluster has live executors but has not started any job in the last seven days.",
		})
	}

	if len(hints) == 0 {
		hints = append(hints, DiagnosticHint{
			Key:    "all_clear",
			Level:  "ok",
			Title:  "All clear",
			Detail: "All nodes are live, every source count is available and no reflection has failed.",
		})
	}

	sort.SliceStable(hints, func(i, j int) bool { return levelRank[hints[i].Level] < levelRank[hints[j].Level] })
	return hints
}
