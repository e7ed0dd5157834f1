package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/obsidianstack/clusterstats/pkg/types"
	"github.com/obsidianstack/clusterstats/server/internal/alerts"
	"github.com/obsidianstack/clusterstats/server/internal/auth"
	"github.com/obsidianstack/clusterstats/server/internal/stats"
)

// maxBodyBytes caps PUT request bodies.
const maxBodyBytes = 1 << 20

// Snapshotter assembles one cluster snapshot.
type Snapshotter interface {
	Snapshot(ctx context.Context) (stats.ClusterSnapshot, error)
}

// SpaceStore persists spaces and counts their datasets.
type SpaceStore interface {
	AddOrUpdateSpace(ctx context.Context, key types.NamespaceKey, cfg types.SpaceConfig, user string) error
	Space(ctx context.Context, key types.NamespaceKey) (types.SpaceConfig, error)
	DatasetCount(ctx context.Context, key types.NamespaceKey) (int, error)
}

// SnapshotObserver records the outcome of every snapshot build.
type SnapshotObserver interface {
	Observe(snap stats.ClusterSnapshot, elapsed time.Duration, err error)
}

// Deps are the collaborators the Handler serves from. Alerts, Metrics and
// Gatherer are optional.
type Deps struct {
	Stats    Snapshotter
	Spaces   SpaceStore
	Alerts   *alerts.Engine
	Metrics  SnapshotObserver
	Gatherer prometheus.Gatherer
	Policy   auth.HTTPPolicy
}

// Handler is the HTTP handler for all /api/v1/* endpoints.
type Handler struct {
	deps     Deps
	validate *validator.Validate
	mux      *http.ServeMux
}

// New creates a Handler and registers all routes.
func New(deps Deps) http.Handler {
	h := &Handler{deps: deps, validate: validator.New(validator.WithRequiredStructEnabled()), mux: http.NewServeMux()}

	guard := func(fn http.HandlerFunc) http.Handler {
		return deps.Policy.Require(auth.ReadRoles, fn)
	}
	h.mux.Handle("/api/v1/cluster/stats", guard(h.clusterStats))
	h.mux.Handle("/api/v1/cluster/diagnostics", guard(h.diagnostics))
	h.mux.Handle("/api/v1/alerts", guard(h.alerts))
	h.mux.Handle("/api/v1/space/{name}", guard(h.putSpace))
	if deps.Gatherer != nil {
		h.mux.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// clusterStats returns GET /api/v1/cluster/stats.
func (h *Handler) clusterStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	jsonResp(w, http.StatusOK, NewClusterStatsResponse(snap))
}

// diagnostics returns GET /api/v1/cluster/diagnostics.
func (h *Handler) diagnostics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	jsonResp(w, http.StatusOK, DiagnosticsResponse{
		Hints:       computeDiagnostics(snap),
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

// alerts returns GET /api/v1/alerts.
func (h *Handler) alerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.deps.Alerts == nil {
		jsonResp(w, http.StatusOK, []alerts.Alert{})
		return
	}
	jsonResp(w, http.StatusOK, h.deps.Alerts.Active())
}

// putSpace handles PUT /api/v1/space/{name}: write through, read back,
// and attach the space's current dataset count.
func (h *Handler) putSpace(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	name := r.PathValue("name")

	var req SpaceRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	if !strings.EqualFold(req.Name, name) {
		jsonErr(w, http.StatusBadRequest, "payload name does not match path")
		return
	}

	ctx := r.Context()
	key := types.NewNamespaceKey(name)
	user, _ := auth.UserFromContext(ctx)
	cfg := types.SpaceConfig{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Version:     req.Version,
	}

	if err := h.deps.Spaces.AddOrUpdateSpace(ctx, key, cfg, user); err != nil {
		h.writeFailure(w, "write space", name, err)
		return
	}
	stored, err := h.deps.Spaces.Space(ctx, key)
	if err != nil {
		h.writeFailure(w, "read space", name, err)
		return
	}
	count, err := h.deps.Spaces.DatasetCount(ctx, key)
	if err != nil {
		h.writeFailure(w, "count datasets", name, err)
		return
	}

	slog.Info("api: space written", "space", stored.Name, "user", user, "version", derefVersion(stored.Version))
	jsonResp(w, http.StatusOK, SpaceResponse{
		ID:           stored.ID,
		Name:         stored.Name,
		Description:  stored.Description,
		Version:      stored.Version,
		CreatedAt:    stored.CreatedAt.UnixMilli(),
		DatasetCount: count,
	})
}

// --- helpers ----------------------------------------------------------------

// snapshot builds one snapshot, records it, and feeds the alert engine.
// On failure it writes the error response and reports false.
func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) (stats.ClusterSnapshot, bool) {
	start := time.Now()
	snap, err := h.deps.Stats.Snapshot(r.Context())
	if h.deps.Metrics != nil {
		h.deps.Metrics.Observe(snap, time.Since(start), err)
	}
	if err != nil {
		slog.Error("api: cluster snapshot failed", "err", err)
		jsonErr(w, http.StatusInternalServerError, "cluster stats unavailable")
		return stats.ClusterSnapshot{}, false
	}
	if h.deps.Alerts != nil {
		h.deps.Alerts.Evaluate(snap)
	}
	return snap, true
}

func (h *Handler) writeFailure(w http.ResponseWriter, op, name string, err error) {
	code := statusFor(err)
	slog.Warn("api: space request failed", "op", op, "space", name, "status", code, "err", err)
	jsonErr(w, code, err.Error())
}

// statusFor maps catalog errors to HTTP status codes.
func statusFor(err error) int {
	var unf *types.UserNotFoundError
	switch {
	case errors.As(err, &unf):
		return http.StatusNotFound
	case errors.Is(err, types.ErrConcurrentModification):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func derefVersion(v *int64) int64 {
	if v == nil {
		return -1
	}
	return *v
}

func jsonResp(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

// NewClusterStatsResponse converts a snapshot to its wire form. Every list is
// rendered as [] when empty and unavailable counts become -1.
func NewClusterStatsResponse(snap stats.ClusterSnapshot) ClusterStatsResponse {
	sources := make([]SourceStatsResponse, 0, len(snap.Sources))
	for _, s := range snap.Sources {
		sources = append(sources, SourceStatsResponse{
			ID:       s.ID,
			Type:     s.Type,
			PDSCount: wireCount(s.PhysicalDatasets),
			VDSCount: wireCount(s.VirtualDatasets),
		})
	}
	jobs := snap.JobStats
	if jobs == nil {
		jobs = []types.JobTypeStats{}
	}
	r := snap.ReflectionStats
	return ClusterStatsResponse{
		Coordinators: toEndpoints(snap.Coordinators),
		Executors:    toEndpoints(snap.Executors),
		Sources:      sources,
		JobStats:     jobs,
		ReflectionStats: ReflectionStatsResponse{
			ActiveReflections:          r.ActiveReflections,
			ErrorReflections:           r.ErrorReflections,
			TotalReflectionSizeBytes:   r.TotalReflectionSizeBytes,
			LatestReflectionsSizeBytes: r.LatestReflectionsSizeBytes,
			IncrementalReflectionCount: r.IncrementalReflectionCount,
		},
	}
}

func toEndpoints(in []stats.NodeEndpointInfo) []EndpointResponse {
	out := make([]EndpointResponse, 0, len(in))
	for _, n := range in {
		out = append(out, EndpointResponse{
			Address:              n.Address,
			AvailableCores:       n.AvailableCores,
			MaxDirectMemoryBytes: n.MaxDirectMemoryBytes,
			StartedAt:            n.StartedAt.UTC().Format(isoDateTime),
		})
	}
	return out
}

func wireCount(c stats.Count) int {
	if n, ok := c.Value(); ok {
		return n
	}
	return unavailableCount
}
