package api

import "github.com/obsidianstack/clusterstats/pkg/types"

// isoDateTime is the timestamp layout used for node start times.
const isoDateTime = "2006-01-02T15:04:05.000Z07:00"

// unavailableCount is the wire value of a count that could not be computed.
const unavailableCount = -1

// ClusterStatsResponse is the payload for GET /api/v1/cluster/stats.
type ClusterStatsResponse struct {
	Coordinators    []EndpointResponse      `json:"coordinators"`
	Executors       []EndpointResponse      `json:"executors"`
	Sources         []SourceStatsResponse   `json:"sources"`
	JobStats        []types.JobTypeStats    `json:"jobStats"`
	ReflectionStats ReflectionStatsResponse `json:"reflectionStats"`
}

// EndpointResponse is one coordinator or executor.
type EndpointResponse struct {
	Address              string `json:"address"`
	AvailableCores       int    `json:"availableCores"`
	MaxDirectMemoryBytes int64  `json:"maxDirectMemoryBytes"`
	StartedAt            string `json:"startedAt"`
}

// SourceStatsResponse is one source's dataset counts; -1 means unavailable.
type SourceStatsResponse struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	PDSCount int    `json:"pdsCount"`
	VDSCount int    `json:"vdsCount"`
}

// ReflectionStatsResponse summarizes reflections across all layouts.
type ReflectionStatsResponse struct {
	ActiveReflections          int   `json:"activeReflections"`
	ErrorReflections           int   `json:"errorReflections"`
	TotalReflectionSizeBytes   int64 `json:"totalReflectionSizeBytes"`
	LatestReflectionsSizeBytes int64 `json:"latestReflectionsSizeBytes"`
	IncrementalReflectionCount int   `json:"incrementalReflectionCount"`
}

// SpaceRequest is the body of PUT /api/v1/space/{name}.
type SpaceRequest struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description,omitempty" validate:"max=4096"`
	Version     *int64 `json:"version,omitempty" validate:"omitempty,min=0"`
}

// SpaceResponse is the stored space plus its current dataset count.
type SpaceResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Version      *int64 `json:"version,omitempty"`
	CreatedAt    int64  `json:"ctime"` // epoch millis
	DatasetCount int    `json:"datasetCount"`
}

// DiagnosticsResponse is the payload for GET /api/v1/cluster/diagnostics.
type DiagnosticsResponse struct {
	Hints       []DiagnosticHint `json:"hints"`
	GeneratedAt string           `json:"generated_at"` // RFC3339
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
