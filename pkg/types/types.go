package types

import (
	"strings"
	"time"
)

// NodeDescriptor is a cluster member's identity and capacity summary.
type NodeDescriptor struct {
	Address              string
	AvailableCores       int
	MaxDirectMemoryBytes int64
	StartedAt            time.Time
}

// NamespaceKey is a dotted path into the namespace, e.g. ["mysource", "db", "table"].
type NamespaceKey []string

// NewNamespaceKey builds a key from path components.
func NewNamespaceKey(path ...string) NamespaceKey {
	return NamespaceKey(path)
}

// Root returns the first path component, or "" for an empty key.
func (k NamespaceKey) Root() string {
	if len(k) == 0 {
		return ""
	}
	return k[0]
}

func (k NamespaceKey) String() string {
	return strings.Join(k, ".")
}

// HasPrefix reports whether k starts with every component of prefix.
func (k NamespaceKey) HasPrefix(prefix NamespaceKey) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if !strings.EqualFold(k[i], prefix[i]) {
			return false
		}
	}
	return true
}

// SourceConfig is one registered data source.
type SourceConfig struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// DatasetType distinguishes physical from virtual datasets.
type DatasetType string

const (
	PhysicalDataset DatasetType = "PHYSICAL_DATASET"
	VirtualDataset  DatasetType = "VIRTUAL_DATASET"
)

// DatasetConfig is one dataset entry in the namespace.
type DatasetConfig struct {
	Path NamespaceKey `json:"path" yaml:"path"`
	Type DatasetType  `json:"type" yaml:"type"`
	// Sources lists the data sources a virtual dataset reads from.
	Sources []string `json:"sources,omitempty" yaml:"sources"`
}

// SpaceConfig is a namespace space. Version is used for optimistic concurrency.
type SpaceConfig struct {
	ID          string    `json:"id,omitempty" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description,omitempty" yaml:"description"`
	Version     *int64    `json:"version,omitempty" yaml:"version"`
	CreatedAt   time.Time `json:"ctime" yaml:"-"`
}

// JobType is the category a job is accounted under.
type JobType string

const (
	JobTypeUI           JobType = "UI"
	JobTypeExternal     JobType = "EXTERNAL"
	JobTypeAcceleration JobType = "ACCELERATION"
	JobTypeDownload     JobType = "DOWNLOAD"
	JobTypeInternal     JobType = "INTERNAL"
)

// JobTypes is the fixed reporting order of job types.
var JobTypes = []JobType{JobTypeUI, JobTypeExternal, JobTypeAcceleration, JobTypeDownload, JobTypeInternal}

// JobRecord is one executed job as seen by the job tracker.
type JobRecord struct {
	ID        string    `json:"id" yaml:"id"`
	Type      JobType   `json:"type" yaml:"type"`
	StartedAt time.Time `json:"started_at" yaml:"started_at"`
}

// JobTypeStats is the job count for one job type over a time window.
type JobTypeStats struct {
	Type  JobType `json:"type"`
	Count int     `json:"count"`
}

// MaterializationState is the lifecycle state of one materialization.
type MaterializationState string

const (
	MaterializationNew       MaterializationState = "NEW"
	MaterializationRunning   MaterializationState = "RUNNING"
	MaterializationDone      MaterializationState = "DONE"
	MaterializationFailed    MaterializationState = "FAILED"
	MaterializationDeleted   MaterializationState = "DELETED"
	MaterializationCancelled MaterializationState = "CANCELED"
)

// Terminal reports whether no further progress occurs from s.
func (s MaterializationState) Terminal() bool {
	return s == MaterializationDone || s == MaterializationFailed
}

// Materialization is one time-stamped build attempt of a layout.
type Materialization struct {
	ID             string               `json:"id" yaml:"id"`
	LayoutID       string               `json:"layout_id" yaml:"layout_id"`
	State          MaterializationState `json:"state" yaml:"state"`
	StartTime      time.Time            `json:"start_time" yaml:"start_time"`
	FootprintBytes int64                `json:"footprint_bytes" yaml:"footprint_bytes"`
}

// Layout is one materializable representation of a query pattern.
type Layout struct {
	ID          string `json:"id" yaml:"id"`
	Incremental bool   `json:"incremental" yaml:"incremental"`
}

// Acceleration groups the layouts defined on one dataset.
type Acceleration struct {
	ID                 string   `json:"id" yaml:"id"`
	Dataset            string   `json:"dataset" yaml:"dataset"`
	AggregationLayouts []Layout `json:"aggregation_layouts" yaml:"aggregation_layouts"`
	RawLayouts         []Layout `json:"raw_layouts" yaml:"raw_layouts"`
}

// AllLayouts returns every layout of a, aggregation layouts first.
func (a Acceleration) AllLayouts() []Layout {
	out := make([]Layout, 0, len(a.AggregationLayouts)+len(a.RawLayouts))
	out = append(out, a.AggregationLayouts...)
	return append(out, a.RawLayouts...)
}
