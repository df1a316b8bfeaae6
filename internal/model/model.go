// Package model defines the typed records passed between pipeline stages.
// Each stage reads the previous stage's output file, builds the next record
// type, and writes it out; records are never mutated after a stage completes.
package model

import (
	"time"

	geom "github.com/twpayne/go-geom"
)

// Station is a radio station point location. Reference data, immutable.
type Station struct {
	ID      string  `json:"station_id"`
	Name    string  `json:"station_name"`
	Lon     float64 `json:"lon"`
	Lat     float64 `json:"lat"`
	Color   string  `json:"color,omitempty"`    // hex color carried into every rendered layer
	RangeKM float64 `json:"range_km,omitempty"` // broadcast range attribute; 0 means unknown
}

// CoverageBuffer is one coverage polygon for a station at a given radius.
// A station with multiple configured radii owns one buffer per radius.
type CoverageBuffer struct {
	StationID   string        `json:"station_id"`
	StationName string        `json:"station_name"`
	RadiusKM    float64       `json:"buffer_km"`
	Color       string        `json:"color,omitempty"`
	Polygon     *geom.Polygon `json:"-"`
}

// GridCell is one tile of the regular sampling grid. IDs are assigned
// row-major over the tiling so reruns with the same inputs produce the
// same ids.
type GridCell struct {
	ID          int           `json:"cell_id"`
	Row         int           `json:"row"`
	Col         int           `json:"col"`
	CentroidLon float64       `json:"centroid_lon"`
	CentroidLat float64       `json:"centroid_lat"`
	CoverFrac   float64       `json:"cover_frac"` // fraction of the cell inside the buffer union
	Polygon     *geom.Polygon `json:"-"`
}

// PopulatedCell is a grid cell with its population estimate joined on.
// Population is always >= 0; cells with no population source get 0.
type PopulatedCell struct {
	GridCell
	Population float64 `json:"population_count"`
}

// FrameEntry is a populated cell with frame membership and its normalized
// sampling weight. Weights over all eligible entries sum to 1.
type FrameEntry struct {
	PopulatedCell
	Eligible bool    `json:"eligible"`
	Weight   float64 `json:"weight"`
}

// ClusterType distinguishes the main sample replicate from the replacement
// replicate drawn for field substitution.
type ClusterType string

const (
	ClusterMain        ClusterType = "main"
	ClusterReplacement ClusterType = "replacement"
)

// SampledCluster is a frame entry selected by the weighted draw, together
// with its draw metadata. Admin and station attribution are filled in by
// the cluster merger; they are empty when the sampler writes the record.
type SampledCluster struct {
	FrameEntry
	Type          ClusterType `json:"cluster_type"`
	DrawIndex     int         `json:"draw_index"` // position within the replicate, 0-based
	InclusionProb float64     `json:"inclusion_prob"`
	StationID     string      `json:"station_id,omitempty"`
	StationName   string      `json:"station_name,omitempty"`
	AdminCode     string      `json:"admin_code,omitempty"`
	AdminName     string      `json:"admin_name,omitempty"`
	AdminMatched  bool        `json:"admin_matched"`
}

// RoadPoint is the nearest road-network point to a sampled cluster centroid.
// The point lies on a road segment unless Unreachable is set, in which case
// no road was found within the configured cutoff.
type RoadPoint struct {
	CellID      int     `json:"cell_id"`
	Lon         float64 `json:"lon"`
	Lat         float64 `json:"lat"`
	DistanceKM  float64 `json:"distance_km"`
	RoadID      string  `json:"road_id,omitempty"`
	Unreachable bool    `json:"unreachable"`
}

// ClusterRecord is one row of the final sampling metadata table persisted
// to the store and exported for survey weighting.
type ClusterRecord struct {
	RunID         string      `json:"run_id"`
	CellID        int         `json:"cell_id"`
	Type          ClusterType `json:"cluster_type"`
	StationID     string      `json:"station_id"`
	StationName   string      `json:"station_name"`
	AdminCode     string      `json:"admin_code"`
	AdminName     string      `json:"admin_name"`
	Population    float64     `json:"population_count"`
	Weight        float64     `json:"weight"`
	InclusionProb float64     `json:"inclusion_prob"`
	RoadKM        float64     `json:"road_km"`
	Unreachable   bool        `json:"unreachable"`
	CreatedAt     time.Time   `json:"created_at"`
}

// RunStatus tracks a pipeline run in the store.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one end-to-end pipeline execution.
type Run struct {
	ID        string    `json:"id"`
	Status    RunStatus `json:"status"`
	Seed      int64     `json:"seed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StageStatus tracks one stage within a run.
type StageStatus string

const (
	StageRunning  StageStatus = "running"
	StageComplete StageStatus = "complete"
	StageFailed   StageStatus = "failed"
)

// StageRecord is the store's bookkeeping row for a stage execution.
type StageRecord struct {
	ID        string      `json:"id"`
	RunID     string      `json:"run_id"`
	Name      string      `json:"name"`
	Status    StageStatus `json:"status"`
	Error     string      `json:"error,omitempty"`
	StartedAt time.Time   `json:"started_at"`
	EndedAt   *time.Time  `json:"ended_at,omitempty"`
}
