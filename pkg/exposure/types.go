package exposure

import (
	"time"
)

// Sample represents a single trajectory reading with optional pollutant values
type Sample struct {
	Timestamp time.Time `json:"timestamp"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Speed     *float64  `json:"speed,omitempty"`    // Precomputed by the recorder, if available
	Distance  *float64  `json:"distance,omitempty"` // Per-leg distance in meters, if available
	PM25      *float64  `json:"pm2_5,omitempty"`
	PM10      *float64  `json:"pm10,omitempty"`
}

// SampleSeries is a list of trajectory samples
type SampleSeries []Sample

// EnrichedSample is a Sample plus derived kinematic state
type EnrichedSample struct {
	Sample
	DerivedSpeed float64       `json:"derived_speed"`
	Movement     MovementClass `json:"movement"`
}

// EnrichedSeries is a list of enriched samples
type EnrichedSeries []EnrichedSample

// MovementClass is a movement category label assigned by a threshold ladder
type MovementClass string

const (
	MovementStill         MovementClass = "Still"
	MovementStandingStill MovementClass = "Standing Still"
	MovementWalking       MovementClass = "Walking"
	MovementRunning       MovementClass = "Running"
	MovementDriving       MovementClass = "Driving"
)

// MoodRecord represents one EMA self-report with its affect-item responses
type MoodRecord struct {
	Timestamp time.Time          `json:"timestamp"`
	Items     map[string]float64 `json:"items"`
	Positive  *float64           `json:"positive,omitempty"`
	Negative  *float64           `json:"negative,omitempty"`
	PM25      *float64           `json:"pm2_5,omitempty"` // Co-located window mean, if provided
	PM10      *float64           `json:"pm10,omitempty"`
}

// MoodSeries is a list of mood records
type MoodSeries []MoodRecord

// Granularity selects the window length for temporal bucketing
type Granularity string

const (
	Day  Granularity = "day"
	Week Granularity = "week"
)

// WindowKey identifies a half-open time window by its start instant.
// Day windows cover [start, start+24h); week windows cover [monday, monday+7d).
// Keying on the instant rather than a formatted label keeps grouping immune to
// locale and week-numbering conventions.
type WindowKey struct {
	Start       time.Time   `json:"start"`
	Granularity Granularity `json:"granularity"`
}

// AggregateRow holds per-window reductions for a set of named columns.
// A column absent from every contributing record has a nil Mean/Sum and a zero
// Count: no data is reported as no data, never as a fabricated zero.
type AggregateRow struct {
	Window  WindowKey                `json:"window"`
	Columns map[string]ColumnSummary `json:"columns"`
}

// ColumnSummary is the reduction of one numeric column inside one window
type ColumnSummary struct {
	Mean  *float64 `json:"mean,omitempty"`
	Sum   *float64 `json:"sum,omitempty"`
	Count int      `json:"count"`
}

// AlignedRow is one window present in both sides of an aggregate-level join
type AlignedRow struct {
	Window WindowKey           `json:"window"`
	Left   map[string]*float64 `json:"left"`  // Per-column means from series A
	Right  map[string]*float64 `json:"right"` // Per-column means from series B
}

// CorrelationOutcome distinguishes a defined coefficient from the explicit
// undefined cases
type CorrelationOutcome string

const (
	OutcomeDefined          CorrelationOutcome = "defined"
	OutcomeInsufficientData CorrelationOutcome = "insufficient_data"
	OutcomeZeroVariance     CorrelationOutcome = "zero_variance"
)

// CorrelationResult reports Pearson association for one paired series.
// Coefficient and PValue are only meaningful when Outcome is OutcomeDefined.
type CorrelationResult struct {
	Outcome     CorrelationOutcome `json:"outcome"`
	Coefficient float64            `json:"coefficient"`
	PValue      float64            `json:"p_value"`
	N           int                `json:"n"`
}

// Defined reports whether the result carries a usable coefficient
func (r CorrelationResult) Defined() bool {
	return r.Outcome == OutcomeDefined
}

// MovementSummary aggregates enriched samples per movement class
type MovementSummary struct {
	Class     MovementClass `json:"class"`
	Count     int           `json:"count"`
	MeanSpeed float64       `json:"mean_speed"`
	Share     float64       `json:"share"` // Fraction of all classified samples
}

// TimestampedRow is the minimal view the windower needs from any record type
type TimestampedRow interface {
	GetTimestamp() time.Time
}

// Ensure the core record types satisfy TimestampedRow
var _ TimestampedRow = (*Sample)(nil)
var _ TimestampedRow = (*MoodRecord)(nil)

func (s Sample) GetTimestamp() time.Time {
	return s.Timestamp
}

func (m MoodRecord) GetTimestamp() time.Time {
	return m.Timestamp
}
