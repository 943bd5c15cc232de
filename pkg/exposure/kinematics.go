package exposure

import (
	"math"
	"sort"
)

// SpeedMode selects how DeriveSpeed measures distance between samples
type SpeedMode string

const (
	// SpeedModeGeodesic divides great-circle meters by elapsed seconds. When a
	// sample carries a recorder-supplied per-leg Distance it is used as-is;
	// otherwise the distance is recomputed from the coordinates.
	SpeedModeGeodesic SpeedMode = "geodesic"

	// SpeedModePlanar divides Euclidean distance in raw degree space by elapsed
	// seconds. Cheap and intentionally approximate; speeds are in degrees/s, so
	// thresholds tuned for geodesic mode do not carry over.
	SpeedModePlanar SpeedMode = "planar"
)

// ParseSpeedMode resolves a speed mode name
func ParseSpeedMode(name string) (SpeedMode, error) {
	switch SpeedMode(name) {
	case SpeedModeGeodesic:
		return SpeedModeGeodesic, nil
	case SpeedModePlanar:
		return SpeedModePlanar, nil
	}
	return "", NewConfigurationError("speed mode", name)
}

// SpeedBracket is one rung of a classification ladder: any speed strictly below
// UpperBound that no earlier rung claimed belongs to Class.
type SpeedBracket struct {
	UpperBound float64       `json:"upper_bound"`
	Class      MovementClass `json:"class"`
}

// MovementProfile classifies speeds through an ordered threshold ladder.
// Brackets are evaluated in ascending order, first match wins, and Overflow
// catches everything at or above the last bound. A speed exactly equal to a
// bound falls into the next rung ("< upper" semantics). ZeroClass, when set,
// claims exact-zero speeds before the ladder runs.
type MovementProfile struct {
	Name      string         `json:"name"`
	Mode      SpeedMode      `json:"mode"`
	ZeroClass MovementClass  `json:"zero_class,omitempty"`
	Brackets  []SpeedBracket `json:"brackets"`
	Overflow  MovementClass  `json:"overflow"`
}

// CoarseProfile matches the integrated GPX+PM recordings: geodesic speeds in
// m/s, with exact zero treated as Still.
var CoarseProfile = MovementProfile{
	Name:      "coarse",
	Mode:      SpeedModeGeodesic,
	ZeroClass: MovementStill,
	Brackets: []SpeedBracket{
		{UpperBound: 1.5, Class: MovementWalking},
		{UpperBound: 10, Class: MovementRunning},
	},
	Overflow: MovementDriving,
}

// FineProfile matches raw-coordinate recordings: planar speeds in degrees/s
var FineProfile = MovementProfile{
	Name: "fine",
	Mode: SpeedModePlanar,
	Brackets: []SpeedBracket{
		{UpperBound: 0.05, Class: MovementStandingStill},
		{UpperBound: 0.3, Class: MovementWalking},
		{UpperBound: 1, Class: MovementRunning},
	},
	Overflow: MovementDriving,
}

// ProfileByName resolves a named movement profile
func ProfileByName(name string) (MovementProfile, error) {
	switch name {
	case CoarseProfile.Name:
		return CoarseProfile, nil
	case FineProfile.Name:
		return FineProfile, nil
	}
	return MovementProfile{}, NewConfigurationError("movement profile", name)
}

// Validate checks the ladder shape: at least one rung or an overflow label,
// strictly increasing non-negative bounds, no unlabeled rungs.
func (p MovementProfile) Validate() error {
	if p.Overflow == "" {
		return NewConfigurationError("movement profile overflow class", p.Name)
	}
	prev := math.Inf(-1)
	for _, b := range p.Brackets {
		if b.Class == "" {
			return NewConfigurationError("movement class", p.Name)
		}
		if b.UpperBound < 0 || b.UpperBound <= prev {
			return NewConfigurationError("movement threshold order", p.Name)
		}
		prev = b.UpperBound
	}
	return nil
}

// Classify maps a non-negative speed to exactly one movement class
func (p MovementProfile) Classify(speed float64) MovementClass {
	if p.ZeroClass != "" && speed == 0 {
		return p.ZeroClass
	}
	for _, b := range p.Brackets {
		if speed < b.UpperBound {
			return b.Class
		}
	}
	return p.Overflow
}

// haversineDistance computes the great-circle distance in meters between two points
func haversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadius = 6371000.0 // meters

	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadius * c
}

// planarDistance computes Euclidean distance in raw degree space
func planarDistance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := lat2 - lat1
	dLon := lon2 - lon1
	return math.Sqrt(dLat*dLat + dLon*dLon)
}

// DeriveSpeed computes instantaneous speed between consecutive samples.
// A nil prev (first sample in a series) and identical timestamps both yield 0,
// never an infinity or NaN that would leak into classification.
func DeriveSpeed(prev *Sample, curr Sample, mode SpeedMode) float64 {
	if prev == nil {
		return 0
	}

	seconds := curr.Timestamp.Sub(prev.Timestamp).Seconds()
	if seconds <= 0 {
		return 0
	}

	var distance float64
	switch mode {
	case SpeedModePlanar:
		distance = planarDistance(prev.Latitude, prev.Longitude, curr.Latitude, curr.Longitude)
	default:
		if curr.Distance != nil {
			distance = *curr.Distance
		} else {
			distance = haversineDistance(prev.Latitude, prev.Longitude, curr.Latitude, curr.Longitude)
		}
	}

	return distance / seconds
}

// Enrich sorts a copy of the series by timestamp, derives per-sample speed and
// classifies every row through the profile's ladder. A recorder-supplied Speed
// field takes precedence over derivation, matching how the integrated CSV's
// own Speed column is classified directly.
func Enrich(samples SampleSeries, profile MovementProfile) EnrichedSeries {
	if len(samples) == 0 {
		return EnrichedSeries{}
	}

	sorted := make(SampleSeries, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	enriched := make(EnrichedSeries, len(sorted))
	for i, s := range sorted {
		var speed float64
		if s.Speed != nil {
			speed = *s.Speed
		} else if i > 0 {
			speed = DeriveSpeed(&sorted[i-1], s, profile.Mode)
		}

		enriched[i] = EnrichedSample{
			Sample:       s,
			DerivedSpeed: speed,
			Movement:     profile.Classify(speed),
		}
	}

	return enriched
}

// FilterByMovement returns the enriched samples carrying the given class
func FilterByMovement(series EnrichedSeries, class MovementClass) EnrichedSeries {
	var filtered EnrichedSeries
	for _, s := range series {
		if s.Movement == class {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

// SummarizeMovement reduces an enriched series to per-class counts, mean
// speeds and shares, most frequent class first
func SummarizeMovement(series EnrichedSeries) []MovementSummary {
	if len(series) == 0 {
		return []MovementSummary{}
	}

	counts := make(map[MovementClass]int)
	speedSums := make(map[MovementClass]float64)
	for _, s := range series {
		counts[s.Movement]++
		speedSums[s.Movement] += s.DerivedSpeed
	}

	summaries := make([]MovementSummary, 0, len(counts))
	total := float64(len(series))
	for class, count := range counts {
		summaries = append(summaries, MovementSummary{
			Class:     class,
			Count:     count,
			MeanSpeed: speedSums[class] / float64(count),
			Share:     float64(count) / total,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Count != summaries[j].Count {
			return summaries[i].Count > summaries[j].Count
		}
		return summaries[i].Class < summaries[j].Class
	})

	return summaries
}
