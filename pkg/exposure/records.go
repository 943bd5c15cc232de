package exposure

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// DefaultTimeLayout matches the day-month-year textual format the trajectory
// recorders emit
const DefaultTimeLayout = "02-01-2006 15:04:05"

// fallbackTimeLayouts are tried after the configured layout
var fallbackTimeLayouts = []string{
	DefaultTimeLayout,
	"02-01-2006 15:04",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// Accepted spellings per logical column. Upload tooling is inconsistent about
// casing, so resolution probes each list in order.
var (
	timeFields      = []string{"Time", "Timestamp", "time", "timestamp", "ts"}
	latitudeFields  = []string{"Latitude", "LATITUDE", "latitude", "lat"}
	longitudeFields = []string{"Longitude", "LONGITUDE", "longitude", "lon", "lng"}
	speedFields     = []string{"Speed", "speed"}
	distanceFields  = []string{"Distance", "distance"}
	pm25Fields      = []string{"PM2.5", "PM2_5", "pm2_5", "pm25", "PM25"}
	pm10Fields      = []string{"PM10", "pm10"}
)

// ParseOptions configures the ingestion edge
type ParseOptions struct {
	// TimeLayout is tried before the fallback layouts; empty selects
	// DefaultTimeLayout
	TimeLayout string `json:"time_layout,omitempty"`

	// Tolerant drops rows that fail validation and reports their count instead
	// of failing the whole batch
	Tolerant bool `json:"tolerant,omitempty"`
}

// ParseSampleRows converts raw JSON rows into trajectory samples. In strict
// mode the first invalid row aborts the batch with an InputError naming the
// offending field; in tolerant mode invalid rows are dropped and counted.
// Rows that reach the return value are fully valid — downstream components
// never see a partially-parsed record.
func ParseSampleRows(rows [][]byte, opts ParseOptions) (SampleSeries, int, error) {
	samples := make(SampleSeries, 0, len(rows))
	dropped := 0

	for _, raw := range rows {
		sample, err := ParseSampleRow(raw, opts)
		if err != nil {
			if opts.Tolerant {
				dropped++
				continue
			}
			return nil, 0, err
		}
		samples = append(samples, sample)
	}

	return samples, dropped, nil
}

// ParseSampleRow converts one raw JSON row into a Sample
func ParseSampleRow(raw []byte, opts ParseOptions) (Sample, error) {
	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return Sample{}, WrapInputError("row", "not a JSON object", err)
	}

	ts, err := requireTimestamp(data, opts)
	if err != nil {
		return Sample{}, err
	}

	lat, err := requireFloat(data, latitudeFields)
	if err != nil {
		return Sample{}, err
	}
	lon, err := requireFloat(data, longitudeFields)
	if err != nil {
		return Sample{}, err
	}

	sample := Sample{Timestamp: ts, Latitude: lat, Longitude: lon}

	if sample.Speed, err = optionalFloat(data, speedFields); err != nil {
		return Sample{}, err
	}
	if sample.Distance, err = optionalFloat(data, distanceFields); err != nil {
		return Sample{}, err
	}
	if sample.PM25, err = optionalFloat(data, pm25Fields); err != nil {
		return Sample{}, err
	}
	if sample.PM10, err = optionalFloat(data, pm10Fields); err != nil {
		return Sample{}, err
	}

	return sample, nil
}

// ParseMoodRows converts raw JSON rows into mood records. Strict/tolerant
// semantics match ParseSampleRows.
func ParseMoodRows(rows [][]byte, opts ParseOptions) (MoodSeries, int, error) {
	records := make(MoodSeries, 0, len(rows))
	dropped := 0

	for _, raw := range rows {
		record, err := ParseMoodRow(raw, opts)
		if err != nil {
			if opts.Tolerant {
				dropped++
				continue
			}
			return nil, 0, err
		}
		records = append(records, record)
	}

	return records, dropped, nil
}

// ParseMoodRow converts one raw JSON row into a MoodRecord. Every numeric
// field other than the timestamp and the co-located pollutant columns becomes
// an affect item.
func ParseMoodRow(raw []byte, opts ParseOptions) (MoodRecord, error) {
	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return MoodRecord{}, WrapInputError("row", "not a JSON object", err)
	}

	ts, err := requireTimestamp(data, opts)
	if err != nil {
		return MoodRecord{}, err
	}

	record := MoodRecord{Timestamp: ts, Items: make(map[string]float64)}

	if record.PM25, err = optionalFloat(data, pm25Fields); err != nil {
		return MoodRecord{}, err
	}
	if record.PM10, err = optionalFloat(data, pm10Fields); err != nil {
		return MoodRecord{}, err
	}

	reserved := make(map[string]bool)
	for _, lists := range [][]string{timeFields, pm25Fields, pm10Fields} {
		for _, name := range lists {
			reserved[name] = true
		}
	}

	for name, value := range data {
		if reserved[name] {
			continue
		}
		if v, ok := numericValue(value); ok {
			record.Items[name] = v
		}
	}

	return record, nil
}

// requireTimestamp resolves and parses the timestamp column
func requireTimestamp(data map[string]interface{}, opts ParseOptions) (time.Time, error) {
	value, field, ok := lookupField(data, timeFields)
	if !ok {
		return time.Time{}, NewInputError(timeFields[0], "missing required column")
	}

	switch v := value.(type) {
	case string:
		layouts := fallbackTimeLayouts
		if opts.TimeLayout != "" {
			layouts = append([]string{opts.TimeLayout}, fallbackTimeLayouts...)
		}
		for _, layout := range layouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t, nil
			}
		}
		return time.Time{}, NewInputError(field, fmt.Sprintf("unparsable timestamp %q", v))
	case float64:
		// Unix seconds
		return time.Unix(int64(v), 0).UTC(), nil
	}

	return time.Time{}, NewInputError(field, "timestamp is neither text nor a unix number")
}

// requireFloat resolves a mandatory numeric column
func requireFloat(data map[string]interface{}, names []string) (float64, error) {
	value, field, ok := lookupField(data, names)
	if !ok {
		return 0, NewInputError(names[0], "missing required column")
	}
	v, ok := numericValue(value)
	if !ok {
		return 0, NewInputError(field, "not a number")
	}
	return v, nil
}

// optionalFloat resolves an optional numeric column; absent yields nil
func optionalFloat(data map[string]interface{}, names []string) (*float64, error) {
	value, field, ok := lookupField(data, names)
	if !ok || value == nil {
		return nil, nil
	}
	v, ok := numericValue(value)
	if !ok {
		return nil, NewInputError(field, "not a number")
	}
	return &v, nil
}

// lookupField probes the accepted spellings in order and reports which one hit
func lookupField(data map[string]interface{}, names []string) (interface{}, string, bool) {
	for _, name := range names {
		if value, exists := data[name]; exists {
			return value, name, true
		}
	}
	return nil, "", false
}

// numericValue coerces JSON numbers and numeric strings
func numericValue(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
