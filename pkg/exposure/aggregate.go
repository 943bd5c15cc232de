package exposure

import (
	"sort"
	"time"
)

// Column names shared between the windower, the aligner and the analysis
// layer (prevents case drift between producers and consumers)
const (
	ColumnSpeed    = "speed"
	ColumnPM25     = "pm2_5"
	ColumnPM10     = "pm10"
	ColumnPositive = "positive"
	ColumnNegative = "negative"
)

// NumericRow is the windower's view of any record: a timestamp plus named
// numeric columns, with nil marking a missing value
type NumericRow struct {
	Timestamp time.Time
	Columns   map[string]*float64
}

// SampleRows lowers raw samples to numeric rows (pollutants plus any
// recorder-supplied speed)
func SampleRows(samples SampleSeries) []NumericRow {
	rows := make([]NumericRow, len(samples))
	for i, s := range samples {
		rows[i] = NumericRow{
			Timestamp: s.Timestamp,
			Columns: map[string]*float64{
				ColumnSpeed: s.Speed,
				ColumnPM25:  s.PM25,
				ColumnPM10:  s.PM10,
			},
		}
	}
	return rows
}

// EnrichedRows lowers enriched samples to numeric rows. Derived speed is always
// present; pollutants keep their original missingness.
func EnrichedRows(series EnrichedSeries) []NumericRow {
	rows := make([]NumericRow, len(series))
	for i, s := range series {
		speed := s.DerivedSpeed
		rows[i] = NumericRow{
			Timestamp: s.Timestamp,
			Columns: map[string]*float64{
				ColumnSpeed: &speed,
				ColumnPM25:  s.PM25,
				ColumnPM10:  s.PM10,
			},
		}
	}
	return rows
}

// MoodRows lowers composed mood records to numeric rows
func MoodRows(records MoodSeries) []NumericRow {
	rows := make([]NumericRow, len(records))
	for i, r := range records {
		rows[i] = NumericRow{
			Timestamp: r.Timestamp,
			Columns: map[string]*float64{
				ColumnPositive: r.Positive,
				ColumnNegative: r.Negative,
				ColumnPM25:     r.PM25,
				ColumnPM10:     r.PM10,
			},
		}
	}
	return rows
}

// Aggregate buckets rows into windows and reduces every column to mean, sum
// and count. The output is rectangular over the union of column names seen in
// the input: a column with no contributing values in some window appears there
// with nil mean/sum and count 0, so downstream consumers see "no data" rather
// than a fabricated zero.
func Aggregate(rows []NumericRow, g Granularity) map[WindowKey]AggregateRow {
	type accumulator struct {
		sum   float64
		count int
	}

	columnSet := make(map[string]bool)
	buckets := make(map[WindowKey]map[string]*accumulator)

	for _, row := range rows {
		key := WindowOf(row.Timestamp, g)
		if buckets[key] == nil {
			buckets[key] = make(map[string]*accumulator)
		}
		for name, value := range row.Columns {
			columnSet[name] = true
			if value == nil {
				continue
			}
			acc := buckets[key][name]
			if acc == nil {
				acc = &accumulator{}
				buckets[key][name] = acc
			}
			acc.sum += *value
			acc.count++
		}
	}

	result := make(map[WindowKey]AggregateRow, len(buckets))
	for key, accs := range buckets {
		columns := make(map[string]ColumnSummary, len(columnSet))
		for name := range columnSet {
			acc := accs[name]
			if acc == nil || acc.count == 0 {
				columns[name] = ColumnSummary{Count: 0}
				continue
			}
			mean := acc.sum / float64(acc.count)
			sum := acc.sum
			columns[name] = ColumnSummary{Mean: &mean, Sum: &sum, Count: acc.count}
		}
		result[key] = AggregateRow{Window: key, Columns: columns}
	}

	return result
}

// SortedWindows flattens an aggregate mapping into rows ordered by window
// start, the shape transported in analysis results
func SortedWindows(agg map[WindowKey]AggregateRow) []AggregateRow {
	rows := make([]AggregateRow, 0, len(agg))
	for _, row := range agg {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Window.Start.Before(rows[j].Window.Start)
	})
	return rows
}
