package temporal

import (
	"github.com/airmood/go-exposure-timeline/pkg/exposure"
)

// AttachWindowPM fills missing co-located pollutant readings on mood records
// from the matching window's trajectory means. Records that already carry
// their own reading keep it.
func AttachWindowPM(records exposure.MoodSeries, samples exposure.EnrichedSeries, granularity exposure.Granularity) exposure.MoodSeries {
	if len(records) == 0 {
		return records
	}

	windows := exposure.Aggregate(exposure.EnrichedRows(samples), granularity)

	out := make(exposure.MoodSeries, len(records))
	for i, r := range records {
		key := exposure.WindowOf(r.Timestamp, granularity)
		if row, ok := windows[key]; ok {
			if r.PM25 == nil {
				r.PM25 = columnMean(row, exposure.ColumnPM25)
			}
			if r.PM10 == nil {
				r.PM10 = columnMean(row, exposure.ColumnPM10)
			}
		}
		out[i] = r
	}
	return out
}

// columnMean copies one window's mean for a column, nil when the window
// carries no data for it
func columnMean(row exposure.AggregateRow, column string) *float64 {
	summary, ok := row.Columns[column]
	if !ok || summary.Mean == nil {
		return nil
	}
	mean := *summary.Mean
	return &mean
}
