package exposure

import (
	"sort"
)

// AlignByWindow joins two independently sampled series onto a common window
// axis: each side is reduced to per-window column means first, then the two
// aggregate tables are inner-joined on the window key. Windows with records on
// only one side are dropped, so every output row has observations from both
// series. The join is aggregate-level only; individual records are never
// paired across series.
func AlignByWindow(left, right []NumericRow, g Granularity) []AlignedRow {
	leftAgg := Aggregate(left, g)
	rightAgg := Aggregate(right, g)

	var rows []AlignedRow
	for key, leftRow := range leftAgg {
		rightRow, ok := rightAgg[key]
		if !ok {
			continue
		}
		rows = append(rows, AlignedRow{
			Window: key,
			Left:   columnMeans(leftRow),
			Right:  columnMeans(rightRow),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Window.Start.Before(rows[j].Window.Start)
	})

	return rows
}

// columnMeans projects an aggregate row down to its per-column means,
// preserving nil for columns the window had no data for
func columnMeans(row AggregateRow) map[string]*float64 {
	means := make(map[string]*float64, len(row.Columns))
	for name, summary := range row.Columns {
		means[name] = summary.Mean
	}
	return means
}
