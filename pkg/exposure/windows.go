package exposure

import (
	"time"
)

// ParseGranularity resolves a granularity name
func ParseGranularity(name string) (Granularity, error) {
	switch Granularity(name) {
	case Day:
		return Day, nil
	case Week:
		return Week, nil
	}
	return "", NewConfigurationError("granularity", name)
}

// WindowOf buckets a timestamp into its half-open window. Day windows start at
// midnight; week windows start at the preceding Monday midnight. The bucket is
// identified by that start instant, so week grouping agrees with both
// period-based and ISO conventions, which only diverge in how buckets are
// numbered, not where Monday falls.
func WindowOf(ts time.Time, g Granularity) WindowKey {
	day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, ts.Location())

	if g == Week {
		// time.Weekday counts Sunday as 0; shift so Monday is 0
		offset := (int(day.Weekday()) + 6) % 7
		day = day.AddDate(0, 0, -offset)
	}

	return WindowKey{Start: day, Granularity: g}
}

// WindowEnd returns the exclusive end instant of a window
func WindowEnd(key WindowKey) time.Time {
	if key.Granularity == Week {
		return key.Start.AddDate(0, 0, 7)
	}
	return key.Start.AddDate(0, 0, 1)
}

// InWindow reports half-open membership: start inclusive, end exclusive
func InWindow(ts time.Time, key WindowKey) bool {
	end := WindowEnd(key)
	return (ts.Equal(key.Start) || ts.After(key.Start)) && ts.Before(end)
}

// BuildWindows enumerates the contiguous windows covering [start, end]. The
// result partitions the span: consecutive windows share a boundary instant and
// every timestamp in the span belongs to exactly one of them.
func BuildWindows(start, end time.Time, g Granularity) []WindowKey {
	if end.Before(start) {
		return []WindowKey{}
	}

	var windows []WindowKey
	current := WindowOf(start, g)
	last := WindowOf(end, g)

	for !current.Start.After(last.Start) {
		windows = append(windows, current)
		current = WindowKey{Start: WindowEnd(current), Granularity: g}
	}

	return windows
}
