package exposure

// Default affect-item subsets for the two composite axes. Studies with other
// questionnaires pass their own lists to ComposeMood.
var (
	DefaultPositiveItems = []string{"happy", "relaxed", "energetic", "content"}
	DefaultNegativeItems = []string{"sad", "anxious", "stressed", "irritable"}
)

// ComposeMood reduces one record's affect items to positive/negative composites.
// Each composite is the arithmetic mean of the items from its list that are
// present on the record; items the record does not carry are skipped, and the
// composite is nil only when every listed item is missing.
func ComposeMood(record MoodRecord, positiveItems, negativeItems []string) (positive, negative *float64) {
	return meanOfPresent(record.Items, positiveItems), meanOfPresent(record.Items, negativeItems)
}

// ComposeAll fills the Positive/Negative composites on a copy of each record
func ComposeAll(records MoodSeries, positiveItems, negativeItems []string) MoodSeries {
	composed := make(MoodSeries, len(records))
	for i, r := range records {
		pos, neg := ComposeMood(r, positiveItems, negativeItems)
		r.Positive = pos
		r.Negative = neg
		composed[i] = r
	}
	return composed
}

func meanOfPresent(items map[string]float64, names []string) *float64 {
	sum := 0.0
	count := 0
	for _, name := range names {
		if v, ok := items[name]; ok {
			sum += v
			count++
		}
	}
	if count == 0 {
		return nil
	}
	mean := sum / float64(count)
	return &mean
}
