package hcl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/airmood/go-exposure-timeline/pkg/temporal"
)

// AssertRequestsEqual compares two AnalysisRequest objects for equality in tests
func AssertRequestsEqual(t *testing.T, expected, actual *temporal.AnalysisRequest) {
	assert.Equal(t, expected.StudyID, actual.StudyID)
	assert.Equal(t, expected.Granularity, actual.Granularity)
	assert.Equal(t, expected.Profile, actual.Profile)
	assert.Equal(t, expected.SpeedMode, actual.SpeedMode)
	assert.Equal(t, expected.MovementFilter, actual.MovementFilter)
	assert.Equal(t, expected.PositiveItems, actual.PositiveItems)
	assert.Equal(t, expected.NegativeItems, actual.NegativeItems)
	assert.Equal(t, expected.Pairs, actual.Pairs)
	assert.Equal(t, expected.ProcessingMode, actual.ProcessingMode)
	assert.Equal(t, expected.IncludeWindowed, actual.IncludeWindowed)

	// Compare time ranges if present
	if expected.TimeRange != nil && actual.TimeRange != nil {
		// Compare times, allowing for potential timezone differences
		expectedStart := expected.TimeRange.Start.UTC().Format(time.RFC3339)
		actualStart := actual.TimeRange.Start.UTC().Format(time.RFC3339)
		assert.Equal(t, expectedStart, actualStart)

		expectedEnd := expected.TimeRange.End.UTC().Format(time.RFC3339)
		actualEnd := actual.TimeRange.End.UTC().Format(time.RFC3339)
		assert.Equal(t, expectedEnd, actualEnd)
	} else {
		assert.Equal(t, expected.TimeRange == nil, actual.TimeRange == nil)
	}
}
