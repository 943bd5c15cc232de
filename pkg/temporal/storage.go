package temporal

import (
	"context"
	"sync"
	"time"

	"github.com/airmood/go-exposure-timeline/pkg/exposure"
)

// StudyStore persists per-study series between ingestion and analysis
type StudyStore interface {
	AppendSamples(ctx context.Context, studyID string, samples exposure.SampleSeries) error
	AppendMoodRecords(ctx context.Context, studyID string, records exposure.MoodSeries) error
	LoadSamples(ctx context.Context, studyID string, timeRange *TimeRange) (exposure.SampleSeries, error)
	LoadMoodRecords(ctx context.Context, studyID string, timeRange *TimeRange) (exposure.MoodSeries, error)
}

// MemoryStudyStore is an in-memory StudyStore used for development and tests
type MemoryStudyStore struct {
	mu      sync.RWMutex
	samples map[string]exposure.SampleSeries
	mood    map[string]exposure.MoodSeries
}

// NewMemoryStudyStore creates a new in-memory study store
func NewMemoryStudyStore() *MemoryStudyStore {
	return &MemoryStudyStore{
		samples: make(map[string]exposure.SampleSeries),
		mood:    make(map[string]exposure.MoodSeries),
	}
}

// AppendSamples appends trajectory samples to a study
func (m *MemoryStudyStore) AppendSamples(ctx context.Context, studyID string, samples exposure.SampleSeries) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.samples[studyID] = append(m.samples[studyID], samples...)
	return nil
}

// AppendMoodRecords appends mood records to a study
func (m *MemoryStudyStore) AppendMoodRecords(ctx context.Context, studyID string, records exposure.MoodSeries) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.mood[studyID] = append(m.mood[studyID], records...)
	return nil
}

// LoadSamples returns a study's samples, filtered to the time range when one
// is given. Both bounds are inclusive.
func (m *MemoryStudyStore) LoadSamples(ctx context.Context, studyID string, timeRange *TimeRange) (exposure.SampleSeries, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.samples[studyID]
	samples := make(exposure.SampleSeries, 0, len(stored))
	for _, s := range stored {
		if withinRange(s.Timestamp, timeRange) {
			samples = append(samples, s)
		}
	}
	return samples, nil
}

// LoadMoodRecords returns a study's mood records, filtered to the time range
// when one is given. Both bounds are inclusive.
func (m *MemoryStudyStore) LoadMoodRecords(ctx context.Context, studyID string, timeRange *TimeRange) (exposure.MoodSeries, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.mood[studyID]
	records := make(exposure.MoodSeries, 0, len(stored))
	for _, r := range stored {
		if withinRange(r.Timestamp, timeRange) {
			records = append(records, r)
		}
	}
	return records, nil
}

// SampleCount returns the number of stored samples for a study (for testing)
func (m *MemoryStudyStore) SampleCount(studyID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.samples[studyID])
}

// MoodCount returns the number of stored mood records for a study (for testing)
func (m *MemoryStudyStore) MoodCount(studyID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.mood[studyID])
}

// withinRange reports whether ts falls inside the range. A nil range or a
// zero bound leaves that side open.
func withinRange(ts time.Time, timeRange *TimeRange) bool {
	if timeRange == nil {
		return true
	}
	if !timeRange.Start.IsZero() && ts.Before(timeRange.Start) {
		return false
	}
	if !timeRange.End.IsZero() && ts.After(timeRange.End) {
		return false
	}
	return true
}
