package temporal

import (
	"context"
	"testing"
	"time"

	"github.com/airmood/go-exposure-timeline/pkg/exposure"
)

func TestMemoryStudyStore_AppendAndLoad(t *testing.T) {
	store := NewMemoryStudyStore()
	ctx := context.Background()
	base := time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC)

	samples := exposure.SampleSeries{
		newTestSample(base, 10, 1),
		newTestSample(base.Add(time.Hour), 20, 2),
	}
	if err := store.AppendSamples(ctx, "aq-2025", samples); err != nil {
		t.Fatalf("AppendSamples failed: %v", err)
	}
	if err := store.AppendSamples(ctx, "aq-2025", exposure.SampleSeries{newTestSample(base.Add(2*time.Hour), 30, 3)}); err != nil {
		t.Fatalf("AppendSamples failed: %v", err)
	}

	mood := exposure.MoodSeries{newTestMood(base.Add(11*time.Hour), 4, 2)}
	if err := store.AppendMoodRecords(ctx, "aq-2025", mood); err != nil {
		t.Fatalf("AppendMoodRecords failed: %v", err)
	}

	loaded, err := store.LoadSamples(ctx, "aq-2025", nil)
	if err != nil {
		t.Fatalf("LoadSamples failed: %v", err)
	}
	if len(loaded) != 3 {
		t.Errorf("Expected 3 samples, got %d", len(loaded))
	}

	records, err := store.LoadMoodRecords(ctx, "aq-2025", nil)
	if err != nil {
		t.Fatalf("LoadMoodRecords failed: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("Expected 1 mood record, got %d", len(records))
	}
}

func TestMemoryStudyStore_TimeRangeInclusive(t *testing.T) {
	store := NewMemoryStudyStore()
	ctx := context.Background()
	base := time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC)

	samples := exposure.SampleSeries{
		newTestSample(base, 10, 1),
		newTestSample(base.Add(time.Hour), 20, 2),
		newTestSample(base.Add(2*time.Hour), 30, 3),
	}
	if err := store.AppendSamples(ctx, "aq-2025", samples); err != nil {
		t.Fatalf("AppendSamples failed: %v", err)
	}

	tests := []struct {
		name      string
		timeRange *TimeRange
		want      int
	}{
		{"both bounds inclusive", &TimeRange{Start: base, End: base.Add(time.Hour)}, 2},
		{"exact single sample", &TimeRange{Start: base.Add(time.Hour), End: base.Add(time.Hour)}, 1},
		{"open start", &TimeRange{End: base.Add(time.Hour)}, 2},
		{"open end", &TimeRange{Start: base.Add(time.Hour)}, 2},
		{"outside", &TimeRange{Start: base.Add(3 * time.Hour), End: base.Add(4 * time.Hour)}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loaded, err := store.LoadSamples(ctx, "aq-2025", tt.timeRange)
			if err != nil {
				t.Fatalf("LoadSamples failed: %v", err)
			}
			if len(loaded) != tt.want {
				t.Errorf("Expected %d samples, got %d", tt.want, len(loaded))
			}
		})
	}
}

func TestMemoryStudyStore_UnknownStudy(t *testing.T) {
	store := NewMemoryStudyStore()

	samples, err := store.LoadSamples(context.Background(), "missing", nil)
	if err != nil {
		t.Fatalf("LoadSamples failed: %v", err)
	}
	if len(samples) != 0 {
		t.Errorf("Expected no samples for an unknown study, got %d", len(samples))
	}

	if store.SampleCount("missing") != 0 || store.MoodCount("missing") != 0 {
		t.Error("Expected zero counts for an unknown study")
	}
}

func TestMemoryStudyStore_StudiesAreIsolated(t *testing.T) {
	store := NewMemoryStudyStore()
	ctx := context.Background()
	base := time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC)

	if err := store.AppendSamples(ctx, "study-a", exposure.SampleSeries{newTestSample(base, 10, 1)}); err != nil {
		t.Fatalf("AppendSamples failed: %v", err)
	}
	if err := store.AppendSamples(ctx, "study-b", exposure.SampleSeries{newTestSample(base, 20, 2), newTestSample(base.Add(time.Hour), 30, 3)}); err != nil {
		t.Fatalf("AppendSamples failed: %v", err)
	}

	if store.SampleCount("study-a") != 1 {
		t.Errorf("Expected 1 sample in study-a, got %d", store.SampleCount("study-a"))
	}
	if store.SampleCount("study-b") != 2 {
		t.Errorf("Expected 2 samples in study-b, got %d", store.SampleCount("study-b"))
	}
}
