package exposure

import (
	"math"
	"testing"
	"time"
)

func TestComposeMood(t *testing.T) {
	record := MoodRecord{
		Timestamp: time.Date(2025, 3, 5, 20, 0, 0, 0, time.UTC),
		Items: map[string]float64{
			"happy":   4,
			"content": 2,
			"sad":     1,
		},
	}

	positive, negative := ComposeMood(record, DefaultPositiveItems, DefaultNegativeItems)

	// Mean of the present positive items only: (4+2)/2, "relaxed" and
	// "energetic" are skipped rather than counted as zero
	if positive == nil {
		t.Fatal("Expected positive composite, got nil")
	}
	if math.Abs(*positive-3.0) > 0.001 {
		t.Errorf("Expected positive composite 3.0, got %f", *positive)
	}

	if negative == nil {
		t.Fatal("Expected negative composite, got nil")
	}
	if math.Abs(*negative-1.0) > 0.001 {
		t.Errorf("Expected negative composite 1.0, got %f", *negative)
	}
}

func TestComposeMoodAllMissing(t *testing.T) {
	record := MoodRecord{
		Timestamp: time.Date(2025, 3, 5, 20, 0, 0, 0, time.UTC),
		Items:     map[string]float64{"happy": 4},
	}

	positive, negative := ComposeMood(record, DefaultPositiveItems, DefaultNegativeItems)

	if positive == nil {
		t.Error("Expected positive composite from single present item")
	}
	// No negative item answered: composite is absent, not zero
	if negative != nil {
		t.Errorf("Expected nil negative composite, got %f", *negative)
	}
}

func TestComposeMoodNoItems(t *testing.T) {
	record := MoodRecord{Timestamp: time.Date(2025, 3, 5, 20, 0, 0, 0, time.UTC)}

	positive, negative := ComposeMood(record, DefaultPositiveItems, DefaultNegativeItems)
	if positive != nil || negative != nil {
		t.Error("Expected both composites nil for a record with no items")
	}
}

func TestComposeMoodCustomItems(t *testing.T) {
	record := MoodRecord{
		Timestamp: time.Date(2025, 3, 5, 20, 0, 0, 0, time.UTC),
		Items:     map[string]float64{"calm": 5, "tense": 2},
	}

	positive, negative := ComposeMood(record, []string{"calm"}, []string{"tense", "angry"})

	if positive == nil || *positive != 5 {
		t.Errorf("Expected positive composite 5, got %v", positive)
	}
	if negative == nil || *negative != 2 {
		t.Errorf("Expected negative composite 2, got %v", negative)
	}
}

func TestComposeAll(t *testing.T) {
	records := MoodSeries{
		{
			Timestamp: time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC),
			Items:     map[string]float64{"happy": 4, "relaxed": 2},
		},
		{
			Timestamp: time.Date(2025, 3, 5, 21, 0, 0, 0, time.UTC),
			Items:     map[string]float64{"sad": 3},
		},
	}

	composed := ComposeAll(records, DefaultPositiveItems, DefaultNegativeItems)

	if len(composed) != 2 {
		t.Fatalf("Expected 2 composed records, got %d", len(composed))
	}

	if composed[0].Positive == nil || math.Abs(*composed[0].Positive-3.0) > 0.001 {
		t.Errorf("Expected first positive composite 3.0, got %v", composed[0].Positive)
	}
	if composed[0].Negative != nil {
		t.Error("Expected first negative composite nil")
	}

	if composed[1].Positive != nil {
		t.Error("Expected second positive composite nil")
	}
	if composed[1].Negative == nil || *composed[1].Negative != 3 {
		t.Errorf("Expected second negative composite 3, got %v", composed[1].Negative)
	}

	// Input series is untouched
	if records[0].Positive != nil {
		t.Error("ComposeAll should not mutate its input")
	}
}
