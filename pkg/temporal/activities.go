package temporal

import (
	"context"
	"fmt"
	"log/slog"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/airmood/go-exposure-timeline/pkg/exposure"
)

// ProgressReportInterval is the row interval between activity heartbeats
const ProgressReportInterval = 1000

// ProgressInfo tracks processing progress inside long-running activities
type ProgressInfo struct {
	TotalRows      int `json:"total_rows"`
	ProcessedRows  int `json:"processed_rows"`
	CompletedPairs int `json:"completed_pairs"`
	TotalPairs     int `json:"total_pairs"`
}

// EnrichSamplesInput carries a trajectory batch plus the classification setup
type EnrichSamplesInput struct {
	Samples exposure.SampleSeries    `json:"samples"`
	Profile exposure.MovementProfile `json:"profile"`
	Filter  exposure.MovementClass   `json:"filter,omitempty"`
}

// ComposeMoodInput carries mood records plus the item lists for both axes
type ComposeMoodInput struct {
	Records       exposure.MoodSeries `json:"records"`
	PositiveItems []string            `json:"positive_items"`
	NegativeItems []string            `json:"negative_items"`
}

// AggregateWindowsInput carries both prepared series for windowing or alignment
type AggregateWindowsInput struct {
	Samples     exposure.EnrichedSeries `json:"samples"`
	Mood        exposure.MoodSeries     `json:"mood"`
	Granularity exposure.Granularity    `json:"granularity"`
}

// AggregateWindowsOutput holds the per-series window tables
type AggregateWindowsOutput struct {
	SampleWindows []exposure.AggregateRow `json:"sample_windows"`
	MoodWindows   []exposure.AggregateRow `json:"mood_windows"`
}

// CorrelatePairInput evaluates one pair over an aligned table
type CorrelatePairInput struct {
	Rows []exposure.AlignedRow `json:"rows"`
	Pair exposure.SeriesPair   `json:"pair"`
}

// CorrelatePairsInput evaluates a pair grid over an aligned table
type CorrelatePairsInput struct {
	Rows  []exposure.AlignedRow `json:"rows"`
	Pairs []exposure.SeriesPair `json:"pairs"`
}

// CorrelateWindowedInput evaluates pairs inside each window separately
type CorrelateWindowedInput struct {
	Samples     exposure.EnrichedSeries `json:"samples"`
	Records     exposure.MoodSeries     `json:"records"`
	Pairs       []exposure.SeriesPair   `json:"pairs"`
	Granularity exposure.Granularity    `json:"granularity"`
}

// Activities interface defines all the activities used by workflows
type Activities interface {
	AppendSamplesActivity(ctx context.Context, studyID string, signal SampleSignal) (*IngestResult, error)
	AppendMoodRecordsActivity(ctx context.Context, studyID string, signal MoodSignal) (*IngestResult, error)
	LoadSamplesActivity(ctx context.Context, studyID string, timeRange *TimeRange) (exposure.SampleSeries, error)
	LoadMoodRecordsActivity(ctx context.Context, studyID string, timeRange *TimeRange) (exposure.MoodSeries, error)
	EnrichSamplesActivity(ctx context.Context, input EnrichSamplesInput) (exposure.EnrichedSeries, error)
	ComposeMoodActivity(ctx context.Context, input ComposeMoodInput) (exposure.MoodSeries, error)
	SummarizeMovementActivity(ctx context.Context, series exposure.EnrichedSeries) ([]exposure.MovementSummary, error)
	AggregateWindowsActivity(ctx context.Context, input AggregateWindowsInput) (*AggregateWindowsOutput, error)
	AlignSeriesActivity(ctx context.Context, input AggregateWindowsInput) ([]exposure.AlignedRow, error)
	CorrelatePairActivity(ctx context.Context, input CorrelatePairInput) (*exposure.PairResult, error)
	CorrelatePairsActivity(ctx context.Context, input CorrelatePairsInput) ([]exposure.PairResult, error)
	CorrelateWindowedActivity(ctx context.Context, input CorrelateWindowedInput) ([]exposure.WindowPairResult, error)
}

// ActivitiesImpl implements the Activities interface
type ActivitiesImpl struct {
	logger *slog.Logger
	store  StudyStore
}

// NewActivitiesImpl creates a new activities implementation
func NewActivitiesImpl(logger *slog.Logger, store StudyStore) *ActivitiesImpl {
	return &ActivitiesImpl{
		logger: logger,
		store:  store,
	}
}

// AppendSamplesActivity parses a raw trajectory batch and persists the valid
// rows. A strict-mode parse failure is not retryable: the batch will not
// become valid on a second attempt.
func (a *ActivitiesImpl) AppendSamplesActivity(ctx context.Context, studyID string, signal SampleSignal) (*IngestResult, error) {
	a.logger.Info("Appending samples", "studyID", studyID, "rows", len(signal.Rows))

	samples, dropped, err := exposure.ParseSampleRows(signal.Rows, signal.Options)
	if err != nil {
		a.logger.Error("Sample batch rejected", "studyID", studyID, "error", err)
		return nil, temporal.NewNonRetryableApplicationError("sample batch rejected", "InputError", err)
	}

	if err := a.store.AppendSamples(ctx, studyID, samples); err != nil {
		a.logger.Error("Failed to append samples", "studyID", studyID, "error", err)
		return nil, fmt.Errorf("failed to append samples: %w", err)
	}

	if dropped > 0 {
		a.logger.Warn("Dropped unparsable sample rows", "studyID", studyID, "dropped", dropped)
	}
	a.logger.Info("Successfully appended samples", "studyID", studyID, "accepted", len(samples), "dropped", dropped)
	return &IngestResult{Accepted: len(samples), Dropped: dropped}, nil
}

// AppendMoodRecordsActivity parses a raw mood batch and persists the valid rows
func (a *ActivitiesImpl) AppendMoodRecordsActivity(ctx context.Context, studyID string, signal MoodSignal) (*IngestResult, error) {
	a.logger.Info("Appending mood records", "studyID", studyID, "rows", len(signal.Rows))

	records, dropped, err := exposure.ParseMoodRows(signal.Rows, signal.Options)
	if err != nil {
		a.logger.Error("Mood batch rejected", "studyID", studyID, "error", err)
		return nil, temporal.NewNonRetryableApplicationError("mood batch rejected", "InputError", err)
	}

	if err := a.store.AppendMoodRecords(ctx, studyID, records); err != nil {
		a.logger.Error("Failed to append mood records", "studyID", studyID, "error", err)
		return nil, fmt.Errorf("failed to append mood records: %w", err)
	}

	if dropped > 0 {
		a.logger.Warn("Dropped unparsable mood rows", "studyID", studyID, "dropped", dropped)
	}
	a.logger.Info("Successfully appended mood records", "studyID", studyID, "accepted", len(records), "dropped", dropped)
	return &IngestResult{Accepted: len(records), Dropped: dropped}, nil
}

// LoadSamplesActivity loads a study's trajectory samples from the store
func (a *ActivitiesImpl) LoadSamplesActivity(ctx context.Context, studyID string, timeRange *TimeRange) (exposure.SampleSeries, error) {
	a.logger.Info("Loading samples", "studyID", studyID, "timeRange", timeRange)

	samples, err := a.store.LoadSamples(ctx, studyID, timeRange)
	if err != nil {
		a.logger.Error("Failed to load samples", "studyID", studyID, "error", err)
		return nil, fmt.Errorf("failed to load samples: %w", err)
	}

	a.logger.Info("Successfully loaded samples", "studyID", studyID, "count", len(samples))
	return samples, nil
}

// LoadMoodRecordsActivity loads a study's mood records from the store
func (a *ActivitiesImpl) LoadMoodRecordsActivity(ctx context.Context, studyID string, timeRange *TimeRange) (exposure.MoodSeries, error) {
	a.logger.Info("Loading mood records", "studyID", studyID, "timeRange", timeRange)

	records, err := a.store.LoadMoodRecords(ctx, studyID, timeRange)
	if err != nil {
		a.logger.Error("Failed to load mood records", "studyID", studyID, "error", err)
		return nil, fmt.Errorf("failed to load mood records: %w", err)
	}

	a.logger.Info("Successfully loaded mood records", "studyID", studyID, "count", len(records))
	return records, nil
}

// EnrichSamplesActivity derives speed and movement class for every sample,
// optionally filtering the result down to one movement class
func (a *ActivitiesImpl) EnrichSamplesActivity(ctx context.Context, input EnrichSamplesInput) (exposure.EnrichedSeries, error) {
	a.logger.Info("Enriching samples", "count", len(input.Samples), "profile", input.Profile.Name)

	if err := input.Profile.Validate(); err != nil {
		a.logger.Error("Rejected movement profile", "profile", input.Profile.Name, "error", err)
		return nil, temporal.NewNonRetryableApplicationError("invalid movement profile", "ConfigurationError", err)
	}

	activity.RecordHeartbeat(ctx, ProgressInfo{TotalRows: len(input.Samples)})

	enriched := exposure.Enrich(input.Samples, input.Profile)
	if input.Filter != "" {
		enriched = exposure.FilterByMovement(enriched, input.Filter)
	}

	activity.RecordHeartbeat(ctx, ProgressInfo{TotalRows: len(input.Samples), ProcessedRows: len(input.Samples)})

	a.logger.Info("Successfully enriched samples", "count", len(enriched))
	return enriched, nil
}

// ComposeMoodActivity reduces every record's affect items to the two composite axes
func (a *ActivitiesImpl) ComposeMoodActivity(ctx context.Context, input ComposeMoodInput) (exposure.MoodSeries, error) {
	a.logger.Info("Composing mood axes", "count", len(input.Records))

	composed := exposure.ComposeAll(input.Records, input.PositiveItems, input.NegativeItems)

	a.logger.Info("Successfully composed mood axes", "count", len(composed))
	return composed, nil
}

// SummarizeMovementActivity reduces an enriched series to per-class statistics
func (a *ActivitiesImpl) SummarizeMovementActivity(ctx context.Context, series exposure.EnrichedSeries) ([]exposure.MovementSummary, error) {
	a.logger.Info("Summarizing movement", "count", len(series))
	return exposure.SummarizeMovement(series), nil
}

// AggregateWindowsActivity windows both series independently
func (a *ActivitiesImpl) AggregateWindowsActivity(ctx context.Context, input AggregateWindowsInput) (*AggregateWindowsOutput, error) {
	a.logger.Info("Aggregating windows",
		"samples", len(input.Samples), "moodRecords", len(input.Mood), "granularity", input.Granularity)

	sampleAgg := exposure.Aggregate(exposure.EnrichedRows(input.Samples), input.Granularity)
	moodAgg := exposure.Aggregate(exposure.MoodRows(input.Mood), input.Granularity)

	output := &AggregateWindowsOutput{
		SampleWindows: exposure.SortedWindows(sampleAgg),
		MoodWindows:   exposure.SortedWindows(moodAgg),
	}

	a.logger.Info("Successfully aggregated windows",
		"sampleWindows", len(output.SampleWindows), "moodWindows", len(output.MoodWindows))
	return output, nil
}

// AlignSeriesActivity joins both window tables onto a common axis
func (a *ActivitiesImpl) AlignSeriesActivity(ctx context.Context, input AggregateWindowsInput) ([]exposure.AlignedRow, error) {
	a.logger.Info("Aligning series",
		"samples", len(input.Samples), "moodRecords", len(input.Mood), "granularity", input.Granularity)

	aligned := exposure.AlignByWindow(
		exposure.EnrichedRows(input.Samples),
		exposure.MoodRows(input.Mood),
		input.Granularity,
	)

	a.logger.Info("Successfully aligned series", "windows", len(aligned))
	return aligned, nil
}

// CorrelatePairActivity evaluates one pollutant/axis pair across the aligned windows
func (a *ActivitiesImpl) CorrelatePairActivity(ctx context.Context, input CorrelatePairInput) (*exposure.PairResult, error) {
	a.logger.Info("Correlating pair",
		"pollutant", input.Pair.Pollutant, "axis", input.Pair.Axis, "windows", len(input.Rows))

	results := exposure.CorrelatePairs(input.Rows, []exposure.SeriesPair{input.Pair})
	result := results[0]

	a.logger.Info("Correlated pair",
		"pollutant", input.Pair.Pollutant, "axis", input.Pair.Axis, "outcome", result.Result.Outcome)
	return &result, nil
}

// CorrelatePairsActivity evaluates a whole pair grid in one activity,
// heartbeating per pair so long grids stay visible to the server
func (a *ActivitiesImpl) CorrelatePairsActivity(ctx context.Context, input CorrelatePairsInput) ([]exposure.PairResult, error) {
	a.logger.Info("Correlating pairs", "pairs", len(input.Pairs), "windows", len(input.Rows))

	results := make([]exposure.PairResult, 0, len(input.Pairs))
	for i, pair := range input.Pairs {
		activity.RecordHeartbeat(ctx, ProgressInfo{
			TotalRows:      len(input.Rows),
			CompletedPairs: i,
			TotalPairs:     len(input.Pairs),
		})
		results = append(results, exposure.CorrelatePairs(input.Rows, []exposure.SeriesPair{pair})...)
	}

	a.logger.Info("Successfully correlated pairs", "pairs", len(results))
	return results, nil
}

// CorrelateWindowedActivity evaluates each pair inside every window. Mood
// records missing co-located pollutant readings inherit their window's mean
// from the trajectory side first.
func (a *ActivitiesImpl) CorrelateWindowedActivity(ctx context.Context, input CorrelateWindowedInput) ([]exposure.WindowPairResult, error) {
	a.logger.Info("Correlating within windows",
		"moodRecords", len(input.Records), "pairs", len(input.Pairs), "granularity", input.Granularity)

	records := AttachWindowPM(input.Records, input.Samples, input.Granularity)
	results := exposure.CorrelateWindowed(exposure.MoodRows(records), input.Pairs, input.Granularity)

	a.logger.Info("Successfully correlated within windows", "results", len(results))
	return results, nil
}
