package temporal

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/airmood/go-exposure-timeline/pkg/exposure"
)

const (
	// DefaultTaskQueue is the task queue workers and clients share
	DefaultTaskQueue = "exposure-task-queue"

	// Workflow IDs
	IngestionWorkflowIDPrefix = "study-"
	AnalysisWorkflowIDPrefix  = "analysis-"

	// Signal names
	SampleSignalName = "sample-signal"
	MoodSignalName   = "mood-signal"

	// Activity names, matching the registered method names
	AppendSamplesActivityName     = "AppendSamplesActivity"
	AppendMoodRecordsActivityName = "AppendMoodRecordsActivity"
	LoadSamplesActivityName       = "LoadSamplesActivity"
	LoadMoodRecordsActivityName   = "LoadMoodRecordsActivity"
	EnrichSamplesActivityName     = "EnrichSamplesActivity"
	ComposeMoodActivityName       = "ComposeMoodActivity"
	SummarizeMovementActivityName = "SummarizeMovementActivity"
	AggregateWindowsActivityName  = "AggregateWindowsActivity"
	AlignSeriesActivityName       = "AlignSeriesActivity"
	CorrelatePairActivityName     = "CorrelatePairActivity"
	CorrelatePairsActivityName    = "CorrelatePairsActivity"
	CorrelateWindowedActivityName = "CorrelateWindowedActivity"

	// Default values
	DefaultContinueAsNewThreshold = 1000 // signal batches before ContinueAsNew
)

// Processing modes for the correlation stage: single runs every pair in one
// activity, concurrent fans out one activity per pair, isolated fans out one
// child workflow per pair, and auto picks concurrent when more than one pair
// is requested.
const (
	ProcessingModeSingle     = "single"
	ProcessingModeConcurrent = "concurrent"
	ProcessingModeIsolated   = "isolated"
	ProcessingModeAuto       = "auto"
)

// SampleSignal carries a batch of raw trajectory rows into ingestion
type SampleSignal struct {
	Rows    [][]byte              `json:"rows"`
	Options exposure.ParseOptions `json:"options"`
}

// MoodSignal carries a batch of raw mood self-report rows into ingestion
type MoodSignal struct {
	Rows    [][]byte              `json:"rows"`
	Options exposure.ParseOptions `json:"options"`
}

// IngestResult reports how a batch fared at the parsing edge
type IngestResult struct {
	Accepted int `json:"accepted"`
	Dropped  int `json:"dropped"`
}

// TimeRange bounds a load from the study store (inclusive on both ends)
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// AnalysisRequest describes one analysis run over a study's stored series.
// Granularity defaults to day, Profile to the coarse ladder, Pairs to the
// full pollutant x axis grid, and the mood item lists to the built-in
// questionnaire subsets. SpeedMode, when set, overrides the profile's own
// measurement mode; MovementFilter keeps only samples of one movement class.
type AnalysisRequest struct {
	StudyID         string                `json:"study_id"`
	Granularity     string                `json:"granularity,omitempty"`
	Profile         string                `json:"profile,omitempty"`
	SpeedMode       string                `json:"speed_mode,omitempty"`
	MovementFilter  string                `json:"movement_filter,omitempty"`
	PositiveItems   []string              `json:"positive_items,omitempty"`
	NegativeItems   []string              `json:"negative_items,omitempty"`
	Pairs           []exposure.SeriesPair `json:"pairs,omitempty"`
	TimeRange       *TimeRange            `json:"time_range,omitempty"`
	ProcessingMode  string                `json:"processing_mode,omitempty"`
	IncludeWindowed bool                  `json:"include_windowed,omitempty"`
}

// AnalysisResult is the full dashboard payload for one analysis run
type AnalysisResult struct {
	StudyID       string                      `json:"study_id"`
	Granularity   exposure.Granularity        `json:"granularity"`
	SampleCount   int                         `json:"sample_count"`
	MoodCount     int                         `json:"mood_count"`
	Movement      []exposure.MovementSummary  `json:"movement"`
	SampleWindows []exposure.AggregateRow     `json:"sample_windows"`
	MoodWindows   []exposure.AggregateRow     `json:"mood_windows"`
	Aligned       []exposure.AlignedRow       `json:"aligned"`
	Correlations  []exposure.PairResult       `json:"correlations"`
	Windowed      []exposure.WindowPairResult `json:"windowed,omitempty"`
	ExecutionTime time.Duration               `json:"execution_time"`
}

// IngestionWorkflowState represents the state of an ingestion workflow
type IngestionWorkflowState struct {
	StudyID     string    `json:"study_id"`
	SampleCount int       `json:"sample_count"`
	MoodCount   int       `json:"mood_count"`
	DroppedRows int       `json:"dropped_rows"`
	BatchCount  int       `json:"batch_count"`
	LastBatchAt time.Time `json:"last_batch_at"`
}

// IngestionWorkflow receives sample and mood batches for a single study and
// appends them to the study store. Runs until ContinueAsNew caps the history.
func IngestionWorkflow(ctx workflow.Context, studyID string) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting ingestion workflow", "studyID", studyID)

	state := IngestionWorkflowState{
		StudyID:     studyID,
		LastBatchAt: workflow.Now(ctx),
	}

	sampleChan := workflow.GetSignalChannel(ctx, SampleSignalName)
	moodChan := workflow.GetSignalChannel(ctx, MoodSignalName)

	for {
		var sampleSignal SampleSignal
		var moodSignal MoodSignal
		var gotSamples, gotMood bool

		selector := workflow.NewSelector(ctx)
		selector.AddReceive(sampleChan, func(c workflow.ReceiveChannel, more bool) {
			c.Receive(ctx, &sampleSignal)
			gotSamples = true
		})
		selector.AddReceive(moodChan, func(c workflow.ReceiveChannel, more bool) {
			c.Receive(ctx, &moodSignal)
			gotMood = true
		})
		selector.Select(ctx)

		ao := workflow.ActivityOptions{
			ScheduleToCloseTimeout: 30 * time.Second,
			RetryPolicy: &temporal.RetryPolicy{
				MaximumAttempts: 3,
			},
		}
		actx := workflow.WithActivityOptions(ctx, ao)

		if gotSamples {
			logger.Info("Received sample batch", "count", len(sampleSignal.Rows))
			var result IngestResult
			err := workflow.ExecuteActivity(actx, AppendSamplesActivityName, studyID, sampleSignal).Get(ctx, &result)
			if err != nil {
				logger.Error("Failed to append samples", "error", err)
				// Keep serving later batches rather than failing the workflow
			} else {
				state.SampleCount += result.Accepted
				state.DroppedRows += result.Dropped
			}
		}

		if gotMood {
			logger.Info("Received mood batch", "count", len(moodSignal.Rows))
			var result IngestResult
			err := workflow.ExecuteActivity(actx, AppendMoodRecordsActivityName, studyID, moodSignal).Get(ctx, &result)
			if err != nil {
				logger.Error("Failed to append mood records", "error", err)
			} else {
				state.MoodCount += result.Accepted
				state.DroppedRows += result.Dropped
			}
		}

		state.BatchCount++
		state.LastBatchAt = workflow.Now(ctx)

		if state.BatchCount >= DefaultContinueAsNewThreshold {
			logger.Info("Continuing as new", "batchCount", state.BatchCount)
			return workflow.NewContinueAsNewError(ctx, IngestionWorkflow, studyID)
		}
	}
}

// analysisPlan is the validated, resolved form of an AnalysisRequest
type analysisPlan struct {
	granularity exposure.Granularity
	profile     exposure.MovementProfile
	filter      exposure.MovementClass
	positive    []string
	negative    []string
	pairs       []exposure.SeriesPair
	mode        string
}

// resolvePlan validates the request's enumerated settings up front so the
// workflow fails before any activity runs on a bad configuration
func resolvePlan(request AnalysisRequest) (analysisPlan, error) {
	plan := analysisPlan{
		granularity: exposure.Day,
		positive:    request.PositiveItems,
		negative:    request.NegativeItems,
		pairs:       request.Pairs,
		mode:        request.ProcessingMode,
	}

	if request.Granularity != "" {
		g, err := exposure.ParseGranularity(request.Granularity)
		if err != nil {
			return analysisPlan{}, err
		}
		plan.granularity = g
	}

	profileName := request.Profile
	if profileName == "" {
		profileName = exposure.CoarseProfile.Name
	}
	profile, err := exposure.ProfileByName(profileName)
	if err != nil {
		return analysisPlan{}, err
	}
	if request.SpeedMode != "" {
		mode, err := exposure.ParseSpeedMode(request.SpeedMode)
		if err != nil {
			return analysisPlan{}, err
		}
		profile.Mode = mode
	}
	plan.profile = profile

	if request.MovementFilter != "" {
		class := exposure.MovementClass(request.MovementFilter)
		if !profileKnowsClass(profile, class) {
			return analysisPlan{}, exposure.NewConfigurationError("movement filter", request.MovementFilter)
		}
		plan.filter = class
	}

	switch plan.mode {
	case "", ProcessingModeAuto, ProcessingModeSingle, ProcessingModeConcurrent, ProcessingModeIsolated:
	default:
		return analysisPlan{}, exposure.NewConfigurationError("processing mode", plan.mode)
	}

	if len(plan.positive) == 0 {
		plan.positive = exposure.DefaultPositiveItems
	}
	if len(plan.negative) == 0 {
		plan.negative = exposure.DefaultNegativeItems
	}
	if len(plan.pairs) == 0 {
		plan.pairs = exposure.PollutantMoodPairs(
			[]string{exposure.ColumnPM25, exposure.ColumnPM10},
			[]string{exposure.ColumnPositive, exposure.ColumnNegative},
		)
	}

	return plan, nil
}

func profileKnowsClass(profile exposure.MovementProfile, class exposure.MovementClass) bool {
	if class == profile.ZeroClass || class == profile.Overflow {
		return true
	}
	for _, b := range profile.Brackets {
		if b.Class == class {
			return true
		}
	}
	return false
}

// AnalysisWorkflow runs the full pipeline for one study: load both series,
// enrich the trajectory, compose mood, window both, align, then correlate
// every requested pair.
func AnalysisWorkflow(ctx workflow.Context, request AnalysisRequest) (*AnalysisResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting analysis workflow", "studyID", request.StudyID)

	startTime := workflow.Now(ctx)

	plan, err := resolvePlan(request)
	if err != nil {
		return nil, fmt.Errorf("invalid analysis request: %w", err)
	}

	ao := workflow.ActivityOptions{
		ScheduleToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	// Step 1: load both stored series
	var samples exposure.SampleSeries
	if err := workflow.ExecuteActivity(ctx, LoadSamplesActivityName, request.StudyID, request.TimeRange).Get(ctx, &samples); err != nil {
		return nil, fmt.Errorf("failed to load samples: %w", err)
	}

	var moodRecords exposure.MoodSeries
	if err := workflow.ExecuteActivity(ctx, LoadMoodRecordsActivityName, request.StudyID, request.TimeRange).Get(ctx, &moodRecords); err != nil {
		return nil, fmt.Errorf("failed to load mood records: %w", err)
	}

	logger.Info("Loaded study series", "samples", len(samples), "moodRecords", len(moodRecords))

	// Step 2: enrich the trajectory and summarize movement
	enrichInput := EnrichSamplesInput{
		Samples: samples,
		Profile: plan.profile,
		Filter:  plan.filter,
	}
	var enriched exposure.EnrichedSeries
	if err := workflow.ExecuteActivity(ctx, EnrichSamplesActivityName, enrichInput).Get(ctx, &enriched); err != nil {
		return nil, fmt.Errorf("failed to enrich samples: %w", err)
	}

	var movement []exposure.MovementSummary
	if err := workflow.ExecuteActivity(ctx, SummarizeMovementActivityName, enriched).Get(ctx, &movement); err != nil {
		return nil, fmt.Errorf("failed to summarize movement: %w", err)
	}

	// Step 3: compose mood axes
	composeInput := ComposeMoodInput{
		Records:       moodRecords,
		PositiveItems: plan.positive,
		NegativeItems: plan.negative,
	}
	var composed exposure.MoodSeries
	if err := workflow.ExecuteActivity(ctx, ComposeMoodActivityName, composeInput).Get(ctx, &composed); err != nil {
		return nil, fmt.Errorf("failed to compose mood: %w", err)
	}

	// Step 4: window both series and align them
	aggInput := AggregateWindowsInput{
		Samples:     enriched,
		Mood:        composed,
		Granularity: plan.granularity,
	}
	var aggregates AggregateWindowsOutput
	if err := workflow.ExecuteActivity(ctx, AggregateWindowsActivityName, aggInput).Get(ctx, &aggregates); err != nil {
		return nil, fmt.Errorf("failed to aggregate windows: %w", err)
	}

	var aligned []exposure.AlignedRow
	if err := workflow.ExecuteActivity(ctx, AlignSeriesActivityName, aggInput).Get(ctx, &aligned); err != nil {
		return nil, fmt.Errorf("failed to align series: %w", err)
	}

	// Step 5: evaluate the correlation grid under the chosen processing mode
	correlations, err := runCorrelationStage(ctx, aligned, plan)
	if err != nil {
		return nil, err
	}

	result := &AnalysisResult{
		StudyID:       request.StudyID,
		Granularity:   plan.granularity,
		SampleCount:   len(enriched),
		MoodCount:     len(composed),
		Movement:      movement,
		SampleWindows: aggregates.SampleWindows,
		MoodWindows:   aggregates.MoodWindows,
		Aligned:       aligned,
		Correlations:  correlations,
		ExecutionTime: workflow.Now(ctx).Sub(startTime),
	}

	if request.IncludeWindowed {
		windowedInput := CorrelateWindowedInput{
			Samples:     enriched,
			Records:     composed,
			Pairs:       plan.pairs,
			Granularity: plan.granularity,
		}
		if err := workflow.ExecuteActivity(ctx, CorrelateWindowedActivityName, windowedInput).Get(ctx, &result.Windowed); err != nil {
			return nil, fmt.Errorf("failed to correlate within windows: %w", err)
		}
	}

	logger.Info("Analysis completed",
		"studyID", request.StudyID,
		"windows", len(aligned),
		"pairs", len(correlations))
	return result, nil
}

// runCorrelationStage dispatches the pair grid according to the processing
// mode: one activity for everything, a fan-out of per-pair activities, or a
// fan-out of per-pair child workflows
func runCorrelationStage(ctx workflow.Context, aligned []exposure.AlignedRow, plan analysisPlan) ([]exposure.PairResult, error) {
	logger := workflow.GetLogger(ctx)

	mode := plan.mode
	if mode == "" || mode == ProcessingModeAuto {
		if len(plan.pairs) > 1 {
			mode = ProcessingModeConcurrent
		} else {
			mode = ProcessingModeSingle
		}
	}

	switch mode {
	case ProcessingModeConcurrent:
		logger.Info("Using concurrent correlation", "pairs", len(plan.pairs))
		futures := make([]workflow.Future, len(plan.pairs))
		for i, pair := range plan.pairs {
			input := CorrelatePairInput{Rows: aligned, Pair: pair}
			futures[i] = workflow.ExecuteActivity(ctx, CorrelatePairActivityName, input)
		}

		results := make([]exposure.PairResult, len(plan.pairs))
		for i, future := range futures {
			if err := future.Get(ctx, &results[i]); err != nil {
				return nil, fmt.Errorf("failed to correlate pair %s/%s: %w",
					plan.pairs[i].Pollutant, plan.pairs[i].Axis, err)
			}
		}
		return results, nil

	case ProcessingModeIsolated:
		logger.Info("Using isolated correlation", "pairs", len(plan.pairs))
		futures := make([]workflow.ChildWorkflowFuture, len(plan.pairs))
		for i, pair := range plan.pairs {
			childOptions := workflow.ChildWorkflowOptions{
				WorkflowID: fmt.Sprintf("%s-%s-%s-%d",
					CorrelationPairWorkflowName, pair.Pollutant, pair.Axis, workflow.Now(ctx).UnixNano()),
				RetryPolicy: &temporal.RetryPolicy{
					MaximumAttempts:    2,
					BackoffCoefficient: 2.0,
				},
			}
			childCtx := workflow.WithChildOptions(ctx, childOptions)
			request := CorrelationPairRequest{Pair: pair, Rows: aligned}
			futures[i] = workflow.ExecuteChildWorkflow(childCtx, CorrelationPairWorkflowName, request)
		}

		results := make([]exposure.PairResult, len(plan.pairs))
		for i, future := range futures {
			var childResult CorrelationPairResult
			if err := future.Get(ctx, &childResult); err != nil {
				return nil, fmt.Errorf("failed to correlate pair %s/%s: %w",
					plan.pairs[i].Pollutant, plan.pairs[i].Axis, err)
			}
			results[i] = exposure.PairResult{Pair: childResult.Pair, Result: childResult.Result}
		}
		return results, nil

	default:
		logger.Info("Using single-activity correlation", "pairs", len(plan.pairs))
		input := CorrelatePairsInput{Rows: aligned, Pairs: plan.pairs}
		var results []exposure.PairResult
		if err := workflow.ExecuteActivity(ctx, CorrelatePairsActivityName, input).Get(ctx, &results); err != nil {
			return nil, fmt.Errorf("failed to correlate pairs: %w", err)
		}
		return results, nil
	}
}

// Utility functions for workflow IDs

// GenerateIngestionWorkflowID creates a workflow ID for study ingestion
func GenerateIngestionWorkflowID(studyID string) string {
	return IngestionWorkflowIDPrefix + studyID
}

// GenerateAnalysisWorkflowID creates a workflow ID for an analysis run
func GenerateAnalysisWorkflowID(studyID string) string {
	return fmt.Sprintf("%s%s-%s", AnalysisWorkflowIDPrefix, studyID, uuid.NewString())
}
