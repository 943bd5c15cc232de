package temporal

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/airmood/go-exposure-timeline/pkg/exposure"
)

// CorrelationPairWorkflowName identifies the per-pair child workflow
const CorrelationPairWorkflowName = "CorrelationPair"

// CorrelationPairRequest is the input to the per-pair child workflow
type CorrelationPairRequest struct {
	Pair exposure.SeriesPair   `json:"pair"`
	Rows []exposure.AlignedRow `json:"rows"`
}

// CorrelationPairResult is the per-pair child workflow's result envelope
type CorrelationPairResult struct {
	Pair        exposure.SeriesPair        `json:"pair"`
	Result      exposure.CorrelationResult `json:"result"`
	CompletedAt time.Time                  `json:"completed_at"`
	Metadata    map[string]interface{}     `json:"metadata,omitempty"`
}

// CorrelationPairWorkflow evaluates a single pollutant/axis pair as an
// independent child workflow. Isolated mode runs one of these per pair so
// a failing pair retries on its own without rerunning the rest of the grid.
func CorrelationPairWorkflow(ctx workflow.Context, request CorrelationPairRequest) (*CorrelationPairResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting correlation pair workflow",
		"pollutant", request.Pair.Pollutant, "axis", request.Pair.Axis, "windows", len(request.Rows))

	startTime := workflow.Now(ctx)

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute * 5,
		HeartbeatTimeout:    time.Minute * 1,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:    3,
			BackoffCoefficient: 2.0,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	input := CorrelatePairInput{Rows: request.Rows, Pair: request.Pair}
	var pairResult exposure.PairResult
	if err := workflow.ExecuteActivity(ctx, CorrelatePairActivityName, input).Get(ctx, &pairResult); err != nil {
		logger.Error("Correlation pair workflow failed",
			"pollutant", request.Pair.Pollutant, "axis", request.Pair.Axis, "error", err)
		return nil, fmt.Errorf("failed to correlate %s/%s: %w", request.Pair.Pollutant, request.Pair.Axis, err)
	}

	result := &CorrelationPairResult{
		Pair:        request.Pair,
		Result:      pairResult.Result,
		CompletedAt: workflow.Now(ctx),
		Metadata: map[string]interface{}{
			"windows":  len(request.Rows),
			"outcome":  string(pairResult.Result.Outcome),
			"duration": workflow.Now(ctx).Sub(startTime).Seconds(),
		},
	}

	logger.Info("Correlation pair workflow completed",
		"pollutant", request.Pair.Pollutant, "axis", request.Pair.Axis, "outcome", pairResult.Result.Outcome)
	return result, nil
}
