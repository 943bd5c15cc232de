package temporal

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/testsuite"

	"github.com/airmood/go-exposure-timeline/pkg/exposure"
)

type ProcessingModesTestSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite
}

func TestProcessingModesTestSuite(t *testing.T) {
	suite.Run(t, new(ProcessingModesTestSuite))
}

func (s *ProcessingModesTestSuite) runAnalysis(request AnalysisRequest) *AnalysisResult {
	store := NewMemoryStudyStore()
	seedAnalysisStudy(s.T(), store, request.StudyID)
	env := newAnalysisEnv(store)

	var result *AnalysisResult
	env.ExecuteWorkflow(AnalysisWorkflow, request)

	s.Require().True(env.IsWorkflowCompleted())
	s.Require().NoError(env.GetWorkflowError())
	s.Require().NoError(env.GetWorkflowResult(&result))
	return result
}

// Every processing mode is a different dispatch strategy over the same
// correlation grid, so they must all produce identical numbers
func (s *ProcessingModesTestSuite) TestModesAgree() {
	baseline := s.runAnalysis(AnalysisRequest{StudyID: "aq-2025", ProcessingMode: ProcessingModeSingle})
	s.Require().Len(baseline.Correlations, 4)

	otherModes := []string{ProcessingModeConcurrent, ProcessingModeIsolated, ProcessingModeAuto, ""}
	for _, mode := range otherModes {
		result := s.runAnalysis(AnalysisRequest{StudyID: "aq-2025", ProcessingMode: mode})
		s.Require().Len(result.Correlations, len(baseline.Correlations), "mode %q", mode)

		for i, c := range result.Correlations {
			want := baseline.Correlations[i]
			s.Equal(want.Pair, c.Pair, "mode %q", mode)
			s.Equal(want.Result.Outcome, c.Result.Outcome, "mode %q", mode)
			s.InDelta(want.Result.Coefficient, c.Result.Coefficient, 1e-9, "mode %q", mode)
			s.InDelta(want.Result.PValue, c.Result.PValue, 1e-9, "mode %q", mode)
			s.Equal(want.Result.N, c.Result.N, "mode %q", mode)
		}
	}
}

func (s *ProcessingModesTestSuite) TestConcurrentSinglePair() {
	request := AnalysisRequest{
		StudyID:        "aq-2025",
		ProcessingMode: ProcessingModeConcurrent,
		Pairs:          []exposure.SeriesPair{{Pollutant: exposure.ColumnPM10, Axis: exposure.ColumnNegative}},
	}
	result := s.runAnalysis(request)

	s.Require().Len(result.Correlations, 1)
	c := result.Correlations[0]
	s.Equal(exposure.ColumnPM10, c.Pair.Pollutant)
	s.Require().Equal(exposure.OutcomeDefined, c.Result.Outcome)
	s.InDelta(-1.0, c.Result.Coefficient, 1e-9)
	s.Equal(3, c.Result.N)
}

// Isolated mode fans out one child workflow per pair; the grid order must
// survive the fan-out
func (s *ProcessingModesTestSuite) TestIsolatedPreservesOrder() {
	result := s.runAnalysis(AnalysisRequest{StudyID: "aq-2025", ProcessingMode: ProcessingModeIsolated})

	s.Require().Len(result.Correlations, 4)
	wantPairs := exposure.PollutantMoodPairs(
		[]string{exposure.ColumnPM25, exposure.ColumnPM10},
		[]string{exposure.ColumnPositive, exposure.ColumnNegative},
	)
	for i, c := range result.Correlations {
		s.Equal(wantPairs[i], c.Pair)
		s.Equal(exposure.OutcomeDefined, c.Result.Outcome)
	}
}

func (s *ProcessingModesTestSuite) TestModeConstants() {
	s.Equal("single", ProcessingModeSingle)
	s.Equal("concurrent", ProcessingModeConcurrent)
	s.Equal("isolated", ProcessingModeIsolated)
	s.Equal("auto", ProcessingModeAuto)

	s.Equal("CorrelationPair", CorrelationPairWorkflowName)
	s.Equal(1000, DefaultContinueAsNewThreshold)
}
