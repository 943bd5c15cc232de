package http

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	sdkMocks "go.temporal.io/sdk/mocks"

	"github.com/airmood/go-exposure-timeline/pkg/exposure"
	"github.com/airmood/go-exposure-timeline/pkg/hcl"
	"github.com/airmood/go-exposure-timeline/pkg/temporal"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func analysisResultFixture() *temporal.AnalysisResult {
	return &temporal.AnalysisResult{
		StudyID:     "aq-2025",
		Granularity: exposure.Week,
		SampleCount: 6,
		MoodCount:   3,
		Correlations: []exposure.PairResult{
			{
				Pair: exposure.SeriesPair{Pollutant: "pm2_5", Axis: "positive"},
				Result: exposure.CorrelationResult{
					Outcome:     exposure.OutcomeDefined,
					Coefficient: 0.82,
					PValue:      0.044,
					N:           6,
				},
			},
		},
	}
}

// Test analyze handler with HCL content
func TestServer_handleAnalyze_HCL(t *testing.T) {
	// Setup mock temporal client
	mockClient := new(sdkMocks.Client)
	logger := testLogger()
	server := NewServer(logger, mockClient, ":8080", temporal.DefaultTaskQueue)

	// Setup mock responses
	mockWorkflowRun := new(sdkMocks.WorkflowRun)
	analysisResult := analysisResultFixture()
	mockWorkflowRun.On("Get", mock.Anything, mock.AnythingOfType("**temporal.AnalysisResult")).
		Run(func(args mock.Arguments) {
			// Set the result pointer
			result := args[1].(**temporal.AnalysisResult)
			*result = analysisResult
		}).
		Return(nil)

	// Setup mock ExecuteWorkflow with correct argument matching
	mockClient.On("ExecuteWorkflow",
		mock.Anything,
		mock.AnythingOfType("StartWorkflowOptions"),
		mock.AnythingOfType("func(internal.Context, temporal.AnalysisRequest) (*temporal.AnalysisResult, error)"),
		mock.MatchedBy(func(req temporal.AnalysisRequest) bool {
			// Verify that the request was parsed correctly from HCL and
			// that the path component overrode the document's study_id
			return req.StudyID == "aq-2025" &&
				req.Granularity == "week" &&
				req.Profile == "coarse" &&
				req.MovementFilter == "Walking" &&
				len(req.Pairs) == 2 &&
				req.Pairs[0] == exposure.SeriesPair{Pollutant: "pm2_5", Axis: "positive"} &&
				req.Pairs[1] == exposure.SeriesPair{Pollutant: "pm10", Axis: "negative"} &&
				req.TimeRange != nil
		}),
	).Return(mockWorkflowRun, nil)

	// Create HCL request body
	hclBody := `
	# Weekly walking-only analysis
	study_id    = "someone-elses-study"
	granularity = "week"

	movement {
		profile = "coarse"
		filter  = "Walking"
	}

	pair {
		pollutant = "pm2_5"
		axis      = "positive"
	}

	pair {
		pollutant = "pm10"
		axis      = "negative"
	}

	time_range {
		start = timestamp("2025-03-01T00:00:00Z")
		end   = timestamp("2025-03-31T23:59:59Z")
	}
	`

	// Create request
	req := httptest.NewRequest("POST", "/studies/aq-2025/analyze", bytes.NewBufferString(hclBody))
	req.Header.Set("Content-Type", hcl.ContentTypeHCL)
	rr := httptest.NewRecorder()

	// Set up ServeMux for proper path parameter handling
	mux := http.NewServeMux()
	mux.HandleFunc("POST /studies/{id}/analyze", server.handleAnalyze)
	mux.ServeHTTP(rr, req)

	// Verify response
	require.Equal(t, http.StatusOK, rr.Code)

	var response temporal.AnalysisResult
	err := json.Unmarshal(rr.Body.Bytes(), &response)
	require.NoError(t, err)

	assert.Equal(t, "aq-2025", response.StudyID)
	assert.Equal(t, exposure.Week, response.Granularity)
	require.Len(t, response.Correlations, 1)
	assert.Equal(t, exposure.OutcomeDefined, response.Correlations[0].Result.Outcome)
	assert.InDelta(t, 0.82, response.Correlations[0].Result.Coefficient, 1e-9)

	mockClient.AssertExpectations(t)
	mockWorkflowRun.AssertExpectations(t)
}

// Test analyze handler with explicit JSON content
func TestServer_handleAnalyze_ExplicitJSON(t *testing.T) {
	mockClient := new(sdkMocks.Client)
	logger := testLogger()
	server := NewServer(logger, mockClient, ":8080", temporal.DefaultTaskQueue)

	mockWorkflowRun := new(sdkMocks.WorkflowRun)
	analysisResult := analysisResultFixture()
	mockWorkflowRun.On("Get", mock.Anything, mock.AnythingOfType("**temporal.AnalysisResult")).
		Run(func(args mock.Arguments) {
			result := args[1].(**temporal.AnalysisResult)
			*result = analysisResult
		}).
		Return(nil)

	mockClient.On("ExecuteWorkflow",
		mock.Anything,
		mock.AnythingOfType("StartWorkflowOptions"),
		mock.AnythingOfType("func(internal.Context, temporal.AnalysisRequest) (*temporal.AnalysisResult, error)"),
		mock.MatchedBy(func(req temporal.AnalysisRequest) bool {
			return req.StudyID == "aq-2025" && req.Granularity == "week"
		}),
	).Return(mockWorkflowRun, nil)

	jsonBody := `{"granularity": "week"}`
	req := httptest.NewRequest("POST", "/studies/aq-2025/analyze", bytes.NewBufferString(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /studies/{id}/analyze", server.handleAnalyze)
	mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var response temporal.AnalysisResult
	err := json.Unmarshal(rr.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, 6, response.SampleCount)

	mockClient.AssertExpectations(t)
	mockWorkflowRun.AssertExpectations(t)
}

// Test analyze handler with HCL body but no Content-Type header
func TestServer_handleAnalyze_SniffedHCL(t *testing.T) {
	mockClient := new(sdkMocks.Client)
	logger := testLogger()
	server := NewServer(logger, mockClient, ":8080", temporal.DefaultTaskQueue)

	mockWorkflowRun := new(sdkMocks.WorkflowRun)
	analysisResult := analysisResultFixture()
	mockWorkflowRun.On("Get", mock.Anything, mock.AnythingOfType("**temporal.AnalysisResult")).
		Run(func(args mock.Arguments) {
			result := args[1].(**temporal.AnalysisResult)
			*result = analysisResult
		}).
		Return(nil)

	mockClient.On("ExecuteWorkflow",
		mock.Anything,
		mock.AnythingOfType("StartWorkflowOptions"),
		mock.AnythingOfType("func(internal.Context, temporal.AnalysisRequest) (*temporal.AnalysisResult, error)"),
		mock.MatchedBy(func(req temporal.AnalysisRequest) bool {
			// Body sniffing must still land on the HCL parser
			return req.StudyID == "aq-2025" && req.Granularity == "day" && req.IncludeWindowed
		}),
	).Return(mockWorkflowRun, nil)

	hclBody := "study_id = \"aq-2025\"\ngranularity = \"day\"\nwindowed = true\n"
	req := httptest.NewRequest("POST", "/studies/aq-2025/analyze", bytes.NewBufferString(hclBody))
	rr := httptest.NewRecorder()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /studies/{id}/analyze", server.handleAnalyze)
	mux.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	mockClient.AssertExpectations(t)
	mockWorkflowRun.AssertExpectations(t)
}

// Test analyze handler with malformed HCL
func TestServer_handleAnalyze_InvalidHCL(t *testing.T) {
	mockClient := new(sdkMocks.Client)
	logger := testLogger()
	server := NewServer(logger, mockClient, ":8080", temporal.DefaultTaskQueue)

	hclBody := `study_id = `
	req := httptest.NewRequest("POST", "/studies/aq-2025/analyze", bytes.NewBufferString(hclBody))
	req.Header.Set("Content-Type", hcl.ContentTypeHCL)
	rr := httptest.NewRecorder()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /studies/{id}/analyze", server.handleAnalyze)
	mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)

	var response map[string]string
	err := json.Unmarshal(rr.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Contains(t, response["error"], "invalid HCL body")

	// No workflow may start on a bad document
	mockClient.AssertNotCalled(t, "ExecuteWorkflow")
}
