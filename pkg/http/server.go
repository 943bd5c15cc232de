package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"go.temporal.io/sdk/client"

	"github.com/airmood/go-exposure-timeline/pkg/exposure"
	"github.com/airmood/go-exposure-timeline/pkg/hcl"
	"github.com/airmood/go-exposure-timeline/pkg/temporal"
)

// Server represents the HTTP server for the exposure service
type Server struct {
	logger         *slog.Logger
	temporalClient client.Client
	addr           string
	taskQueue      string
}

// NewServer creates a new HTTP server that starts workflows on the given
// task queue
func NewServer(logger *slog.Logger, temporalClient client.Client, addr, taskQueue string) *Server {
	return &Server{
		logger:         logger,
		temporalClient: temporalClient,
		addr:           addr,
		taskQueue:      taskQueue,
	}
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()

	// Register routes
	mux.HandleFunc("POST /studies/{id}/samples", s.handleIngestSamples)
	mux.HandleFunc("POST /studies/{id}/mood", s.handleIngestMood)
	mux.HandleFunc("POST /studies/{id}/analyze", s.handleAnalyze)
	mux.HandleFunc("GET /health", s.handleHealth)

	// Add middleware
	handler := s.loggingMiddleware(mux)

	server := &http.Server{
		Addr:    s.addr,
		Handler: handler,
	}

	s.logger.Info("Starting HTTP server", "addr", s.addr)

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	// Wait for context cancellation or server error
	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

// Trajectory sample ingestion endpoint
func (s *Server) handleIngestSamples(w http.ResponseWriter, r *http.Request) {
	studyID := r.PathValue("id")
	if studyID == "" {
		s.respondError(w, http.StatusBadRequest, "study ID is required")
		return
	}

	rows, options, err := decodeRows(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.logger.Info("Ingesting samples", "studyID", studyID, "count", len(rows), "tolerant", options.Tolerant)

	// Use SignalWithStart so the first batch creates the study's workflow
	workflowID := temporal.GenerateIngestionWorkflowID(studyID)
	signal := temporal.SampleSignal{
		Rows:    rows,
		Options: options,
	}

	_, err = s.temporalClient.SignalWithStartWorkflow(
		r.Context(),
		workflowID,
		temporal.SampleSignalName,
		signal,
		client.StartWorkflowOptions{
			ID:        workflowID,
			TaskQueue: s.taskQueue,
		},
		temporal.IngestionWorkflow,
		studyID,
	)

	if err != nil {
		s.logger.Error("Failed to signal workflow", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to queue samples")
		return
	}

	s.respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"message":   "samples queued for ingestion",
		"study_id":  studyID,
		"row_count": len(rows),
	})
}

// Mood self-report ingestion endpoint
func (s *Server) handleIngestMood(w http.ResponseWriter, r *http.Request) {
	studyID := r.PathValue("id")
	if studyID == "" {
		s.respondError(w, http.StatusBadRequest, "study ID is required")
		return
	}

	rows, options, err := decodeRows(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.logger.Info("Ingesting mood records", "studyID", studyID, "count", len(rows), "tolerant", options.Tolerant)

	workflowID := temporal.GenerateIngestionWorkflowID(studyID)
	signal := temporal.MoodSignal{
		Rows:    rows,
		Options: options,
	}

	_, err = s.temporalClient.SignalWithStartWorkflow(
		r.Context(),
		workflowID,
		temporal.MoodSignalName,
		signal,
		client.StartWorkflowOptions{
			ID:        workflowID,
			TaskQueue: s.taskQueue,
		},
		temporal.IngestionWorkflow,
		studyID,
	)

	if err != nil {
		s.logger.Error("Failed to signal workflow", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to queue mood records")
		return
	}

	s.respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"message":   "mood records queued for ingestion",
		"study_id":  studyID,
		"row_count": len(rows),
	})
}

// Analysis endpoint; accepts the request as JSON or HCL
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	studyID := r.PathValue("id")
	if studyID == "" {
		s.respondError(w, http.StatusBadRequest, "study ID is required")
		return
	}

	request, err := s.decodeAnalysisRequest(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	// The path owns the study ID
	request.StudyID = studyID

	s.logger.Info("Starting analysis", "studyID", studyID, "pairs", len(request.Pairs))

	workflowID := temporal.GenerateAnalysisWorkflowID(studyID)

	workflowRun, err := s.temporalClient.ExecuteWorkflow(
		r.Context(),
		client.StartWorkflowOptions{
			ID:        workflowID,
			TaskQueue: s.taskQueue,
		},
		temporal.AnalysisWorkflow,
		request,
	)

	if err != nil {
		s.logger.Error("Failed to start analysis workflow", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to start analysis")
		return
	}

	// Wait for result
	var result *temporal.AnalysisResult
	err = workflowRun.Get(r.Context(), &result)
	if err != nil {
		s.logger.Error("Analysis workflow failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, "analysis execution failed")
		return
	}

	s.logger.Info("Analysis completed", "studyID", studyID, "correlations", len(result.Correlations))
	s.respondJSON(w, http.StatusOK, result)
}

// Health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// decodeRows reads a JSON array of raw rows plus the ingestion options
// carried as query parameters
func decodeRows(r *http.Request) ([][]byte, exposure.ParseOptions, error) {
	var rows []json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
		return nil, exposure.ParseOptions{}, fmt.Errorf("invalid JSON body")
	}

	if len(rows) == 0 {
		return nil, exposure.ParseOptions{}, fmt.Errorf("at least one row is required")
	}

	raw := make([][]byte, len(rows))
	for i, row := range rows {
		raw[i] = []byte(row)
	}

	options := exposure.ParseOptions{
		TimeLayout: r.URL.Query().Get("time_layout"),
	}
	if tolerant := r.URL.Query().Get("tolerant"); tolerant != "" {
		value, err := strconv.ParseBool(tolerant)
		if err != nil {
			return nil, exposure.ParseOptions{}, fmt.Errorf("invalid tolerant flag %q", tolerant)
		}
		options.Tolerant = value
	}

	return raw, options, nil
}

// decodeAnalysisRequest decodes the analysis request body in whichever
// format the client sent
func (s *Server) decodeAnalysisRequest(r *http.Request) (temporal.AnalysisRequest, error) {
	var request temporal.AnalysisRequest

	contentType, err := hcl.DetectContentType(r)
	if err != nil {
		return request, fmt.Errorf("unreadable request body")
	}

	if contentType == hcl.ContentTypeHCL {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return request, fmt.Errorf("unreadable request body")
		}

		config, err := hcl.ParseHCLAnalysis(body)
		if err != nil {
			return request, fmt.Errorf("invalid HCL body: %v", err)
		}

		return config.Request, nil
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		return request, fmt.Errorf("invalid JSON body")
	}

	return request, nil
}

// Middleware for request logging
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap ResponseWriter to capture status code
		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)

		s.logger.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapper.statusCode,
			"duration", duration,
			"user_agent", r.UserAgent(),
		)
	})
}

// Response helpers
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode JSON response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.logger.Warn("HTTP error response", "status", status, "message", message)
	s.respondJSON(w, status, map[string]string{"error": message})
}

// responseWrapper wraps http.ResponseWriter to capture status code
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
