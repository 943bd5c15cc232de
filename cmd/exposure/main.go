package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"go.temporal.io/sdk/client"

	"github.com/airmood/go-exposure-timeline/pkg/exposure"
	"github.com/airmood/go-exposure-timeline/pkg/hcl"
	"github.com/airmood/go-exposure-timeline/pkg/temporal"
)

func main() {
	// Set up logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Define command line flags
	var (
		path        string
		address     string
		namespace   string
		taskQueue   string
		displayJSON bool
		mode        string // "analyze" or "ingest"
		samplesPath string
		moodPath    string
	)

	flag.StringVar(&path, "path", "", "Path to HCL analysis file or directory (required)")
	flag.StringVar(&address, "address", "localhost:7233", "Address of Temporal server")
	flag.StringVar(&namespace, "namespace", "default", "Temporal namespace")
	flag.StringVar(&taskQueue, "task-queue", temporal.DefaultTaskQueue, "Temporal task queue")
	flag.BoolVar(&displayJSON, "json", false, "Display results as JSON")
	flag.StringVar(&mode, "mode", "analyze", "Operation mode: 'analyze' or 'ingest'")
	flag.StringVar(&samplesPath, "samples", "", "JSON file with trajectory sample rows (ingest mode)")
	flag.StringVar(&moodPath, "mood", "", "JSON file with mood self-report rows (ingest mode)")
	flag.Parse()

	// Validate required parameters
	if path == "" {
		logger.Error("Path parameter is required")
		flag.Usage()
		os.Exit(1)
	}

	if mode != "analyze" && mode != "ingest" {
		logger.Error("Mode must be either 'analyze' or 'ingest'")
		os.Exit(1)
	}

	// Both modes start from the analysis document: analyze runs it, ingest
	// takes the study ID and the tolerant_timestamps setting from it
	config, err := loadAnalysisConfig(path, logger)
	if err != nil {
		logger.Error("Failed to load analysis document", "error", err)
		os.Exit(1)
	}

	if config.Request.StudyID == "" {
		logger.Error("Analysis document does not name a study_id")
		os.Exit(1)
	}

	// Create Temporal client
	c, err := client.Dial(client.Options{
		HostPort:  address,
		Namespace: namespace,
	})
	if err != nil {
		logger.Error("Unable to create Temporal client", "error", err)
		os.Exit(1)
	}
	defer c.Close()

	ctx := context.Background()

	if mode == "ingest" {
		if samplesPath == "" && moodPath == "" {
			logger.Error("Ingest mode needs -samples and/or -mood")
			os.Exit(1)
		}
		if err := processIngest(ctx, c, config, taskQueue, samplesPath, moodPath, logger); err != nil {
			logger.Error("Ingestion failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := processAnalysis(ctx, c, config, taskQueue, displayJSON, logger); err != nil {
		logger.Error("Analysis failed", "error", err)
		os.Exit(1)
	}
}

// loadAnalysisConfig reads one HCL file or merges a directory of them
func loadAnalysisConfig(path string, logger *slog.Logger) (*hcl.AnalysisConfig, error) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to access path: %w", err)
	}

	if fileInfo.IsDir() {
		logger.Info("Merging analysis directory", "path", path)
		return hcl.ParseHCLDirectory(path)
	}

	if !hcl.IsHCLBasedOnExtension(path) {
		return nil, fmt.Errorf("file %s does not have an HCL extension", path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return hcl.ParseHCLAnalysis(content)
}

// processIngest queues data files into the study's ingestion workflow
func processIngest(ctx context.Context, c client.Client, config *hcl.AnalysisConfig, taskQueue, samplesPath, moodPath string, logger *slog.Logger) error {
	studyID := config.Request.StudyID
	options := exposure.ParseOptions{Tolerant: config.Tolerant}
	workflowID := temporal.GenerateIngestionWorkflowID(studyID)

	startOptions := client.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: taskQueue,
	}

	if samplesPath != "" {
		rows, err := readRows(samplesPath)
		if err != nil {
			return err
		}

		logger.Info("Queueing sample batch",
			"study_id", studyID, "rows", len(rows), "tolerant", options.Tolerant)

		signal := temporal.SampleSignal{Rows: rows, Options: options}
		_, err = c.SignalWithStartWorkflow(ctx, workflowID, temporal.SampleSignalName, signal,
			startOptions, temporal.IngestionWorkflow, studyID)
		if err != nil {
			return fmt.Errorf("failed to signal sample batch: %w", err)
		}
	}

	if moodPath != "" {
		rows, err := readRows(moodPath)
		if err != nil {
			return err
		}

		logger.Info("Queueing mood batch",
			"study_id", studyID, "rows", len(rows), "tolerant", options.Tolerant)

		signal := temporal.MoodSignal{Rows: rows, Options: options}
		_, err = c.SignalWithStartWorkflow(ctx, workflowID, temporal.MoodSignalName, signal,
			startOptions, temporal.IngestionWorkflow, studyID)
		if err != nil {
			return fmt.Errorf("failed to signal mood batch: %w", err)
		}
	}

	logger.Info("Batches queued; run analyze mode once ingestion settles")
	return nil
}

// readRows loads a JSON array of row objects as raw bytes
func readRows(path string) ([][]byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(content, &rows); err != nil {
		return nil, fmt.Errorf("%s is not a JSON array of rows: %w", path, err)
	}

	raw := make([][]byte, len(rows))
	for i, row := range rows {
		raw[i] = []byte(row)
	}
	return raw, nil
}

// processAnalysis executes the analysis workflow and displays the result
func processAnalysis(ctx context.Context, c client.Client, config *hcl.AnalysisConfig, taskQueue string, jsonOutput bool, logger *slog.Logger) error {
	request := config.Request
	workflowID := temporal.GenerateAnalysisWorkflowID(request.StudyID)

	logger.Info("Executing analysis",
		"study_id", request.StudyID,
		"pairs", len(request.Pairs))

	options := client.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: taskQueue,
	}

	run, err := c.ExecuteWorkflow(ctx, options, temporal.AnalysisWorkflow, request)
	if err != nil {
		return fmt.Errorf("failed to execute analysis workflow: %w", err)
	}

	var result temporal.AnalysisResult
	if err := run.Get(ctx, &result); err != nil {
		return fmt.Errorf("failed to get analysis result: %w", err)
	}

	// Display the result
	displayResult(result, jsonOutput, logger)

	return nil
}

// displayResult shows the analysis result in human-readable or JSON format
func displayResult(result temporal.AnalysisResult, jsonOutput bool, logger *slog.Logger) {
	if jsonOutput {
		// Output as JSON
		resultJSON, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			logger.Error("Failed to marshal result to JSON", "error", err)
			fmt.Printf("%+v\n", result)
		} else {
			fmt.Println(string(resultJSON))
		}
		return
	}

	// Output in human-readable format
	fmt.Println("Analysis Result:")
	fmt.Printf("  Study: %s\n", result.StudyID)
	fmt.Printf("  Granularity: %s\n", result.Granularity)
	fmt.Printf("  Samples: %d, mood records: %d\n", result.SampleCount, result.MoodCount)

	if len(result.Movement) > 0 {
		fmt.Println("  Movement:")
		for _, summary := range result.Movement {
			fmt.Printf("    %s: %d samples (%.1f%%), mean speed %.3f\n",
				summary.Class, summary.Count, summary.Share*100, summary.MeanSpeed)
		}
	}

	fmt.Printf("  Aligned windows: %d\n", len(result.Aligned))

	if len(result.Correlations) > 0 {
		fmt.Println("  Correlations:")
		for _, pair := range result.Correlations {
			fmt.Printf("    %s vs %s: %s\n",
				pair.Pair.Pollutant, pair.Pair.Axis, formatCorrelation(pair.Result))
		}
	}

	if len(result.Windowed) > 0 {
		fmt.Println("  Windowed correlations:")
		for _, windowed := range result.Windowed {
			fmt.Printf("    %s  %s vs %s: %s\n",
				windowed.Window.Start.Format("2006-01-02"),
				windowed.Pair.Pollutant, windowed.Pair.Axis, formatCorrelation(windowed.Result))
		}
	}

	fmt.Printf("  Execution time: %s\n", result.ExecutionTime)
}

// formatCorrelation renders one correlation outcome
func formatCorrelation(result exposure.CorrelationResult) string {
	if !result.Defined() {
		return fmt.Sprintf("undefined (%s, N=%d)", result.Outcome, result.N)
	}
	return fmt.Sprintf("r=%.4f p=%.4f (N=%d)", result.Coefficient, result.PValue, result.N)
}
