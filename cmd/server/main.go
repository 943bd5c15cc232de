package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/airmood/go-exposure-timeline/pkg/config"
	"github.com/airmood/go-exposure-timeline/pkg/http"
	"github.com/airmood/go-exposure-timeline/pkg/temporal"
)

func main() {
	var (
		configPath   = flag.String("config", "", "Path to YAML config file")
		httpAddr     = flag.String("http-addr", ":8080", "HTTP server address")
		temporalAddr = flag.String("temporal-addr", "localhost:7233", "Temporal server address")
		namespace    = flag.String("namespace", "default", "Temporal namespace")
		taskQueue    = flag.String("task-queue", temporal.DefaultTaskQueue, "Temporal task queue")
		logLevel     = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Explicitly set flags win over the file and the environment
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "http-addr":
			cfg.HTTP.Address = *httpAddr
		case "temporal-addr":
			cfg.Temporal.Address = *temporalAddr
		case "namespace":
			cfg.Temporal.Namespace = *namespace
		case "task-queue":
			cfg.Temporal.TaskQueue = *taskQueue
		case "log-level":
			cfg.Logging.Level = *logLevel
		}
	})

	// Setup logger
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var logHandler slog.Handler
	if cfg.Logging.Format == "json" {
		logHandler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		logHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	logger.Info("Starting exposure timeline service",
		"http_addr", cfg.HTTP.Address,
		"temporal_addr", cfg.Temporal.Address,
		"namespace", cfg.Temporal.Namespace,
		"task_queue", cfg.Temporal.TaskQueue,
	)

	// Create Temporal client
	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.Address,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		logger.Error("Failed to create Temporal client", "error", err)
		os.Exit(1)
	}
	defer temporalClient.Close()

	// In-memory study store; swap for a persistent backend in production
	store := temporal.NewMemoryStudyStore()

	// Create activities
	activities := temporal.NewActivitiesImpl(logger, store)

	// Create and start Temporal worker
	w := worker.New(temporalClient, cfg.Temporal.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     cfg.Worker.MaxConcurrentActivities,
		MaxConcurrentWorkflowTaskExecutionSize: cfg.Worker.MaxConcurrentWorkflows,
	})

	// Register workflows. The correlation child workflow runs under its
	// wire name so parents can start it by string.
	w.RegisterWorkflow(temporal.IngestionWorkflow)
	w.RegisterWorkflow(temporal.AnalysisWorkflow)
	w.RegisterWorkflowWithOptions(temporal.CorrelationPairWorkflow, workflow.RegisterOptions{
		Name: temporal.CorrelationPairWorkflowName,
	})

	// Register activities
	w.RegisterActivity(activities.AppendSamplesActivity)
	w.RegisterActivity(activities.AppendMoodRecordsActivity)
	w.RegisterActivity(activities.LoadSamplesActivity)
	w.RegisterActivity(activities.LoadMoodRecordsActivity)
	w.RegisterActivity(activities.EnrichSamplesActivity)
	w.RegisterActivity(activities.ComposeMoodActivity)
	w.RegisterActivity(activities.SummarizeMovementActivity)
	w.RegisterActivity(activities.AggregateWindowsActivity)
	w.RegisterActivity(activities.AlignSeriesActivity)
	w.RegisterActivity(activities.CorrelatePairActivity)
	w.RegisterActivity(activities.CorrelatePairsActivity)
	w.RegisterActivity(activities.CorrelateWindowedActivity)

	// Start worker in background
	go func() {
		logger.Info("Starting Temporal worker", "task_queue", cfg.Temporal.TaskQueue)
		if err := w.Run(worker.InterruptCh()); err != nil {
			logger.Error("Temporal worker failed", "error", err)
			os.Exit(1)
		}
	}()

	// Create and start HTTP server
	server := http.NewServer(logger, temporalClient, cfg.HTTP.Address, cfg.Temporal.TaskQueue)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start server in background
	go func() {
		if err := server.Start(ctx); err != nil {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	logger.Info("Received shutdown signal, stopping services...")

	// Cancel context to stop HTTP server
	cancel()

	logger.Info("Exposure timeline service stopped")
}
