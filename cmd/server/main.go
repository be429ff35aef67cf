package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"

	"job-agent-core/internal/api/routes"
	"job-agent-core/internal/background"
	"job-agent-core/internal/broker"
	"job-agent-core/internal/config"
	"job-agent-core/internal/correlator"
	"job-agent-core/internal/evaluator"
	"job-agent-core/internal/filter"
	"job-agent-core/internal/logging"
	"job-agent-core/internal/pipeline"
	"job-agent-core/internal/scrape"
	"job-agent-core/internal/store"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logging
	if err := logging.InitializeLogging(cfg.Logging.Level, cfg.Logging.Adapters); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.CloseLogging()

	logger := logging.GetGlobalLogger()
	logger.Info("Starting job agent core")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Broker channel shared by the publisher and the reply consumer
	channel, err := broker.NewRedisChannel(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to connect to broker", map[string]interface{}{"error": err.Error()})
	}
	defer channel.Close()

	// Correlation table with its timeout sweep
	corr := correlator.New(cfg.Pipeline.SweepInterval)
	corr.Start(ctx)

	// Scrape request publisher and reply consumer
	publisher := scrape.NewPublisher(cfg, channel, corr)
	consumer := scrape.NewConsumer(cfg, channel, corr)
	if err := consumer.Start(ctx); err != nil {
		logger.Fatal("Failed to start reply consumer", map[string]interface{}{"error": err.Error()})
	}

	// Stores
	var jobStore store.JobStore
	if cfg.Database.URL != "" {
		pgStore, err := store.NewPostgresJobStore(ctx, cfg.Database.URL)
		if err != nil {
			logger.Fatal("Failed to connect to job store", map[string]interface{}{"error": err.Error()})
		}
		defer pgStore.Close()
		jobStore = pgStore
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory job store")
		jobStore = store.NewMemoryJobStore()
	}

	cvStore, err := store.NewRedisCVStore(ctx, cfg.Redis.URL)
	if err != nil {
		logger.Fatal("Failed to connect to cv store", map[string]interface{}{"error": err.Error()})
	}
	defer cvStore.Close()

	// AI evaluator
	evalManager := evaluator.NewManager(cfg)
	if err := evalManager.Start(); err != nil {
		logger.Fatal("Failed to start evaluator manager", map[string]interface{}{"error": err.Error()})
	}

	// Background enrichment
	var taskManager background.TaskManager
	var enricher pipeline.Enricher
	if cfg.Enrichment.Enabled {
		tm := background.NewTaskManager(cfg, evalManager, jobStore)
		if err := tm.Start(ctx); err != nil {
			logger.Fatal("Failed to start task manager", map[string]interface{}{"error": err.Error()})
		}
		taskManager = tm
		enricher = tm
	}

	// Orchestrator
	orch := pipeline.NewOrchestrator(cfg, publisher, corr, filter.NewService(),
		evalManager, jobStore, cvStore, enricher)

	// HTTP server
	e := echo.New()
	e.HideBanner = true
	routes.SetupRoutes(e, cfg, orch, evalManager, taskManager)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down server...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Pipeline.ShutdownTimeout)
		defer shutdownCancel()

		if taskManager != nil {
			logger.Info("Stopping background task manager...")
			if err := taskManager.Stop(shutdownCtx); err != nil {
				logger.Error("Error stopping task manager", map[string]interface{}{"error": err.Error()})
			}
		}

		logger.Info("Stopping evaluator manager...")
		if err := evalManager.Stop(); err != nil {
			logger.Error("Error stopping evaluator manager", map[string]interface{}{"error": err.Error()})
		}

		// Cancelling the root context stops the consumer, the correlator
		// sweep and any in-flight runs.
		cancel()

		logger.Info("Stopping HTTP server...")
		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error shutting down server", map[string]interface{}{"error": err.Error()})
		}

		logger.Info("Server shutdown complete")
	}()

	// Start server
	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("Server starting", map[string]interface{}{"address": address})

	if err := e.Start(address); err != nil {
		logger.Fatal("Server failed to start", map[string]interface{}{"error": err.Error()})
	}
}
