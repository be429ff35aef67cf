package routes

import (
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"job-agent-core/internal/api/handlers"
	"job-agent-core/internal/api/middleware"
	"job-agent-core/internal/background"
	"job-agent-core/internal/config"
	"job-agent-core/internal/evaluator"
	"job-agent-core/internal/pipeline"
)

// SetupRoutes configures all API routes
func SetupRoutes(e *echo.Echo, cfg *config.Config, orch *pipeline.Orchestrator, evalManager *evaluator.Manager, taskManager background.TaskManager) {
	// Global middleware
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(middleware.CORSConfig(cfg.Server.AllowOrigins))
	e.Use(middleware.RequestValidation())

	// Pipeline runs block on scraper replies and AI calls. The publisher
	// rejects per-request timeouts above Pipeline.MaxTimeout, so that
	// ceiling plus headroom guarantees a run always reaches its own
	// deadline before the handler context is cut.
	longTimeout := cfg.Pipeline.MaxTimeout + 2*time.Minute
	e.Use(middleware.SelectiveTimeoutConfig(cfg.Server.ReadTimeout, longTimeout))

	// Health check routes
	health := e.Group("/health")
	{
		health.GET("", handlers.HealthHandler)
		health.GET("/ready", handlers.ReadinessHandler(evalManager, taskManager))
		health.GET("/live", handlers.LivenessHandler)
		health.GET("/runs", handlers.RunsHandler(orch))
	}

	// API v1 routes
	v1 := e.Group("/api/v1")
	{
		v1.POST("/cv", handlers.UploadCVHandler(orch))

		pipelineGroup := v1.Group("/pipeline")
		{
			pipelineGroup.POST("/search", handlers.SearchHandler(orch))
			pipelineGroup.POST("/cancel", handlers.CancelHandler(orch))
			pipelineGroup.GET("/status/:user_id", handlers.StatusHandler(orch))
		}

		v1.GET("/tasks", handlers.TaskListHandler(taskManager))
		v1.GET("/tasks/:id", handlers.TaskStatusHandler(taskManager))
	}
}
