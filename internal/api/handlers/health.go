package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"job-agent-core/internal/background"
	"job-agent-core/internal/evaluator"
	"job-agent-core/internal/pipeline"
	"job-agent-core/pkg/models"
)

var startTime = time.Now()

const version = "1.0.0"

// HealthHandler handles health check requests
func HealthHandler(c echo.Context) error {
	response := models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   version,
		Uptime:    time.Since(startTime),
		Checks: map[string]string{
			"api": "ok",
		},
	}

	return c.JSON(http.StatusOK, response)
}

// ReadinessHandler reports whether the service can accept pipeline runs.
func ReadinessHandler(evalManager *evaluator.Manager, taskManager background.TaskManager) echo.HandlerFunc {
	return func(c echo.Context) error {
		checks := map[string]string{"api": "ok"}
		status := "ready"
		code := http.StatusOK

		if evalManager != nil {
			if evalManager.IsHealthy() {
				checks["evaluator"] = "ok"
			} else {
				checks["evaluator"] = "unavailable"
				status = "degraded"
			}
		}

		if taskManager != nil {
			if taskManager.IsHealthy() {
				checks["tasks"] = "ok"
			} else {
				checks["tasks"] = "unavailable"
				status = "degraded"
			}
		}

		return c.JSON(code, models.HealthResponse{
			Status:    status,
			Timestamp: time.Now(),
			Version:   version,
			Uptime:    time.Since(startTime),
			Checks:    checks,
		})
	}
}

// LivenessHandler handles liveness probe requests
func LivenessHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, models.HealthResponse{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   version,
		Uptime:    time.Since(startTime),
	})
}

// RunsHandler reports the number of active pipeline runs.
func RunsHandler(orch *pipeline.Orchestrator) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"active_runs": orch.ActiveRuns(),
			"timestamp":   time.Now(),
		})
	}
}
