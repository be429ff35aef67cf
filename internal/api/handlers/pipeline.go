package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"job-agent-core/internal/logging"
	"job-agent-core/internal/pipeline"
	"job-agent-core/pkg/models"
)

// SearchHandler runs the complete pipeline for a user and blocks until the
// run reaches a terminal state. Terminal failures that still produced a
// summary (timeout, scraper failure, cancellation) return the run response
// with the mapped status code so the caller sees counts alongside the error.
func SearchHandler(orch *pipeline.Orchestrator) echo.HandlerFunc {
	return func(c echo.Context) error {
		startTime := time.Now()
		reqID := requestID(c)
		logger := logging.GetGlobalLogger()

		var req models.PipelineSearchRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:     "invalid_request",
				Message:   "Invalid request format",
				RequestID: reqID,
				Timestamp: time.Now(),
			})
		}

		if err := validate.Struct(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:     "validation_failed",
				Message:   err.Error(),
				RequestID: reqID,
				Timestamp: time.Now(),
			})
		}

		logger.Info("Pipeline search received", map[string]interface{}{
			"request_id":      reqID,
			"user_id":         req.UserID,
			"min_salary":      req.Criteria.MinSalary,
			"employment_type": req.Criteria.EmploymentType,
		})

		summary, err := orch.RunCompletePipeline(c.Request().Context(), req.UserID, req.Criteria)
		if err != nil {
			if summary == nil {
				return errorJSON(c, reqID, err)
			}

			status, _ := statusForError(err)
			return c.JSON(status, models.PipelineRunResponse{
				UserID:         req.UserID,
				State:          orch.GetStatus(req.UserID),
				Summary:        summary,
				Error:          err.Error(),
				ProcessingTime: time.Since(startTime),
				RequestID:      reqID,
			})
		}

		return c.JSON(http.StatusOK, models.PipelineRunResponse{
			UserID:         req.UserID,
			State:          orch.GetStatus(req.UserID),
			Summary:        summary,
			ProcessingTime: time.Since(startTime),
			RequestID:      reqID,
		})
	}
}

// CancelHandler aborts the user's active run.
func CancelHandler(orch *pipeline.Orchestrator) echo.HandlerFunc {
	return func(c echo.Context) error {
		reqID := requestID(c)

		var req models.CancelRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:     "invalid_request",
				Message:   "Invalid request format",
				RequestID: reqID,
				Timestamp: time.Now(),
			})
		}

		if err := validate.Struct(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:     "validation_failed",
				Message:   err.Error(),
				RequestID: reqID,
				Timestamp: time.Now(),
			})
		}

		if err := orch.Cancel(req.UserID); err != nil {
			return errorJSON(c, reqID, err)
		}

		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":     "cancellation_requested",
			"user_id":    req.UserID,
			"request_id": reqID,
		})
	}
}

// StatusHandler reports the state of the user's most recent run.
func StatusHandler(orch *pipeline.Orchestrator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID := c.Param("user_id")
		if userID == "" {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:     "validation_failed",
				Message:   "user_id path parameter is required",
				RequestID: requestID(c),
				Timestamp: time.Now(),
			})
		}

		return c.JSON(http.StatusOK, models.StatusResponse{
			UserID: userID,
			State:  orch.GetStatus(userID),
		})
	}
}
