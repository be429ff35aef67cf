package handlers

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"job-agent-core/internal/logging"
	"job-agent-core/internal/pipeline"
	"job-agent-core/pkg/models"
)

var validate = validator.New()

// UploadCVHandler ingests raw CV content: sanitize via the evaluator, then
// store the resulting profile for the user.
func UploadCVHandler(orch *pipeline.Orchestrator) echo.HandlerFunc {
	return func(c echo.Context) error {
		reqID := requestID(c)
		logger := logging.GetGlobalLogger()

		var req models.UploadCVRequest
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

		logger.Info("CV upload received", map[string]interface{}{
			"request_id": reqID,
			"user_id":    req.UserID,
			"length":     len(req.Content),
		})

		if err := orch.UploadCV(c.Request().Context(), req.UserID, req.Content); err != nil {
			logger.Error("CV upload failed", map[string]interface{}{
				"request_id": reqID,
				"user_id":    req.UserID,
				"error":      err.Error(),
			})
			return errorJSON(c, reqID, err)
		}

		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":     "stored",
			"user_id":    req.UserID,
			"request_id": reqID,
		})
	}
}
