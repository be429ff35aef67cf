package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"job-agent-core/pkg/models"
	"job-agent-core/pkg/utils"
)

// statusForError maps the pipeline error taxonomy onto HTTP status codes.
func statusForError(err error) (int, string) {
	var ce *utils.CustomError
	if !errors.As(err, &ce) {
		return http.StatusInternalServerError, "internal_error"
	}

	switch ce.Kind {
	case utils.KindValidation:
		return http.StatusBadRequest, "validation_failed"
	case utils.KindNoCV:
		return http.StatusConflict, "cv_missing"
	case utils.KindAlreadyRunning:
		return http.StatusConflict, "run_already_active"
	case utils.KindTimeout:
		return http.StatusGatewayTimeout, "scrape_timeout"
	case utils.KindTransport:
		return http.StatusBadGateway, "broker_unavailable"
	case utils.KindEvaluation:
		return http.StatusBadGateway, "evaluation_failed"
	case utils.KindCancelled:
		return http.StatusConflict, "run_cancelled"
	case utils.KindPersistence:
		return http.StatusInternalServerError, "persistence_failed"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func errorJSON(c echo.Context, requestID string, err error) error {
	status, code := statusForError(err)
	return c.JSON(status, models.ErrorResponse{
		Error:     code,
		Message:   err.Error(),
		RequestID: requestID,
		Timestamp: time.Now(),
	})
}

func requestID(c echo.Context) string {
	if id, ok := c.Get("request_id").(string); ok && id != "" {
		return id
	}
	return utils.GenerateRequestID()
}
