package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"job-agent-core/pkg/models"
	"job-agent-core/pkg/utils"
)

// maxRequestBody bounds POST payloads; CV uploads are text and fit well
// within this.
const maxRequestBody = 2 * 1024 * 1024

// RequestValidation middleware tags every request with an id and rejects
// oversized bodies before binding.
func RequestValidation() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := utils.GenerateRequestID()
			c.Set("request_id", requestID)
			c.Response().Header().Set("X-Request-ID", requestID)

			if c.Request().Method == http.MethodPost {
				if c.Request().ContentLength > maxRequestBody {
					return c.JSON(http.StatusRequestEntityTooLarge, models.ErrorResponse{
						Error:     "request_too_large",
						Message:   "Request body too large",
						RequestID: requestID,
						Timestamp: time.Now(),
					})
				}
			}

			return next(c)
		}
	}
}
