package middleware

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// TimeoutConfig returns timeout middleware configuration
func TimeoutConfig(timeout time.Duration) echo.MiddlewareFunc {
	return middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: timeout,
	})
}

// SelectiveTimeoutConfig applies the default timeout to most endpoints and a
// longer one to the long-running pipeline and CV endpoints, which block on
// scraper replies and AI calls.
func SelectiveTimeoutConfig(defaultTimeout, longTimeout time.Duration) echo.MiddlewareFunc {
	isLongRunning := func(path string) bool {
		return strings.HasPrefix(path, "/api/v1/pipeline/search") ||
			strings.HasPrefix(path, "/api/v1/cv")
	}

	defaultMW := middleware.TimeoutWithConfig(middleware.TimeoutConfig{Timeout: defaultTimeout})
	longMW := middleware.TimeoutWithConfig(middleware.TimeoutConfig{Timeout: longTimeout})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if isLongRunning(c.Path()) {
				return longMW(next)(c)
			}
			return defaultMW(next)(c)
		}
	}
}
