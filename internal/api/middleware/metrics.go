package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestRecorder receives one observation per handled request.
type RequestRecorder interface {
	RecordRequest(method, path string, status int, seconds float64)
}

// NewMetrics records method, route template, status and latency of each request.
// Unmatched routes are recorded under "unmatched" to bound label cardinality.
func NewMetrics(rec RequestRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if rec == nil {
				return next(c)
			}

			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				} else if !c.Response().Committed {
					status = http.StatusInternalServerError
				}
			}

			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			rec.RecordRequest(c.Request().Method, path, status, time.Since(start).Seconds())
			return err
		}
	}
}
