package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"RapWatch/pkg/logger"
)

// RequestLogging logs one line per request: 5xx as errors, requests slower
// than slow as warnings, everything else at debug.
func RequestLogging(log *logger.Logger, slow time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			took := time.Since(start)
			fields := []logger.Field{
				logger.String("method", c.Request().Method),
				logger.String("route", routeOf(c)),
				logger.String("uri", c.Request().RequestURI),
				logger.Int("status", c.Response().Status),
				logger.Int64("bytes", c.Response().Size),
				logger.Duration("took_ms", took),
			}
			switch {
			case c.Response().Status >= 500:
				log.Error("http.request failed", append(fields, logger.Error(err))...)
			case slow > 0 && took >= slow:
				log.Warn("http.request slow", fields...)
			default:
				log.Debug("http.request", fields...)
			}
			return nil
		}
	}
}

// routeOf returns the registered route template to keep label cardinality low.
func routeOf(c echo.Context) string {
	if p := c.Path(); p != "" {
		return p
	}
	return "unmatched"
}
