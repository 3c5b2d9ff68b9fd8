package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"RapWatch/pkg/logger"
)

var httpPanics = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "rapwatch_http_panics_total",
	Help: "Handler panics recovered, by route",
}, []string{"route"})

// Recover turns a handler panic into a 500 envelope. A panic after the
// response was committed is only logged.
func Recover(log *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if r == http.ErrAbortHandler {
					panic(r)
				}
				route := routeOf(c)
				httpPanics.WithLabelValues(route).Inc()
				log.Error("http.panic",
					logger.String("panic", fmt.Sprint(r)),
					logger.String("route", route),
					logger.String("stack", string(debug.Stack())),
				)
				if c.Response().Committed {
					return
				}
				err = c.JSON(http.StatusInternalServerError, map[string]any{
					"status":  http.StatusInternalServerError,
					"message": http.StatusText(http.StatusInternalServerError),
				})
			}()
			return next(c)
		}
	}
}
