package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	xhttp "RapWatch/pkg/http"
)

// Checker reports whether a dependency is reachable.
type Checker interface {
	Health(ctx context.Context) error
}

type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Health(ctx context.Context) error { return f(ctx) }

type HealthHandler struct {
	checks  map[string]Checker
	timeout time.Duration
	started time.Time
}

func NewHealthHandler(checks map[string]Checker) *HealthHandler {
	return &HealthHandler{checks: checks, timeout: 2 * time.Second, started: time.Now()}
}

func (h *HealthHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
}

type healthReport struct {
	Status        string            `json:"status"`
	Checks        map[string]string `json:"checks"`
	UptimeSeconds int64             `json:"uptimeSeconds"`
	CPUPercent    *float64          `json:"cpuPercent,omitempty"`
	MemoryPercent *float64          `json:"memoryPercent,omitempty"`
}

// Health answers 200 when every dependency check passes and 503 otherwise.
// Host CPU and memory usage are included when readable.
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	rep := healthReport{
		Status:        "ok",
		Checks:        make(map[string]string, len(h.checks)),
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
	}
	for name, chk := range h.checks {
		if err := chk.Health(ctx); err != nil {
			rep.Status = "degraded"
			rep.Checks[name] = err.Error()
			continue
		}
		rep.Checks[name] = "ok"
	}

	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		rep.CPUPercent = &pct[0]
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		rep.MemoryPercent = &vm.UsedPercent
	}

	status := http.StatusOK
	if rep.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	return xhttp.DataResponse(c, status, rep)
}
