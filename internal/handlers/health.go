package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"

	"diarserver/internal/scheduler"
)

// HealthHandler serves GET /api/health (spec §6).
type HealthHandler struct {
	sched     *scheduler.Scheduler
	startedAt time.Time
}

// NewHealthHandler constructs a HealthHandler. startedAt should be the
// process start time, captured once at boot.
func NewHealthHandler(sched *scheduler.Scheduler, startedAt time.Time) *HealthHandler {
	return &HealthHandler{sched: sched, startedAt: startedAt}
}

// Health reports queue load and memory usage alongside a fixed "healthy"
// status; the process has no degraded state to report short of crashing.
func (h *HealthHandler) Health(c echo.Context) error {
	status := h.sched.Status()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(h.startedAt).String(),
		"queue": map[string]interface{}{
			"active":    status.Active,
			"pending":   status.Pending,
			"capacity":  status.MaxConcurrent,
			"maxQueue":  status.MaxQueueSize,
			"available": status.MaxConcurrent-status.Active > 0,
		},
		"memory": map[string]interface{}{
			"used":  humanize.Bytes(mem.Alloc),
			"total": humanize.Bytes(mem.Sys),
		},
	})
}
