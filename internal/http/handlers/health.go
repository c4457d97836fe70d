package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"banana_clicker/internal/service"

	"github.com/gin-gonic/gin"
)

// Pinger is satisfied by *pgxpool.Pool. A nil Pinger means the in-memory store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SweepStatus is implemented by the background sweeper.
type SweepStatus interface {
	LastReport() (service.SweepReport, int64)
	Running() bool
}

// FeedStatus is implemented by the websocket hub.
type FeedStatus interface {
	ClientCount() int
}

type HealthHandler struct {
	db        Pinger
	sweeps    SweepStatus
	feed      FeedStatus
	startTime time.Time
	version   string
}

func NewHealthHandler(db Pinger, sweeps SweepStatus, feed FeedStatus, version string) *HealthHandler {
	return &HealthHandler{
		db:        db,
		sweeps:    sweeps,
		feed:      feed,
		startTime: time.Now(),
		version:   version,
	}
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version,omitempty"`
	Uptime    string            `json:"uptime,omitempty"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Liveness is the k8s liveness probe.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) ping(ctx context.Context) error {
	if h.db == nil {
		return nil
	}
	return h.db.Ping(ctx)
}

// Readiness fails only when the store is unreachable. Sweep and feed state are
// informational.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	ready := true

	switch err := h.ping(ctx); {
	case h.db == nil:
		checks["store"] = "memory"
	case err != nil:
		checks["store"] = "unhealthy: " + err.Error()
		ready = false
	default:
		checks["store"] = "healthy"
	}

	if h.sweeps != nil {
		rep, runs := h.sweeps.LastReport()
		checks["sweep_runs"] = strconv.FormatInt(runs, 10)
		checks["sweep_running"] = strconv.FormatBool(h.sweeps.Running())
		if runs > 0 {
			checks["sweep_last"] = rep.Duration.String()
			checks["sweep_last_failed"] = strconv.Itoa(rep.Failed)
		}
	}
	if h.feed != nil {
		checks["ws_clients"] = strconv.Itoa(h.feed.ClientCount())
	}

	status, code := "ready", http.StatusOK
	if !ready {
		status, code = "unready", http.StatusServiceUnavailable
	}

	c.JSON(code, HealthResponse{
		Status:    status,
		Version:   h.version,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	})
}

// Health is the plain store check used by load balancers.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if err := h.ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  "store unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": h.version,
	})
}
