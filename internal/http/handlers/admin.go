package handlers

import (
	"net/http"
	"strconv"
	"time"

	"banana_clicker/internal/domain"
	"banana_clicker/internal/logger"

	"github.com/gin-gonic/gin"
)

type startEventRequest struct {
	Kind       string  `json:"kind" binding:"required"`
	Multiplier float64 `json:"multiplier" binding:"required"`
	Duration   string  `json:"duration" binding:"required"`
}

// StartEvent begins a global event for every player.
func (h *Handler) StartEvent(c *gin.Context) {
	var req startEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	duration, err := time.ParseDuration(req.Duration)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid duration"})
		return
	}

	ctx := c.Request.Context()
	adminID, _ := getUserID(c)
	rep, err := h.svc.StartGlobalEvent(ctx, req.Kind, req.Multiplier, duration)
	if err != nil {
		respondError(c, err)
		return
	}

	h.audit.LogAdminAction(ctx, adminID, domain.AuditActionGlobalEventStart, map[string]any{
		"kind":       rep.Event.Kind,
		"multiplier": rep.Event.Multiplier,
		"expires_at": rep.Event.ExpiresAt,
		"users":      rep.Users,
		"failed":     rep.Failed,
		"source":     "api",
	})
	logger.Info("global event started via api", "admin_id", adminID, "kind", req.Kind, "users", rep.Users)
	c.JSON(http.StatusCreated, rep)
}

// Sweep runs an offline accrual sweep now.
func (h *Handler) Sweep(c *gin.Context) {
	ctx := c.Request.Context()
	rep, err := h.sweeper.SweepNow(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	adminID, _ := getUserID(c)
	h.audit.LogAdminAction(ctx, adminID, domain.AuditActionManualSweep, map[string]any{
		"users":   rep.Users,
		"updated": rep.Updated,
		"failed":  rep.Failed,
		"source":  "api",
	})
	c.JSON(http.StatusOK, gin.H{
		"users":       rep.Users,
		"updated":     rep.Updated,
		"idle":        rep.Idle,
		"failed":      rep.Failed,
		"accrued":     rep.Accrued,
		"duration_ms": rep.Duration.Milliseconds(),
	})
}

// Audit lists recent audit entries, optionally for one user.
func (h *Handler) Audit(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	var (
		logs []*domain.AuditLog
		err  error
	)
	if v := c.Query("user_id"); v != "" {
		userID, perr := strconv.ParseInt(v, 10, 64)
		if perr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
			return
		}
		logs, err = h.audit.GetUserAuditLogs(c.Request.Context(), userID, limit)
	} else {
		logs, err = h.audit.GetRecentLogs(c.Request.Context(), limit)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	if logs == nil {
		logs = []*domain.AuditLog{}
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}
