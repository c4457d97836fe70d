package handlers

import (
	"context"
	"errors"
	"net/http"

	"banana_clicker/internal/repository"
	"banana_clicker/internal/service"

	"github.com/gin-gonic/gin"
)

// Sweeper triggers an on-demand sweep.
type Sweeper interface {
	SweepNow(ctx context.Context) (service.SweepReport, error)
}

type Handler struct {
	svc     *service.ProgressService
	sweeper Sweeper
	audit   *service.AuditService
}

func NewHandler(svc *service.ProgressService, sweeper Sweeper, audit *service.AuditService) *Handler {
	return &Handler{svc: svc, sweeper: sweeper, audit: audit}
}

// getUserID extracts user_id placed by the JWT middleware
func getUserID(c *gin.Context) (int64, bool) {
	uidVal, ok := c.Get("user_id")
	if !ok {
		return 0, false
	}
	switch v := uidVal.(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

// respondError maps service errors to HTTP statuses.
func respondError(c *gin.Context, err error) {
	if reason, ok := service.RejectionReason(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "reason": reason})
		return
	}
	switch {
	case errors.Is(err, repository.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "concurrent update, retry"})
	case errors.Is(err, repository.ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable"})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "request cancelled"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
