package domain

import "time"

// AuditLog records a state change worth reviewing later.
type AuditLog struct {
	ID        int64          `json:"id"`
	UserID    int64          `json:"user_id"`
	Action    string         `json:"action"`
	Category  string         `json:"category"`
	Details   map[string]any `json:"details"`
	CreatedAt time.Time      `json:"created_at"`
}

// Audit action categories
const (
	AuditCategoryProgress = "progress"
	AuditCategoryAdmin    = "admin"
)

// Audit actions
const (
	AuditActionPrestige         = "prestige"
	AuditActionGlobalEventStart = "global_event_start"
	AuditActionManualSweep      = "manual_sweep"
)
