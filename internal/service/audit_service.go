package service

import (
	"context"

	"banana_clicker/internal/domain"
	"banana_clicker/internal/logger"
)

// AuditStore is implemented by repository.AuditRepository and its memory twin.
type AuditStore interface {
	Create(ctx context.Context, log *domain.AuditLog) error
	GetByUserID(ctx context.Context, userID int64, limit int) ([]*domain.AuditLog, error)
	GetRecent(ctx context.Context, limit int) ([]*domain.AuditLog, error)
}

// AuditService handles audit logging. Write failures are logged, never
// surfaced to the caller. A nil *AuditService discards everything.
type AuditService struct {
	repo AuditStore
}

func NewAuditService(repo AuditStore) *AuditService {
	return &AuditService{repo: repo}
}

// Log creates a new audit log entry
func (s *AuditService) Log(ctx context.Context, userID int64, action, category string, details map[string]any) {
	if s == nil {
		return
	}
	log := &domain.AuditLog{
		UserID:   userID,
		Action:   action,
		Category: category,
		Details:  details,
	}

	if err := s.repo.Create(ctx, log); err != nil {
		logger.Error("failed to create audit log", "error", err, "action", action, "user_id", userID)
	}
}

// LogPrestige logs a completed prestige
func (s *AuditService) LogPrestige(ctx context.Context, userID int64, count int64, reward domain.Reward) {
	s.Log(ctx, userID, domain.AuditActionPrestige, domain.AuditCategoryProgress, map[string]any{
		"prestige_count": count,
		"reward_kind":    reward.Kind,
		"reward_count":   reward.Count,
	})
}

// LogAdminAction logs an admin action
func (s *AuditService) LogAdminAction(ctx context.Context, adminID int64, action string, details map[string]any) {
	if details == nil {
		details = make(map[string]any)
	}
	details["admin_id"] = adminID

	s.Log(ctx, adminID, action, domain.AuditCategoryAdmin, details)
}

// GetUserAuditLogs returns audit logs for a user
func (s *AuditService) GetUserAuditLogs(ctx context.Context, userID int64, limit int) ([]*domain.AuditLog, error) {
	if s == nil {
		return nil, nil
	}
	return s.repo.GetByUserID(ctx, userID, limit)
}

// GetRecentLogs returns recent audit logs
func (s *AuditService) GetRecentLogs(ctx context.Context, limit int) ([]*domain.AuditLog, error) {
	if s == nil {
		return nil, nil
	}
	return s.repo.GetRecent(ctx, limit)
}
