package repository

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"banana_clicker/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditRepository handles audit log database operations
type AuditRepository struct {
	db *pgxpool.Pool
}

func NewAuditRepository(db *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create inserts a new audit log entry
func (r *AuditRepository) Create(ctx context.Context, log *domain.AuditLog) error {
	detailsJSON, err := json.Marshal(log.Details)
	if err != nil {
		detailsJSON = []byte("{}")
	}

	err = r.db.QueryRow(ctx, `
		INSERT INTO audit_logs (user_id, action, category, details)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, log.UserID, log.Action, log.Category, detailsJSON).Scan(&log.ID, &log.CreatedAt)
	if err != nil {
		return unavailable("create audit log", err)
	}
	return nil
}

// GetByUserID returns audit logs for a user
func (r *AuditRepository) GetByUserID(ctx context.Context, userID int64, limit int) ([]*domain.AuditLog, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, action, category, details, created_at
		FROM audit_logs
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, unavailable("audit logs by user", err)
	}
	defer rows.Close()

	return scanAuditLogs(rows)
}

// GetRecent returns the most recent audit logs
func (r *AuditRepository) GetRecent(ctx context.Context, limit int) ([]*domain.AuditLog, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, action, category, details, created_at
		FROM audit_logs
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, unavailable("recent audit logs", err)
	}
	defer rows.Close()

	return scanAuditLogs(rows)
}

func scanAuditLogs(rows pgx.Rows) ([]*domain.AuditLog, error) {
	var logs []*domain.AuditLog
	for rows.Next() {
		var log domain.AuditLog
		var detailsJSON []byte
		if err := rows.Scan(&log.ID, &log.UserID, &log.Action, &log.Category, &detailsJSON, &log.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(detailsJSON, &log.Details); err != nil {
			log.Details = make(map[string]any)
		}
		logs = append(logs, &log)
	}
	return logs, rows.Err()
}

// MemoryAuditRepository is the STORE=memory counterpart of AuditRepository.
type MemoryAuditRepository struct {
	mu   sync.RWMutex
	logs []domain.AuditLog
}

func NewMemoryAuditRepository() *MemoryAuditRepository {
	return &MemoryAuditRepository{}
}

func (r *MemoryAuditRepository) Create(ctx context.Context, log *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	log.ID = int64(len(r.logs) + 1)
	log.CreatedAt = time.Now().UTC()
	r.logs = append(r.logs, *log)
	return nil
}

func (r *MemoryAuditRepository) GetByUserID(ctx context.Context, userID int64, limit int) ([]*domain.AuditLog, error) {
	return r.newest(limit, func(l *domain.AuditLog) bool { return l.UserID == userID }), nil
}

func (r *MemoryAuditRepository) GetRecent(ctx context.Context, limit int) ([]*domain.AuditLog, error) {
	return r.newest(limit, func(*domain.AuditLog) bool { return true }), nil
}

func (r *MemoryAuditRepository) newest(limit int, match func(*domain.AuditLog) bool) []*domain.AuditLog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var res []*domain.AuditLog
	for i := len(r.logs) - 1; i >= 0 && len(res) < limit; i-- {
		l := r.logs[i]
		if match(&l) {
			res = append(res, &l)
		}
	}
	return res
}
