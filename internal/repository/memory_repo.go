package repository

import (
	"context"
	"sort"
	"sync"

	"banana_clicker/internal/domain"
)

// MemoryProgressRepository keeps progress in process memory with the same
// version semantics as ProgressRepository. Used for STORE=memory and tests.
type MemoryProgressRepository struct {
	mu     sync.RWMutex
	rows   map[int64]*domain.UserProgress
	events []domain.Boost
}

func NewMemoryProgressRepository() *MemoryProgressRepository {
	return &MemoryProgressRepository{rows: make(map[int64]*domain.UserProgress)}
}

func (r *MemoryProgressRepository) Get(ctx context.Context, userID int64) (*domain.UserProgress, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.rows[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

func (r *MemoryProgressRepository) Upsert(ctx context.Context, p *domain.UserProgress) error {
	if err := ctx.Err(); err != nil {
		return unavailable("upsert progress", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.rows[p.UserID]
	switch {
	case p.Version == 0 && exists:
		return ErrConflict
	case p.Version != 0 && (!exists || current.Version != p.Version):
		return ErrConflict
	}

	p.Version++
	r.rows[p.UserID] = p.Clone()
	return nil
}

func (r *MemoryProgressRepository) ListAll(ctx context.Context) ([]domain.UserProgress, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]domain.UserProgress, 0, len(r.rows))
	for _, p := range r.rows {
		res = append(res, *p.Clone())
	}
	sort.Slice(res, func(i, j int) bool { return res[i].UserID < res[j].UserID })
	return res, nil
}

func (r *MemoryProgressRepository) SaveGlobalEvent(ctx context.Context, event domain.Boost) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	return nil
}

func (r *MemoryProgressRepository) CurrentGlobalEvent(ctx context.Context) (*domain.Boost, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.events) == 0 {
		return nil, nil
	}
	e := r.events[len(r.events)-1]
	return &e, nil
}
