package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"banana_clicker/internal/clock"
	"banana_clicker/internal/domain"
	"banana_clicker/internal/game"
	"banana_clicker/internal/logger"
	"banana_clicker/internal/metrics"
	"banana_clicker/internal/repository"
)

const (
	maxAttempts = 3
	lockStripes = 256
)

// ProgressStore is the persistence collaborator. Upsert must reject stale
// versions with repository.ErrConflict.
type ProgressStore interface {
	Get(ctx context.Context, userID int64) (*domain.UserProgress, error)
	Upsert(ctx context.Context, p *domain.UserProgress) error
	ListAll(ctx context.Context) ([]domain.UserProgress, error)
	SaveGlobalEvent(ctx context.Context, event domain.Boost) error
	CurrentGlobalEvent(ctx context.Context) (*domain.Boost, error)
}

// Notifier receives every committed snapshot.
type Notifier interface {
	Publish(p domain.UserProgress)
}

// transition mutates p in place. It reports whether anything changed; an
// error discards p and leaves the stored record untouched.
type transition func(p *domain.UserProgress, now time.Time) (bool, error)

// ProgressService serializes every per-user operation and persists the
// result with a conditional write, retrying on conflicts.
type ProgressService struct {
	store       ProgressStore
	clk         clock.Clock
	rules       game.Rules
	concurrency int
	notifier    Notifier
	audit       *AuditService
	locks       [lockStripes]sync.Mutex
	log         *slog.Logger
}

func NewProgressService(store ProgressStore, clk clock.Clock, rules game.Rules) *ProgressService {
	return &ProgressService{
		store:       store,
		clk:         clk,
		rules:       rules,
		concurrency: 8,
		log:         logger.With("component", "progress_service"),
	}
}

// SetNotifier attaches a snapshot subscriber. Not safe to call once traffic
// is flowing.
func (s *ProgressService) SetNotifier(n Notifier) {
	s.notifier = n
}

// SetAudit records prestiges to the audit log.
func (s *ProgressService) SetAudit(a *AuditService) {
	s.audit = a
}

// SetConcurrency bounds the per-user fan-out of sweeps and global events.
func (s *ProgressService) SetConcurrency(n int) {
	if n > 0 {
		s.concurrency = n
	}
}

func (s *ProgressService) Rules() game.Rules {
	return s.rules
}

func (s *ProgressService) lockFor(userID int64) *sync.Mutex {
	return &s.locks[uint64(userID)%lockStripes]
}

// load returns the stored record or a fresh default one carrying the
// currently running global event.
func (s *ProgressService) load(ctx context.Context, userID int64, now time.Time) (*domain.UserProgress, error) {
	p, err := s.store.Get(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	p = domain.NewUserProgress(userID, now)
	ev, err := s.store.CurrentGlobalEvent(ctx)
	if err != nil {
		return nil, err
	}
	if ev.Active(now) {
		game.SetGlobalEvent(p, *ev)
	}
	return p, nil
}

func (s *ProgressService) mutate(ctx context.Context, userID int64, fn transition) (*domain.UserProgress, error) {
	mu := s.lockFor(userID)
	mu.Lock()
	defer mu.Unlock()

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		now := s.clk.Now()
		current, err := s.load(ctx, userID, now)
		if err != nil {
			return nil, err
		}

		next := current.Clone()
		changed, err := fn(next, now)
		if err != nil {
			return current, err
		}
		if !changed && current.Version != 0 {
			return next, nil
		}

		err = s.store.Upsert(ctx, next)
		if errors.Is(err, repository.ErrConflict) {
			metrics.StoreConflicts.Inc()
			s.log.Debug("write conflict, retrying", "user_id", userID, "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, err
		}

		if s.notifier != nil {
			s.notifier.Publish(*next.Clone())
		}
		return next, nil
	}
	return nil, fmt.Errorf("user %d after %d attempts: %w", userID, maxAttempts, repository.ErrConflict)
}

// reconcile wraps game.Reconcile into a transition step.
func (s *ProgressService) reconcile(p *domain.UserProgress, now time.Time) (added int64, changed bool) {
	checkpoint := p.LastObservedAt
	hadPersonal, hadGlobal := p.PersonalBoost != nil, p.GlobalEvent != nil

	added = game.Reconcile(p, now, s.rules.OfflineCap)
	game.ClearExpired(p, now)
	if added > 0 {
		metrics.OfflineAccrued.Add(float64(added))
	}

	changed = !p.LastObservedAt.Equal(checkpoint) ||
		hadPersonal != (p.PersonalBoost != nil) ||
		hadGlobal != (p.GlobalEvent != nil)
	return added, changed
}

// State returns the reconciled record, creating it on first contact.
func (s *ProgressService) State(ctx context.Context, userID int64) (*domain.UserProgress, error) {
	_, p, err := s.Reconcile(ctx, userID)
	return p, err
}

// Reconcile credits idle accrual for one user.
func (s *ProgressService) Reconcile(ctx context.Context, userID int64) (int64, *domain.UserProgress, error) {
	added, _, p, err := s.reconcileUser(ctx, userID)
	return added, p, err
}

// reconcileUser also reports whether the record was written.
func (s *ProgressService) reconcileUser(ctx context.Context, userID int64) (int64, bool, *domain.UserProgress, error) {
	var (
		added   int64
		changed bool
	)
	p, err := s.mutate(ctx, userID, func(p *domain.UserProgress, now time.Time) (bool, error) {
		added, changed = s.reconcile(p, now)
		return changed, nil
	})
	return added, changed, p, err
}

// ClickOutcome is the yield of one click.
type ClickOutcome struct {
	Gain       int64   `json:"gain"`
	Offline    int64   `json:"offline_added"`
	Multiplier float64 `json:"multiplier"`
}

func (s *ProgressService) Click(ctx context.Context, userID int64) (ClickOutcome, *domain.UserProgress, error) {
	var out ClickOutcome
	p, err := s.mutate(ctx, userID, func(p *domain.UserProgress, now time.Time) (bool, error) {
		out.Offline, _ = s.reconcile(p, now)
		out.Multiplier = game.EffectiveMultiplier(p, now)
		out.Gain, _ = game.Click(p, now, s.rules)
		return true, nil
	})
	return out, p, err
}

func (s *ProgressService) Purchase(ctx context.Context, userID int64, kind domain.UpgradeKind) (game.PurchaseOutcome, *domain.UserProgress, error) {
	var out game.PurchaseOutcome
	p, err := s.mutate(ctx, userID, func(p *domain.UserProgress, now time.Time) (bool, error) {
		offline, _ := s.reconcile(p, now)
		res, err := game.Purchase(p, kind, now, s.rules)
		if err != nil {
			return false, err
		}
		res.Offline += offline
		out = res
		return true, nil
	})
	return out, p, err
}

func (s *ProgressService) ActivateBoost(ctx context.Context, userID int64, kind domain.BoostKind) (*domain.Boost, *domain.UserProgress, error) {
	var boost *domain.Boost
	p, err := s.mutate(ctx, userID, func(p *domain.UserProgress, now time.Time) (bool, error) {
		s.reconcile(p, now)
		b, err := game.ActivateConsumableBoost(p, kind, now)
		if err != nil {
			return false, err
		}
		boost = b
		return true, nil
	})
	return boost, p, err
}

func (s *ProgressService) Prestige(ctx context.Context, userID int64) (domain.Reward, *domain.UserProgress, error) {
	var reward domain.Reward
	p, err := s.mutate(ctx, userID, func(p *domain.UserProgress, now time.Time) (bool, error) {
		s.reconcile(p, now)
		r, err := game.Prestige(p, now, s.rules)
		if err != nil {
			return false, err
		}
		reward = r
		return true, nil
	})
	if err == nil {
		s.log.Info("prestige", "user_id", userID, "count", p.PrestigeCount, "reward", reward.Count)
		s.audit.LogPrestige(ctx, userID, p.PrestigeCount, reward)
	}
	return reward, p, err
}

// Now is the service clock, exposed so callers render times consistently.
func (s *ProgressService) Now() time.Time {
	return s.clk.Now()
}
