package service

import (
	"context"
	"sync/atomic"
	"time"

	"banana_clicker/internal/domain"
	"banana_clicker/internal/game"
	"banana_clicker/internal/metrics"

	"golang.org/x/sync/errgroup"
)

// SweepReport summarizes one pass over every stored record.
type SweepReport struct {
	Users    int           `json:"users"`
	Updated  int           `json:"updated"`
	Idle     int           `json:"idle"`
	Failed   int           `json:"failed"`
	Accrued  int64         `json:"accrued"`
	Duration time.Duration `json:"duration"`
}

// EventReport summarizes the fan-out of a global event.
type EventReport struct {
	Event   domain.Boost `json:"event"`
	Users   int          `json:"users"`
	Updated int          `json:"updated"`
	Failed  int          `json:"failed"`
}

// needsSweep reports whether a sweep pass would change the record.
func needsSweep(p *domain.UserProgress, now time.Time) bool {
	if p.PerIntervalRate > 0 && now.Sub(p.LastObservedAt) >= game.AccrualUnit {
		return true
	}
	if p.PersonalBoost != nil && !p.PersonalBoost.Active(now) {
		return true
	}
	return p.GlobalEvent != nil && !p.GlobalEvent.Active(now)
}

// Sweep reconciles every record that has something to credit or expire.
// A failing user is logged and skipped; the pass stops early only when ctx
// is cancelled.
func (s *ProgressService) Sweep(ctx context.Context) (SweepReport, error) {
	start := time.Now()
	users, err := s.store.ListAll(ctx)
	if err != nil {
		return SweepReport{}, err
	}

	var updated, idle, failed atomic.Int64
	var accrued atomic.Int64
	now := s.clk.Now()

	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for i := range users {
		if ctx.Err() != nil {
			break
		}
		u := &users[i]
		if !needsSweep(u, now) {
			idle.Add(1)
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			added, changed, _, err := s.reconcileUser(ctx, u.UserID)
			if err != nil {
				failed.Add(1)
				metrics.SweepUsers.WithLabelValues("failed").Inc()
				s.log.Warn("sweep: reconcile failed", "user_id", u.UserID, "error", err)
				return nil
			}
			if !changed {
				idle.Add(1)
				metrics.SweepUsers.WithLabelValues("idle").Inc()
				return nil
			}
			updated.Add(1)
			accrued.Add(added)
			metrics.SweepUsers.WithLabelValues("updated").Inc()
			return nil
		})
	}
	_ = g.Wait()

	rep := SweepReport{
		Users:    len(users),
		Updated:  int(updated.Load()),
		Idle:     int(idle.Load()),
		Failed:   int(failed.Load()),
		Accrued:  accrued.Load(),
		Duration: time.Since(start),
	}
	metrics.SweepDuration.Observe(rep.Duration.Seconds())
	if rep.Failed > 0 {
		s.log.Warn("sweep finished with failures", "users", rep.Users, "failed", rep.Failed)
	} else {
		s.log.Debug("sweep finished", "users", rep.Users, "updated", rep.Updated, "accrued", rep.Accrued)
	}
	return rep, ctx.Err()
}

// StartGlobalEvent records the event and stamps it onto every existing
// record. Records created afterwards pick it up from the store.
func (s *ProgressService) StartGlobalEvent(ctx context.Context, kind string, multiplier float64, duration time.Duration) (EventReport, error) {
	event, err := game.NewGlobalEvent(kind, multiplier, duration, s.clk.Now())
	if err != nil {
		return EventReport{}, err
	}
	if err := s.store.SaveGlobalEvent(ctx, event); err != nil {
		return EventReport{}, err
	}
	metrics.GlobalEvents.Inc()

	users, err := s.store.ListAll(ctx)
	if err != nil {
		return EventReport{Event: event}, err
	}

	var updated, failed atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for _, u := range users {
		userID := u.UserID
		g.Go(func() error {
			_, err := s.mutate(ctx, userID, func(p *domain.UserProgress, now time.Time) (bool, error) {
				_, reconciled := s.reconcile(p, now)
				return game.SetGlobalEvent(p, event) || reconciled, nil
			})
			if err != nil {
				failed.Add(1)
				s.log.Warn("global event: apply failed", "user_id", userID, "error", err)
				return nil
			}
			updated.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	rep := EventReport{
		Event:   event,
		Users:   len(users),
		Updated: int(updated.Load()),
		Failed:  int(failed.Load()),
	}
	s.log.Info("global event started",
		"kind", event.Kind,
		"multiplier", event.Multiplier,
		"expires_at", event.ExpiresAt,
		"users", rep.Users,
		"failed", rep.Failed,
	)
	return rep, nil
}
