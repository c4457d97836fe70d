package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"banana_clicker/internal/clock"
	"banana_clicker/internal/domain"
	"banana_clicker/internal/game"
	"banana_clicker/internal/repository"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// flakyStore injects write failures in front of the memory repository.
type flakyStore struct {
	*repository.MemoryProgressRepository
	conflicts  atomic.Int64
	failUsers  map[int64]bool
	failGet    bool
	upsertHits atomic.Int64
}

func (s *flakyStore) Get(ctx context.Context, userID int64) (*domain.UserProgress, error) {
	if s.failGet {
		return nil, fmt.Errorf("get: %w", repository.ErrStoreUnavailable)
	}
	return s.MemoryProgressRepository.Get(ctx, userID)
}

func (s *flakyStore) Upsert(ctx context.Context, p *domain.UserProgress) error {
	s.upsertHits.Add(1)
	if s.failUsers[p.UserID] {
		return fmt.Errorf("upsert %d: %w", p.UserID, repository.ErrStoreUnavailable)
	}
	if s.conflicts.Load() > 0 {
		s.conflicts.Add(-1)
		return repository.ErrConflict
	}
	return s.MemoryProgressRepository.Upsert(ctx, p)
}

type recordingNotifier struct {
	mu    sync.Mutex
	snaps []domain.UserProgress
}

func (n *recordingNotifier) Publish(p domain.UserProgress) {
	n.mu.Lock()
	n.snaps = append(n.snaps, p)
	n.mu.Unlock()
}

func newTestService(t *testing.T) (*ProgressService, *flakyStore, *clock.Fake) {
	t.Helper()
	store := &flakyStore{MemoryProgressRepository: repository.NewMemoryProgressRepository()}
	clk := clock.NewFake(t0)
	return NewProgressService(store, clk, game.DefaultRules()), store, clk
}

func seed(t *testing.T, store *flakyStore, userID, balance, intervalLevel int64) {
	t.Helper()
	p := domain.NewUserProgress(userID, t0)
	p.Balance = balance
	p.UpgradeLevels[domain.UpgradeIntervalRate] = intervalLevel
	game.Recompute(p)
	if err := store.MemoryProgressRepository.Upsert(context.Background(), p); err != nil {
		t.Fatalf("seed user %d: %v", userID, err)
	}
}

func TestStateCreatesDefaultRecord(t *testing.T) {
	svc, store, _ := newTestService(t)
	p, err := svc.State(context.Background(), 42)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if p.Balance != 0 || p.PerActionRate != 1 || p.PerIntervalRate != 0 {
		t.Fatalf("unexpected default record %+v", p)
	}

	stored, err := store.Get(context.Background(), 42)
	if err != nil {
		t.Fatalf("default record was not persisted: %v", err)
	}
	if stored.Version != 1 {
		t.Fatalf("expected version 1 got %d", stored.Version)
	}

	// nothing to reconcile at the same instant: no second write
	before := store.upsertHits.Load()
	if _, err := svc.State(context.Background(), 42); err != nil {
		t.Fatalf("state: %v", err)
	}
	if store.upsertHits.Load() != before {
		t.Fatalf("idempotent state read wrote to the store")
	}
}

func TestClickAndIdleAccrual(t *testing.T) {
	svc, store, clk := newTestService(t)
	ctx := context.Background()
	seed(t, store, 1, 0, 3)

	out, p, err := svc.Click(ctx, 1)
	if err != nil {
		t.Fatalf("click: %v", err)
	}
	if out.Gain != 1 || p.Balance != 1 {
		t.Fatalf("expected gain 1 balance 1, got %+v balance %d", out, p.Balance)
	}

	clk.Advance(10 * time.Second)
	out, p, err = svc.Click(ctx, 1)
	if err != nil {
		t.Fatalf("click: %v", err)
	}
	if out.Offline != 30 || p.Balance != 32 {
		t.Fatalf("expected offline 30 balance 32, got %+v balance %d", out, p.Balance)
	}
}

func TestPurchaseRejectionLeavesStoreUntouched(t *testing.T) {
	svc, store, clk := newTestService(t)
	ctx := context.Background()
	seed(t, store, 1, 40, 1)
	clk.Advance(5 * time.Second)

	_, _, err := svc.Purchase(ctx, 1, domain.UpgradeActionRate)
	if !errors.Is(err, game.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance got %v", err)
	}
	stored, _ := store.Get(ctx, 1)
	if stored.Balance != 40 || stored.Version != 1 || !stored.LastObservedAt.Equal(t0) {
		t.Fatalf("rejected purchase changed the record: %+v", stored)
	}

	// the idle accrual is still there for the next action
	clk.Advance(5 * time.Second)
	out, p, err := svc.Purchase(ctx, 1, domain.UpgradeActionRate)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if out.Cost != 50 || out.Offline != 10 || p.Balance != 0 || p.PerActionRate != 2 {
		t.Fatalf("unexpected purchase %+v state %+v", out, p)
	}
}

func TestConflictRetry(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	seed(t, store, 1, 0, 0)

	store.conflicts.Store(maxAttempts - 1)
	if _, p, err := svc.Click(ctx, 1); err != nil || p.Balance != 1 {
		t.Fatalf("expected click to survive %d conflicts, got %v", maxAttempts-1, err)
	}

	store.conflicts.Store(maxAttempts)
	_, _, err := svc.Click(ctx, 1)
	if !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected ErrConflict after exhausting retries, got %v", err)
	}
	stored, _ := store.Get(ctx, 1)
	if stored.Balance != 1 {
		t.Fatalf("failed click leaked into the store: balance %d", stored.Balance)
	}
}

func TestConcurrentClicksLoseNothing(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	const n = 64
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := svc.Click(ctx, 9); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("click: %v", err)
	}

	p, err := svc.State(ctx, 9)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if p.Balance != n {
		t.Fatalf("expected balance %d got %d", n, p.Balance)
	}
}

func TestGlobalEventReachesExistingAndNewRecords(t *testing.T) {
	svc, store, clk := newTestService(t)
	ctx := context.Background()
	seed(t, store, 1, 0, 1)
	seed(t, store, 2, 0, 0)

	rep, err := svc.StartGlobalEvent(ctx, "festival", 2, time.Minute)
	if err != nil {
		t.Fatalf("start event: %v", err)
	}
	if rep.Users != 2 || rep.Updated != 2 || rep.Failed != 0 {
		t.Fatalf("unexpected report %+v", rep)
	}
	for _, id := range []int64{1, 2} {
		p, _ := store.Get(ctx, id)
		if p.GlobalEvent == nil || p.GlobalEvent.Multiplier != 2 {
			t.Fatalf("user %d missing event: %+v", id, p.GlobalEvent)
		}
	}

	out, _, err := svc.Click(ctx, 3)
	if err != nil {
		t.Fatalf("click: %v", err)
	}
	if out.Gain != 2 {
		t.Fatalf("new record should inherit the event, gain %d", out.Gain)
	}

	clk.Advance(2 * time.Minute)
	out, p, err := svc.Click(ctx, 3)
	if err != nil {
		t.Fatalf("click: %v", err)
	}
	if out.Gain != 1 || p.GlobalEvent != nil {
		t.Fatalf("expired event still applied: gain %d event %+v", out.Gain, p.GlobalEvent)
	}
}

func TestGlobalEventValidation(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name       string
		kind       string
		multiplier float64
		duration   time.Duration
	}{
		{"empty kind", "", 2, time.Minute},
		{"multiplier below one", "festival", 0.5, time.Minute},
		{"zero duration", "festival", 2, 0},
		{"multiplier above the cap", "festival", 5e18, time.Minute},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.StartGlobalEvent(ctx, tc.kind, tc.multiplier, tc.duration)
			if !errors.Is(err, game.ErrValidation) {
				t.Fatalf("expected ErrValidation got %v", err)
			}
		})
	}
	if ev, _ := store.CurrentGlobalEvent(ctx); ev != nil {
		t.Fatalf("invalid event was saved: %+v", ev)
	}
}

func TestSweepSkipsFailingUser(t *testing.T) {
	svc, store, clk := newTestService(t)
	ctx := context.Background()
	seed(t, store, 1, 0, 2)
	seed(t, store, 2, 0, 2)
	seed(t, store, 3, 0, 2)
	seed(t, store, 4, 0, 0)
	store.failUsers = map[int64]bool{2: true}

	clk.Advance(5 * time.Second)
	rep, err := svc.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if rep.Users != 4 || rep.Updated != 2 || rep.Failed != 1 || rep.Idle != 1 || rep.Accrued != 20 {
		t.Fatalf("unexpected report %+v", rep)
	}

	for id, want := range map[int64]int64{1: 10, 2: 0, 3: 10, 4: 0} {
		p, _ := store.Get(ctx, id)
		if p.Balance != want {
			t.Fatalf("user %d: expected balance %d got %d", id, want, p.Balance)
		}
	}
}

func TestSweepCountsOnlyWrittenRecords(t *testing.T) {
	svc, store, clk := newTestService(t)
	ctx := context.Background()
	seed(t, store, 1, 0, 2)

	// under one accrual unit: reconcile runs but has nothing to write
	clk.Advance(500 * time.Millisecond)
	before := store.upsertHits.Load()
	rep, err := svc.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if rep.Updated != 0 || rep.Idle != 1 || rep.Accrued != 0 {
		t.Fatalf("unexpected report %+v", rep)
	}
	if store.upsertHits.Load() != before {
		t.Fatalf("sweep wrote a record with nothing to credit")
	}

	clk.Advance(time.Second)
	rep, err = svc.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if rep.Updated != 1 || rep.Idle != 0 || rep.Accrued != 2 {
		t.Fatalf("unexpected report %+v", rep)
	}
}

func TestSweepStopsOnCancel(t *testing.T) {
	svc, store, clk := newTestService(t)
	seed(t, store, 1, 0, 1)
	clk.Advance(time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rep, err := svc.Sweep(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled got %v", err)
	}
	if rep.Updated != 0 {
		t.Fatalf("cancelled sweep still updated %d users", rep.Updated)
	}
}

func TestPrestigeThroughService(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	seed(t, store, 1, 999, 4)

	if _, _, err := svc.Prestige(ctx, 1); !errors.Is(err, game.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance got %v", err)
	}

	if _, _, err := svc.Click(ctx, 1); err != nil {
		t.Fatalf("click: %v", err)
	}
	reward, p, err := svc.Prestige(ctx, 1)
	if err != nil {
		t.Fatalf("prestige: %v", err)
	}
	if reward.Count != 1 || p.Balance != 0 || p.PrestigeCount != 1 || p.PerIntervalRate != 0 {
		t.Fatalf("unexpected prestige result %+v state %+v", reward, p)
	}
	if p.Inventory[domain.BoostGold] != 1 {
		t.Fatalf("reward not granted: %+v", p.Inventory)
	}
}

func TestNotifierGetsCommittedSnapshots(t *testing.T) {
	svc, _, _ := newTestService(t)
	n := &recordingNotifier{}
	svc.SetNotifier(n)
	ctx := context.Background()

	_, _, _ = svc.Click(ctx, 5)
	_, _, _ = svc.Purchase(ctx, 5, domain.UpgradeActionRate) // rejected, no publish

	if len(n.snaps) != 1 || n.snaps[0].Balance != 1 {
		t.Fatalf("unexpected snapshots %+v", n.snaps)
	}
}

func TestExecute(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	p := domain.NewUserProgress(1, t0)
	p.Inventory[domain.BoostGold] = 1
	p.Inventory[domain.BoostDiamond] = 1
	_ = store.MemoryProgressRepository.Upsert(ctx, p)

	tests := []struct {
		name   string
		req    domain.ActionRequest
		ok     bool
		reason string
	}{
		{"click", domain.ActionRequest{UserID: 1, Action: domain.ActionClick}, true, ""},
		{"purchase without funds", domain.ActionRequest{UserID: 1, Action: domain.ActionPurchase, Kind: "action_rate"}, false, ReasonInsufficientBalance},
		{"purchase unknown kind", domain.ActionRequest{UserID: 1, Action: domain.ActionPurchase, Kind: "warp_drive"}, false, ReasonUnknownKind},
		{"boost gold", domain.ActionRequest{UserID: 1, Action: domain.ActionBoost, Kind: "gold"}, true, ""},
		{"boost diamond while gold active", domain.ActionRequest{UserID: 1, Action: domain.ActionBoost, Kind: "diamond"}, false, ReasonBoostConflict},
		{"boost gold again", domain.ActionRequest{UserID: 1, Action: domain.ActionBoost, Kind: "gold"}, false, ReasonBoostNotOwned},
		{"prestige too early", domain.ActionRequest{UserID: 1, Action: domain.ActionPrestige}, false, ReasonInsufficientBalance},
		{"unknown action", domain.ActionRequest{UserID: 1, Action: "dance"}, false, ReasonUnknownAction},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := svc.Execute(ctx, tc.req)
			if err != nil {
				t.Fatalf("execute: %v", err)
			}
			if res.OK != tc.ok || res.Reason != tc.reason {
				t.Fatalf("expected ok=%v reason=%q, got %+v", tc.ok, tc.reason, res)
			}
		})
	}

	stored, _ := store.Get(ctx, 1)
	if stored.Balance != 1 || stored.Inventory[domain.BoostDiamond] != 1 || stored.Inventory[domain.BoostGold] != 0 {
		t.Fatalf("unexpected final state %+v", stored)
	}
}

func TestExecuteSurfacesStoreErrors(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.failGet = true

	_, err := svc.Execute(context.Background(), domain.ActionRequest{UserID: 1, Action: domain.ActionClick})
	if !errors.Is(err, repository.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable got %v", err)
	}
}
