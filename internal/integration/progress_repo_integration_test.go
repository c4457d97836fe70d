package integration

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"banana_clicker/internal/clock"
	"banana_clicker/internal/domain"
	"banana_clicker/internal/game"
	"banana_clicker/internal/migrations"
	"banana_clicker/internal/repository"
	"banana_clicker/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
)

func connect(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	db, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(db.Close)

	if _, err := migrations.Apply(context.Background(), db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return db
}

// uniqueUser keeps runs against a shared database apart.
func uniqueUser(t *testing.T, db *pgxpool.Pool) int64 {
	t.Helper()
	id := time.Now().UnixNano()
	t.Cleanup(func() {
		_, _ = db.Exec(context.Background(), `DELETE FROM user_progress WHERE user_id = $1`, id)
	})
	return id
}

func TestProgressRepository_RoundTripAndVersioning(t *testing.T) {
	db := connect(t)
	repo := repository.NewProgressRepository(db)
	ctx := context.Background()
	id := uniqueUser(t, db)
	now := clock.RealClock{}.Now()

	if _, err := repo.Get(ctx, id); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound got %v", err)
	}

	p := domain.NewUserProgress(id, now)
	p.Balance = 123
	p.UpgradeLevels[domain.UpgradeIntervalRate] = 2
	p.Inventory[domain.BoostGold] = 3
	p.PersonalBoost = &domain.Boost{Kind: domain.BoostGold, Multiplier: 2, ExpiresAt: now.Add(time.Minute), Source: domain.SourcePersonal}
	game.Recompute(p)
	if err := repo.Upsert(ctx, p); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if p.Version != 1 {
		t.Fatalf("expected version 1 got %d", p.Version)
	}

	got, err := repo.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Balance != 123 || got.PerIntervalRate != 2 || got.Inventory[domain.BoostGold] != 3 {
		t.Fatalf("unexpected row %+v", got)
	}
	if got.PersonalBoost == nil || !got.PersonalBoost.ExpiresAt.Equal(p.PersonalBoost.ExpiresAt) {
		t.Fatalf("boost not round-tripped: %+v", got.PersonalBoost)
	}
	if got.GlobalEvent != nil {
		t.Fatalf("expected NULL global event, got %+v", got.GlobalEvent)
	}
	if !got.LastObservedAt.Equal(now) {
		t.Fatalf("checkpoint drifted: %v vs %v", got.LastObservedAt, now)
	}

	stale := got.Clone()
	got.Balance = 200
	if err := repo.Upsert(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	stale.Balance = 1
	if err := repo.Upsert(ctx, stale); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected ErrConflict got %v", err)
	}
	dup := domain.NewUserProgress(id, now)
	if err := repo.Upsert(ctx, dup); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected ErrConflict on duplicate insert got %v", err)
	}
}

func TestProgressService_ConcurrentClicksAgainstPostgres(t *testing.T) {
	db := connect(t)
	id := uniqueUser(t, db)
	svc := service.NewProgressService(repository.NewProgressRepository(db), clock.RealClock{}, game.DefaultRules())
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := svc.Click(ctx, id); err != nil {
				t.Errorf("click: %v", err)
			}
		}()
	}
	wg.Wait()

	p, err := svc.State(ctx, id)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if p.Balance != n {
		t.Fatalf("expected balance %d got %d", n, p.Balance)
	}
}

func TestProgressRepository_GlobalEvents(t *testing.T) {
	db := connect(t)
	repo := repository.NewProgressRepository(db)
	ctx := context.Background()
	now := clock.RealClock{}.Now()

	kind := domain.BoostKind("it-" + time.Now().Format("150405.000000"))
	ev := domain.Boost{Kind: kind, Multiplier: 1.5, ExpiresAt: now.Add(time.Hour), Source: domain.SourceGlobal}
	if err := repo.SaveGlobalEvent(ctx, ev); err != nil {
		t.Fatalf("save: %v", err)
	}
	t.Cleanup(func() {
		_, _ = db.Exec(context.Background(), `DELETE FROM global_events WHERE kind = $1`, string(kind))
	})

	got, err := repo.CurrentGlobalEvent(ctx)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if got == nil || got.Kind != kind || got.Multiplier != 1.5 || !got.ExpiresAt.Equal(ev.ExpiresAt) {
		t.Fatalf("unexpected event %+v", got)
	}
}
