package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	"banana_clicker/internal/clock"
	"banana_clicker/internal/game"
	"banana_clicker/internal/repository"
	"banana_clicker/internal/service"
	"banana_clicker/internal/worker"
)

func newTestBot(t *testing.T) (*AdminBot, *service.ProgressService) {
	t.Helper()
	clk := clock.NewFake(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	svc := service.NewProgressService(repository.NewMemoryProgressRepository(), clk, game.DefaultRules())
	b := newAdminBot(svc, worker.NewSweeper(svc, time.Hour), []int64{1})
	b.audit = service.NewAuditService(repository.NewMemoryAuditRepository())
	return b, svc
}

func TestEventCommand(t *testing.T) {
	b, svc := newTestBot(t)
	ctx := context.Background()
	if _, err := svc.State(ctx, 7); err != nil {
		t.Fatalf("state: %v", err)
	}

	out := b.respond(ctx, 1, "event", "weekend 2 30m")
	if !strings.Contains(out, "Событие запущено") || !strings.Contains(out, "1 из 1") {
		t.Fatalf("unexpected reply: %s", out)
	}

	p, _ := svc.State(ctx, 7)
	if p.GlobalEvent == nil || p.GlobalEvent.Multiplier != 2 {
		t.Fatalf("event not applied: %+v", p.GlobalEvent)
	}

	logs, _ := b.audit.GetUserAuditLogs(ctx, 1, 10)
	if len(logs) != 1 || logs[0].Action != "global_event_start" || logs[0].Details["source"] != "bot" {
		t.Fatalf("expected one audit entry, got %+v", logs)
	}
}

func TestEventCommandRejectsBadInput(t *testing.T) {
	b, _ := newTestBot(t)
	ctx := context.Background()
	for _, args := range []string{"", "weekend 2", "weekend two 30m", "weekend 0.5 30m", "weekend 2 -1m"} {
		if out := b.respond(ctx, 1, "event", args); !strings.HasPrefix(out, "❌") {
			t.Fatalf("args %q: expected an error reply, got %s", args, out)
		}
	}
}

func TestSweepAndStatsCommands(t *testing.T) {
	b, _ := newTestBot(t)
	ctx := context.Background()

	if out := b.respond(ctx, 1, "sweep", ""); !strings.HasPrefix(out, "✅") {
		t.Fatalf("unexpected sweep reply: %s", out)
	}
	if out := b.respond(ctx, 1, "stats", ""); !strings.Contains(out, "Проходов выполнено: 1") {
		t.Fatalf("unexpected stats reply: %s", out)
	}
}

func TestUserAndUnknownCommands(t *testing.T) {
	b, _ := newTestBot(t)
	ctx := context.Background()

	if out := b.respond(ctx, 1, "user", "42"); !strings.Contains(out, "Игрок 42") {
		t.Fatalf("unexpected user reply: %s", out)
	}
	if out := b.respond(ctx, 1, "user", "abc"); !strings.HasPrefix(out, "❌") {
		t.Fatalf("expected usage error, got %s", out)
	}
	if out := b.respond(ctx, 1, "dance", ""); !strings.Contains(out, "Неизвестная команда") {
		t.Fatalf("unexpected reply: %s", out)
	}
	if !b.isAdmin(1) || b.isAdmin(2) {
		t.Fatalf("isAdmin mismatch")
	}
}
