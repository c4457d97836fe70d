package game

import (
	"errors"
	"testing"
	"time"

	"banana_clicker/internal/domain"
)

func TestPurchaseExactBalance(t *testing.T) {
	p := domain.NewUserProgress(1, t0)
	p.UpgradeLevels[domain.UpgradeActionRate] = 3
	Recompute(p)
	cost, _ := CostFor(domain.UpgradeActionRate, 3)
	p.Balance = cost

	out, err := Purchase(p, domain.UpgradeActionRate, t0, DefaultRules())
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if p.Balance != 0 {
		t.Fatalf("expected balance 0 got %d", p.Balance)
	}
	if out.NewLevel != 4 || p.Level(domain.UpgradeActionRate) != 4 {
		t.Fatalf("expected level 4, outcome %+v", out)
	}
	if p.PerActionRate != 5 {
		t.Fatalf("expected per action 5 got %d", p.PerActionRate)
	}
}

func TestPurchaseInsufficient(t *testing.T) {
	p := domain.NewUserProgress(1, t0)
	p.Balance = 99
	before := p.Clone()

	_, err := Purchase(p, domain.UpgradeIntervalRate, t0, DefaultRules())
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance got %v", err)
	}
	if p.Balance != before.Balance || p.Level(domain.UpgradeIntervalRate) != 0 {
		t.Fatalf("state mutated on rejection: %+v", p)
	}
}

func TestPurchaseBoostGoesToInventory(t *testing.T) {
	p := domain.NewUserProgress(1, t0)
	p.Balance = 1000

	if _, err := Purchase(p, domain.UpgradeKind(domain.BoostGold), t0, DefaultRules()); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if p.Inventory[domain.BoostGold] != 1 {
		t.Fatalf("expected gold in inventory")
	}
	if p.PersonalBoost != nil {
		t.Fatalf("purchase must not auto-activate")
	}
	if p.Level(domain.UpgradeKind(domain.BoostGold)) != 1 {
		t.Fatalf("expected purchase counter 1")
	}
}

func TestPurchaseUnknownKind(t *testing.T) {
	p := domain.NewUserProgress(1, t0)
	if _, err := Purchase(p, "rocket", t0, DefaultRules()); !errors.Is(err, ErrUnknownUpgrade) {
		t.Fatalf("expected ErrUnknownUpgrade got %v", err)
	}
}

func TestBalanceNeverNegative(t *testing.T) {
	p := domain.NewUserProgress(1, t0)
	rules := DefaultRules()
	now := t0
	for i := 0; i < 2000; i++ {
		now = now.Add(700 * time.Millisecond)
		switch i % 4 {
		case 0:
			Click(p, now, rules)
		case 1:
			_, _ = Purchase(p, domain.UpgradeActionRate, now, rules)
		case 2:
			_, _ = Purchase(p, domain.UpgradeIntervalRate, now, rules)
		case 3:
			_, _ = Prestige(p, now, rules)
		}
		if p.Balance < 0 {
			t.Fatalf("negative balance after step %d: %d", i, p.Balance)
		}
	}
}
