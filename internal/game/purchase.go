package game

import (
	"time"

	"banana_clicker/internal/domain"
)

// PurchaseOutcome describes a successful purchase.
type PurchaseOutcome struct {
	Kind     domain.UpgradeKind `json:"kind"`
	Cost     int64              `json:"cost"`
	NewLevel int64              `json:"new_level"`
	Offline  int64              `json:"offline_added"`
	NextCost int64              `json:"next_cost"`
}

// Purchase buys one level of kind. On ErrInsufficientBalance the only change
// is the idle accrual credited beforehand; callers that need the record
// untouched must work on a clone.
func Purchase(p *domain.UserProgress, kind domain.UpgradeKind, now time.Time, rules Rules) (PurchaseOutcome, error) {
	level := p.Level(kind)
	cost, err := CostFor(kind, level)
	if err != nil {
		return PurchaseOutcome{}, err
	}

	offline := Reconcile(p, now, rules.OfflineCap)
	if p.Balance < cost {
		return PurchaseOutcome{Offline: offline}, ErrInsufficientBalance
	}

	p.Balance -= cost
	p.UpgradeLevels[kind] = level + 1
	Recompute(p)
	if IsBoostKind(kind) {
		p.Inventory[domain.BoostKind(kind)]++
	}

	next, _ := CostFor(kind, level+1)
	return PurchaseOutcome{
		Kind:     kind,
		Cost:     cost,
		NewLevel: level + 1,
		Offline:  offline,
		NextCost: next,
	}, nil
}
