package game

import (
	"fmt"

	"banana_clicker/internal/domain"
)

// Base costs. cost = base * (level + 1), the only formula for every kind.
var baseCosts = map[domain.UpgradeKind]int64{
	domain.UpgradeActionRate:                50,
	domain.UpgradeIntervalRate:              100,
	domain.UpgradeKind(domain.BoostGold):    1000,
	domain.UpgradeKind(domain.BoostDiamond): 2500,
}

// UpgradeKinds lists every purchasable kind in shop order.
func UpgradeKinds() []domain.UpgradeKind {
	return []domain.UpgradeKind{
		domain.UpgradeActionRate,
		domain.UpgradeIntervalRate,
		domain.UpgradeKind(domain.BoostGold),
		domain.UpgradeKind(domain.BoostDiamond),
	}
}

// CostFor returns the price of the next level of kind given its current level.
func CostFor(kind domain.UpgradeKind, level int64) (int64, error) {
	base, ok := baseCosts[kind]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownUpgrade, kind)
	}
	if level < 0 {
		level = 0
	}
	return base * (level + 1), nil
}

// ProductionRates derives per-action and per-interval yield from levels.
func ProductionRates(basePerAction, basePerInterval int64, levels map[domain.UpgradeKind]int64) (perAction, perInterval int64) {
	perAction = basePerAction + levels[domain.UpgradeActionRate]
	perInterval = basePerInterval + levels[domain.UpgradeIntervalRate]
	return perAction, perInterval
}

// Recompute refreshes the derived rates stored on p.
func Recompute(p *domain.UserProgress) {
	p.PerActionRate, p.PerIntervalRate = ProductionRates(p.BasePerAction, p.BasePerInterval, p.UpgradeLevels)
}
