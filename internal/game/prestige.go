package game

import (
	"math"
	"time"

	"banana_clicker/internal/domain"
)

// PrestigeRequirement is base * 2^count, saturating at MaxInt64.
func PrestigeRequirement(base, count int64) int64 {
	if count >= 62 {
		return math.MaxInt64
	}
	req := base << uint(count)
	if base != 0 && req>>uint(count) != base {
		return math.MaxInt64
	}
	return req
}

// RewardFor is the grant for reaching the given prestige count: one gold
// boost per prestige level.
func RewardFor(count int64) domain.Reward {
	return domain.Reward{Kind: domain.BoostGold, Count: count}
}

// Prestige resets progression in exchange for a reward. Inventory and the
// global event survive the reset; the personal boost does not.
func Prestige(p *domain.UserProgress, now time.Time, rules Rules) (domain.Reward, error) {
	Reconcile(p, now, rules.OfflineCap)
	if p.Balance < PrestigeRequirement(rules.PrestigeBaseRequirement, p.PrestigeCount) {
		return domain.Reward{}, ErrInsufficientBalance
	}

	p.PrestigeCount++
	p.Balance = 0
	p.UpgradeLevels = make(map[domain.UpgradeKind]int64)
	Recompute(p)
	p.PersonalBoost = nil

	reward := RewardFor(p.PrestigeCount)
	if p.Inventory == nil {
		p.Inventory = make(map[domain.BoostKind]int64)
	}
	p.Inventory[reward.Kind] += reward.Count
	return reward, nil
}
