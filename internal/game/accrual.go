package game

import (
	"math"
	"time"

	"banana_clicker/internal/domain"
)

// Reconcile credits idle accrual since LastObservedAt and returns the amount.
//
// Elapsed time is counted in whole accrual units. Below one unit nothing is
// written, so a repeated call at the same instant (or a clock that stepped
// back) leaves the record untouched. The checkpoint moves forward by the units
// consumed, or to now when the interval was clamped to offlineCap.
func Reconcile(p *domain.UserProgress, now time.Time, offlineCap time.Duration) int64 {
	elapsed := now.Sub(p.LastObservedAt)
	units := int64(elapsed / AccrualUnit)
	if units <= 0 {
		return 0
	}

	checkpoint := p.LastObservedAt.Add(time.Duration(units) * AccrualUnit)
	if capUnits := int64(offlineCap / AccrualUnit); offlineCap > 0 && units > capUnits {
		units = capUnits
		checkpoint = now
	}

	ClearExpired(p, now)
	mult := EffectiveMultiplier(p, now)

	added := credit(p, float64(p.PerIntervalRate)*float64(units)*mult)
	p.LastObservedAt = checkpoint
	return added
}

// credit floors amount and adds it to the balance, saturating at MaxInt64.
func credit(p *domain.UserProgress, amount float64) int64 {
	room := math.MaxInt64 - p.Balance
	amount = math.Floor(amount)
	var added int64
	switch {
	case !(amount > 0):
		return 0
	case amount >= float64(room):
		added = room
	default:
		added = int64(amount)
	}
	p.Balance += added
	return added
}

// Click grants one action's yield after reconciling idle time.
func Click(p *domain.UserProgress, now time.Time, rules Rules) (gain, offline int64) {
	offline = Reconcile(p, now, rules.OfflineCap)
	ClearExpired(p, now)
	gain = credit(p, float64(p.PerActionRate)*EffectiveMultiplier(p, now))
	return gain, offline
}
