package game

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"banana_clicker/internal/domain"
)

// MaxEventMultiplier bounds admin-set global events.
const MaxEventMultiplier = 100

// BoostSpec describes a consumable boost kind.
type BoostSpec struct {
	Multiplier float64       `json:"multiplier"`
	Duration   time.Duration `json:"duration"`
}

var boostCatalog = map[domain.BoostKind]BoostSpec{
	domain.BoostGold:    {Multiplier: 2, Duration: 60 * time.Second},
	domain.BoostDiamond: {Multiplier: 3, Duration: 30 * time.Second},
}

// LookupBoost returns the catalog entry for kind.
func LookupBoost(kind domain.BoostKind) (BoostSpec, bool) {
	spec, ok := boostCatalog[kind]
	return spec, ok
}

// IsBoostKind reports whether an upgrade kind is a consumable purchase.
func IsBoostKind(kind domain.UpgradeKind) bool {
	_, ok := boostCatalog[domain.BoostKind(kind)]
	return ok
}

func factor(b *domain.Boost, now time.Time) float64 {
	if !b.Active(now) {
		return 1
	}
	return b.Multiplier
}

// EffectiveMultiplier composes the personal boost and the global event
// multiplicatively. An inactive or missing boost contributes 1.
func EffectiveMultiplier(p *domain.UserProgress, now time.Time) float64 {
	m := factor(p.PersonalBoost, now) * factor(p.GlobalEvent, now)
	if m < 1 {
		return 1
	}
	return m
}

// ClearExpired drops boosts whose expiry is at or before now.
func ClearExpired(p *domain.UserProgress, now time.Time) {
	if p.PersonalBoost != nil && !p.PersonalBoost.Active(now) {
		p.PersonalBoost = nil
	}
	if p.GlobalEvent != nil && !p.GlobalEvent.Active(now) {
		p.GlobalEvent = nil
	}
}

// ActivateConsumableBoost redeems one boost of kind from the inventory.
// The same kind extends the running boost; a different kind is rejected.
func ActivateConsumableBoost(p *domain.UserProgress, kind domain.BoostKind, now time.Time) (*domain.Boost, error) {
	spec, ok := boostCatalog[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBoost, kind)
	}
	ClearExpired(p, now)
	if p.Inventory[kind] < 1 {
		return nil, ErrBoostNotOwned
	}

	switch {
	case p.PersonalBoost == nil:
		p.PersonalBoost = &domain.Boost{
			Kind:       kind,
			Multiplier: spec.Multiplier,
			ExpiresAt:  now.Add(spec.Duration),
			Source:     domain.SourcePersonal,
		}
	case p.PersonalBoost.Kind == kind:
		p.PersonalBoost.ExpiresAt = p.PersonalBoost.ExpiresAt.Add(spec.Duration)
	default:
		return nil, fmt.Errorf("%w: %s until %s", ErrBoostConflict, p.PersonalBoost.Kind, p.PersonalBoost.ExpiresAt.Format(time.RFC3339))
	}

	p.Inventory[kind]--
	b := *p.PersonalBoost
	return &b, nil
}

// NewGlobalEvent validates admin input and builds the event boost.
func NewGlobalEvent(kind string, multiplier float64, duration time.Duration, now time.Time) (domain.Boost, error) {
	kind = strings.TrimSpace(kind)
	switch {
	case kind == "":
		return domain.Boost{}, fmt.Errorf("%w: event kind is empty", ErrValidation)
	case !(multiplier >= 1 && multiplier <= MaxEventMultiplier):
		return domain.Boost{}, fmt.Errorf("%w: multiplier must be within [1, %d], got %v", ErrValidation, MaxEventMultiplier, multiplier)
	case duration <= 0:
		return domain.Boost{}, fmt.Errorf("%w: duration must be positive, got %s", ErrValidation, duration)
	}
	return domain.Boost{
		Kind:       domain.BoostKind(kind),
		Multiplier: multiplier,
		ExpiresAt:  now.Add(duration),
		Source:     domain.SourceGlobal,
	}, nil
}

// ParseEventArgs turns textual admin input ("2", "30m") into typed values.
func ParseEventArgs(multiplier, duration string) (float64, time.Duration, error) {
	m, err := strconv.ParseFloat(strings.TrimSpace(multiplier), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: bad multiplier %q", ErrValidation, multiplier)
	}
	d, err := time.ParseDuration(strings.TrimSpace(duration))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: bad duration %q", ErrValidation, duration)
	}
	return m, d, nil
}

// SetGlobalEvent replaces the record's global event. Re-applying the same
// event is a no-op.
func SetGlobalEvent(p *domain.UserProgress, event domain.Boost) bool {
	if g := p.GlobalEvent; g != nil && g.Kind == event.Kind && g.Multiplier == event.Multiplier && g.ExpiresAt.Equal(event.ExpiresAt) {
		return false
	}
	e := event
	p.GlobalEvent = &e
	return true
}
