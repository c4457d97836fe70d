package domain

import (
	"maps"
	"time"
)

// UpgradeKind names a purchasable upgrade track.
type UpgradeKind string

const (
	UpgradeActionRate   UpgradeKind = "action_rate"
	UpgradeIntervalRate UpgradeKind = "interval_rate"
)

// BoostKind names a consumable boost. Every boost kind is also an upgrade
// kind: buying one bumps its purchase counter and adds it to the inventory.
type BoostKind string

const (
	BoostGold    BoostKind = "gold"
	BoostDiamond BoostKind = "diamond"
)

// BoostSource tells a personal consumable apart from a global event.
type BoostSource string

const (
	SourcePersonal BoostSource = "personal"
	SourceGlobal   BoostSource = "global"
)

// Boost is a time-boxed multiplicative modifier.
type Boost struct {
	Kind       BoostKind   `json:"kind"`
	Multiplier float64     `json:"multiplier"`
	ExpiresAt  time.Time   `json:"expires_at"`
	Source     BoostSource `json:"source"`
}

// Active reports whether the boost still applies at now. A boost expiring
// exactly at now is inactive.
func (b *Boost) Active(now time.Time) bool {
	return b != nil && b.ExpiresAt.After(now)
}

// UserProgress is the per-player progression record.
type UserProgress struct {
	UserID          int64                 `db:"user_id" json:"user_id"`
	Balance         int64                 `db:"balance" json:"balance"`
	BasePerAction   int64                 `db:"base_per_action" json:"base_per_action"`
	BasePerInterval int64                 `db:"base_per_interval" json:"base_per_interval"`
	PerActionRate   int64                 `db:"per_action_rate" json:"per_action_rate"`
	PerIntervalRate int64                 `db:"per_interval_rate" json:"per_interval_rate"`
	UpgradeLevels   map[UpgradeKind]int64 `db:"upgrade_levels" json:"upgrade_levels"`
	Inventory       map[BoostKind]int64   `db:"inventory" json:"inventory"`
	PersonalBoost   *Boost                `db:"personal_boost" json:"active_personal_boost,omitempty"`
	GlobalEvent     *Boost                `db:"global_event" json:"active_global_event,omitempty"`
	PrestigeCount   int64                 `db:"prestige_count" json:"prestige_count"`
	LastObservedAt  time.Time             `db:"last_observed_at" json:"last_observed_at"`
	Version         int64                 `db:"version" json:"-"`
}

// NewUserProgress returns the default record for a first interaction.
func NewUserProgress(userID int64, now time.Time) *UserProgress {
	return &UserProgress{
		UserID:         userID,
		BasePerAction:  1,
		PerActionRate:  1,
		UpgradeLevels:  make(map[UpgradeKind]int64),
		Inventory:      make(map[BoostKind]int64),
		LastObservedAt: now,
	}
}

// Level returns the current level of kind, zero when never bought.
func (p *UserProgress) Level(kind UpgradeKind) int64 {
	return p.UpgradeLevels[kind]
}

// Clone returns a deep copy so a transition can be discarded on failure.
func (p *UserProgress) Clone() *UserProgress {
	c := *p
	c.UpgradeLevels = maps.Clone(p.UpgradeLevels)
	if c.UpgradeLevels == nil {
		c.UpgradeLevels = make(map[UpgradeKind]int64)
	}
	c.Inventory = maps.Clone(p.Inventory)
	if c.Inventory == nil {
		c.Inventory = make(map[BoostKind]int64)
	}
	if p.PersonalBoost != nil {
		b := *p.PersonalBoost
		c.PersonalBoost = &b
	}
	if p.GlobalEvent != nil {
		b := *p.GlobalEvent
		c.GlobalEvent = &b
	}
	return &c
}
