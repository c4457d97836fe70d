package ws

import (
	"time"

	"banana_clicker/internal/domain"
)

// server -> client
type ProgressPayload struct {
	Balance         int64                      `json:"balance"`
	PerActionRate   int64                      `json:"per_action_rate"`
	PerIntervalRate int64                      `json:"per_interval_rate"`
	PrestigeCount   int64                      `json:"prestige_count"`
	Inventory       map[domain.BoostKind]int64 `json:"inventory"`
	PersonalBoost   *domain.Boost              `json:"active_personal_boost,omitempty"`
	GlobalEvent     *domain.Boost              `json:"active_global_event,omitempty"`
	ObservedAt      time.Time                  `json:"observed_at"`
}

func progressPayload(p domain.UserProgress) ProgressPayload {
	return ProgressPayload{
		Balance:         p.Balance,
		PerActionRate:   p.PerActionRate,
		PerIntervalRate: p.PerIntervalRate,
		PrestigeCount:   p.PrestigeCount,
		Inventory:       p.Inventory,
		PersonalBoost:   p.PersonalBoost,
		GlobalEvent:     p.GlobalEvent,
		ObservedAt:      p.LastObservedAt,
	}
}

type ErrorPayload struct {
	Message string `json:"message"`
}
