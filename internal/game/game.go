package game

import (
	"errors"
	"time"
)

// Expected rejections. None of them mutate the record.
var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrBoostConflict       = errors.New("another boost is active")
	ErrBoostNotOwned       = errors.New("boost not in inventory")
	ErrUnknownUpgrade      = errors.New("unknown upgrade kind")
	ErrUnknownBoost        = errors.New("unknown boost kind")
	ErrValidation          = errors.New("validation error")
)

// AccrualUnit is the time unit per_interval_rate is expressed in.
const AccrualUnit = time.Second

// Rules are the tunables every transition needs.
type Rules struct {
	OfflineCap              time.Duration
	PrestigeBaseRequirement int64
}

// DefaultRules mirrors the production defaults.
func DefaultRules() Rules {
	return Rules{
		OfflineCap:              24 * time.Hour,
		PrestigeBaseRequirement: 1000,
	}
}
