package service

import (
	"context"
	"errors"

	"banana_clicker/internal/domain"
	"banana_clicker/internal/game"
	"banana_clicker/internal/metrics"
)

// Reason codes returned to the bot surface for expected rejections.
const (
	ReasonInsufficientBalance = "insufficient_balance"
	ReasonBoostConflict       = "boost_conflict"
	ReasonBoostNotOwned       = "boost_not_owned"
	ReasonUnknownKind         = "unknown_kind"
	ReasonValidation          = "validation_error"
	ReasonUnknownAction       = "unknown_action"
)

// RejectionReason maps an expected domain error to its reason code. ok is
// false for infrastructure errors.
func RejectionReason(err error) (reason string, ok bool) {
	switch {
	case errors.Is(err, game.ErrInsufficientBalance):
		return ReasonInsufficientBalance, true
	case errors.Is(err, game.ErrBoostConflict):
		return ReasonBoostConflict, true
	case errors.Is(err, game.ErrBoostNotOwned):
		return ReasonBoostNotOwned, true
	case errors.Is(err, game.ErrUnknownUpgrade), errors.Is(err, game.ErrUnknownBoost):
		return ReasonUnknownKind, true
	case errors.Is(err, game.ErrValidation):
		return ReasonValidation, true
	}
	return "", false
}

// Execute dispatches a bot/UI action. Expected rejections come back as
// ok=false results; only infrastructure failures are returned as errors.
func (s *ProgressService) Execute(ctx context.Context, req domain.ActionRequest) (domain.ActionResult, error) {
	var (
		p       *domain.UserProgress
		effects = map[string]any{}
		err     error
	)

	switch req.Action {
	case domain.ActionClick:
		var out ClickOutcome
		out, p, err = s.Click(ctx, req.UserID)
		effects["gain"] = out.Gain
		effects["offline_added"] = out.Offline
		effects["multiplier"] = out.Multiplier
	case domain.ActionPurchase:
		var out game.PurchaseOutcome
		out, p, err = s.Purchase(ctx, req.UserID, domain.UpgradeKind(req.Kind))
		if err == nil {
			effects["kind"] = out.Kind
			effects["cost"] = out.Cost
			effects["new_level"] = out.NewLevel
			effects["next_cost"] = out.NextCost
			effects["offline_added"] = out.Offline
			effects["per_action_rate"] = p.PerActionRate
			effects["per_interval_rate"] = p.PerIntervalRate
		}
	case domain.ActionBoost:
		var b *domain.Boost
		b, p, err = s.ActivateBoost(ctx, req.UserID, domain.BoostKind(req.Kind))
		if err == nil {
			effects["boost"] = b
			effects["remaining"] = p.Inventory[b.Kind]
		}
	case domain.ActionPrestige:
		var r domain.Reward
		r, p, err = s.Prestige(ctx, req.UserID)
		if err == nil {
			effects["reward"] = r
			effects["prestige_count"] = p.PrestigeCount
		}
	default:
		metrics.Actions.WithLabelValues("unknown", "rejected").Inc()
		return domain.ActionResult{OK: false, Reason: ReasonUnknownAction}, nil
	}

	action := string(req.Action)
	if err != nil {
		reason, expected := RejectionReason(err)
		if !expected {
			metrics.Actions.WithLabelValues(action, "error").Inc()
			return domain.ActionResult{}, err
		}
		metrics.Actions.WithLabelValues(action, "rejected").Inc()
		res := domain.ActionResult{OK: false, Reason: reason, Effects: map[string]any{"error": err.Error()}}
		if p != nil {
			res.NewBalance = p.Balance
		}
		return res, nil
	}

	metrics.Actions.WithLabelValues(action, "ok").Inc()
	return domain.ActionResult{OK: true, NewBalance: p.Balance, Effects: effects}, nil
}
