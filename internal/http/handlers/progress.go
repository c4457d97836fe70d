package handlers

import (
	"net/http"

	"banana_clicker/internal/domain"
	"banana_clicker/internal/game"
	"banana_clicker/internal/logger"

	"github.com/gin-gonic/gin"
)

type shopItem struct {
	Kind            domain.UpgradeKind `json:"kind"`
	Level           int64              `json:"level"`
	Cost            int64              `json:"cost"`
	Owned           int64              `json:"owned,omitempty"`
	Multiplier      float64            `json:"multiplier,omitempty"`
	DurationSeconds int64              `json:"duration_seconds,omitempty"`
}

// Progress returns the reconciled state of the caller.
func (h *Handler) Progress(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}

	p, err := h.svc.State(c.Request.Context(), userID)
	if err != nil {
		logger.WithContext(c.Request.Context()).Error("load progress", "user_id", userID, "error", err)
		respondError(c, err)
		return
	}

	rules := h.svc.Rules()
	c.JSON(http.StatusOK, gin.H{
		"progress":             p,
		"multiplier":           game.EffectiveMultiplier(p, h.svc.Now()),
		"prestige_requirement": game.PrestigeRequirement(rules.PrestigeBaseRequirement, p.PrestigeCount),
	})
}

// Shop lists every purchasable kind with the caller's next price.
func (h *Handler) Shop(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}

	p, err := h.svc.State(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]shopItem, 0, len(game.UpgradeKinds()))
	for _, kind := range game.UpgradeKinds() {
		level := p.Level(kind)
		cost, err := game.CostFor(kind, level)
		if err != nil {
			continue
		}
		item := shopItem{Kind: kind, Level: level, Cost: cost}
		if spec, ok := game.LookupBoost(domain.BoostKind(kind)); ok {
			item.Owned = p.Inventory[domain.BoostKind(kind)]
			item.Multiplier = spec.Multiplier
			item.DurationSeconds = int64(spec.Duration.Seconds())
		}
		items = append(items, item)
	}

	c.JSON(http.StatusOK, gin.H{"balance": p.Balance, "items": items})
}

// Action executes a generic {action, kind} request for the caller.
func (h *Handler) Action(c *gin.Context) {
	var req domain.ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	h.execute(c, req.Action, req.Kind)
}

func (h *Handler) Click(c *gin.Context) {
	h.execute(c, domain.ActionClick, "")
}

func (h *Handler) Purchase(c *gin.Context) {
	h.execute(c, domain.ActionPurchase, c.Param("kind"))
}

func (h *Handler) ActivateBoost(c *gin.Context) {
	h.execute(c, domain.ActionBoost, c.Param("kind"))
}

func (h *Handler) Prestige(c *gin.Context) {
	h.execute(c, domain.ActionPrestige, "")
}

// execute runs an action for the authenticated user. Rejections are
// answered with 422 and the ActionResult body.
func (h *Handler) execute(c *gin.Context, action domain.Action, kind string) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}

	res, err := h.svc.Execute(c.Request.Context(), domain.ActionRequest{
		UserID: userID,
		Action: action,
		Kind:   kind,
	})
	if err != nil {
		logger.WithContext(c.Request.Context()).Error("action failed",
			"user_id", userID,
			"action", action,
			"error", err,
		)
		respondError(c, err)
		return
	}

	if !res.OK {
		c.JSON(http.StatusUnprocessableEntity, res)
		return
	}
	c.JSON(http.StatusOK, res)
}
