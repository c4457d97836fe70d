package domain

// Action is a discrete request coming from the chat/UI layer.
type Action string

const (
	ActionClick    Action = "click"
	ActionPurchase Action = "purchase"
	ActionBoost    Action = "activate_boost"
	ActionPrestige Action = "prestige"
)

// ActionRequest is the shape the bot surface sends for every player action.
type ActionRequest struct {
	UserID int64  `json:"user_id"`
	Action Action `json:"action" binding:"required"`
	Kind   string `json:"kind,omitempty"`
}

// ActionResult is returned to the bot surface for rendering.
type ActionResult struct {
	OK         bool           `json:"ok"`
	Reason     string         `json:"reason,omitempty"`
	NewBalance int64          `json:"new_balance"`
	Effects    map[string]any `json:"effects,omitempty"`
}

// Reward is the grant handed out by a successful prestige.
type Reward struct {
	Kind  BoostKind `json:"kind"`
	Count int64     `json:"count"`
}
