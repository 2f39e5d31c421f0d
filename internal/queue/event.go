// Package queue defines message payloads exchanged over the message broker.
package queue

// ScriptPublishedEvent is published when a script upload succeeds. It
// carries enough information for downstream consumers to log, notify or
// feed analytics without querying the primary database.
type ScriptPublishedEvent struct {
	ScriptID      string  `json:"script_id"`
	OwnerID       uint64  `json:"owner_id"`
	OwnerUsername string  `json:"owner_username"`
	Title         string  `json:"title"`
	Multiplier    float64 `json:"multiplier"`
	PublishedAt   string  `json:"published_at"`
}

// PromotionRedeemedEvent is published when a promotion or age-reset code
// is successfully redeemed against a script.
type PromotionRedeemedEvent struct {
	ScriptID      string `json:"script_id"`
	OwnerUsername string `json:"owner_username"`
	CodeType      string `json:"code_type"`
	Tier          string `json:"tier,omitempty"`
	RedeemedAt    string `json:"redeemed_at"`
}
