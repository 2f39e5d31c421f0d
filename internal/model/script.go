package model

import "time"

// Promotion tiers a script can hold while a promotion code is active.
// The empty string means "no tier".
const (
	TierNone = ""
	TierI    = "I"
	TierII   = "II"
	TierIII  = "III"
	TierIV   = "IV"
)

// Script represents a published script as stored in the `scripts` table.
// The scoring-relevant columns mirror what the ranking queries read:
// `multiplier` is a materialized copy of the pure multiplier computation
// (re-derived by the batch job, never a source of truth) and `points` is
// the accumulated engagement score written via atomic increments.
//
// Fields:
//  ID                 – stable external identifier (scripts.id).
//  OwnerID            – foreign key into users (scripts.owner_id).
//  OwnerUsername      – denormalized owner name for profile listings.
//  Title              – display title.
//  Description        – short description shown in listings.
//  CreatedAt          – real publish time; rewritten only by an age-reset code.
//  AgeReset           – effective-age override set by promo redemptions (nullable).
//  PromotionTier      – active promotion level ("" / I..IV).
//  PromotionActive    – whether a promotion is currently running.
//  PromotionExpiresAt – when the active promotion ends (nullable).
//  IsBumped           – whether a bump is in effect.
//  BumpExpire         – when the bump decays (nullable).
//  OwnerVerified      – materialized copy of the owner's verification flag,
//                       refreshed by the batch job.
//  Multiplier         – last computed effective multiplier.
//  Points             – accumulated engagement points.
//  Views              – lifetime view counter.
//  Likes              – lifetime like counter.
//  LastActivity       – refreshed by bumps and promotion expiry handling.
//  UpdatedAt          – timestamp of last update.
type Script struct {
	ID                 string     // scripts.id
	OwnerID            uint64     // scripts.owner_id
	OwnerUsername      string     // scripts.owner_username
	Title              string     // scripts.title
	Description        string     // scripts.description
	CreatedAt          time.Time  // scripts.created_at
	AgeReset           *time.Time // scripts.age_reset (nullable)
	PromotionTier      string     // scripts.promotion_tier ("" when none)
	PromotionActive    bool       // scripts.promotion_active
	PromotionExpiresAt *time.Time // scripts.promotion_expires_at (nullable)
	IsBumped           bool       // scripts.is_bumped
	BumpExpire         *time.Time // scripts.bump_expire (nullable)
	OwnerVerified      bool       // scripts.owner_verified (refreshed by the batch job)
	Multiplier         float64    // scripts.multiplier
	Points             float64    // scripts.points
	Views              uint64     // scripts.views
	Likes              uint64     // scripts.likes
	LastActivity       time.Time  // scripts.last_activity
	UpdatedAt          time.Time  // scripts.updated_at
}

// EffectiveAge returns the timestamp freshness is measured from: the
// age-reset override when a redemption has set one, otherwise the real
// publish time.
func (s Script) EffectiveAge() time.Time {
	if s.AgeReset != nil {
		return *s.AgeReset
	}
	return s.CreatedAt
}
