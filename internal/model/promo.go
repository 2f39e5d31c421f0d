package model

import "time"

// Promotion code kinds. A "promo" code grants a tier and a bounded age
// reversal; an "ageReset" code rewrites the publish time outright and is
// spent the moment it is used.
const (
	CodeTypePromo    = "promo"
	CodeTypeAgeReset = "ageReset"
)

// PromoCode mirrors the `promo_codes` table. A code is created unused,
// redeemed exactly once (ScriptID set atomically on the first successful
// redemption) and then expires either immediately (ageReset) or after the
// tier's reversal window.
//
// Fields:
//  ID              – primary key identifier.
//  Code            – unique redeemable code string.
//  CodeType        – "promo" or "ageReset".
//  Tier            – granted promotion tier ("" for ageReset codes).
//  Active          – true once redeemed.
//  Expired         – true once the code can no longer be redeemed.
//  ScriptID        – script the code was bound to (nullable until redeemed).
//  AgeReversalDays – reversal window in days, derived from Tier.
//  RedeemedAt      – when the code was redeemed (nullable).
//  ExpiresAt       – when the granted promotion ends (nullable).
//  CreatedAt       – timestamp of creation.
type PromoCode struct {
	ID              uint64     // promo_codes.id
	Code            string     // promo_codes.code
	CodeType        string     // promo_codes.code_type
	Tier            string     // promo_codes.tier ("" when none)
	Active          bool       // promo_codes.active
	Expired         bool       // promo_codes.expired
	ScriptID        *string    // promo_codes.script_id (nullable)
	AgeReversalDays int        // promo_codes.age_reversal_days
	RedeemedAt      *time.Time // promo_codes.redeemed_at (nullable)
	ExpiresAt       *time.Time // promo_codes.expires_at (nullable)
	CreatedAt       time.Time  // promo_codes.created_at
}
