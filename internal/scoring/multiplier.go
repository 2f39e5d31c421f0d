// Package scoring implements the point multiplier model: the pure
// multiplier computation, engagement point awards, and the batch job that
// keeps the persisted multiplier column in sync with the model.
package scoring

import (
	"math"
	"time"

	"github.com/scriptvoid/scriptvoid/internal/model"
)

// Freshness step windows, most recent first; the first matching window
// wins. Boundaries are inclusive: a script exactly one hour old still gets
// the full 2.0.
var freshnessSteps = []struct {
	maxAge time.Duration
	factor float64
}{
	{time.Hour, 2.0},
	{24 * time.Hour, 1.6},
	{3 * 24 * time.Hour, 1.4},
	{7 * 24 * time.Hour, 1.3},
	{14 * 24 * time.Hour, 1.15},
	{30 * 24 * time.Hour, 1.1},
	{90 * 24 * time.Hour, 1.0},
}

// Factor applied to scripts older than the last freshness window, and to
// scripts whose dates are unusable.
const staleFactor = 0.9

// Bonus applied on top of the freshness factor, per promotion tier, while
// the promotion is active.
var promoBonus = map[string]float64{
	model.TierI:   0.2,
	model.TierII:  0.35,
	model.TierIII: 0.5,
	model.TierIV:  0.7,
}

// Multiplicative bonus for verified owners: a flat 1.4x.
const verifyBonus = 0.4

// Bump bonuses per tier. An untiered bumped script still gets 5%.
var bumpBonus = map[string]float64{
	model.TierNone: 0.05,
	model.TierI:    0.10,
	model.TierII:   0.15,
	model.TierIII:  0.20,
	model.TierIV:   0.25,
}

// Freshness returns the decay factor for a script of the given age.
// Negative ages (an effective age in the future, which bounded reversal
// should make impossible) are treated as brand new.
func Freshness(age time.Duration) float64 {
	if age < 0 {
		age = 0
	}
	for _, step := range freshnessSteps {
		if age <= step.maxAge {
			return step.factor
		}
	}
	return staleFactor
}

// ComputeMultiplier derives a script's effective scoring multiplier from
// its freshness, promotion tier, owner verification, and bump state. It is
// pure and never panics: unknown tiers and zero dates degrade to neutral
// values so one malformed document cannot take down a batch run.
func ComputeMultiplier(s model.Script, ownerVerified bool) float64 {
	return computeMultiplierAt(s, ownerVerified, time.Now())
}

func computeMultiplierAt(s model.Script, ownerVerified bool, now time.Time) float64 {
	effective := s.EffectiveAge()

	freshness := staleFactor
	if !effective.IsZero() {
		freshness = Freshness(now.Sub(effective))
	}

	tier := liveTier(s, now)
	promo := promoBonus[tier]

	verify := 0.0
	if ownerVerified {
		verify = verifyBonus
	}

	bump := 0.0
	if s.IsBumped && !bumpExpired(s, now) {
		if b, ok := bumpBonus[tier]; ok {
			bump = b
		} else {
			bump = bumpBonus[model.TierNone]
		}
	}

	return round3(freshness * (1 + promo) * (1 + verify) * (1 + bump))
}

// liveTier returns the script's promotion tier while the promotion is
// active and unexpired, else TierNone. Both the multiplier bonuses and
// the bump award gate on this, so a lapsed tier the sweep has not
// retired yet cannot keep paying out.
func liveTier(s model.Script, now time.Time) string {
	if s.PromotionActive && !promotionExpired(s, now) {
		return s.PromotionTier
	}
	return model.TierNone
}

func promotionExpired(s model.Script, now time.Time) bool {
	return s.PromotionExpiresAt != nil && now.After(*s.PromotionExpiresAt)
}

func bumpExpired(s model.Script, now time.Time) bool {
	return s.BumpExpire != nil && now.After(*s.BumpExpire)
}

func round3(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 1.0
	}
	return math.Round(v*1000) / 1000
}
