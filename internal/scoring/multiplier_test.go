package scoring

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/scriptvoid/scriptvoid/internal/model"
)

var anchor = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func scriptAged(age time.Duration) model.Script {
	return model.Script{ID: "s1", CreatedAt: anchor.Add(-age)}
}

func TestFreshnessSteps(t *testing.T) {
	cases := []struct {
		age  time.Duration
		want float64
	}{
		{0, 2.0},
		{time.Hour, 2.0}, // boundary is inclusive
		{time.Hour + time.Second, 1.6},
		{24 * time.Hour, 1.6},
		{2 * 24 * time.Hour, 1.4},
		{5 * 24 * time.Hour, 1.3},
		{10 * 24 * time.Hour, 1.15},
		{20 * 24 * time.Hour, 1.1},
		{60 * 24 * time.Hour, 1.0},
		{90 * 24 * time.Hour, 1.0},
		{91 * 24 * time.Hour, 0.9},
		{365 * 24 * time.Hour, 0.9},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Freshness(tc.age), "age %s", tc.age)
	}
}

func TestFreshnessMonotonic(t *testing.T) {
	ages := []time.Duration{
		0, time.Hour, 12 * time.Hour, 24 * time.Hour, 2 * 24 * time.Hour,
		7 * 24 * time.Hour, 14 * 24 * time.Hour, 30 * 24 * time.Hour,
		90 * 24 * time.Hour, 180 * 24 * time.Hour,
	}
	prev := Freshness(ages[0])
	for _, age := range ages[1:] {
		cur := Freshness(age)
		assert.LessOrEqual(t, cur, prev, "freshness must never grow with age (at %s)", age)
		prev = cur
	}
}

func TestFreshnessNegativeAgeIsBrandNew(t *testing.T) {
	assert.Equal(t, 2.0, Freshness(-time.Hour))
}

func TestComputeMultiplierBrandNewPlain(t *testing.T) {
	s := scriptAged(0)
	got := computeMultiplierAt(s, false, anchor)
	assert.Equal(t, 2.0, got, "fresh, unpromoted, unverified, unbumped script is exactly 2.0")
}

func TestComputeMultiplierFullStack(t *testing.T) {
	expires := anchor.Add(24 * time.Hour)
	s := scriptAged(10 * 24 * time.Hour)
	s.PromotionTier = model.TierII
	s.PromotionActive = true
	s.PromotionExpiresAt = &expires
	s.IsBumped = true
	s.BumpExpire = &expires

	// 1.15 * 1.35 * 1.4 * 1.15
	got := computeMultiplierAt(s, true, anchor)
	assert.InDelta(t, 2.4995, got, 0.001)
}

func TestComputeMultiplierPromoTiers(t *testing.T) {
	want := map[string]float64{
		model.TierI:   2.4, // 2.0 * 1.2
		model.TierII:  2.7,
		model.TierIII: 3.0,
		model.TierIV:  3.4,
	}
	for tier, expected := range want {
		s := scriptAged(0)
		s.PromotionTier = tier
		s.PromotionActive = true
		assert.Equal(t, expected, computeMultiplierAt(s, false, anchor), "tier %s", tier)
	}
}

func TestComputeMultiplierInactivePromoIgnored(t *testing.T) {
	s := scriptAged(0)
	s.PromotionTier = model.TierIV
	s.PromotionActive = false
	assert.Equal(t, 2.0, computeMultiplierAt(s, false, anchor))
}

func TestComputeMultiplierExpiredPromoIgnored(t *testing.T) {
	expired := anchor.Add(-time.Minute)
	s := scriptAged(0)
	s.PromotionTier = model.TierIV
	s.PromotionActive = true
	s.PromotionExpiresAt = &expired
	assert.Equal(t, 2.0, computeMultiplierAt(s, false, anchor))
}

func TestComputeMultiplierUntieredBump(t *testing.T) {
	s := scriptAged(0)
	s.IsBumped = true
	assert.Equal(t, 2.1, computeMultiplierAt(s, false, anchor), "2.0 * 1.05")
}

func TestComputeMultiplierBumpIgnoresLapsedTier(t *testing.T) {
	s := scriptAged(0)
	s.IsBumped = true
	s.PromotionTier = model.TierIV
	s.PromotionActive = false
	assert.Equal(t, 2.1, computeMultiplierAt(s, false, anchor),
		"a bumped script whose tier is not live gets the untiered 5%")

	s.PromotionActive = true
	expired := anchor.Add(-time.Minute)
	s.PromotionExpiresAt = &expired
	assert.Equal(t, 2.1, computeMultiplierAt(s, false, anchor))
}

func TestComputeMultiplierExpiredBumpIgnored(t *testing.T) {
	expired := anchor.Add(-time.Minute)
	s := scriptAged(0)
	s.IsBumped = true
	s.BumpExpire = &expired
	assert.Equal(t, 2.0, computeMultiplierAt(s, false, anchor))
}

func TestComputeMultiplierVerified(t *testing.T) {
	s := scriptAged(0)
	assert.Equal(t, 2.8, computeMultiplierAt(s, true, anchor), "2.0 * 1.4")
}

func TestComputeMultiplierUnknownTierIsNeutral(t *testing.T) {
	s := scriptAged(0)
	s.PromotionTier = "platinum"
	s.PromotionActive = true
	assert.Equal(t, 2.0, computeMultiplierAt(s, false, anchor), "unknown tiers add no promo bonus")
}

func TestComputeMultiplierZeroDates(t *testing.T) {
	s := model.Script{ID: "s1"} // zero CreatedAt, no AgeReset
	assert.Equal(t, 0.9, computeMultiplierAt(s, false, anchor), "unusable dates fall back to the stale factor")
}

func TestComputeMultiplierAgeResetWins(t *testing.T) {
	reset := anchor.Add(-30 * time.Minute)
	s := scriptAged(200 * 24 * time.Hour)
	s.AgeReset = &reset
	assert.Equal(t, 2.0, computeMultiplierAt(s, false, anchor), "effective age follows the reset, not the original publish time")
}

func TestComputeMultiplierDeterministic(t *testing.T) {
	s := scriptAged(5 * 24 * time.Hour)
	s.PromotionTier = model.TierI
	s.PromotionActive = true
	first := computeMultiplierAt(s, true, anchor)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, computeMultiplierAt(s, true, anchor))
	}
}

func TestRound3(t *testing.T) {
	assert.Equal(t, 1.234, round3(1.23449))
	assert.Equal(t, 1.235, round3(1.2345000001))
	assert.Equal(t, 1.0, round3(math.NaN()), "NaN degrades to a neutral multiplier")
	assert.Equal(t, 1.0, round3(math.Inf(1)))
}
