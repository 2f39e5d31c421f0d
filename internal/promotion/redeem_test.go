package promotion

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scriptvoid/scriptvoid/internal/model"
	"github.com/scriptvoid/scriptvoid/internal/repository"
)

var anchor = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// fakeCodeStore keeps codes in a map; Bind claims the script binding under
// a mutex exactly the way the conditional UPDATE does in MySQL.
type fakeCodeStore struct {
	mu    sync.Mutex
	codes map[string]*model.PromoCode
}

func newFakeCodeStore(codes ...model.PromoCode) *fakeCodeStore {
	s := &fakeCodeStore{codes: make(map[string]*model.PromoCode)}
	for i := range codes {
		c := codes[i]
		s.codes[c.Code] = &c
	}
	return s
}

func (s *fakeCodeStore) GetByCode(ctx context.Context, code string) (model.PromoCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.codes[code]
	if !ok {
		return model.PromoCode{}, repository.ErrCodeNotFound
	}
	return *c, nil
}

func (s *fakeCodeStore) Bind(ctx context.Context, code, scriptID string, redeemedAt time.Time, expiresAt *time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.codes[code]
	if !ok || c.ScriptID != nil || c.Expired {
		return false, nil
	}
	c.ScriptID = &scriptID
	c.RedeemedAt = &redeemedAt
	c.ExpiresAt = expiresAt
	return true, nil
}

func (s *fakeCodeStore) MarkExpired(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.codes[code]; ok {
		c.Expired = true
	}
	return nil
}

type fakeScriptStore struct {
	mu      sync.Mutex
	scripts map[string]*model.Script
}

func newFakeScriptStore(scripts ...model.Script) *fakeScriptStore {
	s := &fakeScriptStore{scripts: make(map[string]*model.Script)}
	for i := range scripts {
		sc := scripts[i]
		s.scripts[sc.ID] = &sc
	}
	return s
}

func (s *fakeScriptStore) GetByID(ctx context.Context, id string) (model.Script, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.scripts[id]
	if !ok {
		return model.Script{}, repository.ErrScriptNotFound
	}
	return *sc, nil
}

func (s *fakeScriptStore) ApplyPromotion(ctx context.Context, id, tier string, ageReset time.Time, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc := s.scripts[id]
	sc.PromotionTier = tier
	sc.PromotionActive = true
	sc.PromotionExpiresAt = &expiresAt
	sc.AgeReset = &ageReset
	return nil
}

func (s *fakeScriptStore) ResetAge(ctx context.Context, id string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc := s.scripts[id]
	sc.CreatedAt = now
	sc.AgeReset = nil
	return nil
}

func newTestService(codes *fakeCodeStore, scripts *fakeScriptStore) *Service {
	s := NewService(codes, scripts, nil)
	s.now = func() time.Time { return anchor }
	return s
}

func promoCode(code, tier string) model.PromoCode {
	return model.PromoCode{Code: code, CodeType: model.CodeTypePromo, Tier: tier}
}

func ownedScript(id string, owner uint64, age time.Duration) model.Script {
	return model.Script{ID: id, OwnerID: owner, CreatedAt: anchor.Add(-age)}
}

func TestRedeemGrantsTier(t *testing.T) {
	codes := newFakeCodeStore(promoCode("SUMMER", model.TierII))
	scripts := newFakeScriptStore(ownedScript("s1", 1, 30*24*time.Hour))
	svc := newTestService(codes, scripts)

	res, err := svc.Redeem(context.Background(), "summer", "s1", 1)
	require.NoError(t, err)
	require.True(t, res.Success, "got: %s (%s)", res.Error, res.Reason)

	assert.Equal(t, model.TierII, res.Promotion.Tier)
	assert.Equal(t, 14, res.Promotion.AgeReversalDays)

	// 30d old minus a 14d reversal leaves an effective age of 16d.
	wantAge := anchor.Add(-16 * 24 * time.Hour)
	require.NotNil(t, res.Promotion.EffectiveAge)
	assert.Equal(t, wantAge, *res.Promotion.EffectiveAge)

	s, _ := scripts.GetByID(context.Background(), "s1")
	assert.True(t, s.PromotionActive)
	assert.Equal(t, model.TierII, s.PromotionTier)
	assert.Equal(t, wantAge, *s.AgeReset)
	assert.Equal(t, anchor.Add(14*24*time.Hour), *s.PromotionExpiresAt)
}

func TestRedeemReversalFlooredAtNow(t *testing.T) {
	codes := newFakeCodeStore(promoCode("BIG", model.TierIV)) // 90d reversal
	scripts := newFakeScriptStore(ownedScript("s1", 1, 2*24*time.Hour))
	svc := newTestService(codes, scripts)

	res, err := svc.Redeem(context.Background(), "BIG", "s1", 1)
	require.NoError(t, err)
	require.True(t, res.Success)

	assert.Equal(t, anchor, *res.Promotion.EffectiveAge,
		"reversal larger than the script's age clamps to now, never the future")
}

func TestRedeemOneShot(t *testing.T) {
	codes := newFakeCodeStore(promoCode("ONCE", model.TierI))
	scripts := newFakeScriptStore(
		ownedScript("s1", 1, 24*time.Hour),
		ownedScript("s2", 1, 24*time.Hour),
	)
	svc := newTestService(codes, scripts)

	res, err := svc.Redeem(context.Background(), "ONCE", "s1", 1)
	require.NoError(t, err)
	require.True(t, res.Success)

	res, err = svc.Redeem(context.Background(), "ONCE", "s2", 1)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, ReasonUsedOnOther, res.Reason)

	s2, _ := scripts.GetByID(context.Background(), "s2")
	assert.False(t, s2.PromotionActive, "the losing script must be untouched")

	res, err = svc.Redeem(context.Background(), "ONCE", "s1", 1)
	require.NoError(t, err)
	assert.Equal(t, ReasonAlreadyUsed, res.Reason)
}

func TestRedeemNotOwner(t *testing.T) {
	codes := newFakeCodeStore(promoCode("X", model.TierI))
	scripts := newFakeScriptStore(ownedScript("s1", 1, time.Hour))
	svc := newTestService(codes, scripts)

	res, err := svc.Redeem(context.Background(), "X", "s1", 2)
	require.NoError(t, err)
	assert.Equal(t, ReasonNotOwner, res.Reason)
}

func TestRedeemUnknownCode(t *testing.T) {
	svc := newTestService(newFakeCodeStore(), newFakeScriptStore(ownedScript("s1", 1, time.Hour)))

	res, err := svc.Redeem(context.Background(), "NOPE", "s1", 1)
	require.NoError(t, err)
	assert.Equal(t, ReasonInvalid, res.Reason)
}

func TestRedeemExpiredCode(t *testing.T) {
	c := promoCode("OLD", model.TierI)
	expired := anchor.Add(-time.Minute)
	c.ExpiresAt = &expired
	svc := newTestService(newFakeCodeStore(c), newFakeScriptStore(ownedScript("s1", 1, time.Hour)))

	res, err := svc.Redeem(context.Background(), "OLD", "s1", 1)
	require.NoError(t, err)
	assert.Equal(t, ReasonExpired, res.Reason)
}

func TestRedeemAlreadyPromoted(t *testing.T) {
	s := ownedScript("s1", 1, time.Hour)
	s.PromotionActive = true
	s.PromotionTier = model.TierI
	svc := newTestService(newFakeCodeStore(promoCode("X", model.TierII)), newFakeScriptStore(s))

	res, err := svc.Redeem(context.Background(), "X", "s1", 1)
	require.NoError(t, err)
	assert.Equal(t, ReasonAlreadyPromoted, res.Reason)
}

func TestRedeemBadRequest(t *testing.T) {
	svc := newTestService(newFakeCodeStore(), newFakeScriptStore())

	res, err := svc.Redeem(context.Background(), "", "s1", 1)
	require.NoError(t, err)
	assert.Equal(t, ReasonBadRequest, res.Reason)

	res, err = svc.Redeem(context.Background(), "X", "  ", 1)
	require.NoError(t, err)
	assert.Equal(t, ReasonBadRequest, res.Reason)
}

func TestRedeemAgeResetStacksWithPromotion(t *testing.T) {
	reset := model.PromoCode{Code: "FRESH", CodeType: model.CodeTypeAgeReset}
	s := ownedScript("s1", 1, 60*24*time.Hour)
	s.PromotionActive = true
	s.PromotionTier = model.TierIII
	expires := anchor.Add(10 * 24 * time.Hour)
	s.PromotionExpiresAt = &expires

	codes := newFakeCodeStore(reset)
	scripts := newFakeScriptStore(s)
	svc := newTestService(codes, scripts)

	res, err := svc.Redeem(context.Background(), "FRESH", "s1", 1)
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, anchor, *res.Promotion.EffectiveAge)

	got, _ := scripts.GetByID(context.Background(), "s1")
	assert.Equal(t, anchor, got.CreatedAt)
	assert.Nil(t, got.AgeReset)
	assert.True(t, got.PromotionActive, "an age reset must not strip an active promotion")
	assert.Equal(t, model.TierIII, got.PromotionTier)

	// The code is spent immediately.
	c, _ := codes.GetByCode(context.Background(), "FRESH")
	assert.True(t, c.Expired)
}

func TestRedeemConcurrentOnlyOneWins(t *testing.T) {
	codes := newFakeCodeStore(promoCode("RACE", model.TierI))
	scripts := newFakeScriptStore(
		ownedScript("s1", 1, 24*time.Hour),
		ownedScript("s2", 1, 24*time.Hour),
	)
	svc := newTestService(codes, scripts)

	var wg sync.WaitGroup
	results := make([]RedemptionResult, 2)
	for i, target := range []string{"s1", "s2"} {
		wg.Add(1)
		go func(i int, target string) {
			defer wg.Done()
			results[i], _ = svc.Redeem(context.Background(), "RACE", target, 1)
		}(i, target)
	}
	wg.Wait()

	wins := 0
	for _, r := range results {
		if r.Success {
			wins++
		}
	}
	assert.Equal(t, 1, wins, "exactly one of two racing redemptions may claim the code")
}
