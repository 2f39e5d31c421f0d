// Package promotion implements promotion code redemption: tier grants with
// bounded age reversal, and one-shot age-reset codes.
package promotion

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/scriptvoid/scriptvoid/internal/metrics"
	"github.com/scriptvoid/scriptvoid/internal/model"
	"github.com/scriptvoid/scriptvoid/internal/repository"
)

// Reason tags carried in failed RedemptionResults so the UI can branch its
// messaging per failure mode.
const (
	ReasonBadRequest      = "bad_request"
	ReasonInvalid         = "invalid"
	ReasonExpired         = "expired"
	ReasonAlreadyUsed     = "already_used"
	ReasonUsedOnOther     = "used_on_other_script"
	ReasonNotOwner        = "not_owner"
	ReasonAlreadyPromoted = "already_promoted"
	ReasonInternal        = "internal"
)

// Age reversal windows per tier, in days.
var tierReversalDays = map[string]int{
	model.TierI:   7,
	model.TierII:  14,
	model.TierIII: 30,
	model.TierIV:  90,
}

// TierReversalDays returns the age reversal window for a tier, or 0 for
// unknown tiers.
func TierReversalDays(tier string) int {
	return tierReversalDays[tier]
}

// PromotionInfo describes the promotion state resulting from a redemption.
// On failure every field is zeroed so the UI renders a consistent shape.
type PromotionInfo struct {
	Tier            string     `json:"tier"`
	AgeReversalDays int        `json:"age_reversal_days"`
	EffectiveAge    *time.Time `json:"effective_age,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
}

// RedemptionResult is the structured reply of Redeem, success or failure.
type RedemptionResult struct {
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	Promotion PromotionInfo `json:"promotion"`
}

// CodeStore is the promo-code storage the service needs. Bind must set the
// code's script binding atomically so a code can be claimed exactly once.
type CodeStore interface {
	GetByCode(ctx context.Context, code string) (model.PromoCode, error)
	Bind(ctx context.Context, code, scriptID string, redeemedAt time.Time, expiresAt *time.Time) (bool, error)
	MarkExpired(ctx context.Context, code string) error
}

// ScriptStore is the script-side storage the service needs.
type ScriptStore interface {
	GetByID(ctx context.Context, id string) (model.Script, error)
	ApplyPromotion(ctx context.Context, id, tier string, ageReset time.Time, expiresAt time.Time) error
	ResetAge(ctx context.Context, id string, now time.Time) error
}

// Notifier receives a best-effort note after a successful redemption.
// Implementations must never block the redemption on delivery.
type Notifier interface {
	PromotionRedeemed(script model.Script, codeType, tier string)
}

// Service performs code redemption. Redemption is one-shot and exclusive:
// the code's script binding is claimed with a conditional update, so two
// racing redemptions cannot both succeed.
type Service struct {
	Codes    CodeStore
	Scripts  ScriptStore
	Notifier Notifier
	now      func() time.Time
}

// NewService wires a redemption service. notifier may be nil.
func NewService(codes CodeStore, scripts ScriptStore, notifier Notifier) *Service {
	return &Service{Codes: codes, Scripts: scripts, Notifier: notifier, now: time.Now}
}

// Redeem applies the code to the script owned by userID. All domain
// failures come back as a failed RedemptionResult with a reason tag; the
// error return is reserved for infrastructure problems.
func (s *Service) Redeem(ctx context.Context, code, scriptID string, userID uint64) (RedemptionResult, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	scriptID = strings.TrimSpace(scriptID)
	if code == "" || scriptID == "" {
		return failure("code and script id are required", ReasonBadRequest), nil
	}

	pc, err := s.Codes.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrCodeNotFound) {
			return failure("unknown code", ReasonInvalid), nil
		}
		return failure("lookup failed", ReasonInternal), err
	}

	now := s.now()
	if pc.Expired || (pc.ExpiresAt != nil && now.After(*pc.ExpiresAt)) {
		metrics.CodeRedeemed(pc.CodeType, ReasonExpired)
		return failure("code has expired", ReasonExpired), nil
	}
	if pc.ScriptID != nil {
		if *pc.ScriptID == scriptID {
			return failure("code already used on this script", ReasonAlreadyUsed), nil
		}
		return failure("code already used on another script", ReasonUsedOnOther), nil
	}

	script, err := s.Scripts.GetByID(ctx, scriptID)
	if err != nil {
		if errors.Is(err, repository.ErrScriptNotFound) {
			return failure("unknown script", ReasonInvalid), nil
		}
		return failure("lookup failed", ReasonInternal), err
	}
	if script.OwnerID != userID {
		return failure("only the script owner can redeem codes for it", ReasonNotOwner), nil
	}

	switch pc.CodeType {
	case model.CodeTypeAgeReset:
		return s.redeemAgeReset(ctx, pc, script, now)
	default:
		return s.redeemPromo(ctx, pc, script, now)
	}
}

// redeemPromo grants the code's tier: the script's effective age is rolled
// back by the tier's reversal window, floored at now so reversal can never
// push the age into the future.
func (s *Service) redeemPromo(ctx context.Context, pc model.PromoCode, script model.Script, now time.Time) (RedemptionResult, error) {
	if script.PromotionActive {
		metrics.CodeRedeemed(pc.CodeType, ReasonAlreadyPromoted)
		return failure("script already has an active promotion", ReasonAlreadyPromoted), nil
	}

	days, ok := tierReversalDays[pc.Tier]
	if !ok {
		return failure("code has no valid tier", ReasonInvalid), nil
	}
	reversal := time.Duration(days) * 24 * time.Hour

	currentAge := now.Sub(script.EffectiveAge())
	remaining := currentAge - reversal
	if remaining < 0 {
		remaining = 0
	}
	newEffectiveAge := now.Add(-remaining)
	expiresAt := now.Add(reversal)

	claimed, err := s.Codes.Bind(ctx, pc.Code, script.ID, now, &expiresAt)
	if err != nil {
		return failure("redeem failed", ReasonInternal), err
	}
	if !claimed {
		// Lost the race to a concurrent redemption.
		metrics.CodeRedeemed(pc.CodeType, ReasonAlreadyUsed)
		return failure("code already used", ReasonAlreadyUsed), nil
	}

	if err := s.Scripts.ApplyPromotion(ctx, script.ID, pc.Tier, newEffectiveAge, expiresAt); err != nil {
		return failure("apply failed", ReasonInternal), err
	}

	if s.Notifier != nil {
		s.Notifier.PromotionRedeemed(script, pc.CodeType, pc.Tier)
	}
	metrics.CodeRedeemed(pc.CodeType, "success")
	return RedemptionResult{
		Success: true,
		Promotion: PromotionInfo{
			Tier:            pc.Tier,
			AgeReversalDays: days,
			EffectiveAge:    &newEffectiveAge,
			ExpiresAt:       &expiresAt,
		},
	}, nil
}

// redeemAgeReset rewrites the publish time to now. Unlike tiered reversal
// this is a full reset, and it stacks with an active promotion: the promo
// fields are left untouched. The code is spent immediately.
func (s *Service) redeemAgeReset(ctx context.Context, pc model.PromoCode, script model.Script, now time.Time) (RedemptionResult, error) {
	claimed, err := s.Codes.Bind(ctx, pc.Code, script.ID, now, nil)
	if err != nil {
		return failure("redeem failed", ReasonInternal), err
	}
	if !claimed {
		metrics.CodeRedeemed(pc.CodeType, ReasonAlreadyUsed)
		return failure("code already used", ReasonAlreadyUsed), nil
	}

	if err := s.Scripts.ResetAge(ctx, script.ID, now); err != nil {
		return failure("apply failed", ReasonInternal), err
	}
	if err := s.Codes.MarkExpired(ctx, pc.Code); err != nil {
		// The reset already happened; the code row just keeps looking
		// redeemable until the next sweep. Log-and-continue territory,
		// but surface it to the operator via the error return.
		return successAgeReset(now), err
	}

	if s.Notifier != nil {
		s.Notifier.PromotionRedeemed(script, pc.CodeType, model.TierNone)
	}
	metrics.CodeRedeemed(pc.CodeType, "success")
	return successAgeReset(now), nil
}

func successAgeReset(now time.Time) RedemptionResult {
	return RedemptionResult{
		Success:   true,
		Promotion: PromotionInfo{EffectiveAge: &now},
	}
}

func failure(msg, reason string) RedemptionResult {
	return RedemptionResult{Success: false, Error: msg, Reason: reason}
}
