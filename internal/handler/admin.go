package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/scriptvoid/scriptvoid/internal/cache"
	"github.com/scriptvoid/scriptvoid/internal/config"
	"github.com/scriptvoid/scriptvoid/internal/model"
	"github.com/scriptvoid/scriptvoid/internal/promotion"
	"github.com/scriptvoid/scriptvoid/internal/repository"
	"github.com/scriptvoid/scriptvoid/internal/scoring"
)

// AdminHandler holds the staff-only operations: the batched multiplier
// recompute, cache rewarm, promo code minting and user verification.
type AdminHandler struct {
	Runner  *scoring.Runner
	Promos  *repository.PromoRepo
	Users   *repository.UserRepo
	Cache   *cache.SmartCache
	Warmer  *cache.Warmer
	Scoring config.ScoringConfig
}

// UpdateMultipliers runs one batch of the score recompute job. Callers
// page through batches with ?batch=N until has_more comes back false;
// batch 0 additionally expires lapsed promotions, bumps and redeemed
// codes before recomputing.
func (h *AdminHandler) UpdateMultipliers(c echo.Context) error {
	batch := intQuery(c, "batch", 0)
	batchSize := intQuery(c, "batchSize", h.Scoring.BatchSize)
	if batch < 0 || batchSize <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "batch must be >= 0 and batchSize > 0"})
	}

	ctx := c.Request().Context()
	if batch == 0 {
		if _, err := h.Promos.ExpireRedeemed(ctx, time.Now().UTC()); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "expire codes failed"})
		}
	}

	res, err := h.Runner.RunBatch(ctx, batch, batchSize)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "batch failed"})
	}

	if res.Updated > 0 {
		h.Cache.ClearScripts()
		h.Cache.Changes().AddScriptChange("*", "rescored", nil)
	}

	return c.JSON(http.StatusOK, res)
}

// RewarmCache forces a fresh warm cycle, waiting out any in-flight warm
// first so the new cycle starts from cold.
func (h *AdminHandler) RewarmCache(c echo.Context) error {
	if err := h.Warmer.ReWarmCache(c.Request().Context()); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "rewarm failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "warm"})
}

type createCodeReq struct {
	Code string `json:"code"`
	Type string `json:"type"`
	Tier string `json:"tier"`
}

var validTiers = map[string]bool{
	model.TierI: true, model.TierII: true, model.TierIII: true, model.TierIV: true,
}

// CreateCode mints a promo or age-reset code.
func (h *AdminHandler) CreateCode(c echo.Context) error {
	var req createCodeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	if req.Code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code required"})
	}
	if req.Type == "" {
		req.Type = model.CodeTypePromo
	}

	var reversalDays int
	switch req.Type {
	case model.CodeTypePromo:
		if !validTiers[req.Tier] {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "tier must be I, II, III or IV"})
		}
		reversalDays = promotion.TierReversalDays(req.Tier)
	case model.CodeTypeAgeReset:
		req.Tier = model.TierNone
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "type must be promo or ageReset"})
	}

	id, err := h.Promos.Create(c.Request().Context(), req.Code, req.Type, req.Tier, reversalDays)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "code already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create code failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id, "code": req.Code})
}

type verifyReq struct {
	Verified bool `json:"verified"`
}

// SetVerified toggles a user's verified flag. Listings containing their
// scripts go stale, so both cache regions are cleared and a user change
// event is logged.
func (h *AdminHandler) SetVerified(c echo.Context) error {
	uid, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	var req verifyReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	u, err := h.Users.SetVerified(c.Request().Context(), uid, req.Verified)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update user failed"})
	}

	h.Cache.ClearScripts()
	h.Cache.ClearProfile(u.Username)
	h.Cache.Changes().AddUserChange(strconv.FormatUint(uid, 10), "verified", nil)

	return c.JSON(http.StatusOK, echo.Map{"id": u.ID, "username": u.Username, "verified": u.IsVerified})
}

func intQuery(c echo.Context, name string, def int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return n
}
