package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/scriptvoid/scriptvoid/internal/cache"
	"github.com/scriptvoid/scriptvoid/internal/middleware"
	"github.com/scriptvoid/scriptvoid/internal/promotion"
)

// PromotionHandler exposes promo-code redemption.
type PromotionHandler struct {
	Service *promotion.Service
	Cache   *cache.SmartCache
}

type redeemReq struct {
	Code     string `json:"code"`
	ScriptID string `json:"script_id"`
}

// Redeem applies a promo or age-reset code to one of the caller's scripts.
// Domain failures come back 200/4xx with a structured reason; only
// infrastructure faults are a 500.
func (h *PromotionHandler) Redeem(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req redeemReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	res, err := h.Service.Redeem(c.Request().Context(), req.Code, req.ScriptID, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, res)
	}
	if !res.Success {
		return c.JSON(statusForReason(res.Reason), res)
	}

	h.Cache.ClearScripts()
	h.Cache.ClearProfile(middleware.Username(c))
	h.Cache.Changes().AddScriptChange(req.ScriptID, "promoted", nil)

	return c.JSON(http.StatusOK, res)
}

func statusForReason(reason string) int {
	switch reason {
	case promotion.ReasonBadRequest:
		return http.StatusBadRequest
	case promotion.ReasonInvalid:
		return http.StatusNotFound
	case promotion.ReasonNotOwner:
		return http.StatusForbidden
	case promotion.ReasonExpired, promotion.ReasonAlreadyUsed,
		promotion.ReasonUsedOnOther, promotion.ReasonAlreadyPromoted:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
