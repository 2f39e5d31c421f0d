package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/scriptvoid/scriptvoid/internal/cache"
	"github.com/scriptvoid/scriptvoid/internal/config"
	"github.com/scriptvoid/scriptvoid/internal/metrics"
	"github.com/scriptvoid/scriptvoid/internal/middleware"
	"github.com/scriptvoid/scriptvoid/internal/repository"
	"github.com/scriptvoid/scriptvoid/internal/scoring"
)

// EngagementHandler covers likes, comments and bumps. Awards scale with
// the script's current multiplier, and self-engagement never earns points.
type EngagementHandler struct {
	Scripts  *repository.ScriptRepo
	Comments *repository.CommentRepo
	Likes    *repository.LikeRepo
	Cache    *cache.SmartCache
	Scoring  config.ScoringConfig
}

// ToggleLike flips the caller's like on a script. Points are only awarded
// on the transition to liked, and only when the caller is not the owner;
// unliking decrements the counter without clawing points back.
func (h *EngagementHandler) ToggleLike(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := c.Param("id")

	ctx := c.Request().Context()
	s, err := h.Scripts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrScriptNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "script not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load script failed"})
	}

	liked, err := h.Likes.Toggle(ctx, id, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "toggle like failed"})
	}

	delta := -1
	award := 0.0
	if liked {
		delta = 1
		award = scoring.LikeAwardFor(s, uid)
	}
	if err := h.Scripts.AdjustLikes(ctx, id, delta, award); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update likes failed"})
	}
	if award > 0 {
		metrics.PointsAwarded("like")
	}

	h.Cache.ClearScripts()
	h.Cache.ClearProfile(s.OwnerUsername)
	h.Cache.Changes().AddScriptChange(id, "liked", nil)

	return c.JSON(http.StatusOK, echo.Map{"liked": liked})
}

type commentReq struct {
	Body string `json:"body"`
}

// Comment adds a comment to a script and awards the owner unless the
// commenter is the owner.
func (h *EngagementHandler) Comment(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := c.Param("id")

	var req commentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Body = strings.TrimSpace(req.Body)
	if req.Body == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "comment body required"})
	}

	ctx := c.Request().Context()
	s, err := h.Scripts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrScriptNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "script not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load script failed"})
	}

	commentID, err := h.Comments.Create(ctx, id, uid, middleware.Username(c), req.Body)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create comment failed"})
	}

	if award := scoring.CommentAwardFor(s, uid); award > 0 {
		if err := h.Scripts.AddPoints(ctx, id, award); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "award points failed"})
		}
		metrics.PointsAwarded("comment")
	}

	h.Cache.ClearScripts()
	h.Cache.ClearProfile(s.OwnerUsername)
	h.Cache.Changes().AddScriptChange(id, "commented", nil)

	return c.JSON(http.StatusCreated, echo.Map{"id": commentID})
}

// Bump marks an owned script as bumped for the configured window. The
// route sits behind a token-bucket rate limit so the award cannot be
// farmed; the award itself depends on the active promotion tier.
func (h *EngagementHandler) Bump(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := c.Param("id")

	ctx := c.Request().Context()
	s, err := h.Scripts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrScriptNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "script not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load script failed"})
	}
	if s.OwnerID != uid {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only the owner can bump"})
	}

	now := time.Now().UTC()
	award := scoring.BumpAwardFor(s, now)
	expire := now.Add(h.Scoring.BumpWindow)
	if err := h.Scripts.Bump(ctx, id, expire, award); err != nil {
		if errors.Is(err, repository.ErrScriptNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "script not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "bump failed"})
	}
	metrics.PointsAwarded("bump")

	h.Cache.ClearScripts()
	h.Cache.ClearProfile(s.OwnerUsername)
	h.Cache.Changes().AddScriptChange(id, "bumped", nil)

	return c.JSON(http.StatusOK, echo.Map{"bump_expires_at": expire, "award": award})
}
