package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/scriptvoid/scriptvoid/internal/cache"
	"github.com/scriptvoid/scriptvoid/internal/metrics"
	"github.com/scriptvoid/scriptvoid/internal/middleware"
	"github.com/scriptvoid/scriptvoid/internal/model"
	"github.com/scriptvoid/scriptvoid/internal/notify"
	"github.com/scriptvoid/scriptvoid/internal/repository"
	"github.com/scriptvoid/scriptvoid/internal/scoring"
	"github.com/scriptvoid/scriptvoid/internal/utils"
)

// ScriptHandler bundles dependencies for authenticated script mutations:
// upload, edit and delete. Every mutation invalidates the affected cache
// regions and appends a change event so stale listings cannot outlive the
// write even if an invalidation is missed.
type ScriptHandler struct {
	Scripts  *repository.ScriptRepo
	Users    *repository.UserRepo
	Cache    *cache.SmartCache
	Notifier *notify.Webhook
}

type createScriptReq struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type updateScriptReq struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Create publishes a new script. The initial multiplier is computed up
// front (a brand-new script lands in the freshest bucket) and the flat
// submit award seeds its points.
func (h *ScriptHandler) Create(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req createScriptReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	owner, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}

	id, err := utils.NewScriptID()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "id generation failed"})
	}

	now := time.Now().UTC()
	s := model.Script{
		ID:            id,
		OwnerID:       owner.ID,
		OwnerUsername: owner.Username,
		Title:         req.Title,
		Description:   strings.TrimSpace(req.Description),
		CreatedAt:     now,
		OwnerVerified: owner.IsVerified,
		Points:        scoring.SubmitAward(),
		LastActivity:  now,
	}
	s.Multiplier = scoring.ComputeMultiplier(s, owner.IsVerified)

	if err := h.Scripts.Create(ctx, s); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "script already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create script failed"})
	}

	metrics.PointsAwarded("submit")
	h.Cache.ClearScripts()
	h.Cache.ClearProfile(owner.Username)
	h.Cache.Changes().AddScriptChange(s.ID, "created", nil)
	h.Notifier.ScriptPublished(s)

	return c.JSON(http.StatusCreated, echo.Map{"id": s.ID, "multiplier": s.Multiplier})
}

// Update edits title/description of an owned script.
func (h *ScriptHandler) Update(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := c.Param("id")

	var req updateScriptReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Scripts.UpdateOwned(ctx, id, uid, req.Title, strings.TrimSpace(req.Description)); err != nil {
		switch {
		case errors.Is(err, repository.ErrScriptNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "script not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
		}
	}

	h.Cache.ClearScripts()
	h.Cache.ClearProfile(middleware.Username(c))
	h.Cache.Changes().AddScriptChange(id, "updated", nil)

	return c.NoContent(http.StatusNoContent)
}

// Delete removes an owned script together with its engagement records.
func (h *ScriptHandler) Delete(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Scripts.DeleteOwned(ctx, id, uid); err != nil {
		switch {
		case errors.Is(err, repository.ErrScriptNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "script not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
		}
	}

	h.Cache.ClearScripts()
	h.Cache.ClearProfile(middleware.Username(c))
	h.Cache.Changes().AddScriptChange(id, "deleted", nil)

	return c.NoContent(http.StatusNoContent)
}
