// Package handler exposes HTTP handlers for both authenticated and public
// endpoints. This file defines the public browsing API: the script list,
// script detail and profile pages. These are the read-heavy routes, so
// they sit behind the smart cache and, for the default first page, the
// cache warmer. Sensitive fields are filtered from responses.

package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/scriptvoid/scriptvoid/internal/cache"
	"github.com/scriptvoid/scriptvoid/internal/metrics"
	"github.com/scriptvoid/scriptvoid/internal/model"
	"github.com/scriptvoid/scriptvoid/internal/repository"
	"github.com/scriptvoid/scriptvoid/internal/scoring"
)

// BrowseHandler aggregates the read-side dependencies for unauthenticated
// browsing.
type BrowseHandler struct {
	Scripts  *repository.ScriptRepo
	Users    *repository.UserRepo
	Comments *repository.CommentRepo
	Cache    *cache.SmartCache
	Warmer   *cache.Warmer
	CacheTTL time.Duration
}

// PublicScript is a script as exposed via the public API. It contains
// only safe fields.
type PublicScript struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	OwnerUsername string    `json:"owner"`
	OwnerVerified bool      `json:"owner_verified"`
	CreatedAt     time.Time `json:"created_at"`
	PromotionTier string    `json:"promotion_tier,omitempty"`
	IsBumped      bool      `json:"is_bumped"`
	Multiplier    float64   `json:"multiplier"`
	Points        float64   `json:"points"`
	Views         uint64    `json:"views"`
	Likes         uint64    `json:"likes"`
}

type publicComment struct {
	ID        uint64    `json:"id"`
	Username  string    `json:"username"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type listPage struct {
	Items []PublicScript `json:"items"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
}

func toPublic(scripts []model.Script) []PublicScript {
	out := make([]PublicScript, 0, len(scripts))
	for _, s := range scripts {
		out = append(out, PublicScript{
			ID:            s.ID,
			Title:         s.Title,
			Description:   s.Description,
			OwnerUsername: s.OwnerUsername,
			OwnerVerified: s.OwnerVerified,
			CreatedAt:     s.CreatedAt,
			PromotionTier: s.PromotionTier,
			IsBumped:      s.IsBumped,
			Multiplier:    s.Multiplier,
			Points:        s.Points,
			Views:         s.Views,
			Likes:         s.Likes,
		})
	}
	return out
}

// Browse lists scripts sorted by popularity or recency. Results are served
// from the smart cache when fresh; the plain default first page can also
// be answered straight from the warmer without touching the database.
func (h *BrowseHandler) Browse(c echo.Context) error {
	sort := strings.ToLower(c.QueryParam("sort"))
	if sort != "newest" {
		sort = "popular"
	}
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	title := strings.TrimSpace(c.QueryParam("title"))

	key := fmt.Sprintf("scripts:sort:%s:page:%d:title:%s", sort, page, title)
	if data, _, ok := h.Cache.Get(key); ok {
		if cached, ok := data.(listPage); ok {
			c.Response().Header().Set("X-Cache", "HIT")
			return c.JSON(http.StatusOK, cached)
		}
	}

	// The unfiltered first page is what the warmer prefetches.
	if page == 1 && title == "" {
		kind := cache.WarmPopular
		if sort == "newest" {
			kind = cache.WarmNewest
		}
		if warmed := h.Warmer.GetWarmedData(kind); warmed != nil {
			c.Response().Header().Set("X-Cache", "WARM")
			return c.JSON(http.StatusOK, listPage{
				Items: toPublic(warmed),
				Total: int64(len(warmed)),
				Page:  1,
			})
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	scripts, total, err := h.Scripts.Search(ctx, repository.ScriptSearchQuery{
		Title: title,
		Sort:  sort,
		Page:  page,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	resp := listPage{Items: toPublic(scripts), Total: total, Page: page}
	h.Cache.Set(key, resp, h.CacheTTL, cache.EntryMeta{
		TotalCount:   int(total),
		LastModified: time.Now(),
	})
	c.Response().Header().Set("X-Cache", "MISS")
	return c.JSON(http.StatusOK, resp)
}

// GetScript returns one script with its comments, and records a view
// award at the script's current multiplier. Award failures only lose the
// points, never the page.
func (h *BrowseHandler) GetScript(c echo.Context) error {
	id := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Scripts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrScriptNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "script not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	if err := h.Scripts.RecordView(ctx, s.ID, scoring.ViewAward(s.Multiplier)); err != nil {
		c.Logger().Warnf("record view failed for %s: %v", s.ID, err)
	} else {
		metrics.PointsAwarded("view")
	}

	comments, err := h.Comments.ListByScript(ctx, s.ID, 50)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	outComments := make([]publicComment, 0, len(comments))
	for _, cm := range comments {
		outComments = append(outComments, publicComment{
			ID: cm.ID, Username: cm.Username, Body: cm.Body, CreatedAt: cm.CreatedAt,
		})
	}

	items := toPublic([]model.Script{s})
	return c.JSON(http.StatusOK, echo.Map{
		"script":   items[0],
		"comments": outComments,
	})
}

// GetProfile lists a user's scripts, smart-cached under the profile
// region so user and script mutations both invalidate it.
func (h *BrowseHandler) GetProfile(c echo.Context) error {
	username := strings.ToLower(strings.TrimSpace(c.Param("username")))
	if username == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid username"})
	}
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}

	key := fmt.Sprintf("profile:%s:page:%d", username, page)
	if data, _, ok := h.Cache.Get(key); ok {
		if cached, ok := data.(echo.Map); ok {
			c.Response().Header().Set("X-Cache", "HIT")
			return c.JSON(http.StatusOK, cached)
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	scripts, total, err := h.Scripts.Search(ctx, repository.ScriptSearchQuery{
		Owner: username,
		Sort:  "newest",
		Page:  page,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	resp := echo.Map{
		"username": u.Username,
		"verified": u.IsVerified,
		"scripts":  toPublic(scripts),
		"total":    total,
		"page":     page,
	}
	h.Cache.Set(key, resp, h.CacheTTL, cache.EntryMeta{TotalCount: int(total), LastModified: time.Now()})
	c.Response().Header().Set("X-Cache", "MISS")
	return c.JSON(http.StatusOK, resp)
}
