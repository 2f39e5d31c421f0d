// Package router wires HTTP routes to their handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/scriptvoid/scriptvoid/internal/handler"
	"github.com/scriptvoid/scriptvoid/internal/middleware"
)

// RegisterRoutes registers routes that need no authentication and no
// handler state. Currently that is only the health check, used by load
// balancers to verify the service is up.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication surface. Register, login,
// refresh and logout live under /v1/auth and need no session; /v1/me
// sits behind the JWT middleware.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	// Logout takes the refresh token in the body, so it does not require
	// a valid access token. An expired session can still log out.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
}

// RegisterPublic registers the guest browse surface: script listings,
// script detail pages and user profiles. These routes serve from the
// smart cache and apply no auth middleware.
func RegisterPublic(e *echo.Echo, b *handler.BrowseHandler) {
	e.GET("/browse", b.Browse)
	e.GET("/scripts/:id", b.GetScript)
	e.GET("/profile/:username", b.GetProfile)
}

// RegisterScripts registers the authenticated script surface: uploads,
// edits, engagement and code redemption. Every route requires a valid
// access token with the USER or STAFF role. Bumping additionally sits
// behind the Redis token bucket so bump awards cannot be farmed.
func RegisterScripts(e *echo.Echo, s *handler.ScriptHandler, eng *handler.EngagementHandler, p *handler.PromotionHandler, jwtSecret string, bumpLimit echo.MiddlewareFunc) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("USER", "STAFF"))

	g.POST("/scripts", s.Create)
	g.PATCH("/scripts/:id", s.Update)
	g.DELETE("/scripts/:id", s.Delete)

	g.POST("/scripts/:id/like", eng.ToggleLike)
	g.POST("/scripts/:id/comments", eng.Comment)
	g.POST("/scripts/:id/bump", eng.Bump, bumpLimit)

	g.POST("/promotions/redeem", p.Redeem)
}

// RegisterAdmin registers the staff-only operations: the multiplier
// batch job, cache rewarm, code minting and user verification.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string) {
	g := e.Group("/v1/admin")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("STAFF"))

	g.POST("/update-multipliers", a.UpdateMultipliers)
	g.POST("/rewarm-cache", a.RewarmCache)
	g.POST("/codes", a.CreateCode)
	g.PATCH("/users/:id/verify", a.SetVerified)
}
