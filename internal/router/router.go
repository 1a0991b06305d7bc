// Package router wires URL paths to handlers and attaches the
// middleware each group needs.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/space-reservation/internal/config"
	"github.com/iliyamo/space-reservation/internal/handler"
	"github.com/iliyamo/space-reservation/internal/middleware"
	"github.com/iliyamo/space-reservation/internal/model"
)

// RegisterRoutes registers routes that need no authentication at all.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the auth endpoints under /v1/auth plus the
// protected /v1/me probe.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	// Logout takes either a bearer token or a refresh_token body, so it
	// stays outside the JWT middleware.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole(model.RoleStaff, model.RoleCitizen))
	auth.GET("/me", a.Me)
}

// RegisterPublic registers the unauthenticated space catalog. These are
// the hottest read paths, so they get the Redis response cache and the
// token-bucket rate limiter when a Redis client is available.
func RegisterPublic(e *echo.Echo, s *handler.SpaceHandler, rdb *redis.Client) {
	g := e.Group("/v1/spaces")
	if rdb != nil {
		g.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
		g.Use(middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	}
	g.GET("", s.List)
	g.GET("/:id", s.Get)
	g.GET("/:id/hours", s.Hours)
}

// RegisterReservations registers the citizen reservation endpoints.
// Both roles may call them; ownership is enforced inside the engine.
func RegisterReservations(e *echo.Echo, r *handler.ReservationHandler, jwtSecret string) {
	g := e.Group("/v1/reservations")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(model.RoleStaff, model.RoleCitizen))
	g.POST("", r.Create)
	g.GET("", r.ListOwn)
	g.GET("/:id", r.Get)
	g.PATCH("/:id", r.Update)
	g.POST("/:id/cancel", r.Cancel)
	g.POST("/:id/check-in", r.CheckIn)
	g.DELETE("/:id", r.Delete)
}

// RegisterAdmin registers staff-only management: space CRUD, the
// reservation resolutions and the settings endpoints.
func RegisterAdmin(e *echo.Echo, s *handler.SpaceHandler, a *handler.AdminHandler, jwtSecret string) {
	g := e.Group("/v1/admin")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(model.RoleStaff))

	g.POST("/spaces", s.Create)
	g.PATCH("/spaces/:id", s.Update)
	g.PUT("/spaces/:id/hours", s.ReplaceHours)
	g.POST("/spaces/:id/active", s.SetActive)
	g.DELETE("/spaces/:id", s.Delete)

	g.GET("/reservations", a.ListAll)
	g.POST("/reservations/:id/approve", a.Approve)
	g.POST("/reservations/:id/no-show", a.MarkNoShow)
	g.POST("/reservations/:id/complete", a.Complete)
	g.DELETE("/reservations/:id", a.HardDelete)

	g.GET("/settings/:key", a.GetSetting)
	g.PUT("/settings/:key", a.UpsertSetting)
}
