// Package router registers the HTTP routes of the reservation API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/handler"
	"github.com/iliyamo/table-reservation/internal/middleware"
	"github.com/iliyamo/table-reservation/internal/utils"
)

// RegisterRoutes registers the health check.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers operator sign-in under /v1/auth and the
// protected /v1/me.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	// logout accepts either a refresh token or a bearer token
	g.POST("/logout", a.Logout)

	e.GET("/v1/me", a.Me,
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(utils.RoleOperator))
}

// RegisterPublic registers the guest facing endpoints. Booking goes
// through limiter.
func RegisterPublic(e *echo.Echo, reg *handler.RegistryHandler, res *handler.ReservationHandler, limiter echo.MiddlewareFunc) {
	e.GET("/v1/tables", reg.ListTables)
	e.GET("/v1/hours", reg.ListHours)
	e.POST("/v1/reservations", res.Create, limiter)
}
