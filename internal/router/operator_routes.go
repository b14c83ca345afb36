package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/handler"
	"github.com/iliyamo/table-reservation/internal/middleware"
	"github.com/iliyamo/table-reservation/internal/utils"
)

// Operator bundles the handlers behind operator authentication.
type Operator struct {
	Registry     *handler.RegistryHandler
	Reservations *handler.ReservationHandler
	Reports      *handler.ReportHandler
	Events       *handler.EventsHandler
}

// RegisterOperator registers the staff endpoints under /v1. All routes
// require a valid JWT with the operator role; report responses go
// through cache.
func RegisterOperator(e *echo.Echo, o Operator, jwtSecret string, cache echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(utils.RoleOperator),
	)

	// ---- Tables ----
	g.POST("/tables", o.Registry.CreateTable)
	g.GET("/tables/:id", o.Registry.GetTable)
	g.PUT("/tables/:id", o.Registry.UpdateTable)
	g.DELETE("/tables/:id", o.Registry.DeleteTable)

	// ---- Clients ----
	g.GET("/clients", o.Registry.ListClients)
	g.POST("/clients", o.Registry.CreateClient)
	g.GET("/clients/:id", o.Registry.GetClient)
	g.PUT("/clients/:id", o.Registry.UpdateClient)
	g.DELETE("/clients/:id", o.Registry.DeleteClient)
	g.GET("/clients/:id/reservations", o.Reservations.ClientHistory)

	// ---- Hours ----
	g.POST("/hours", o.Registry.UpsertHours)

	// ---- Reservations ----
	g.GET("/reservations", o.Reservations.List)
	g.GET("/reservations/archived", o.Reservations.ListArchived)
	g.DELETE("/reservations/cancelled", o.Reservations.ArchiveCancelled)
	g.GET("/reservations/:id", o.Reservations.Get)
	g.PUT("/reservations/:id/cancel", o.Reservations.Cancel)
	g.PUT("/reservations/:id/check-in", o.Reservations.CheckIn)

	// ---- Live events ----
	g.GET("/events", o.Events.Stream)

	// ---- Reports ----
	g.GET("/reports/occupancy-by-day", o.Reports.OccupancyByDay, cache)
	g.GET("/reports/top-client", o.Reports.TopClient, cache)
	g.GET("/dashboard/stats", o.Reports.DashboardStats, cache)
}
