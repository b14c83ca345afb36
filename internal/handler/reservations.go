package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/service/reservation"
)

// ReservationHandler exposes the reservation lifecycle.
type ReservationHandler struct {
	Engine *reservation.Engine
	Log    *slog.Logger
}

func NewReservationHandler(e *reservation.Engine, log *slog.Logger) *ReservationHandler {
	if e == nil {
		panic("nil engine passed to NewReservationHandler")
	}
	return &ReservationHandler{Engine: e, Log: log}
}

// Create handles POST /v1/reservations. start_time is RFC 3339.
func (h *ReservationHandler) Create(c echo.Context) error {
	var in reservation.CreateInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid request body; start_time must be RFC 3339")
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	res, err := h.Engine.Create(ctx, in)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// List handles GET /v1/reservations?status=confirmed|cancelled.
func (h *ReservationHandler) List(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	out, err := h.Engine.List(ctx, c.QueryParam("status"))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Get handles GET /v1/reservations/:id.
func (h *ReservationHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	res, err := h.Engine.Get(ctx, id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Cancel handles PUT /v1/reservations/:id/cancel.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	res, err := h.Engine.Cancel(ctx, id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, res)
}

// CheckIn handles PUT /v1/reservations/:id/check-in.
func (h *ReservationHandler) CheckIn(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	res, err := h.Engine.CheckIn(ctx, id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, res)
}

// ListArchived handles GET /v1/reservations/archived.
func (h *ReservationHandler) ListArchived(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	out, err := h.Engine.ListArchived(ctx)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}

// ArchiveCancelled handles DELETE /v1/reservations/cancelled: expired
// archived rows are purged, then cancelled ones are archived.
func (h *ReservationHandler) ArchiveCancelled(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	r, err := h.Engine.ArchiveAndPurge(ctx)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": fmt.Sprintf("%d reservations archived, %d expired archived reservations deleted.",
			r.Archived, r.Deleted),
		"archived_count": r.Archived,
		"deleted_count":  r.Deleted,
	})
}

// ClientHistory handles GET /v1/clients/:id/reservations.
func (h *ReservationHandler) ClientHistory(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	out, err := h.Engine.ClientHistory(ctx, id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}
