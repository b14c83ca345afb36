package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/service/registry"
)

// RegistryHandler exposes tables, clients and business hours.
type RegistryHandler struct {
	Tables  *registry.Tables
	Clients *registry.Clients
	Hours   *registry.Hours
	Log     *slog.Logger
}

// NewRegistryHandler panics if a registry is missing.
func NewRegistryHandler(t *registry.Tables, cl *registry.Clients, h *registry.Hours, log *slog.Logger) *RegistryHandler {
	if t == nil || cl == nil || h == nil {
		panic("nil registry passed to NewRegistryHandler")
	}
	return &RegistryHandler{Tables: t, Clients: cl, Hours: h, Log: log}
}

// ---- Tables ----

// ListTables handles GET /v1/tables.
func (h *RegistryHandler) ListTables(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	out, err := h.Tables.List(ctx)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}

// GetTable handles GET /v1/tables/:id.
func (h *RegistryHandler) GetTable(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	t, err := h.Tables.Get(ctx, id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, t)
}

// CreateTable handles POST /v1/tables.
func (h *RegistryHandler) CreateTable(c echo.Context) error {
	var in registry.TableInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid request body")
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	t, err := h.Tables.Create(ctx, in)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, t)
}

// UpdateTable handles PUT /v1/tables/:id.
func (h *RegistryHandler) UpdateTable(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, h.Log, err)
	}
	var in registry.TableInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid request body")
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	t, err := h.Tables.Update(ctx, id, in)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, t)
}

// DeleteTable handles DELETE /v1/tables/:id.
func (h *RegistryHandler) DeleteTable(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	if err := h.Tables.Delete(ctx, id); err != nil {
		return fail(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ---- Clients ----

// ListClients handles GET /v1/clients.
func (h *RegistryHandler) ListClients(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	out, err := h.Clients.List(ctx)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}

// GetClient handles GET /v1/clients/:id.
func (h *RegistryHandler) GetClient(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	cl, err := h.Clients.Get(ctx, id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, cl)
}

// CreateClient handles POST /v1/clients.
func (h *RegistryHandler) CreateClient(c echo.Context) error {
	var in registry.ClientInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid request body")
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	cl, err := h.Clients.Create(ctx, in)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, cl)
}

// UpdateClient handles PUT /v1/clients/:id.
func (h *RegistryHandler) UpdateClient(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, h.Log, err)
	}
	var in registry.ClientInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid request body")
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	cl, err := h.Clients.Update(ctx, id, in)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, cl)
}

// DeleteClient handles DELETE /v1/clients/:id.
func (h *RegistryHandler) DeleteClient(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	if err := h.Clients.Delete(ctx, id); err != nil {
		return fail(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ---- Business hours ----

type hoursReq struct {
	DayOfWeek *int   `json:"day_of_week"`
	OpenTime  string `json:"open_time"`
	CloseTime string `json:"close_time"`
}

// ListHours handles GET /v1/hours.
func (h *RegistryHandler) ListHours(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	out, err := h.Hours.List(ctx)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}

// UpsertHours handles POST /v1/hours.
func (h *RegistryHandler) UpsertHours(c echo.Context) error {
	var req hoursReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.DayOfWeek == nil {
		return badRequest(c, "day_of_week, open_time and close_time are required")
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	bh, err := h.Hours.Upsert(ctx, *req.DayOfWeek, req.OpenTime, req.CloseTime)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, bh)
}
