package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/service/reports"
)

// ReportHandler serves the dashboard reports.
type ReportHandler struct {
	Reports *reports.Service
	Log     *slog.Logger
}

func NewReportHandler(r *reports.Service, log *slog.Logger) *ReportHandler {
	return &ReportHandler{Reports: r, Log: log}
}

// OccupancyByDay handles GET /v1/reports/occupancy-by-day.
func (h *ReportHandler) OccupancyByDay(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	out, err := h.Reports.OccupancyByDay(ctx)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}

// TopClient handles GET /v1/reports/top-client. The body is null when
// no client has earned points yet.
func (h *ReportHandler) TopClient(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	cl, err := h.Reports.TopClient(ctx)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, cl)
}

// DashboardStats handles GET /v1/dashboard/stats.
func (h *ReportHandler) DashboardStats(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	st, err := h.Reports.Dashboard(ctx)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, st)
}
