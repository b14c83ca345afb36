package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/apperr"
)

// dbTimeout bounds the storage work of a single request.
const dbTimeout = 5 * time.Second

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict, apperr.KindCapacityExceeded, apperr.KindClosed, apperr.KindOutsideHours:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as {"error", "kind"}. Internal errors are logged with
// their cause and reported with a generic message.
func fail(c echo.Context, log *slog.Logger, err error) error {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal && log != nil {
		log.ErrorContext(c.Request().Context(), "request failed",
			slog.String("path", c.Path()), slog.Any("err", err))
	}
	return c.JSON(statusFor(kind), echo.Map{
		"error": apperr.Message(err),
		"kind":  kind,
	})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg, "kind": apperr.KindValidation})
}

// pathID parses the :id route parameter.
func pathID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.New(apperr.KindValidation, "invalid id %q", c.Param("id"))
	}
	return id, nil
}

func requestCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}
