package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/middleware"
	"github.com/iliyamo/table-reservation/internal/notify"
)

const (
	streamBuffer   = 32
	heartbeatEvery = 25 * time.Second
)

// EventsHandler streams hub events to operator dashboards as
// Server-Sent Events.
type EventsHandler struct {
	Hub       *notify.Hub
	Log       *slog.Logger
	Heartbeat time.Duration
}

func NewEventsHandler(hub *notify.Hub, log *slog.Logger) *EventsHandler {
	return &EventsHandler{Hub: hub, Log: log, Heartbeat: heartbeatEvery}
}

// Stream handles GET /v1/events. It holds the connection open until the
// client goes away.
func (h *EventsHandler) Stream(c echo.Context) error {
	w := c.Response()
	flusher, ok := w.Writer.(http.Flusher)
	if !ok {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "streaming unsupported"})
	}

	stream := notify.NewStream(streamBuffer)
	name := "sse"
	if id, ok := middleware.OperatorID(c); ok {
		name = fmt.Sprintf("sse:operator:%d", id)
	}
	unsubscribe := h.Hub.Subscribe(name, stream)
	defer func() {
		unsubscribe()
		stream.Close()
	}()

	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ctx := c.Request().Context()
	ticker := time.NewTicker(h.Heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return nil
			}
			flusher.Flush()
		case ev, ok := <-stream.Events():
			if !ok {
				return nil
			}
			data, err := json.Marshal(ev)
			if err != nil {
				h.Log.WarnContext(ctx, "encode event", slog.Any("err", err))
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data); err != nil {
				return nil
			}
			flusher.Flush()
		}
	}
}
