package reservation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/iliyamo/table-reservation/internal/apperr"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/queue"
)

// ArchiveResult reports what one ArchiveAndPurge pass did.
type ArchiveResult struct {
	Archived int64 `json:"archived_count"`
	Deleted  int64 `json:"deleted_count"`
}

// ArchiveAndPurge first deletes archived reservations older than the
// retention window, then archives every cancelled reservation. A freshly
// archived row therefore survives at least one full window.
func (e *Engine) ArchiveAndPurge(ctx context.Context) (ArchiveResult, error) {
	var out ArchiveResult
	now := e.now()

	deleted, err := e.store.DeleteArchivedBefore(ctx, now.Add(-ArchiveRetention))
	if err != nil {
		return out, apperr.Internal(err, "purge archived reservations")
	}
	out.Deleted = deleted

	archived, err := e.store.ArchiveCancelled(ctx, now)
	if err != nil {
		return out, apperr.Internal(err, "archive cancelled reservations")
	}
	out.Archived = archived

	e.log.InfoContext(ctx, "archive pass finished",
		slog.Int64("archived", archived), slog.Int64("deleted", deleted))
	return out, nil
}

// CompleteExpired marks confirmed and seated reservations whose slot has
// ended as completed and returns how many changed.
func (e *Engine) CompleteExpired(ctx context.Context) (int64, error) {
	n, err := e.store.CompleteEndedBefore(ctx, e.now())
	if err != nil {
		return 0, apperr.Internal(err, "complete expired reservations")
	}
	if n > 0 {
		e.log.InfoContext(ctx, "reservations completed", slog.Int64("count", n))
	}
	return n, nil
}

// SendReminders publishes an upcoming_reservation event for each
// confirmed reservation starting in [now+14m, now+15m). Run once a
// minute, every reservation is announced exactly once.
func (e *Engine) SendReminders(ctx context.Context) (int, error) {
	now := e.now()
	from := now.Add(ReminderLead - reminderWindow)
	to := now.Add(ReminderLead)

	due, err := e.store.ListConfirmedStartingBetween(ctx, from, to)
	if err != nil {
		return 0, apperr.Internal(err, "scan upcoming reservations")
	}
	for i := range due {
		ev := e.event(queue.TypeUpcomingReservation, &due[i], reminderMessage(&due[i]))
		if e.publisher != nil {
			e.publisher.Publish(ctx, ev)
		}
		e.log.InfoContext(ctx, "reminder sent", slog.Uint64("reservation_id", due[i].ID))
	}
	return len(due), nil
}

func reminderMessage(r *model.Reservation) string {
	name, number := "", 0
	if r.Client != nil {
		name = r.Client.Name
	}
	if r.Table != nil {
		number = r.Table.TableNumber
	}
	return fmt.Sprintf("Reminder: reservation for %s (table #%d) in 15 minutes.", name, number)
}
