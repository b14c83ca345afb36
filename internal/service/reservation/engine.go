// Package reservation is the reservation lifecycle engine. It validates
// and creates bookings, drives status transitions and runs the periodic
// maintenance sweeps. Every collaborator is injected, so the engine can
// be exercised with in-memory fakes or real repositories alike.
package reservation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iliyamo/table-reservation/internal/apperr"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/queue"
	"github.com/iliyamo/table-reservation/internal/repository"
)

const (
	// Duration is the fixed length of every reservation.
	Duration = 2 * time.Hour
	// Points is the loyalty reward granted per reservation.
	Points = 10
	// ArchiveRetention is how long archived reservations are kept.
	ArchiveRetention = 15 * time.Minute
	// ReminderLead is how far ahead of start a reminder goes out.
	ReminderLead = 15 * time.Minute

	reminderWindow    = time.Minute
	sideEffectTimeout = 30 * time.Second
)

// Store persists reservations.
type Store interface {
	InsertIfFree(ctx context.Context, res *model.Reservation) error
	GetByID(ctx context.Context, id uint64) (*model.Reservation, error)
	UpdateStatus(ctx context.Context, id uint64, status model.Status) error
	ListByStatus(ctx context.Context, statuses ...model.Status) ([]model.Reservation, error)
	ListByClient(ctx context.Context, clientID uint64) ([]model.Reservation, error)
	ListArchived(ctx context.Context) ([]model.Reservation, error)
	ListConfirmedStartingBetween(ctx context.Context, from, to time.Time) ([]model.Reservation, error)
	DeleteArchivedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	ArchiveCancelled(ctx context.Context, at time.Time) (int64, error)
	CompleteEndedBefore(ctx context.Context, now time.Time) (int64, error)
}

// TableLookup resolves tables. Missing tables are reported as
// apperr.KindNotFound.
type TableLookup interface {
	Get(ctx context.Context, id uint64) (*model.Table, error)
}

// ClientDirectory resolves clients and credits loyalty points.
type ClientDirectory interface {
	Get(ctx context.Context, id uint64) (*model.Client, error)
	IncrementLoyaltyPoints(ctx context.Context, id uint64, amount int) error
}

// HoursLookup returns the opening hours for a weekday, or nil when the
// restaurant is closed that day.
type HoursLookup interface {
	ForDay(ctx context.Context, day time.Weekday) (*model.BusinessHours, error)
}

// Mailer delivers booking confirmations.
type Mailer interface {
	SendConfirmation(ctx context.Context, res *model.Reservation) error
}

// Publisher broadcasts events. Publish must not fail the caller.
type Publisher interface {
	Publish(ctx context.Context, ev queue.Event)
}

// Deps are the engine's collaborators. Store, Tables, Clients and Hours
// are required; the rest default to no-ops, time.Now, UTC and a
// discarding logger.
type Deps struct {
	Store     Store
	Tables    TableLookup
	Clients   ClientDirectory
	Hours     HoursLookup
	Mailer    Mailer
	Publisher Publisher
	Clock     func() time.Time
	Location  *time.Location
	Logger    *slog.Logger
}

// Engine implements the reservation lifecycle.
type Engine struct {
	store     Store
	tables    TableLookup
	clients   ClientDirectory
	hours     HoursLookup
	mailer    Mailer
	publisher Publisher
	now       func() time.Time
	loc       *time.Location
	log       *slog.Logger

	wg sync.WaitGroup
}

// New wires an engine. It panics when a required dependency is missing.
func New(d Deps) *Engine {
	if d.Store == nil || d.Tables == nil || d.Clients == nil || d.Hours == nil {
		panic("reservation: store, tables, clients and hours are required")
	}
	e := &Engine{
		store:     d.Store,
		tables:    d.Tables,
		clients:   d.Clients,
		hours:     d.Hours,
		mailer:    d.Mailer,
		publisher: d.Publisher,
		now:       d.Clock,
		loc:       d.Location,
		log:       d.Logger,
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.loc == nil {
		e.loc = time.UTC
	}
	if e.log == nil {
		e.log = slog.New(slog.DiscardHandler)
	}
	e.log = e.log.With(slog.String("component", "reservations"))
	return e
}

// Wait blocks until background side effects (confirmation mail and
// event delivery) started so far have finished.
func (e *Engine) Wait() { e.wg.Wait() }

// CreateInput is a booking request.
type CreateInput struct {
	ClientID  uint64    `json:"client_id"`
	TableID   uint64    `json:"table_id"`
	PartySize int       `json:"party_size"`
	StartTime time.Time `json:"start_time"`
}

// Create validates and stores a new confirmed reservation, then credits
// loyalty points, sends the confirmation mail and publishes a
// reservation.confirmed event. Side effect failures are logged and never
// undo the booking.
func (e *Engine) Create(ctx context.Context, in CreateInput) (*model.Reservation, error) {
	if in.ClientID == 0 || in.TableID == 0 || in.PartySize == 0 || in.StartTime.IsZero() {
		return nil, apperr.New(apperr.KindValidation, "client_id, table_id, party_size and start_time are required")
	}
	if in.PartySize < 0 {
		return nil, apperr.New(apperr.KindValidation, "party_size must be positive")
	}

	table, err := e.tables.Get(ctx, in.TableID)
	if err != nil {
		return nil, err
	}
	if in.PartySize > table.Capacity {
		return nil, apperr.New(apperr.KindCapacityExceeded,
			"party of %d exceeds the capacity of table #%d (%d)", in.PartySize, table.TableNumber, table.Capacity)
	}

	start := in.StartTime.UTC().Truncate(time.Second)
	end := start.Add(Duration)
	local := start.In(e.loc)

	hours, err := e.hours.ForDay(ctx, local.Weekday())
	if err != nil {
		return nil, err
	}
	if hours == nil {
		return nil, apperr.New(apperr.KindClosed, "the restaurant is closed on %s", local.Weekday())
	}
	if !hours.Contains(local.Format("15:04")) {
		return nil, apperr.New(apperr.KindOutsideHours,
			"start time %s is outside business hours %s-%s", local.Format("15:04"), hours.OpenTime, hours.CloseTime)
	}

	client, err := e.clients.Get(ctx, in.ClientID)
	if err != nil {
		return nil, err
	}

	res := &model.Reservation{
		ClientID:     client.ID,
		TableID:      table.ID,
		PartySize:    in.PartySize,
		StartTime:    start,
		EndTime:      end,
		Status:       model.StatusConfirmed,
		PointsEarned: Points,
	}
	if err := e.store.InsertIfFree(ctx, res); err != nil {
		switch {
		case errors.Is(err, repository.ErrOverlap):
			return nil, apperr.New(apperr.KindConflict,
				"table #%d is already booked between %s and %s",
				table.TableNumber, local.Format("15:04"), end.In(e.loc).Format("15:04"))
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperr.Wrap(apperr.KindNotFound, err, "table or client no longer exists")
		default:
			return nil, apperr.Internal(err, "store reservation")
		}
	}
	res.Client = client
	res.Table = table

	e.log.InfoContext(ctx, "reservation created",
		slog.Uint64("reservation_id", res.ID),
		slog.Uint64("table_id", res.TableID),
		slog.Uint64("client_id", res.ClientID),
		slog.Time("start", res.StartTime))

	e.afterCreate(ctx, res)
	return res, nil
}

func (e *Engine) afterCreate(ctx context.Context, res *model.Reservation) {
	bg := context.WithoutCancel(ctx)

	if err := e.clients.IncrementLoyaltyPoints(bg, res.ClientID, res.PointsEarned); err != nil {
		e.log.WarnContext(ctx, "loyalty points not credited",
			slog.Uint64("reservation_id", res.ID), slog.Uint64("client_id", res.ClientID), slog.Any("err", err))
	} else {
		res.Client.LoyaltyPoints += res.PointsEarned
	}

	snapshot := *res
	client, table := *res.Client, *res.Table
	snapshot.Client, snapshot.Table = &client, &table
	ev := e.event(queue.TypeReservationConfirmed, &snapshot,
		fmt.Sprintf("Reservation for %s confirmed (table #%d).", client.Name, table.TableNumber))

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(bg, sideEffectTimeout)
		defer cancel()

		if e.mailer != nil && client.HasEmail() {
			if err := e.mailer.SendConfirmation(ctx, &snapshot); err != nil {
				e.log.WarnContext(ctx, "confirmation mail failed",
					slog.Uint64("reservation_id", snapshot.ID), slog.Any("err", err))
			}
		}
		if e.publisher != nil {
			e.publisher.Publish(ctx, ev)
		}
	}()
}

func (e *Engine) event(typ string, res *model.Reservation, msg string) queue.Event {
	ev := queue.Event{
		Type:          typ,
		ReservationID: res.ID,
		Message:       msg,
		ClientID:      res.ClientID,
		TableID:       res.TableID,
		PartySize:     res.PartySize,
		StartTime:     res.StartTime,
		OccurredAt:    e.now().UTC(),
	}
	if res.Client != nil {
		ev.ClientName = res.Client.Name
	}
	if res.Table != nil {
		ev.TableNumber = res.Table.TableNumber
	}
	return ev
}

// Cancel marks a reservation cancelled whatever its current status.
func (e *Engine) Cancel(ctx context.Context, id uint64) (*model.Reservation, error) {
	return e.transition(ctx, id, model.StatusCancelled)
}

// CheckIn marks a reservation seated whatever its current status.
func (e *Engine) CheckIn(ctx context.Context, id uint64) (*model.Reservation, error) {
	return e.transition(ctx, id, model.StatusSeated)
}

func (e *Engine) transition(ctx context.Context, id uint64, to model.Status) (*model.Reservation, error) {
	if err := e.store.UpdateStatus(ctx, id, to); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "reservation %d not found", id)
		}
		return nil, apperr.Internal(err, "update reservation status")
	}
	e.log.InfoContext(ctx, "reservation status changed",
		slog.Uint64("reservation_id", id), slog.String("status", string(to)))
	return e.Get(ctx, id)
}

// Get returns one reservation with its client and table.
func (e *Engine) Get(ctx context.Context, id uint64) (*model.Reservation, error) {
	res, err := e.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "reservation %d not found", id)
		}
		return nil, apperr.Internal(err, "load reservation")
	}
	return res, nil
}

// List returns confirmed and/or cancelled reservations ordered by start
// time. An empty status selects both.
func (e *Engine) List(ctx context.Context, status string) ([]model.Reservation, error) {
	var statuses []model.Status
	switch model.Status(status) {
	case "":
		statuses = []model.Status{model.StatusConfirmed, model.StatusCancelled}
	case model.StatusConfirmed, model.StatusCancelled:
		statuses = []model.Status{model.Status(status)}
	default:
		return nil, apperr.New(apperr.KindValidation, "status must be confirmed or cancelled")
	}
	out, err := e.store.ListByStatus(ctx, statuses...)
	if err != nil {
		return nil, apperr.Internal(err, "list reservations")
	}
	return out, nil
}

// ListArchived returns archived reservations, most recent first.
func (e *Engine) ListArchived(ctx context.Context) ([]model.Reservation, error) {
	out, err := e.store.ListArchived(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "list archived reservations")
	}
	return out, nil
}

// ClientHistory returns every reservation of a client, newest first.
func (e *Engine) ClientHistory(ctx context.Context, clientID uint64) ([]model.Reservation, error) {
	if _, err := e.clients.Get(ctx, clientID); err != nil {
		return nil, err
	}
	out, err := e.store.ListByClient(ctx, clientID)
	if err != nil {
		return nil, apperr.Internal(err, "list client reservations")
	}
	return out, nil
}
