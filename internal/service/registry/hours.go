package registry

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/iliyamo/table-reservation/internal/apperr"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/repository"
)

// HoursStore is the persistence the business hours store needs.
type HoursStore interface {
	Upsert(ctx context.Context, h *model.BusinessHours) error
	GetByDay(ctx context.Context, day int) (*model.BusinessHours, error)
	List(ctx context.Context) ([]model.BusinessHours, error)
}

// Hours manages the weekly opening schedule.
type Hours struct {
	store HoursStore
	log   *slog.Logger
}

// NewHours builds the business hours store.
func NewHours(store HoursStore, log *slog.Logger) *Hours {
	if store == nil {
		panic("nil HoursStore")
	}
	return &Hours{store: store, log: log.With(slog.String("component", "hours"))}
}

// ParseClock validates a 24h "HH:MM" string.
func ParseClock(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) != 5 {
		return "", apperr.New(apperr.KindValidation, "time %q must be HH:MM", s)
	}
	if _, err := time.Parse("15:04", s); err != nil {
		return "", apperr.New(apperr.KindValidation, "time %q must be HH:MM", s)
	}
	return s, nil
}

// Upsert sets the hours for day (0 = Sunday), replacing any previous
// entry for that day.
func (s *Hours) Upsert(ctx context.Context, day int, openTime, closeTime string) (*model.BusinessHours, error) {
	if day < 0 || day > 6 {
		return nil, apperr.New(apperr.KindValidation, "day_of_week must be between 0 and 6")
	}
	open, err := ParseClock(openTime)
	if err != nil {
		return nil, err
	}
	closing, err := ParseClock(closeTime)
	if err != nil {
		return nil, err
	}
	if open >= closing {
		return nil, apperr.New(apperr.KindValidation, "open_time must be before close_time")
	}

	h := &model.BusinessHours{DayOfWeek: day, OpenTime: open, CloseTime: closing}
	if err := s.store.Upsert(ctx, h); err != nil {
		return nil, apperr.Internal(err, "save business hours")
	}
	s.log.InfoContext(ctx, "business hours set",
		slog.Int("day", day), slog.String("open", open), slog.String("close", closing))
	return h, nil
}

// List returns the weekly schedule ordered Sunday first.
func (s *Hours) List(ctx context.Context) ([]model.BusinessHours, error) {
	out, err := s.store.List(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "list business hours")
	}
	return out, nil
}

// ForDay returns the hours for day, or nil when the restaurant is
// closed that day.
func (s *Hours) ForDay(ctx context.Context, day time.Weekday) (*model.BusinessHours, error) {
	h, err := s.store.GetByDay(ctx, int(day))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, apperr.Internal(err, "load business hours")
	}
	return h, nil
}
