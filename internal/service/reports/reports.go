// Package reports computes the operator dashboard figures.
package reports

import (
	"context"
	"time"

	"github.com/iliyamo/table-reservation/internal/apperr"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/repository"
)

// Source is the read model the reports are computed from.
type Source interface {
	OccupancyByWeekday(ctx context.Context, loc *time.Location) ([7]int, error)
	TopClient(ctx context.Context) (*model.Client, error)
	DashboardStats(ctx context.Context, now, dayStart, dayEnd time.Time) (repository.Stats, error)
}

// DayOccupancy is the number of guests booked on one weekday.
type DayOccupancy struct {
	Day    string `json:"day"`
	People int    `json:"people"`
}

// Service answers report queries in the restaurant's time zone.
type Service struct {
	src Source
	loc *time.Location
	now func() time.Time
}

// New returns a report service. A nil now defaults to time.Now.
func New(src Source, loc *time.Location, now func() time.Time) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Service{src: src, loc: loc, now: now}
}

// OccupancyByDay sums confirmed party sizes per weekday, Sunday first.
func (s *Service) OccupancyByDay(ctx context.Context) ([]DayOccupancy, error) {
	counts, err := s.src.OccupancyByWeekday(ctx, s.loc)
	if err != nil {
		return nil, apperr.Internal(err, "occupancy report")
	}
	out := make([]DayOccupancy, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		out[d] = DayOccupancy{Day: d.String(), People: counts[d]}
	}
	return out, nil
}

// TopClient returns the client with the most loyalty points, or nil.
func (s *Service) TopClient(ctx context.Context) (*model.Client, error) {
	c, err := s.src.TopClient(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "top client report")
	}
	return c, nil
}

// Dashboard returns headline counters. "Today" is the current calendar
// day in the restaurant's zone.
func (s *Service) Dashboard(ctx context.Context) (repository.Stats, error) {
	now := s.now().In(s.loc)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	dayEnd := dayStart.AddDate(0, 0, 1)
	st, err := s.src.DashboardStats(ctx, now, dayStart, dayEnd)
	if err != nil {
		return st, apperr.Internal(err, "dashboard stats")
	}
	return st, nil
}
