package repository

import (
	"context"
	"time"

	"github.com/iliyamo/table-reservation/internal/database"
	"github.com/iliyamo/table-reservation/internal/model"
)

// ReportRepo runs the read-only aggregate queries behind the operator
// dashboard.
type ReportRepo struct {
	db *database.DB
}

// NewReportRepo constructs a ReportRepo with the given DB handle.
func NewReportRepo(db *database.DB) *ReportRepo { return &ReportRepo{db: db} }

// OccupancyByWeekday sums party sizes of confirmed reservations per
// weekday of their start time in loc. Index 0 is Sunday.
// Weekdays are computed in Go so they follow loc on both drivers.
func (r *ReportRepo) OccupancyByWeekday(ctx context.Context, loc *time.Location) ([7]int, error) {
	var out [7]int
	rows, err := r.db.QueryContext(ctx,
		`SELECT start_time, party_size FROM reservations WHERE status = ?`, model.StatusConfirmed)
	if err != nil {
		return out, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			start time.Time
			size  int
		)
		if err := rows.Scan(&start, &size); err != nil {
			return out, err
		}
		out[start.In(loc).Weekday()] += size
	}
	return out, rows.Err()
}

// TopClient returns the client with the most loyalty points, or nil when
// nobody has earned any yet. Ties go to the lowest id.
func (r *ReportRepo) TopClient(ctx context.Context) (*model.Client, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE loyalty_points > 0 ORDER BY loyalty_points DESC, id ASC LIMIT 1`)
	c, err := scanClient(row)
	if err != nil {
		if noRows(err) == ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

// Stats holds the dashboard counters.
type Stats struct {
	TotalClients      int `json:"total_clients"`
	TotalTables       int `json:"total_tables"`
	TodayReservations int `json:"today_reservations"`
	UpcomingConfirmed int `json:"upcoming_confirmed"`
}

// DashboardStats counts clients and tables, confirmed reservations
// starting in [dayStart, dayEnd) and confirmed reservations starting at
// or after now.
func (r *ReportRepo) DashboardStats(ctx context.Context, now, dayStart, dayEnd time.Time) (Stats, error) {
	var s Stats
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clients`).Scan(&s.TotalClients); err != nil {
		return s, err
	}
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM restaurant_tables`).Scan(&s.TotalTables); err != nil {
		return s, err
	}
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE status = ? AND start_time >= ? AND start_time < ?`,
		model.StatusConfirmed, dayStart.UTC(), dayEnd.UTC()).Scan(&s.TodayReservations)
	if err != nil {
		return s, err
	}
	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE status = ? AND start_time >= ?`,
		model.StatusConfirmed, now.UTC()).Scan(&s.UpcomingConfirmed)
	return s, err
}
