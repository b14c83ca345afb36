package repository

import (
	"context"

	"github.com/iliyamo/table-reservation/internal/config"
	"github.com/iliyamo/table-reservation/internal/database"
	"github.com/iliyamo/table-reservation/internal/model"
)

// HoursRepo stores the weekly opening hours, one row per weekday.
type HoursRepo struct {
	db *database.DB
}

// NewHoursRepo constructs an HoursRepo with the given DB handle.
func NewHoursRepo(db *database.DB) *HoursRepo { return &HoursRepo{db: db} }

// Upsert replaces the hours for h.DayOfWeek, inserting the row when the
// day has none yet. h.ID is set from the stored row.
func (r *HoursRepo) Upsert(ctx context.Context, h *model.BusinessHours) error {
	q := `INSERT INTO business_hours (day_of_week, open_time, close_time) VALUES (?, ?, ?)
	      ON CONFLICT (day_of_week) DO UPDATE SET open_time = excluded.open_time, close_time = excluded.close_time`
	if r.db.Driver == config.DriverMySQL {
		q = `INSERT INTO business_hours (day_of_week, open_time, close_time) VALUES (?, ?, ?)
		     ON DUPLICATE KEY UPDATE open_time = VALUES(open_time), close_time = VALUES(close_time)`
	}
	if _, err := r.db.ExecContext(ctx, q, h.DayOfWeek, h.OpenTime, h.CloseTime); err != nil {
		return err
	}
	stored, err := r.GetByDay(ctx, h.DayOfWeek)
	if err != nil {
		return err
	}
	h.ID = stored.ID
	return nil
}

// GetByDay returns the hours for a weekday (0 = Sunday) or ErrNotFound
// when the restaurant is closed that day.
func (r *HoursRepo) GetByDay(ctx context.Context, day int) (*model.BusinessHours, error) {
	const q = `SELECT id, day_of_week, open_time, close_time FROM business_hours WHERE day_of_week = ?`
	var h model.BusinessHours
	if err := r.db.QueryRowContext(ctx, q, day).Scan(&h.ID, &h.DayOfWeek, &h.OpenTime, &h.CloseTime); err != nil {
		return nil, noRows(err)
	}
	return &h, nil
}

// List returns all configured days ordered Sunday first.
func (r *HoursRepo) List(ctx context.Context) ([]model.BusinessHours, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, day_of_week, open_time, close_time FROM business_hours ORDER BY day_of_week`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.BusinessHours{}
	for rows.Next() {
		var h model.BusinessHours
		if err := rows.Scan(&h.ID, &h.DayOfWeek, &h.OpenTime, &h.CloseTime); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
