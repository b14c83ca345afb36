package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/table-reservation/internal/database"
	"github.com/iliyamo/table-reservation/internal/model"
)

// ReservationRepo persists reservations. Read queries join the client
// and table rows so callers get a display-ready record in one round
// trip. All timestamps are written and compared in UTC.
type ReservationRepo struct {
	db *database.DB
}

// NewReservationRepo returns a ReservationRepo bound to the given database.
func NewReservationRepo(db *database.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationSelect = `SELECT r.id, r.client_id, r.table_id, r.party_size, r.start_time, r.end_time,
       r.status, r.points_earned, r.archived_at,
       c.id, c.name, c.phone, c.email, c.loyalty_points,
       t.id, t.table_number, t.capacity, t.location
FROM reservations r
JOIN clients c ON c.id = r.client_id
JOIN restaurant_tables t ON t.id = r.table_id`

// InsertIfFree stores res unless another confirmed reservation of the
// same table overlaps [StartTime, EndTime). The check and the insert
// share one transaction that holds the table row lock on MySQL and the
// database write lock on SQLite, so two concurrent bookings of one slot
// cannot both succeed. Returns ErrNotFound for an unknown table and
// ErrOverlap when the slot is taken. res.ID is set on success.
func (r *ReservationRepo) InsertIfFree(ctx context.Context, res *model.Reservation) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := getTable(ctx, tx, res.TableID, r.db.ForUpdate()); err != nil {
		return err
	}

	const qOverlap = `SELECT id FROM reservations
	                  WHERE table_id = ? AND status = ? AND start_time < ? AND end_time > ?
	                  LIMIT 1`
	var clash uint64
	err = tx.QueryRowContext(ctx, qOverlap,
		res.TableID, model.StatusConfirmed, res.EndTime.UTC(), res.StartTime.UTC(),
	).Scan(&clash)
	switch {
	case err == nil:
		return ErrOverlap
	case !errors.Is(err, sql.ErrNoRows):
		return err
	}

	const qInsert = `INSERT INTO reservations
	                 (client_id, table_id, party_size, start_time, end_time, status, points_earned, archived_at)
	                 VALUES (?, ?, ?, ?, ?, ?, ?, NULL)`
	out, err := tx.ExecContext(ctx, qInsert,
		res.ClientID, res.TableID, res.PartySize, res.StartTime.UTC(), res.EndTime.UTC(),
		res.Status, res.PointsEarned,
	)
	if err != nil {
		if isForeignKey(err) {
			return ErrNotFound
		}
		return err
	}
	id, err := out.LastInsertId()
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	res.ID = uint64(id)
	return nil
}

// GetByID returns the reservation with its client and table, or
// ErrNotFound.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	row := r.db.QueryRowContext(ctx, reservationSelect+` WHERE r.id = ?`, id)
	res, err := scanReservation(row)
	if err != nil {
		return nil, noRows(err)
	}
	return res, nil
}

// UpdateStatus sets the status of one reservation.
func (r *ReservationRepo) UpdateStatus(ctx context.Context, id uint64, status model.Status) error {
	res, err := r.db.ExecContext(ctx, `UPDATE reservations SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// zero rows also means "already in that status" on MySQL
		var one int
		err := r.db.QueryRowContext(ctx, `SELECT 1 FROM reservations WHERE id = ?`, id).Scan(&one)
		return noRows(err)
	}
	return nil
}

// ListByStatus returns reservations whose status is one of statuses,
// ordered by start time ascending.
func (r *ReservationRepo) ListByStatus(ctx context.Context, statuses ...model.Status) ([]model.Reservation, error) {
	if len(statuses) == 0 {
		return []model.Reservation{}, nil
	}
	args := make([]any, len(statuses))
	for i, s := range statuses {
		args[i] = s
	}
	q := reservationSelect + ` WHERE r.status IN (` + placeholders(len(statuses)) + `) ORDER BY r.start_time ASC, r.id ASC`
	return r.query(ctx, q, args...)
}

// ListByClient returns the full history of a client, newest first.
func (r *ReservationRepo) ListByClient(ctx context.Context, clientID uint64) ([]model.Reservation, error) {
	return r.query(ctx, reservationSelect+` WHERE r.client_id = ? ORDER BY r.start_time DESC, r.id DESC`, clientID)
}

// ListArchived returns archived reservations, most recently archived first.
func (r *ReservationRepo) ListArchived(ctx context.Context) ([]model.Reservation, error) {
	return r.query(ctx, reservationSelect+` WHERE r.status = ? ORDER BY r.archived_at DESC, r.id DESC`,
		model.StatusArchived)
}

// ListConfirmedStartingBetween returns confirmed reservations with
// from <= start_time < to.
func (r *ReservationRepo) ListConfirmedStartingBetween(ctx context.Context, from, to time.Time) ([]model.Reservation, error) {
	return r.query(ctx, reservationSelect+` WHERE r.status = ? AND r.start_time >= ? AND r.start_time < ? ORDER BY r.start_time ASC`,
		model.StatusConfirmed, from.UTC(), to.UTC())
}

// DeleteArchivedBefore removes archived reservations whose archived_at
// is strictly before cutoff and returns how many were deleted.
func (r *ReservationRepo) DeleteArchivedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM reservations WHERE status = ? AND archived_at IS NOT NULL AND archived_at < ?`,
		model.StatusArchived, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ArchiveCancelled moves every cancelled reservation to archived,
// stamping archived_at with at.
func (r *ReservationRepo) ArchiveCancelled(ctx context.Context, at time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE reservations SET status = ?, archived_at = ? WHERE status = ?`,
		model.StatusArchived, at.UTC(), model.StatusCancelled)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CompleteEndedBefore marks confirmed and seated reservations whose slot
// ended before now as completed.
func (r *ReservationRepo) CompleteEndedBefore(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE reservations SET status = ? WHERE status IN (?, ?) AND end_time < ?`,
		model.StatusCompleted, model.StatusConfirmed, model.StatusSeated, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *ReservationRepo) query(ctx context.Context, q string, args ...any) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Reservation{}
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}

func scanReservation(s rowScanner) (*model.Reservation, error) {
	var (
		res      model.Reservation
		c        model.Client
		t        model.Table
		archived sql.NullTime
		email    sql.NullString
		location sql.NullString
	)
	err := s.Scan(
		&res.ID, &res.ClientID, &res.TableID, &res.PartySize, &res.StartTime, &res.EndTime,
		&res.Status, &res.PointsEarned, &archived,
		&c.ID, &c.Name, &c.Phone, &email, &c.LoyaltyPoints,
		&t.ID, &t.TableNumber, &t.Capacity, &location,
	)
	if err != nil {
		return nil, err
	}
	res.StartTime = res.StartTime.UTC()
	res.EndTime = res.EndTime.UTC()
	if archived.Valid {
		at := archived.Time.UTC()
		res.ArchivedAt = &at
	}
	c.Email = stringPtr(email)
	t.Location = stringPtr(location)
	res.Client = &c
	res.Table = &t
	return &res, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
