package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/table-reservation/internal/database"
	"github.com/iliyamo/table-reservation/internal/model"
)

// TableRepo provides CRUD operations for restaurant tables.
type TableRepo struct {
	db *database.DB
}

// NewTableRepo constructs a TableRepo with the given DB handle.
func NewTableRepo(db *database.DB) *TableRepo { return &TableRepo{db: db} }

const tableColumns = `id, table_number, capacity, location`

// Create inserts a table and sets its ID. A taken table number yields
// ErrDuplicate.
func (r *TableRepo) Create(ctx context.Context, t *model.Table) error {
	const q = `INSERT INTO restaurant_tables (table_number, capacity, location) VALUES (?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, t.TableNumber, t.Capacity, nullString(t.Location))
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// GetByID returns the table or ErrNotFound.
func (r *TableRepo) GetByID(ctx context.Context, id uint64) (*model.Table, error) {
	return getTable(ctx, r.db, id, "")
}

func getTable(ctx context.Context, q querier, id uint64, lock string) (*model.Table, error) {
	row := q.QueryRowContext(ctx, `SELECT `+tableColumns+` FROM restaurant_tables WHERE id = ?`+lock, id)
	t, err := scanTable(row)
	if err != nil {
		return nil, noRows(err)
	}
	return t, nil
}

// List returns every table ordered by table number.
func (r *TableRepo) List(ctx context.Context) ([]model.Table, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+tableColumns+` FROM restaurant_tables ORDER BY table_number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Table{}
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// Update overwrites number, capacity and location. Returns ErrNotFound
// for an unknown id and ErrDuplicate when the new number is taken.
func (r *TableRepo) Update(ctx context.Context, t *model.Table) error {
	const q = `UPDATE restaurant_tables SET table_number = ?, capacity = ?, location = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, t.TableNumber, t.Capacity, nullString(t.Location), t.ID)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	// MySQL reports zero affected rows when nothing changed.
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, t.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a table. Tables referenced by reservations yield
// ErrInUse.
func (r *TableRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM restaurant_tables WHERE id = ?`, id)
	if err != nil {
		if isForeignKey(err) {
			return ErrInUse
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTable(s rowScanner) (*model.Table, error) {
	var (
		t   model.Table
		loc sql.NullString
	)
	if err := s.Scan(&t.ID, &t.TableNumber, &t.Capacity, &loc); err != nil {
		return nil, err
	}
	t.Location = stringPtr(loc)
	return &t, nil
}
