package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/table-reservation/internal/database"
	"github.com/iliyamo/table-reservation/internal/model"
)

// ClientRepo provides CRUD operations for clients and the loyalty
// points counter.
type ClientRepo struct {
	db *database.DB
}

// NewClientRepo constructs a ClientRepo with the given DB handle.
func NewClientRepo(db *database.DB) *ClientRepo { return &ClientRepo{db: db} }

const clientColumns = `id, name, phone, email, loyalty_points`

// Create inserts a client with zero points and sets its ID. A phone
// already on file yields ErrDuplicate.
func (r *ClientRepo) Create(ctx context.Context, c *model.Client) error {
	const q = `INSERT INTO clients (name, phone, email, loyalty_points) VALUES (?, ?, ?, 0)`
	res, err := r.db.ExecContext(ctx, q, c.Name, c.Phone, nullString(c.Email))
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
	c.ID = uint64(id)
	c.LoyaltyPoints = 0
	return nil
}

// GetByID returns the client or ErrNotFound.
func (r *ClientRepo) GetByID(ctx context.Context, id uint64) (*model.Client, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = ?`, id)
	c, err := scanClient(row)
	if err != nil {
		return nil, noRows(err)
	}
	return c, nil
}

// GetByPhone looks a client up by normalized phone number.
func (r *ClientRepo) GetByPhone(ctx context.Context, phone string) (*model.Client, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE phone = ?`, phone)
	c, err := scanClient(row)
	if err != nil {
		return nil, noRows(err)
	}
	return c, nil
}

// List returns every client ordered by id.
func (r *ClientRepo) List(ctx context.Context) ([]model.Client, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// Update overwrites name, phone and email. Loyalty points are not
// touched here.
func (r *ClientRepo) Update(ctx context.Context, c *model.Client) error {
	const q = `UPDATE clients SET name = ?, phone = ?, email = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, c.Name, c.Phone, nullString(c.Email), c.ID)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, c.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a client. Clients with reservations yield ErrInUse.
func (r *ClientRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM clients WHERE id = ?`, id)
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

// IncrementLoyaltyPoints atomically adds amount to the client's points.
func (r *ClientRepo) IncrementLoyaltyPoints(ctx context.Context, id uint64, amount int) error {
	const q = `UPDATE clients SET loyalty_points = loyalty_points + ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, amount, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanClient(s rowScanner) (*model.Client, error) {
	var (
		c     model.Client
		email sql.NullString
	)
	if err := s.Scan(&c.ID, &c.Name, &c.Phone, &email, &c.LoyaltyPoints); err != nil {
		return nil, err
	}
	c.Email = stringPtr(email)
	return &c, nil
}
