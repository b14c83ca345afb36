package repository

import (
	"context"
	"strings"

	"github.com/iliyamo/table-reservation/internal/database"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/utils"
)

// OperatorRepo stores staff accounts.
type OperatorRepo struct{ db *database.DB }

func NewOperatorRepo(db *database.DB) *OperatorRepo { return &OperatorRepo{db: db} }

// Create hashes password and inserts the operator, returning its ID.
// A taken username yields ErrDuplicate.
func (r *OperatorRepo) Create(ctx context.Context, username, password string, cost int) (uint64, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO operators (username, password_hash) VALUES (?,?)",
		username, hash)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByUsername fetches an operator by normalized username.
func (r *OperatorRepo) GetByUsername(ctx context.Context, username string) (*model.Operator, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	var o model.Operator
	err := r.db.QueryRowContext(ctx,
		"SELECT id,username,password_hash,created_at FROM operators WHERE username=? LIMIT 1",
		username).Scan(&o.ID, &o.Username, &o.PasswordHash, &o.CreatedAt)
	if err != nil {
		return nil, noRows(err)
	}
	return &o, nil
}

// GetByID fetches an operator by id.
func (r *OperatorRepo) GetByID(ctx context.Context, id uint64) (*model.Operator, error) {
	var o model.Operator
	err := r.db.QueryRowContext(ctx,
		"SELECT id,username,password_hash,created_at FROM operators WHERE id=? LIMIT 1",
		id).Scan(&o.ID, &o.Username, &o.PasswordHash, &o.CreatedAt)
	if err != nil {
		return nil, noRows(err)
	}
	return &o, nil
}
