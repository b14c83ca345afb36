// Package registry manages the restaurant's reference data: tables,
// clients and weekly business hours. Repository sentinel errors are
// translated into apperr kinds here.
package registry

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/iliyamo/table-reservation/internal/apperr"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/repository"
)

// TableStore is the persistence the table registry needs.
type TableStore interface {
	Create(ctx context.Context, t *model.Table) error
	GetByID(ctx context.Context, id uint64) (*model.Table, error)
	List(ctx context.Context) ([]model.Table, error)
	Update(ctx context.Context, t *model.Table) error
	Delete(ctx context.Context, id uint64) error
}

// TableInput carries the writable fields of a table.
type TableInput struct {
	TableNumber int     `json:"table_number"`
	Capacity    int     `json:"capacity"`
	Location    *string `json:"location"`
}

func (in TableInput) validate() error {
	if in.TableNumber <= 0 {
		return apperr.New(apperr.KindValidation, "table_number must be a positive integer")
	}
	if in.Capacity <= 0 {
		return apperr.New(apperr.KindValidation, "capacity must be a positive integer")
	}
	return nil
}

func (in TableInput) location() *string {
	if in.Location == nil {
		return nil
	}
	s := strings.TrimSpace(*in.Location)
	if s == "" {
		return nil
	}
	return &s
}

// Tables is the table registry.
type Tables struct {
	store TableStore
	log   *slog.Logger
}

// NewTables builds the table registry.
func NewTables(store TableStore, log *slog.Logger) *Tables {
	if store == nil {
		panic("nil TableStore")
	}
	return &Tables{store: store, log: log.With(slog.String("component", "tables"))}
}

// Create registers a new table.
func (s *Tables) Create(ctx context.Context, in TableInput) (*model.Table, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	t := &model.Table{TableNumber: in.TableNumber, Capacity: in.Capacity, Location: in.location()}
	if err := s.store.Create(ctx, t); err != nil {
		return nil, tableErr(err, in.TableNumber)
	}
	s.log.InfoContext(ctx, "table created", slog.Uint64("table_id", t.ID), slog.Int("table_number", t.TableNumber))
	return t, nil
}

// Get returns one table.
func (s *Tables) Get(ctx context.Context, id uint64) (*model.Table, error) {
	t, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, tableErr(err, 0)
	}
	return t, nil
}

// List returns all tables ordered by number.
func (s *Tables) List(ctx context.Context) ([]model.Table, error) {
	out, err := s.store.List(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "list tables")
	}
	return out, nil
}

// Update replaces the writable fields of a table.
func (s *Tables) Update(ctx context.Context, id uint64, in TableInput) (*model.Table, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	t := &model.Table{ID: id, TableNumber: in.TableNumber, Capacity: in.Capacity, Location: in.location()}
	if err := s.store.Update(ctx, t); err != nil {
		return nil, tableErr(err, in.TableNumber)
	}
	return t, nil
}

// Delete removes a table that no reservation references.
func (s *Tables) Delete(ctx context.Context, id uint64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return tableErr(err, 0)
	}
	s.log.InfoContext(ctx, "table deleted", slog.Uint64("table_id", id))
	return nil
}

func tableErr(err error, number int) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.Wrap(apperr.KindNotFound, err, "table not found")
	case errors.Is(err, repository.ErrDuplicate):
		return apperr.New(apperr.KindConflict, "table number %d already exists", number)
	case errors.Is(err, repository.ErrInUse):
		return apperr.Wrap(apperr.KindConflict, err, "table has reservations and cannot be deleted")
	default:
		return apperr.Internal(err, "table storage")
	}
}
