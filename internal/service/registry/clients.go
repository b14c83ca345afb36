package registry

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/nyaruka/phonenumbers"

	"github.com/iliyamo/table-reservation/internal/apperr"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/repository"
)

// ClientStore is the persistence the client registry needs.
type ClientStore interface {
	Create(ctx context.Context, c *model.Client) error
	GetByID(ctx context.Context, id uint64) (*model.Client, error)
	List(ctx context.Context) ([]model.Client, error)
	Update(ctx context.Context, c *model.Client) error
	Delete(ctx context.Context, id uint64) error
	IncrementLoyaltyPoints(ctx context.Context, id uint64, amount int) error
}

// ClientInput carries the writable fields of a client.
type ClientInput struct {
	Name  string  `json:"name"`
	Phone string  `json:"phone"`
	Email *string `json:"email"`
}

// Clients is the client registry.
type Clients struct {
	store  ClientStore
	region string
	log    *slog.Logger
}

// NewClients builds the client registry. region is the ISO country used
// for phone numbers written without a country code.
func NewClients(store ClientStore, region string, log *slog.Logger) *Clients {
	if store == nil {
		panic("nil ClientStore")
	}
	return &Clients{store: store, region: strings.ToUpper(region), log: log.With(slog.String("component", "clients"))}
}

// NormalizePhone parses raw in the given region and returns it in E.164.
func NormalizePhone(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", apperr.New(apperr.KindValidation, "phone is required")
	}
	num, err := phonenumbers.Parse(raw, region)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return "", apperr.New(apperr.KindValidation, "invalid phone number %q", raw)
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

func (s *Clients) build(in ClientInput) (*model.Client, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.New(apperr.KindValidation, "name is required")
	}
	phone, err := NormalizePhone(in.Phone, s.region)
	if err != nil {
		return nil, err
	}
	c := &model.Client{Name: name, Phone: phone}
	if in.Email != nil {
		if e := strings.TrimSpace(*in.Email); e != "" {
			addr, err := mail.ParseAddress(e)
			if err != nil {
				return nil, apperr.New(apperr.KindValidation, "invalid email %q", e)
			}
			c.Email = &addr.Address
		}
	}
	return c, nil
}

// Create registers a client with zero loyalty points.
func (s *Clients) Create(ctx context.Context, in ClientInput) (*model.Client, error) {
	c, err := s.build(in)
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, c); err != nil {
		return nil, clientErr(err, c.Phone)
	}
	s.log.InfoContext(ctx, "client created", slog.Uint64("client_id", c.ID))
	return c, nil
}

// Get returns one client.
func (s *Clients) Get(ctx context.Context, id uint64) (*model.Client, error) {
	c, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, clientErr(err, "")
	}
	return c, nil
}

// List returns all clients ordered by id.
func (s *Clients) List(ctx context.Context) ([]model.Client, error) {
	out, err := s.store.List(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "list clients")
	}
	return out, nil
}

// Update replaces name, phone and email. Points are preserved.
func (s *Clients) Update(ctx context.Context, id uint64, in ClientInput) (*model.Client, error) {
	c, err := s.build(in)
	if err != nil {
		return nil, err
	}
	c.ID = id
	if err := s.store.Update(ctx, c); err != nil {
		return nil, clientErr(err, c.Phone)
	}
	return s.Get(ctx, id)
}

// Delete removes a client without reservations.
func (s *Clients) Delete(ctx context.Context, id uint64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return clientErr(err, "")
	}
	s.log.InfoContext(ctx, "client deleted", slog.Uint64("client_id", id))
	return nil
}

// IncrementLoyaltyPoints adds amount (> 0) to the client's balance.
func (s *Clients) IncrementLoyaltyPoints(ctx context.Context, id uint64, amount int) error {
	if amount <= 0 {
		return apperr.New(apperr.KindValidation, "amount must be positive")
	}
	if err := s.store.IncrementLoyaltyPoints(ctx, id, amount); err != nil {
		return clientErr(err, "")
	}
	return nil
}

func clientErr(err error, phone string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.Wrap(apperr.KindNotFound, err, "client not found")
	case errors.Is(err, repository.ErrDuplicate):
		return apperr.New(apperr.KindConflict, "a client with phone %s already exists", phone)
	case errors.Is(err, repository.ErrInUse):
		return apperr.Wrap(apperr.KindConflict, err, "client has reservations and cannot be deleted")
	default:
		return apperr.Internal(err, "client storage")
	}
}
