package memory

import (
	"context"
	"errors"

	"stayregister/internal/app/uow"
	"stayregister/internal/domain/apartments"
	"stayregister/internal/domain/stays"
)

// Factory wires the in-memory repositories into a unit-of-work boundary.
// No isolation is provided.
type Factory struct {
	StaysRepo      stays.Repository
	ApartmentsRepo apartments.Repository
}

var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.StaysRepo == nil || f.ApartmentsRepo == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{stays: f.StaysRepo, apartments: f.ApartmentsRepo}, nil
}

type Unit struct {
	stays      stays.Repository
	apartments apartments.Repository
}

func (u *Unit) Stays() stays.Repository           { return u.stays }
func (u *Unit) Apartments() apartments.Repository { return u.apartments }
func (u *Unit) Commit(ctx context.Context) error  { return nil }
func (u *Unit) Rollback(ctx context.Context) error {
	return nil
}
