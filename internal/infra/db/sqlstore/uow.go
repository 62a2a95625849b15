package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"gorm.io/gorm"

	"stayregister/internal/app/uow"
	"stayregister/internal/domain/apartments"
	"stayregister/internal/domain/stays"
)

var ErrFactoryMisconfigured = errors.New("sqlstore: unit of work factory missing database")

type Factory struct {
	DB             *gorm.DB
	StaysRepo      stays.Repository
	ApartmentsRepo apartments.Repository
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrFactoryMisconfigured
	}
	tx := f.DB.WithContext(ctx).Begin(&sql.TxOptions{ReadOnly: opts.ReadOnly})
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &Unit{tx: tx, stays: f.StaysRepo, apartments: f.ApartmentsRepo}, nil
}

type Unit struct {
	tx         *gorm.DB
	stays      stays.Repository
	apartments apartments.Repository
	done       bool
}

func (u *Unit) Stays() stays.Repository           { return u.stays }
func (u *Unit) Apartments() apartments.Repository { return u.apartments }

func (u *Unit) Commit(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	return u.tx.Commit().Error
}

// Rollback is a no-op after Commit.
func (u *Unit) Rollback(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	return u.tx.Rollback().Error
}

// InjectContext hands the transaction to repositories through ctx.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, txKey{}, u.tx)
}
