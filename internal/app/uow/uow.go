package uow

import (
	"context"

	"stayregister/internal/domain/apartments"
	"stayregister/internal/domain/stays"
)

// UnitOfWork groups the owner-scoped repositories used by one command or
// query. Adapters without transactions treat Commit and Rollback as no-ops.
type UnitOfWork interface {
	Stays() stays.Repository
	Apartments() apartments.Repository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

type TxOptions struct {
	ReadOnly bool
}
