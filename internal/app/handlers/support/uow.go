package support

import (
	"context"

	"stayregister/internal/app/uow"
)

// BeginReadOnlyUnit reuses the unit already in ctx or opens a read-only one.
// cleanup is nil when the unit was reused.
func BeginReadOnlyUnit(ctx context.Context, factory uow.UoWFactory) (uow.UnitOfWork, context.Context, func(), error) {
	if unit, ok := uow.FromContext(ctx); ok {
		return unit, ctx, nil, nil
	}
	if factory == nil {
		return nil, ctx, nil, uow.ErrUnitOfWorkMissing
	}
	unit, err := factory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, ctx, nil, err
	}
	execCtx := uow.Inject(ctx, unit)
	return unit, execCtx, func() { _ = unit.Rollback(execCtx) }, nil
}

// BeginUnit reuses the unit in ctx or opens a writable one that the caller
// must commit. managed reports whether the caller owns the unit.
func BeginUnit(ctx context.Context, factory uow.UoWFactory) (unit uow.UnitOfWork, execCtx context.Context, managed bool, err error) {
	if existing, ok := uow.FromContext(ctx); ok {
		return existing, ctx, false, nil
	}
	if factory == nil {
		return nil, ctx, false, uow.ErrUnitOfWorkMissing
	}
	unit, err = factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return nil, ctx, false, err
	}
	return unit, uow.Inject(ctx, unit), true, nil
}
