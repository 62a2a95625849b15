package middleware

import (
	"context"

	"stayregister/internal/app/commands"
	"stayregister/internal/app/uow"
)

type TxOptionsProvider func(cmd commands.Command) uow.TxOptions

// ReadOnlyCommand marks commands that read the store but never write it,
// such as exports.
type ReadOnlyCommand interface {
	ReadOnly() bool
}

// DefaultTxOptions opens read-only units for ReadOnlyCommand implementers.
func DefaultTxOptions(cmd commands.Command) uow.TxOptions {
	if ro, ok := cmd.(ReadOnlyCommand); ok && ro.ReadOnly() {
		return uow.TxOptions{ReadOnly: true}
	}
	return uow.TxOptions{}
}

func Transaction(factory uow.UoWFactory, optsProvider TxOptionsProvider) CommandMiddleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	if optsProvider == nil {
		optsProvider = DefaultTxOptions
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			unit, err := factory.Begin(ctx, optsProvider(cmd))
			if err != nil {
				return nil, err
			}
			execCtx := uow.Inject(ctx, unit)
			committed := false
			defer func() {
				if !committed {
					_ = unit.Rollback(execCtx)
				}
			}()

			res, err := next.Dispatch(execCtx, cmd)
			if err != nil {
				return nil, err
			}
			if err := unit.Commit(execCtx); err != nil {
				return nil, err
			}
			committed = true
			return res, nil
		})
	}
}
