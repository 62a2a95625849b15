package middleware

import (
	"context"

	"stayregister/internal/app/commands"
	"stayregister/internal/app/outbox"
)

// OutboxFlush flushes box after every successful command. Failed commands
// leave buffered records for the next flush or the relay worker.
func OutboxFlush(box outbox.Outbox) CommandMiddleware {
	if box == nil {
		panic("middleware: outbox required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := next.Dispatch(ctx, cmd)
			if err != nil {
				return nil, err
			}
			if err := box.Flush(ctx); err != nil {
				return nil, err
			}
			return res, nil
		})
	}
}
