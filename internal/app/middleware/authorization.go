package middleware

import (
	"context"
	"fmt"
	"strings"

	"stayregister/internal/app/commands"
	"stayregister/internal/app/queries"
	"stayregister/internal/domain/stays"
)

type Authorizer interface {
	Authorize(ctx context.Context, message any) error
}

// OwnedMessage is implemented by commands and queries that act on behalf of
// an authenticated owner.
type OwnedMessage interface {
	Owner() string
}

// RequireOwner rejects owned messages that carry no owner id. Store adapters
// scope every row by that id, so an empty one must never reach them.
type RequireOwner struct{}

func (RequireOwner) Authorize(_ context.Context, message any) error {
	owned, ok := message.(OwnedMessage)
	if !ok {
		return nil
	}
	if strings.TrimSpace(owned.Owner()) == "" {
		return fmt.Errorf("%w: owner required", stays.ErrPermissionDenied)
	}
	return nil
}

func Authorization(a Authorizer) CommandMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := a.Authorize(ctx, cmd); err != nil {
				return nil, err
			}
			return next.Dispatch(ctx, cmd)
		})
	}
}

func QueryAuthorization(a Authorizer) QueryMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next queries.Bus) queries.Bus {
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			if err := a.Authorize(ctx, q); err != nil {
				return nil, err
			}
			return next.Ask(ctx, q)
		})
	}
}
