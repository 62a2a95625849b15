package outbox

import (
	"context"
	"time"
)

// Event is an outbox record claimed for delivery.
type Event struct {
	ID         string
	Name       string
	Payload    []byte
	OccurredAt time.Time
	Aggregate  string
	Headers    map[string]string
	Attempts   int
}

// ClaimStore is the delivery side of an outbox. Claim returns nil, nil when
// nothing is due.
type ClaimStore interface {
	Claim(ctx context.Context, workerID string) (*Event, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error
}
