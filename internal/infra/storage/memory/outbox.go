package memory

import (
	"context"
	"sync"
	"time"

	appoutbox "stayregister/internal/app/outbox"
	infraoutbox "stayregister/internal/infra/outbox"
)

type outboxEntry struct {
	record    appoutbox.EventRecord
	state     string
	attempts  int
	nextAt    time.Time
	lastError string
}

// Outbox keeps event records in memory and serves them to the relay worker.
type Outbox struct {
	mu      sync.Mutex
	entries []*outboxEntry
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries = append(o.entries, &outboxEntry{record: record, state: "new"})
	return nil
}

// Flush is a no-op: records are visible to Claim as soon as they are added.
func (o *Outbox) Flush(ctx context.Context) error {
	return nil
}

func (o *Outbox) Claim(ctx context.Context, workerID string) (*infraoutbox.Event, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := time.Now()
	for _, e := range o.entries {
		if (e.state == "new" || e.state == "failed") && !e.nextAt.After(now) {
			e.state = "claimed"
			r := e.record
			return &infraoutbox.Event{
				ID:         r.ID,
				Name:       r.Name,
				Payload:    r.Payload,
				OccurredAt: r.OccurredAt,
				Aggregate:  r.Aggregate,
				Headers:    r.Headers,
				Attempts:   e.attempts,
			}, nil
		}
	}
	return nil, nil
}

// MarkSent drops the record.
func (o *Outbox) MarkSent(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, e := range o.entries {
		if e.record.ID == id {
			o.entries = append(o.entries[:i], o.entries[i+1:]...)
			return nil
		}
	}
	return nil
}

func (o *Outbox) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, e := range o.entries {
		if e.record.ID == id {
			e.state = "failed"
			e.attempts++
			e.nextAt = next
			e.lastError = errMsg
		}
	}
	return nil
}

// Pending reports how many records await delivery.
func (o *Outbox) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.entries)
}

// Records returns a snapshot of the buffered records.
func (o *Outbox) Records() []appoutbox.EventRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]appoutbox.EventRecord, 0, len(o.entries))
	for _, e := range o.entries {
		out = append(out, e.record)
	}
	return out
}

var (
	_ appoutbox.Outbox       = (*Outbox)(nil)
	_ infraoutbox.ClaimStore = (*Outbox)(nil)
)
