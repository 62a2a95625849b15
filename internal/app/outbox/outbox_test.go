package outbox

import (
	"context"
	"testing"
	"time"

	"stayregister/internal/domain/shared/events"
)

type captureBox struct {
	records []EventRecord
}

func (b *captureBox) Add(_ context.Context, rec EventRecord) error {
	b.records = append(b.records, rec)
	return nil
}

func (b *captureBox) Flush(context.Context) error { return nil }

type aggregate struct {
	events.EventRecorder
}

func TestDrainEncodesAndClears(t *testing.T) {
	agg := &aggregate{}
	at := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	agg.Record(events.BaseEvent{Name: "stay.recorded", Aggregate: "7", Time: at})
	agg.Record(events.BaseEvent{Name: "stay.revised", Aggregate: "7", Time: at})

	box := &captureBox{}
	enc := JSONEventEncoder{Headers: map[string]string{"request_id": "r-1"}}
	if err := Drain(context.Background(), box, enc, agg); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(box.records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(box.records))
	}
	first := box.records[0]
	if first.Name != "stay.recorded" || first.Aggregate != "7" || first.ID == "" {
		t.Fatalf("unexpected record %+v", first)
	}
	if first.Headers["request_id"] != "r-1" {
		t.Fatalf("headers not copied: %v", first.Headers)
	}
	if box.records[0].ID == box.records[1].ID {
		t.Fatalf("event ids must be unique")
	}
	if len(agg.PendingEvents()) != 0 {
		t.Fatalf("pending events not cleared")
	}
}

func TestRecordDomainEventsNilOutbox(t *testing.T) {
	err := RecordDomainEvents(context.Background(), nil, nil, []events.DomainEvent{events.BaseEvent{Name: "x"}})
	if err != nil {
		t.Fatalf("nil outbox should be a no-op: %v", err)
	}
}
