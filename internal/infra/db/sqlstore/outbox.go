package sqlstore

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	appoutbox "stayregister/internal/app/outbox"
	infraoutbox "stayregister/internal/infra/outbox"
)

const (
	stateNew     = "NEW"
	stateClaimed = "CLAIMED"
	stateSent    = "SENT"
	stateFailed  = "FAILED"
)

// Outbox writes events in the caller's transaction and hands them to the
// delivery worker with row locks that skip rows other workers hold.
type Outbox struct {
	db *gorm.DB
}

func NewOutbox(db *gorm.DB) *Outbox {
	return &Outbox{db: db}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	now := time.Now().UTC()
	headers := datatypes.JSONMap{}
	for k, v := range record.Headers {
		headers[k] = v
	}
	row := outboxRow{
		ID:          record.ID,
		Name:        record.Name,
		Payload:     record.Payload,
		OccurredAt:  record.OccurredAt,
		Aggregate:   record.Aggregate,
		Headers:     headers,
		State:       stateNew,
		NextAttempt: now,
		CreatedAt:   now,
	}
	return conn(ctx, o.db).Create(&row).Error
}

func (o *Outbox) Flush(context.Context) error { return nil }

func (o *Outbox) Claim(ctx context.Context, workerID string) (*infraoutbox.Event, error) {
	var claimed *outboxRow
	err := o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		var row outboxRow
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("state IN ? AND next_attempt <= ?", []string{stateNew, stateFailed}, now).
			Order("next_attempt").
			First(&row).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if err := tx.Model(&row).Updates(map[string]any{"state": stateClaimed, "claimed_by": workerID, "claimed_at": now}).Error; err != nil {
			return err
		}
		claimed = &row
		return nil
	})
	if err != nil || claimed == nil {
		return nil, err
	}
	headers := make(map[string]string, len(claimed.Headers))
	for k, v := range claimed.Headers {
		if s, ok := v.(string); ok {
			headers[k] = s
		}
	}
	return &infraoutbox.Event{
		ID:         claimed.ID,
		Name:       claimed.Name,
		Payload:    claimed.Payload,
		OccurredAt: claimed.OccurredAt,
		Aggregate:  claimed.Aggregate,
		Headers:    headers,
		Attempts:   claimed.Attempts,
	}, nil
}

func (o *Outbox) MarkSent(ctx context.Context, id string) error {
	now := time.Now().UTC()
	return o.db.WithContext(ctx).Model(&outboxRow{ID: id}).Updates(map[string]any{"state": stateSent, "sent_at": now}).Error
}

func (o *Outbox) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	return o.db.WithContext(ctx).Model(&outboxRow{ID: id}).Updates(map[string]any{
		"state":        stateFailed,
		"next_attempt": next,
		"last_error":   errMsg,
		"attempts":     gorm.Expr("attempts + 1"),
	}).Error
}

var (
	_ appoutbox.Outbox       = (*Outbox)(nil)
	_ infraoutbox.ClaimStore = (*Outbox)(nil)
)
