package sqlstore

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stayregister/internal/app/middleware"
)

// IdempotencyStore keeps successful results for TTL; expired rows are
// ignored on read and pruned on write.
type IdempotencyStore struct {
	db  *gorm.DB
	ttl time.Duration
}

func NewIdempotencyStore(db *gorm.DB, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{db: db, ttl: ttl}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	var row idempotencyRow
	q := s.db.WithContext(ctx).Where(&idempotencyRow{Key: key})
	if s.ttl > 0 {
		q = q.Where("created_at > ?", time.Now().UTC().Add(-s.ttl))
	}
	if err := q.First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return middleware.IdempotencyRecord{}, false, nil
		}
		return middleware.IdempotencyRecord{}, false, err
	}
	return middleware.IdempotencyRecord{Key: row.Key, Payload: row.Payload, OccurredAt: row.OccurredAt}, true, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	now := time.Now().UTC()
	row := idempotencyRow{Key: rec.Key, Payload: rec.Payload, OccurredAt: rec.OccurredAt, CreatedAt: now}
	db := s.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return err
	}
	if s.ttl > 0 {
		return db.Where("created_at <= ?", now.Add(-s.ttl)).Delete(&idempotencyRow{}).Error
	}
	return nil
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
