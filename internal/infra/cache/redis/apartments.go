// Package rediscache puts a read-through Redis cache in front of the
// apartments repository.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"stayregister/internal/domain/apartments"
	"stayregister/internal/domain/stays"
)

const keyPrefix = "stayregister:apartments:"

// Store is the subset of the Redis client the cache needs.
type Store interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}

// Apartments caches each owner's apartment list for TTL. Redis failures are
// logged and fall through to the wrapped repository.
type Apartments struct {
	Inner  apartments.Repository
	Store  Store
	TTL    time.Duration
	Logger *slog.Logger
}

func (a *Apartments) List(ctx context.Context, ownerID string) ([]apartments.Apartment, error) {
	key := keyPrefix + ownerID
	if raw, err := a.Store.Get(ctx, key).Bytes(); err == nil {
		var cached []apartments.Apartment
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
		a.warn(ctx, "apartments cache entry unreadable", key, err)
	} else if !errors.Is(err, redis.Nil) {
		a.warn(ctx, "apartments cache read failed", key, err)
	}

	list, err := a.Inner.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(list); err == nil {
		if err := a.Store.Set(ctx, key, payload, a.ttl()).Err(); err != nil {
			a.warn(ctx, "apartments cache write failed", key, err)
		}
	}
	return list, nil
}

// ByID answers from the cached list when present so ownership errors stay
// those of the wrapped repository on a miss.
func (a *Apartments) ByID(ctx context.Context, ownerID string, id stays.ApartmentID) (apartments.Apartment, error) {
	raw, err := a.Store.Get(ctx, keyPrefix+ownerID).Bytes()
	if err == nil {
		var cached []apartments.Apartment
		if json.Unmarshal(raw, &cached) == nil {
			for _, apt := range cached {
				if apt.ID == id {
					return apt, nil
				}
			}
		}
	}
	return a.Inner.ByID(ctx, ownerID, id)
}

// Invalidate drops the cached list of ownerID.
func (a *Apartments) Invalidate(ctx context.Context, ownerID string) error {
	return a.Store.Del(ctx, keyPrefix+ownerID).Err()
}

func (a *Apartments) ttl() time.Duration {
	if a.TTL <= 0 {
		return 5 * time.Minute
	}
	return a.TTL
}

func (a *Apartments) warn(ctx context.Context, msg, key string, err error) {
	if a.Logger != nil {
		a.Logger.WarnContext(ctx, msg, "key", key, "error", err)
	}
}

var _ apartments.Repository = (*Apartments)(nil)
