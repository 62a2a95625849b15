package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"stayregister/internal/app/middleware"
	appoutbox "stayregister/internal/app/outbox"
	"stayregister/internal/app/uow"
	"stayregister/internal/domain/apartments"
	"stayregister/internal/infra/broker/kafka"
	rediscache "stayregister/internal/infra/cache/redis"
	"stayregister/internal/infra/config"
	mongodb "stayregister/internal/infra/db/mongo"
	"stayregister/internal/infra/db/sqlstore"
	"stayregister/internal/infra/inbox"
	"stayregister/internal/infra/outbox"
	"stayregister/internal/infra/storage/memory"
)

type outboxStore interface {
	appoutbox.Outbox
	outbox.ClaimStore
}

// storage is the persistence wiring selected by STORE_DRIVER.
type storage struct {
	factory     uow.UoWFactory
	outbox      appoutbox.Outbox
	claims      outbox.ClaimStore
	idempotency middleware.IdempotencyStore
	inbox       kafka.Inbox
	checks      []readinessCheck
	closers     []func()
}

func openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage, error) {
	var st storage
	switch cfg.StoreDriver {
	case "mongo":
		client, err := mongodb.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return st, fmt.Errorf("connect mongo: %w", err)
		}
		if err := client.EnsureIndexes(ctx); err != nil {
			return st, fmt.Errorf("mongo indexes: %w", err)
		}
		box, err := outbox.NewStore(ctx, client.DB)
		if err != nil {
			return st, fmt.Errorf("mongo outbox: %w", err)
		}
		idem, err := mongodb.NewIdempotencyStore(ctx, client.DB, cfg.IdempotencyTTL)
		if err != nil {
			return st, fmt.Errorf("mongo idempotency: %w", err)
		}
		st.factory = mongodb.Factory{
			DB:             client.DB,
			StaysRepo:      mongodb.NewStayRepository(client.DB),
			ApartmentsRepo: withCache(cfg, mongodb.NewApartmentRepository(client.DB), logger, &st),
		}
		st.setOutbox(box)
		st.idempotency = idem
		if cfg.KafkaConsumerGroup != "" {
			seen, err := inbox.NewStore(ctx, client.DB, cfg.KafkaConsumerGroup)
			if err != nil {
				return st, fmt.Errorf("mongo inbox: %w", err)
			}
			st.inbox = seen
		}
		st.checks = append(st.checks, readinessCheck{name: "mongo", check: client.Ping})
		st.closers = append(st.closers, func() { _ = client.Close(context.Background()) })

	case sqlstore.DriverPostgres, sqlstore.DriverMySQL:
		db, err := sqlstore.Open(cfg.StoreDriver, cfg.DatabaseURL, logger)
		if err != nil {
			return st, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return st, fmt.Errorf("sql pool: %w", err)
		}
		st.factory = sqlstore.Factory{
			DB:             db,
			StaysRepo:      sqlstore.NewStayRepository(db),
			ApartmentsRepo: withCache(cfg, sqlstore.NewApartmentRepository(db), logger, &st),
		}
		st.setOutbox(sqlstore.NewOutbox(db))
		st.idempotency = sqlstore.NewIdempotencyStore(db, cfg.IdempotencyTTL)
		st.checks = append(st.checks, readinessCheck{name: cfg.StoreDriver, check: sqlDB.PingContext})
		st.closers = append(st.closers, func() { _ = sqlDB.Close() })

	default:
		staysRepo := memory.NewStayRepository()
		aptRepo := memory.NewApartmentRepository()
		path := cfg.StayFixtures
		if path == "" {
			path = defaultStayFixturesPath()
		}
		sum, err := memory.LoadFixtureFile(path, staysRepo, aptRepo, cfg.AuthDevOwner)
		switch {
		case err != nil && os.IsNotExist(err):
			logger.Info("stay fixtures file not found, skipping", "path", path)
		case err != nil:
			logger.Warn("stay fixtures load failed", "error", err, "path", path)
		default:
			logger.Info("stay fixtures imported", "path", path, "apartments", sum.Apartments, "stays", sum.Stays, "unparsed_dates", sum.UnparsedDates)
		}
		st.factory = memory.Factory{
			StaysRepo:      staysRepo,
			ApartmentsRepo: withCache(cfg, aptRepo, logger, &st),
		}
		st.setOutbox(memory.NewOutbox())
		st.idempotency = memory.NewIdempotencyStore(cfg.IdempotencyTTL)
	}
	return st, nil
}

func (st *storage) setOutbox(box outboxStore) {
	st.outbox = box
	st.claims = box
}

// withCache wraps repo in the Redis cache when REDIS_ADDR is set.
func withCache(cfg config.Config, repo apartments.Repository, logger *slog.Logger, st *storage) apartments.Repository {
	if cfg.RedisAddr == "" {
		return repo
	}
	client := rediscache.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	st.checks = append(st.checks, readinessCheck{name: "redis", check: func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}})
	st.closers = append(st.closers, func() { _ = client.Close() })
	return &rediscache.Apartments{Inner: repo, Store: client, TTL: cfg.ApartmentsCacheTTL, Logger: logger}
}

func defaultStayFixturesPath() string {
	candidates := []string{
		filepath.Join("data", "stays.json"),
		filepath.Join("..", "..", "data", "stays.json"),
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return candidates[0]
}
