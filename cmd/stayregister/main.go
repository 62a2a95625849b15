package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stayregister/internal/app/commands"
	exportsapp "stayregister/internal/app/handlers/exports"
	"stayregister/internal/app/handlers/registry"
	"stayregister/internal/app/middleware"
	"stayregister/internal/app/queries"
	"stayregister/internal/app/validation"
	"stayregister/internal/infra/broker/kafka"
	"stayregister/internal/infra/capture"
	"stayregister/internal/infra/config"
	ginserver "stayregister/internal/infra/http/gin"
	"stayregister/internal/infra/inbox"
	"stayregister/internal/infra/obs"
	"stayregister/internal/infra/outbox"
	"stayregister/internal/infra/storage/s3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := getenv("APP_ENV", "dev")
	logger := obs.NewLogger(env)

	cfg, err := config.Load()
	if err != nil {
		fallback, ferr := fallbackConfig(env, err)
		if ferr != nil {
			logger.Error("invalid configuration", "error", ferr)
			os.Exit(1)
		}
		logger.Warn("using fallback configuration", "error", err)
		cfg = fallback
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("application setup failed", "error", err)
		os.Exit(1)
	}
	defer app.close()

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Ready: app.ready}, app.handlers)

	go func() {
		if err := app.worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("outbox worker stopped", "error", err)
		}
	}()
	if app.consumer != nil {
		topic := cfg.KafkaTopicPrefix + "stay.events.v1"
		go func() {
			if err := app.consumer.Run(ctx, []string{topic}); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("stay event consumer stopped", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "store", cfg.StoreDriver)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers ginserver.Handlers
	worker   *outbox.Worker
	consumer *kafka.Consumer
	checks   []readinessCheck
	closers  []func()
}

type readinessCheck struct {
	name  string
	check func(context.Context) error
}

func (a *application) ready(ctx context.Context) error {
	for _, c := range a.checks {
		if err := c.check(ctx); err != nil {
			return errors.New(c.name + ": " + err.Error())
		}
	}
	return nil
}

func (a *application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{}

	st, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	app.checks = append(app.checks, st.checks...)
	app.closers = append(app.closers, st.closers...)

	metrics := obs.NewMetrics()

	var capturer exportsapp.Capturer
	if surface, err := capture.NewNativeSurface(); err != nil {
		logger.Error("pdf capture disabled", "error", err)
	} else {
		capturer = &capture.Pipeline{Surface: surface, LoadTimeout: cfg.ExportLoadTimeout, Logger: logger}
	}

	var picker exportsapp.SavePicker = s3.Unconfigured{}
	if cfg.S3Endpoint != "" {
		store, err := s3.NewExportStore(cfg.S3Endpoint, cfg.S3UseSSL, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, logger)
		if err != nil {
			logger.Warn("export storage unavailable, falling back to downloads", "error", err)
		} else {
			picker = store
			app.checks = append(app.checks, readinessCheck{name: "s3", check: store.Ready})
		}
	}

	commandBus := commands.NewInMemoryBus()
	queryBus := queries.NewInMemoryBus()
	registry.Register(commandBus, queryBus, registry.Deps{
		UoWFactory: st.factory,
		Outbox:     st.outbox,
		Capturer:   capturer,
		Picker:     picker,
		Observer:   metrics,
		MinYear:    cfg.FilterMinYear,
		Logger:     logger,
	})

	v := validation.New()
	cmds := middleware.ChainCommands(
		commandBus,
		middleware.CommandLogging(logger),
		middleware.Validation(v),
		middleware.Authorization(middleware.RequireOwner{}),
		middleware.Idempotency(st.idempotency, nil, cfg.IdempotencyTTL),
		middleware.Transaction(st.factory, nil),
		middleware.OutboxFlush(st.outbox),
	)
	qs := middleware.ChainQueries(
		queryBus,
		middleware.QueryLogging(logger),
		middleware.QueryValidation(v),
		middleware.QueryAuthorization(middleware.RequireOwner{}),
	)

	app.handlers = ginserver.Handlers{
		Apartments: ginserver.ApartmentHandler{Queries: qs, Logger: logger},
		Stays:      ginserver.StayHandler{Commands: cmds, Queries: qs, Logger: logger},
		Exports:    ginserver.ExportHandler{Commands: cmds, Queries: qs, Logger: logger},
		AuthMiddleware: ginserver.AuthMiddleware{
			Secret:   []byte(cfg.AuthJWTSecret),
			DevOwner: cfg.AuthDevOwner,
			Logger:   logger,
		}.Handle,
		ExportLimit: ginserver.NewOwnerRateLimiter(cfg.ExportRatePerMinute).Middleware(),
		Metrics:     metrics,
	}

	var producer outbox.Producer = outbox.LogProducer{Logger: logger}
	if len(cfg.KafkaBrokers) > 0 {
		p, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
		if err != nil {
			logger.Warn("kafka producer unavailable, logging events instead", "error", err)
		} else {
			producer = p
			app.closers = append(app.closers, func() { _ = p.Close() })
		}
		if cfg.KafkaConsumerGroup != "" {
			seen := st.inbox
			if seen == nil {
				seen = inbox.NewMemory()
			}
			c, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaConsumerGroup, nil, kafka.AuditLog{Logger: logger, Inbox: seen})
			if err != nil {
				logger.Warn("stay event consumer unavailable", "error", err)
			} else {
				app.consumer = c
				app.closers = append(app.closers, func() { _ = c.Close() })
			}
		}
	}
	app.worker = &outbox.Worker{
		Store:       st.claims,
		Producer:    producer,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Backoff:     cfg.RetryBackoff,
		Logger:      logger,
	}
	return app, nil
}

// fallbackConfig lets a dev or local run start on memory defaults when the
// environment is incomplete. Authentication settings are taken only from
// what was set explicitly.
func fallbackConfig(env string, cause error) (config.Config, error) {
	if env != "dev" && env != "local" {
		return config.Config{}, cause
	}
	secret := os.Getenv("AUTH_JWT_SECRET")
	owner := os.Getenv("AUTH_DEV_OWNER")
	if secret == "" && owner == "" {
		return config.Config{}, fmt.Errorf("%w (no AUTH_JWT_SECRET or AUTH_DEV_OWNER to fall back on)", cause)
	}
	return config.Config{
		Env:                 env,
		HTTPAddr:            getenv("HTTP_ADDR", ":8080"),
		StoreDriver:         "memory",
		FilterMinYear:       2000,
		ExportLoadTimeout:   capture.DefaultLoadTimeout,
		ExportRatePerMinute: 30,
		IdempotencyTTL:      7 * 24 * time.Hour,
		OutboxPollInterval:  500 * time.Millisecond,
		AuthJWTSecret:       secret,
		AuthDevOwner:        owner,
		StayFixtures:        os.Getenv("STAY_FIXTURES"),
	}, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
