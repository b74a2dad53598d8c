package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"
	_ "time/tzdata"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/ecommerce-omar/tracking-api/config"
	"github.com/ecommerce-omar/tracking-api/internal/broker/kafka"
	"github.com/ecommerce-omar/tracking-api/internal/cache"
	"github.com/ecommerce-omar/tracking-api/internal/cache/rediscache"
	"github.com/ecommerce-omar/tracking-api/internal/integrations/carrier"
	"github.com/ecommerce-omar/tracking-api/internal/integrations/carrier/registry"
	"github.com/ecommerce-omar/tracking-api/internal/notify"
	"github.com/ecommerce-omar/tracking-api/internal/retry"
	"github.com/ecommerce-omar/tracking-api/internal/services/reconcile"
	"github.com/ecommerce-omar/tracking-api/internal/services/shipments"
	"github.com/ecommerce-omar/tracking-api/internal/storage/pgshipment"
)

const (
	defaultTopic        = "shipment.status_changed"
	defaultTimezone     = "America/Sao_Paulo"
	defaultBaselineCron = "*/15 7-19 * * 1-6"
	defaultPeakCron     = "5,10,20,25,35,40,50,55 11-13 * * 1-6"
	defaultHTTPAddr     = ":8082"
)

type workerRepository interface {
	reconcile.Repository
	shipments.Repository
	Ping(ctx context.Context) error
}

type workerFactories struct {
	newStorage       func(cfg *config.Config) (repo workerRepository, closeFn func(), err error)
	newProducer      func(cfg *config.Config) notify.Producer
	newRedis         func(cfg *config.Config) (redisDeps, func())
	newCarrierClient func(cfg *config.Config, logger *slog.Logger) (carrier.Client, error)
}

// redisDeps: всё, что воркер берёт из Redis. nil-поля допустимы.
type redisDeps struct {
	cache       cache.BytesCache
	dedup       notify.DedupStore
	rateLimiter reconcile.RateLimiter
	ping        func(ctx context.Context) error
}

func defaultWorkerFactories() workerFactories {
	return workerFactories{
		newStorage: func(cfg *config.Config) (workerRepository, func(), error) {
			st, err := pgshipment.New(cfg.DatabaseDSN())
			if err != nil {
				return nil, nil, err
			}
			return st, st.Close, nil
		},
		newProducer: func(cfg *config.Config) notify.Producer {
			return kafka.NewProducer(cfg.KafkaBrokers())
		},
		newRedis: func(cfg *config.Config) (redisDeps, func()) {
			rc := rediscache.New(cfg.RedisAddr())
			rl := rediscache.NewRateLimiter(cfg.RedisAddr())
			return redisDeps{cache: rc, dedup: rc, rateLimiter: rl, ping: rc.Ping}, func() {
				_ = rc.Close()
				_ = rl.Close()
			}
		},
		newCarrierClient: func(cfg *config.Config, logger *slog.Logger) (carrier.Client, error) {
			return registry.New(cfg.Carrier, logger)
		},
	}
}

type worker struct {
	job   *reconcile.Job
	sched *reconcile.Scheduler
}

func buildWorker(cfg *config.Config, repo workerRepository, producer notify.Producer, rd redisDeps, cc carrier.Client, logger *slog.Logger) (*worker, error) {
	topic := cfg.Kafka.StatusChangedTopicName
	if topic == "" {
		topic = defaultTopic
	}
	tzName := cfg.Worker.Timezone
	if tzName == "" {
		tzName = defaultTimezone
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, errors.Wrapf(err, "load timezone %q", tzName)
	}
	baseline := cfg.Worker.BaselineCron
	if baseline == "" {
		baseline = defaultBaselineCron
	}
	peak := cfg.Worker.PeakCron
	if peak == "" {
		peak = defaultPeakCron
	}
	cacheTTL := time.Duration(cfg.Redis.CurrentStatusTTLSeconds) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}

	notifier := notify.NewKafkaNotifier(producer, rd.dedup, topic, logger).
		WithSettings(time.Duration(cfg.Worker.NotifyDedupTTLSeconds)*time.Second, retry.Options{})

	job := reconcile.New(repo, cc, notifier, rd.rateLimiter, logger).
		WithSettings(
			cfg.Worker.Concurrency,
			cfg.Worker.FailureThreshold,
			time.Duration(cfg.Worker.FailureBaseWaitSeconds)*time.Second,
			int64(cfg.Carrier.RateLimitPerMinute),
		).
		WithCache(shipments.New(repo, rd.cache, cacheTTL, logger))

	sched := reconcile.NewScheduler(job, loc, logger)
	if err := sched.AddWindow("baseline", baseline); err != nil {
		return nil, err
	}
	if err := sched.AddWindow("peak", peak); err != nil {
		return nil, err
	}
	return &worker{job: job, sched: sched}, nil
}

func RunTrackWorker(ctx context.Context, cfg *config.Config, f workerFactories, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	repo, closeFn, err := f.newStorage(cfg)
	if err != nil {
		return err
	}
	if closeFn != nil {
		defer closeFn()
	}

	rd, closeRedis := f.newRedis(cfg)
	if closeRedis != nil {
		defer closeRedis()
	}

	cc, err := f.newCarrierClient(cfg, logger)
	if err != nil {
		return err
	}

	producer := f.newProducer(cfg)
	if c, ok := producer.(io.Closer); ok {
		defer func() { _ = c.Close() }()
	}

	w, err := buildWorker(cfg, repo, producer, rd, cc, logger)
	if err != nil {
		return err
	}

	httpAddr := cfg.Worker.HTTPAddr
	if httpAddr == "" {
		httpAddr = defaultHTTPAddr
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.sched.Run(gctx)
	})
	g.Go(func() error {
		err := runWorkerHTTPServer(gctx, workerHTTPOpts{
			httpAddr: httpAddr,
			job:      w.job,
			sched:    w.sched,
			cfg:      cfg,
			ready: func(ctx context.Context) error {
				if err := repo.Ping(ctx); err != nil {
					return err
				}
				if rd.ping != nil {
					return rd.ping(ctx)
				}
				return nil
			},
		})
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	return g.Wait()
}
