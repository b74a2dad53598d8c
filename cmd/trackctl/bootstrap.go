package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/ecommerce-omar/tracking-api/config"
	"github.com/ecommerce-omar/tracking-api/internal/broker/kafka"
	"github.com/ecommerce-omar/tracking-api/internal/broker/messages"
	"github.com/ecommerce-omar/tracking-api/internal/cache"
	"github.com/ecommerce-omar/tracking-api/internal/cache/rediscache"
	"github.com/ecommerce-omar/tracking-api/internal/integrations/carrier"
	"github.com/ecommerce-omar/tracking-api/internal/integrations/carrier/registry"
	"github.com/ecommerce-omar/tracking-api/internal/notify"
	"github.com/ecommerce-omar/tracking-api/internal/services/reconcile"
	"github.com/ecommerce-omar/tracking-api/internal/services/shipments"
	"github.com/ecommerce-omar/tracking-api/internal/storage/pgshipment"
)

const defaultStatusTopic = "shipment.status_changed"

type shipmentStore interface {
	reconcile.Repository
	shipments.Repository
	ListStatusChanges(ctx context.Context, shipmentID uint64, limit, offset int) ([]pgshipment.StatusChange, error)
}

type tokenSource interface {
	Token(ctx context.Context) (string, error)
}

type statusConsumer interface {
	ConsumeStatusChanged(ctx context.Context, handler func(messages.StatusChanged) error) error
	Close() error
}

type redisDeps struct {
	cache       cache.BytesCache
	dedup       notify.DedupStore
	rateLimiter reconcile.RateLimiter
}

type ctlFactories struct {
	newStore       func(cfg *config.Config) (shipmentStore, func(), error)
	newRedis       func(cfg *config.Config) (redisDeps, func())
	newProducer    func(cfg *config.Config) notify.Producer
	newCarrier     func(cfg *config.Config, logger *slog.Logger) (carrier.Client, error)
	newTokenSource func(cfg *config.Config, logger *slog.Logger) (tokenSource, error)
	newConsumer    func(cfg *config.Config, topic, group string, logger *slog.Logger) statusConsumer
}

func defaultCtlFactories() ctlFactories {
	return ctlFactories{
		newStore: func(cfg *config.Config) (shipmentStore, func(), error) {
			st, err := pgshipment.New(cfg.DatabaseDSN())
			if err != nil {
				return nil, nil, err
			}
			return st, st.Close, nil
		},
		newRedis: func(cfg *config.Config) (redisDeps, func()) {
			rc := rediscache.New(cfg.RedisAddr())
			rl := rediscache.NewRateLimiter(cfg.RedisAddr())
			return redisDeps{cache: rc, dedup: rc, rateLimiter: rl}, func() {
				_ = rc.Close()
				_ = rl.Close()
			}
		},
		newProducer: func(cfg *config.Config) notify.Producer {
			return kafka.NewProducer(cfg.KafkaBrokers())
		},
		newCarrier: func(cfg *config.Config, logger *slog.Logger) (carrier.Client, error) {
			return registry.New(cfg.Carrier, logger)
		},
		newTokenSource: func(cfg *config.Config, logger *slog.Logger) (tokenSource, error) {
			c, err := registry.NewCorreios(cfg.Carrier, logger)
			if err != nil {
				return nil, err
			}
			return c.Broker(), nil
		},
		newConsumer: func(cfg *config.Config, topic, group string, logger *slog.Logger) statusConsumer {
			return kafka.NewConsumer(cfg.KafkaBrokers(), topic, group, logger)
		},
	}
}

// ctlEnv: общее состояние команд: конфиг грузится один раз в PersistentPreRunE.
type ctlEnv struct {
	out        io.Writer
	f          ctlFactories
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *slog.Logger
}

func newCtlEnv(out io.Writer, f ctlFactories) *ctlEnv {
	return &ctlEnv{out: out, f: f}
}

func (e *ctlEnv) load(cmd *cobra.Command) error {
	level := slog.LevelWarn
	if e.verbose {
		level = slog.LevelDebug
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}
	if e.cfg != nil {
		return nil
	}
	if e.configPath == "" {
		return errors.New("config path is required (--config or configPath env)")
	}
	cfg, err := config.LoadConfig(e.configPath)
	if err != nil {
		return err
	}
	e.cfg = cfg
	return nil
}

func (e *ctlEnv) statusTopic() string {
	if e.cfg.Kafka.StatusChangedTopicName != "" {
		return e.cfg.Kafka.StatusChangedTopicName
	}
	return defaultStatusTopic
}

func (e *ctlEnv) cacheTTL() time.Duration {
	ttl := time.Duration(e.cfg.Redis.CurrentStatusTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return ttl
}

// shipmentService открывает хранилище и кэш; close освобождает оба.
func (e *ctlEnv) shipmentService() (*shipments.Service, shipmentStore, func(), error) {
	store, closeStore, err := e.f.newStore(e.cfg)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "open storage")
	}
	rd, closeRedis := e.f.newRedis(e.cfg)
	closeAll := func() {
		if closeRedis != nil {
			closeRedis()
		}
		if closeStore != nil {
			closeStore()
		}
	}
	return shipments.New(store, rd.cache, e.cacheTTL(), e.logger), store, closeAll, nil
}
