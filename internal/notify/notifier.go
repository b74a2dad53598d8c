package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ecommerce-omar/tracking-api/internal/broker/messages"
	"github.com/ecommerce-omar/tracking-api/internal/errclass"
	"github.com/ecommerce-omar/tracking-api/internal/retry"
)

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type DedupStore interface {
	SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}

var notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tracking_notifications_total",
	Help: "Status change notifications, by result",
}, []string{"result"})

// KafkaNotifier публикует StatusChanged в Kafka. Это граница fail-safe:
// ошибки логируются и дальше не идут.
type KafkaNotifier struct {
	producer Producer
	dedup    DedupStore
	topic    string
	dedupTTL time.Duration
	retry    retry.Options
	logger   *slog.Logger
}

func NewKafkaNotifier(producer Producer, dedup DedupStore, topic string, logger *slog.Logger) *KafkaNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaNotifier{
		producer: producer,
		dedup:    dedup,
		topic:    topic,
		dedupTTL: 72 * time.Hour,
		retry: retry.Options{
			MaxAttempts:  5,
			InitialDelay: 150 * time.Millisecond,
			MaxDelay:     2 * time.Second,
		},
		logger: logger.With(slog.String("component", "notifier")),
	}
}

func (n *KafkaNotifier) WithSettings(dedupTTL time.Duration, opts retry.Options) *KafkaNotifier {
	if dedupTTL > 0 {
		n.dedupTTL = dedupTTL
	}
	if opts.MaxAttempts > 0 {
		n.retry.MaxAttempts = opts.MaxAttempts
	}
	if opts.InitialDelay > 0 {
		n.retry.InitialDelay = opts.InitialDelay
	}
	if opts.MaxDelay > 0 {
		n.retry.MaxDelay = opts.MaxDelay
	}
	if opts.Sleep != nil {
		n.retry.Sleep = opts.Sleep
	}
	return n
}

func (n *KafkaNotifier) Publish(ctx context.Context, msg messages.StatusChanged) {
	log := n.logger.With(
		slog.String("tracking_code", msg.TrackingCode),
		slog.String("status", string(msg.Status)),
	)

	key := msg.DedupKey()
	if n.dedup != nil {
		fresh, err := n.dedup.SetIfAbsent(ctx, key, []byte(msg.ChangedAt.UTC().Format(time.RFC3339)), n.dedupTTL)
		switch {
		case err != nil:
			// без Redis публикуем всё равно: лучше дубль, чем потеря
			log.Warn("notification dedup unavailable", slog.String("error", err.Error()))
		case !fresh:
			notificationsTotal.WithLabelValues("duplicate").Inc()
			log.Info("notification already published, skipping")
			return
		}
	}

	b, err := json.Marshal(msg)
	if err != nil {
		notificationsTotal.WithLabelValues("failed").Inc()
		log.Error("marshal status changed", slog.String("error", err.Error()))
		return
	}

	opts := n.retry
	opts.OnRetry = func(attempt int, delay time.Duration, err error) {
		log.Warn("kafka publish retry",
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()),
		)
	}
	err = retry.Do(ctx, opts, func(ctx context.Context) error {
		return n.producer.Publish(ctx, n.topic, []byte(msg.TrackingCode), b)
	})
	if err != nil {
		notificationsTotal.WithLabelValues("failed").Inc()
		log.Error("publish status changed",
			slog.String("kind", errclass.KindOf(err).String()),
			slog.String("error", err.Error()),
		)
		// ключ снимаем, чтобы следующий проход мог попробовать снова
		if n.dedup != nil {
			if derr := n.dedup.Delete(context.WithoutCancel(ctx), key); derr != nil {
				log.Warn("release notification dedup key", slog.String("error", derr.Error()))
			}
		}
		return
	}
	notificationsTotal.WithLabelValues("published").Inc()
	log.Info("status change published", slog.String("previous_status", string(msg.PreviousStatus)))
}
