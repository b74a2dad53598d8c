package notify

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/ecommerce-omar/tracking-api/internal/broker/messages"
	"github.com/ecommerce-omar/tracking-api/internal/cache/rediscache"
	"github.com/ecommerce-omar/tracking-api/internal/errclass"
	"github.com/ecommerce-omar/tracking-api/internal/models"
	"github.com/ecommerce-omar/tracking-api/internal/retry"
)

type published struct {
	topic string
	key   []byte
	value []byte
}

type fakeProducer struct {
	mu    sync.Mutex
	errs  []error
	calls int
	out   []published
}

func (p *fakeProducer) Publish(ctx context.Context, topic string, key, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if len(p.errs) > 0 {
		err := p.errs[0]
		p.errs = p.errs[1:]
		if err != nil {
			return err
		}
	}
	p.out = append(p.out, published{topic: topic, key: key, value: value})
	return nil
}

func noSleep(context.Context, time.Duration) error { return nil }

func statusMsg() messages.StatusChanged {
	e := models.TrackingEvent{
		Description: "Objeto saiu para entrega ao destinatário",
		OccurredAt:  time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
		Location:    "CURITIBA - PR",
	}
	return messages.StatusChanged{
		ShipmentID:     3,
		TrackingCode:   "AB123456789BR",
		Channel:        models.ChannelDelivery,
		PreviousStatus: models.StatusInTransit,
		Status:         models.StatusOutForDelivery,
		LatestEvent:    &e,
		ChangedAt:      time.Date(2025, 3, 10, 12, 5, 0, 0, time.UTC),
	}
}

func newTestNotifier(t *testing.T, p Producer) (*KafkaNotifier, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	n := NewKafkaNotifier(p, rediscache.New(mr.Addr()), "shipment.status_changed", nil).
		WithSettings(time.Hour, retry.Options{MaxAttempts: 3, Sleep: noSleep})
	return n, mr
}

func TestKafkaNotifier_Publishes(t *testing.T) {
	fp := &fakeProducer{}
	n, mr := newTestNotifier(t, fp)

	n.Publish(context.Background(), statusMsg())

	require.Len(t, fp.out, 1)
	require.Equal(t, "shipment.status_changed", fp.out[0].topic)
	require.Equal(t, []byte("AB123456789BR"), fp.out[0].key)

	var got messages.StatusChanged
	require.NoError(t, json.Unmarshal(fp.out[0].value, &got))
	require.Equal(t, models.StatusOutForDelivery, got.Status)
	require.Equal(t, models.StatusInTransit, got.PreviousStatus)

	require.True(t, mr.Exists(statusMsg().DedupKey()))
}

func TestKafkaNotifier_DuplicateSkipped(t *testing.T) {
	fp := &fakeProducer{}
	n, _ := newTestNotifier(t, fp)

	n.Publish(context.Background(), statusMsg())
	again := statusMsg()
	again.ChangedAt = again.ChangedAt.Add(15 * time.Minute)
	n.Publish(context.Background(), again)

	require.Equal(t, 1, fp.calls)
}

func TestKafkaNotifier_RetriesTemporary(t *testing.T) {
	fp := &fakeProducer{errs: []error{
		errclass.Temporary(errors.New("leader not available")),
		errclass.Temporary(errors.New("leader not available")),
	}}
	n, _ := newTestNotifier(t, fp)

	n.Publish(context.Background(), statusMsg())
	require.Equal(t, 3, fp.calls)
	require.Len(t, fp.out, 1)
}

func TestKafkaNotifier_FailureSwallowedAndKeyReleased(t *testing.T) {
	fp := &fakeProducer{errs: []error{errclass.Permanent(errors.New("message too large"))}}
	n, mr := newTestNotifier(t, fp)

	require.NotPanics(t, func() { n.Publish(context.Background(), statusMsg()) })
	require.Equal(t, 1, fp.calls)
	require.False(t, mr.Exists(statusMsg().DedupKey()))

	// следующий проход публикует заново
	n.Publish(context.Background(), statusMsg())
	require.Equal(t, 2, fp.calls)
	require.Len(t, fp.out, 1)
}

func TestKafkaNotifier_RedisDownStillPublishes(t *testing.T) {
	fp := &fakeProducer{}
	n, mr := newTestNotifier(t, fp)
	mr.Close()

	n.Publish(context.Background(), statusMsg())
	require.Len(t, fp.out, 1)
}

func TestKafkaNotifier_NoDedupStore(t *testing.T) {
	fp := &fakeProducer{}
	n := NewKafkaNotifier(fp, nil, "t", nil).WithSettings(0, retry.Options{Sleep: noSleep})

	n.Publish(context.Background(), statusMsg())
	n.Publish(context.Background(), statusMsg())
	require.Len(t, fp.out, 2)
}
