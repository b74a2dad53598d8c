package kafka

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/ecommerce-omar/tracking-api/internal/errclass"
)

type fakeWriter struct {
	last   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.last = append([]kafka.Message{}, msgs...)
	return w.err
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestProducer_Publish(t *testing.T) {
	fw := &fakeWriter{}
	p := newProducerWithWriter(fw)

	require.NoError(t, p.Publish(context.Background(), "shipment.status_changed", []byte("AB123456789BR"), []byte(`{}`)))
	require.Len(t, fw.last, 1)
	require.Equal(t, "shipment.status_changed", fw.last[0].Topic)
	require.Equal(t, []byte("AB123456789BR"), fw.last[0].Key)
	require.Equal(t, []byte(`{}`), fw.last[0].Value)

	require.NoError(t, p.Close())
	require.True(t, fw.closed)
}

func TestProducer_Publish_ClassifiesKafkaErrors(t *testing.T) {
	fw := &fakeWriter{err: kafka.LeaderNotAvailable}
	p := newProducerWithWriter(fw)

	err := p.Publish(context.Background(), "t", nil, nil)
	require.Error(t, err)
	require.True(t, errclass.IsTemporary(err))

	fw.err = kafka.MessageSizeTooLarge
	err = p.Publish(context.Background(), "t", nil, nil)
	require.True(t, errclass.IsPermanent(err))
	require.Contains(t, err.Error(), "kafka publish")
}

func TestNewProducer(t *testing.T) {
	p := NewProducer([]string{"localhost:0"})
	require.NotNil(t, p)
	require.NoError(t, p.Close())
}
