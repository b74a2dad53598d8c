package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/ecommerce-omar/tracking-api/internal/broker/messages"
	"github.com/ecommerce-omar/tracking-api/internal/models"
)

type fakeReader struct {
	msgs      []kafka.Message
	err       error
	i         int
	committed []kafka.Message
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if r.i < len(r.msgs) {
		m := r.msgs[r.i]
		r.i++
		return m, nil
	}
	if r.err != nil {
		return kafka.Message{}, r.err
	}
	return kafka.Message{}, errors.New("eof")
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

func TestConsumer_DecodesAndCommits(t *testing.T) {
	fr := &fakeReader{
		msgs: []kafka.Message{
			{Key: []byte("AB123456789BR"), Value: []byte(`{"tracking_code":"AB123456789BR","status":"out-for-delivery"}`)},
			{Key: []byte("junk"), Value: []byte(`not json`)},
		},
		err: errors.New("stop"),
	}
	c := newConsumerWithReader(fr, nil)

	var got []messages.StatusChanged
	err := c.ConsumeStatusChanged(context.Background(), func(m messages.StatusChanged) error {
		got = append(got, m)
		return nil
	})
	require.Error(t, err)
	require.Len(t, got, 1)
	require.Equal(t, models.StatusOutForDelivery, got[0].Status)
	require.Len(t, fr.committed, 2)
}

func TestConsumer_HandlerErrorStopsWithoutCommit(t *testing.T) {
	fr := &fakeReader{msgs: []kafka.Message{{Value: []byte(`{"tracking_code":"AB123456789BR"}`)}}}
	c := newConsumerWithReader(fr, nil)

	want := errors.New("handler failed")
	err := c.ConsumeStatusChanged(context.Background(), func(messages.StatusChanged) error { return want })
	require.ErrorIs(t, err, want)
	require.Empty(t, fr.committed)
}

func TestNewConsumer_Close(t *testing.T) {
	c := NewConsumer([]string{"localhost:0"}, "shipment.status_changed", "trackctl", nil)
	require.NotNil(t, c)
	require.NoError(t, c.Close())
}
