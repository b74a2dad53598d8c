package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTrackingEvent_Signature(t *testing.T) {
	detail := "Aguardando retirada"
	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.FixedZone("BRT", -3*3600))

	a := TrackingEvent{Description: "Objeto postado", OccurredAt: at, Location: " CURITIBA - PR ", Detail: &detail}
	b := TrackingEvent{Description: "Objeto postado", OccurredAt: at.UTC(), Location: "CURITIBA - PR", Detail: &detail}
	require.Equal(t, a.Signature(), b.Signature())

	c := b
	other := "outro"
	c.Detail = &other
	require.NotEqual(t, b.Signature(), c.Signature())

	d := b
	d.OccurredAt = b.OccurredAt.Add(time.Second)
	require.NotEqual(t, b.Signature(), d.Signature())
}
