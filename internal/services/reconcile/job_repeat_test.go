package reconcile

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ecommerce-omar/tracking-api/internal/integrations/carrier/correios"
	"github.com/ecommerce-omar/tracking-api/internal/models"
	"github.com/ecommerce-omar/tracking-api/internal/retry"
)

func newCorreiosStub(t *testing.T, track http.HandlerFunc) *correios.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token/v1/autentica/cartaopostagem" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"token":"tok"}`))
			return
		}
		track(w, r)
	}))
	t.Cleanup(srv.Close)

	return correios.New(correios.Config{
		BaseURL:        srv.URL,
		Username:       "user",
		AccessCode:     "secret",
		PostcardNumber: "0067599079",
		Retry: retry.Options{
			MaxAttempts: 1,
			Sleep:       func(context.Context, time.Duration) error { return nil },
		},
	}, nil)
}

func TestJob_NotFoundSecondPassIsQuiet(t *testing.T) {
	cc := newCorreiosStub(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"objetos":[{"codObjeto":"AB123456789BR","mensagem":"SRO-020: Objeto não encontrado na base de dados dos Correios."}]}`))
	})
	repo := &fakeRepo{persist: true, records: []*models.Shipment{{
		ID: 3, TrackingCode: "AB123456789BR", Status: models.StatusLabelIssued, Channel: models.ChannelDelivery,
	}}}
	n := &recordingNotifier{}
	j, _ := newTestJob(repo, cc, n)

	first := j.Run(context.Background())
	require.Equal(t, 1, first.Updated)
	require.Len(t, repo.updates, 1)
	require.Equal(t, models.StatusNotFound, repo.updates[0].status)
	require.Len(t, n.msgs, 1)

	second := j.Run(context.Background())
	require.Zero(t, second.Updated)
	require.Equal(t, 1, second.Succeeded)
	require.Len(t, repo.updates, 1)
	require.Len(t, n.msgs, 1)
}

func TestJob_LookupErrorSecondPassIsQuiet(t *testing.T) {
	cc := newCorreiosStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"msgs":["código inválido"],"timestamp":"` + time.Now().Format(time.RFC3339Nano) + `"}`))
	})
	repo := &fakeRepo{persist: true, records: []*models.Shipment{{
		ID: 4, TrackingCode: "AB123456789BR", Status: models.StatusInTransit, Channel: models.ChannelDelivery,
	}}}
	n := &recordingNotifier{}
	j, _ := newTestJob(repo, cc, n)

	first := j.Run(context.Background())
	require.Equal(t, 1, first.Updated)
	require.Equal(t, 1, first.PermanentlyFailed)
	require.Len(t, repo.updates, 1)
	require.Equal(t, models.StatusLookupError, repo.updates[0].status)

	second := j.Run(context.Background())
	require.Zero(t, second.Updated)
	require.Equal(t, 1, second.PermanentlyFailed)
	require.Len(t, repo.updates, 1)
	require.Empty(t, n.msgs)
}
