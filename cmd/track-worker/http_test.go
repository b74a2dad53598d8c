package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ecommerce-omar/tracking-api/config"
	"github.com/ecommerce-omar/tracking-api/internal/integrations/carrier/fake"
)

func testRouter(t *testing.T, ready func(ctx context.Context) error) http.Handler {
	t.Helper()
	cfg := &config.Config{
		Carrier: config.CarrierConfig{Mode: "correios", BaseURL: "http://carrier", AccessCode: "secret"},
		Worker:  config.WorkerConfig{Concurrency: 4},
	}
	w, err := buildWorker(cfg, &fakeRepo{}, noopProducer{}, redisDeps{}, fake.New(), nil)
	require.NoError(t, err)
	return newWorkerRouter(workerHTTPOpts{job: w.job, sched: w.sched, cfg: cfg, ready: ready})
}

func doRequest(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestWorkerRouter_Health(t *testing.T) {
	h := testRouter(t, nil)
	require.Equal(t, http.StatusOK, doRequest(h, http.MethodGet, "/healthz").Code)
	require.Equal(t, http.StatusOK, doRequest(h, http.MethodGet, "/readyz").Code)
}

func TestWorkerRouter_ReadyzReportsDependency(t *testing.T) {
	h := testRouter(t, func(ctx context.Context) error { return errors.New("redis: connection refused") })

	rec := doRequest(h, http.MethodGet, "/readyz")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "connection refused")
}

func TestWorkerRouter_StatsIncludesWindows(t *testing.T) {
	h := testRouter(t, nil)

	rec := doRequest(h, http.MethodGet, "/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Job     map[string]any   `json:"job"`
		Windows []map[string]any `json:"windows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Contains(t, body.Job, "totalPasses")
	require.Len(t, body.Windows, 2)
}

func TestWorkerRouter_ConfigHidesCredentials(t *testing.T) {
	h := testRouter(t, nil)

	rec := doRequest(h, http.MethodGet, "/config")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"carrierMode":"correios"`)
	require.NotContains(t, rec.Body.String(), "secret")
}

func TestWorkerRouter_TriggerRecordsTime(t *testing.T) {
	cfg := &config.Config{}
	w, err := buildWorker(cfg, &fakeRepo{}, noopProducer{}, redisDeps{}, fake.New(), nil)
	require.NoError(t, err)
	h := newWorkerRouter(workerHTTPOpts{job: w.job, sched: w.sched, cfg: cfg})

	require.Nil(t, w.sched.LastTriggerAt())
	rec := doRequest(h, http.MethodPost, "/trigger")
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.NotNil(t, w.sched.LastTriggerAt())

	require.Equal(t, http.StatusMethodNotAllowed, doRequest(h, http.MethodGet, "/trigger").Code)
}

func TestWorkerRouter_MetricsAndDocs(t *testing.T) {
	h := testRouter(t, nil)

	rec := doRequest(h, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "go_goroutines")

	rec = doRequest(h, http.MethodGet, "/swagger.json")
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, json.Valid(rec.Body.Bytes()))
	require.Contains(t, rec.Body.String(), "/trigger")

	rec = doRequest(h, http.MethodGet, "/docs/index.html")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRunWorkerHTTPServer_ShutsDownOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	addrCh := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- runWorkerHTTPServer(ctx, workerHTTPOpts{
			httpAddr: "127.0.0.1:0",
			onListen: func(a string) { addrCh <- a },
		})
	}()

	addr := <-addrCh
	resp, err := http.Get("http://" + addr + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-errCh:
		require.ErrorIs(t, err, http.ErrServerClosed)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
