package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/ecommerce-omar/tracking-api/config"
	"github.com/ecommerce-omar/tracking-api/internal/services/reconcile"
)

//go:embed worker.swagger.json
var workerSwagger []byte

type workerHTTPOpts struct {
	httpAddr string
	onListen func(httpAddr string)

	job   *reconcile.Job
	sched *reconcile.Scheduler
	cfg   *config.Config
	ready func(ctx context.Context) error
}

func runWorkerHTTPServer(ctx context.Context, opts workerHTTPOpts) error {
	if opts.httpAddr == "" {
		opts.httpAddr = defaultHTTPAddr
	}

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	srv := &http.Server{Handler: newWorkerRouter(opts), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = lis.Close()
	}()

	return srv.Serve(lis)
}

func newWorkerRouter(opts workerHTTPOpts) chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if opts.ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := opts.ready(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": err.Error()})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		if opts.job == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "job not wired"})
			return
		}
		out := map[string]any{"job": opts.job.Stats()}
		if opts.sched != nil {
			out["windows"] = opts.sched.Windows(time.Now())
			out["lastTriggerAt"] = opts.sched.LastTriggerAt()
		}
		writeJSON(w, http.StatusOK, out)
	})

	r.Get("/config", func(w http.ResponseWriter, r *http.Request) {
		if opts.cfg == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "config not wired"})
			return
		}
		// Только операционные настройки, без секретов.
		c := opts.cfg
		writeJSON(w, http.StatusOK, map[string]any{
			"carrierMode":            c.Carrier.Mode,
			"carrierBaseURL":         c.Carrier.BaseURL,
			"rateLimitPerMinute":     c.Carrier.RateLimitPerMinute,
			"retryMaxAttempts":       c.Carrier.RetryMaxAttempts,
			"timezone":               c.Worker.Timezone,
			"baselineCron":           c.Worker.BaselineCron,
			"peakCron":               c.Worker.PeakCron,
			"concurrency":            c.Worker.Concurrency,
			"failureThreshold":       c.Worker.FailureThreshold,
			"failureBaseWaitSeconds": c.Worker.FailureBaseWaitSeconds,
			"notifyDedupTTLSeconds":  c.Worker.NotifyDedupTTLSeconds,
			"statusChangedTopic":     c.Kafka.StatusChangedTopicName,
		})
	})

	r.Post("/trigger", func(w http.ResponseWriter, r *http.Request) {
		if opts.sched == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "scheduler not wired"})
			return
		}
		opts.sched.Trigger()
		writeJSON(w, http.StatusAccepted, map[string]bool{"triggered": true})
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/swagger.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(workerSwagger)
	})
	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/swagger.json")))

	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
