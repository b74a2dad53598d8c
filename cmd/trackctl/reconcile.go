package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/ecommerce-omar/tracking-api/internal/notify"
	"github.com/ecommerce-omar/tracking-api/internal/retry"
	"github.com/ecommerce-omar/tracking-api/internal/services/reconcile"
	"github.com/ecommerce-omar/tracking-api/internal/services/shipments"
)

func reconcileCmd(env *ctlEnv) *cobra.Command {
	var (
		asJSON      bool
		concurrency int
	)
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Run one reconciliation pass over all pending shipments",
		Long: `Fetches every shipment in a non-terminal status, asks the carrier for its
current history, persists changes and publishes status-change notifications.
Exits non-zero when the pending records could not be loaded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := env.cfg

			store, closeStore, err := env.f.newStore(cfg)
			if err != nil {
				return errors.Wrap(err, "open storage")
			}
			if closeStore != nil {
				defer closeStore()
			}
			rd, closeRedis := env.f.newRedis(cfg)
			if closeRedis != nil {
				defer closeRedis()
			}
			cc, err := env.f.newCarrier(cfg, env.logger)
			if err != nil {
				return err
			}
			producer := env.f.newProducer(cfg)
			if c, ok := producer.(io.Closer); ok {
				defer func() { _ = c.Close() }()
			}

			if concurrency <= 0 {
				concurrency = cfg.Worker.Concurrency
			}
			notifier := notify.NewKafkaNotifier(producer, rd.dedup, env.statusTopic(), env.logger).
				WithSettings(time.Duration(cfg.Worker.NotifyDedupTTLSeconds)*time.Second, retry.Options{})
			job := reconcile.New(store, cc, notifier, rd.rateLimiter, env.logger).
				WithSettings(
					concurrency,
					cfg.Worker.FailureThreshold,
					time.Duration(cfg.Worker.FailureBaseWaitSeconds)*time.Second,
					int64(cfg.Carrier.RateLimitPerMinute),
				).
				WithCache(shipments.New(store, rd.cache, env.cacheTTL(), env.logger))

			rep := job.RunTriggered(cmd.Context(), "cli")
			if err := printReport(cmd.OutOrStdout(), rep, asJSON); err != nil {
				return err
			}
			if rep.Error != "" {
				return errors.New(rep.Error)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "parallel lookups (default from config)")
	return cmd
}

func printReport(w io.Writer, rep reconcile.Report, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	fmt.Fprintf(w, "attempted:           %d\n", rep.Attempted)
	fmt.Fprintf(w, "succeeded:           %d\n", rep.Succeeded)
	fmt.Fprintf(w, "updated:             %d\n", rep.Updated)
	fmt.Fprintf(w, "permanently failed:  %d\n", rep.PermanentlyFailed)
	fmt.Fprintf(w, "temporarily skipped: %d\n", rep.TemporarilySkipped)
	fmt.Fprintf(w, "duration:            %s\n", rep.Duration.Round(time.Millisecond))
	if rep.Error != "" {
		fmt.Fprintf(w, "error:               %s\n", redText(rep.Error))
	}
	return nil
}
