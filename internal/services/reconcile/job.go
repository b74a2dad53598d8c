package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/ecommerce-omar/tracking-api/internal/broker/messages"
	"github.com/ecommerce-omar/tracking-api/internal/errclass"
	"github.com/ecommerce-omar/tracking-api/internal/integrations/carrier"
	"github.com/ecommerce-omar/tracking-api/internal/models"
	"github.com/ecommerce-omar/tracking-api/internal/notify"
)

type Repository interface {
	FindPendingRecords(ctx context.Context) ([]*models.Shipment, error)
	UpdateStatus(ctx context.Context, trackingCode string, status models.Status, events []models.TrackingEvent, expectedDelivery *time.Time) (*models.Shipment, error)
}

// Notifier публикует изменение статуса. Ошибки доставки обрабатывает сам,
// наружу они не выходят.
type Notifier interface {
	Publish(ctx context.Context, msg messages.StatusChanged)
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

type ShipmentCache interface {
	PutCached(ctx context.Context, sh *models.Shipment) error
}

// Report is the outcome of a single pass. Updated counts persisted writes,
// a synthesized lookup error is both updated and permanently failed.
type Report struct {
	Attempted          int           `json:"attempted"`
	Succeeded          int           `json:"succeeded"`
	PermanentlyFailed  int           `json:"permanentlyFailed"`
	TemporarilySkipped int           `json:"temporarilySkipped"`
	Updated            int           `json:"updated"`
	Duration           time.Duration `json:"duration"`
	Error              string        `json:"error,omitempty"`
}

type Job struct {
	repo     Repository
	carrier  carrier.Client
	notifier Notifier
	rl       RateLimiter
	cache    ShipmentCache
	logger   *slog.Logger

	policy func(models.DeliveryChannel, models.Status) bool

	concurrency        int
	failureThreshold   int
	failureBaseWait    time.Duration
	rateLimitPerMinute int64
	rateLimitWait      time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	startedAtUnixNano int64
	lastPassUnixNano  atomic.Int64
	totalPasses       atomic.Int64
	totalAttempted    atomic.Int64
	totalSucceeded    atomic.Int64
	totalFailed       atomic.Int64
	totalSkipped      atomic.Int64
	totalUpdated      atomic.Int64
	passesInFlight    atomic.Int64
	lastMu            sync.Mutex
	lastReport        *Report
	lastError         string
}

func New(repo Repository, c carrier.Client, notifier Notifier, rl RateLimiter, logger *slog.Logger) *Job {
	if logger == nil {
		logger = slog.Default()
	}
	return &Job{
		repo:               repo,
		carrier:            c,
		notifier:           notifier,
		rl:                 rl,
		logger:             logger.With(slog.String("component", "reconcile")),
		policy:             notify.ShouldNotify,
		concurrency:        1,
		failureThreshold:   3,
		failureBaseWait:    30 * time.Second,
		rateLimitPerMinute: 60,
		rateLimitWait:      500 * time.Millisecond,
		now:                time.Now,
		sleep:              sleepCtx,
		startedAtUnixNano:  time.Now().UTC().UnixNano(),
	}
}

func (j *Job) WithSettings(concurrency, failureThreshold int, failureBaseWait time.Duration, rlPerMin int64) *Job {
	if concurrency > 0 {
		j.concurrency = concurrency
	}
	if failureThreshold > 0 {
		j.failureThreshold = failureThreshold
	}
	if failureBaseWait > 0 {
		j.failureBaseWait = failureBaseWait
	}
	if rlPerMin > 0 {
		j.rateLimitPerMinute = rlPerMin
	}
	return j
}

// WithCache обновляет кэш чтения после каждой сохранённой записи.
func (j *Job) WithCache(c ShipmentCache) *Job {
	j.cache = c
	return j
}

type Stats struct {
	StartedAt      time.Time  `json:"startedAt"`
	LastPassAt     *time.Time `json:"lastPassAt,omitempty"`
	TotalPasses    int64      `json:"totalPasses"`
	TotalAttempted int64      `json:"totalAttempted"`
	TotalSucceeded int64      `json:"totalSucceeded"`
	TotalFailed    int64      `json:"totalPermanentlyFailed"`
	TotalSkipped   int64      `json:"totalTemporarilySkipped"`
	TotalUpdated   int64      `json:"totalUpdated"`
	PassesInFlight int64      `json:"passesInFlight"`
	LastReport     *Report    `json:"lastReport,omitempty"`
	LastError      string     `json:"lastError,omitempty"`
}

func (j *Job) Stats() Stats {
	st := Stats{
		StartedAt:      time.Unix(0, j.startedAtUnixNano).UTC(),
		TotalPasses:    j.totalPasses.Load(),
		TotalAttempted: j.totalAttempted.Load(),
		TotalSucceeded: j.totalSucceeded.Load(),
		TotalFailed:    j.totalFailed.Load(),
		TotalSkipped:   j.totalSkipped.Load(),
		TotalUpdated:   j.totalUpdated.Load(),
		PassesInFlight: j.passesInFlight.Load(),
	}
	if n := j.lastPassUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastPassAt = &t
	}
	j.lastMu.Lock()
	if j.lastReport != nil {
		r := *j.lastReport
		st.LastReport = &r
	}
	st.LastError = j.lastError
	j.lastMu.Unlock()
	return st
}

type outcome int

const (
	outcomeSucceeded outcome = iota
	outcomeSkipped
	outcomeFailed
)

// pass holds the state of one invocation; nothing here outlives Run.
type pass struct {
	streak    *failureStreak
	succeeded atomic.Int64
	failed    atomic.Int64
	skipped   atomic.Int64
	updated   atomic.Int64
}

// Run выполняет один проход: FETCH_BATCH → PROCESS_RECORD* → REPORT.
// Никогда не паникует наружу и не возвращает ошибку: всё попадает в отчёт и лог.
func (j *Job) Run(ctx context.Context) Report {
	return j.run(ctx, "manual")
}

// RunTriggered is Run with the trigger name recorded in metrics and logs.
func (j *Job) RunTriggered(ctx context.Context, trigger string) Report {
	return j.run(ctx, trigger)
}

func (j *Job) run(ctx context.Context, trigger string) (rep Report) {
	started := j.now()
	j.lastPassUnixNano.Store(started.UTC().UnixNano())
	j.totalPasses.Add(1)
	j.passesInFlight.Add(1)
	passesTotal.WithLabelValues(trigger).Inc()

	defer func() {
		if r := recover(); r != nil {
			rep.Error = fmt.Sprintf("panic: %v", r)
			j.logger.Error("reconciliation pass crashed",
				slog.String("severity", "critical"),
				slog.String("trigger", trigger),
				slog.Any("panic", r),
			)
		}
		rep.Duration = j.now().Sub(started)
		passDuration.Observe(rep.Duration.Seconds())
		j.passesInFlight.Add(-1)
		j.finish(rep)
	}()

	records, err := j.repo.FindPendingRecords(ctx)
	if err != nil {
		err = errors.Wrap(err, "find pending records")
		rep.Error = err.Error()
		j.logger.Error("reconciliation batch failed",
			slog.String("severity", "critical"),
			slog.String("trigger", trigger),
			slog.String("error", err.Error()),
		)
		return rep
	}

	p := &pass{streak: newFailureStreak(j.failureThreshold, j.failureBaseWait)}
	j.dispatch(ctx, p, records)

	rep.Attempted = len(records)
	rep.Succeeded = int(p.succeeded.Load())
	rep.PermanentlyFailed = int(p.failed.Load())
	rep.TemporarilySkipped = int(p.skipped.Load())
	rep.Updated = int(p.updated.Load())

	j.logger.Info("reconciliation pass finished",
		slog.String("trigger", trigger),
		slog.Int("attempted", rep.Attempted),
		slog.Int("succeeded", rep.Succeeded),
		slog.Int("permanently_failed", rep.PermanentlyFailed),
		slog.Int("temporarily_skipped", rep.TemporarilySkipped),
		slog.Int("updated", rep.Updated),
	)
	return rep
}

func (j *Job) finish(rep Report) {
	j.totalAttempted.Add(int64(rep.Attempted))
	j.totalSucceeded.Add(int64(rep.Succeeded))
	j.totalFailed.Add(int64(rep.PermanentlyFailed))
	j.totalSkipped.Add(int64(rep.TemporarilySkipped))
	j.totalUpdated.Add(int64(rep.Updated))

	j.lastMu.Lock()
	j.lastReport = &rep
	if rep.Error != "" {
		j.lastError = rep.Error
	}
	j.lastMu.Unlock()
}

func (j *Job) dispatch(ctx context.Context, p *pass, records []*models.Shipment) {
	concurrency := j.concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for _, sh := range records {
		sem <- struct{}{}
		// Пауза после серии ошибок придерживает выдачу следующей записи.
		if d := p.streak.pause(); d > 0 {
			pausesTotal.Inc()
			j.logger.Warn("consecutive failures, pausing batch", slog.Duration("wait", d))
			_ = j.sleep(ctx, d)
		}

		wg.Add(1)
		go func(sh *models.Shipment) {
			defer func() {
				<-sem
				wg.Done()
			}()
			j.record(ctx, p, sh)
		}(sh)
	}
	wg.Wait()
}

func (j *Job) record(ctx context.Context, p *pass, sh *models.Shipment) {
	defer func() {
		if r := recover(); r != nil {
			j.logger.Error("process shipment panicked",
				slog.String("tracking_code", sh.TrackingCode),
				slog.Any("panic", r),
			)
			p.failed.Add(1)
			p.streak.failure()
			recordsTotal.WithLabelValues(labelPermanentlyFailed).Inc()
		}
	}()

	out, persisted, err := j.processOne(ctx, sh)
	if persisted {
		p.updated.Add(1)
		recordsTotal.WithLabelValues(labelUpdated).Inc()
	}
	switch out {
	case outcomeSkipped:
		p.skipped.Add(1)
		recordsTotal.WithLabelValues(labelTemporarilySkipped).Inc()
		j.logger.Warn("temporary carrier failure, record skipped",
			slog.String("tracking_code", sh.TrackingCode),
			slog.String("error", errString(err)),
		)
	case outcomeFailed:
		p.failed.Add(1)
		n := p.streak.failure()
		recordsTotal.WithLabelValues(labelPermanentlyFailed).Inc()
		j.logger.Error("process shipment",
			slog.String("tracking_code", sh.TrackingCode),
			slog.Int("consecutive_failures", n),
			slog.String("error", errString(err)),
		)
	default:
		p.succeeded.Add(1)
		p.streak.success()
		recordsTotal.WithLabelValues(labelSucceeded).Inc()
	}
}

// processOne returns the record outcome and whether a write happened.
func (j *Job) processOne(ctx context.Context, sh *models.Shipment) (outcome, bool, error) {
	j.throttle(ctx)

	res, err := j.carrier.Track(ctx, sh.TrackingCode)
	if err != nil {
		if errclass.IsPermanent(err) {
			return outcomeFailed, false, errors.Wrap(err, "track")
		}
		return outcomeSkipped, false, err
	}

	statusChanged := res.Status != sh.Status
	eventsChanged := HasNewEvents(sh.Events, res.Events)

	persisted := false
	if statusChanged || eventsChanged {
		updated, err := j.repo.UpdateStatus(ctx, sh.TrackingCode, res.Status, res.Events, res.ExpectedDelivery)
		if err != nil {
			return outcomeFailed, false, errors.Wrap(err, "update status")
		}
		persisted = true
		j.afterUpdate(ctx, sh, updated, res)
	}

	// Синтетический lookup-error сохраняем, но проход считает его неудачей.
	if res.Synthetic() {
		return outcomeFailed, persisted, errclass.Permanentf("carrier lookup failed: %s", lookupDetail(res))
	}
	return outcomeSucceeded, persisted, nil
}

func (j *Job) afterUpdate(ctx context.Context, prev, updated *models.Shipment, res carrier.TrackingResult) {
	if updated == nil {
		return
	}
	if j.cache != nil {
		if err := j.cache.PutCached(ctx, updated); err != nil {
			j.logger.Warn("refresh shipment cache",
				slog.String("tracking_code", updated.TrackingCode),
				slog.String("error", err.Error()),
			)
		}
	}

	if res.Synthetic() || j.notifier == nil || !j.policy(updated.Channel, updated.Status) {
		return
	}
	msg := messages.StatusChanged{
		ShipmentID:       updated.ID,
		TrackingCode:     updated.TrackingCode,
		Channel:          updated.Channel,
		PreviousStatus:   prev.Status,
		Status:           updated.Status,
		ExpectedDelivery: updated.ExpectedDelivery,
		ChangedAt:        j.now().UTC(),
	}
	if len(updated.Events) > 0 {
		latest := updated.Events[0]
		msg.LatestEvent = &latest
	}
	j.notifier.Publish(ctx, msg)
}

// throttle держит общий для всех воркеров минутный лимит запросов к перевозчику.
func (j *Job) throttle(ctx context.Context) {
	if j.rl == nil || j.rateLimitPerMinute <= 0 {
		return
	}
	key := "rl:carrier:" + j.now().UTC().Format("200601021504")
	allowed, n, err := j.rl.Allow(ctx, key, j.rateLimitPerMinute, 70*time.Second)
	if err != nil {
		j.logger.Warn("rate limiter unavailable", slog.String("error", err.Error()))
		return
	}
	if !allowed {
		j.logger.Warn("rate limit exceeded", slog.Int64("count", n))
		_ = j.sleep(ctx, j.rateLimitWait)
	}
}

func lookupDetail(res carrier.TrackingResult) string {
	if len(res.Events) > 0 && res.Events[0].Detail != nil {
		return *res.Events[0].Detail
	}
	return string(res.Status)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
