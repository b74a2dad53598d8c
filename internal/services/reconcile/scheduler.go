package reconcile

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
)

// Runner is one reconciliation pass; *Job implements it.
type Runner interface {
	RunTriggered(ctx context.Context, trigger string) Report
}

// Window: именованное cron-расписание (baseline, peak).
type Window struct {
	Name string `json:"name"`
	Spec string `json:"spec"`

	schedule cron.Schedule
}

type WindowInfo struct {
	Name string    `json:"name"`
	Spec string    `json:"spec"`
	Next time.Time `json:"next"`
}

// Scheduler запускает независимые проходы по cron-окнам в заданной таймзоне.
// Состояние расписания нигде не хранится.
type Scheduler struct {
	job    Runner
	loc    *time.Location
	logger *slog.Logger

	mu      sync.Mutex
	windows []Window

	triggerCh           chan struct{}
	lastTriggerUnixNano atomic.Int64
}

func NewScheduler(job Runner, loc *time.Location, logger *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		job:       job,
		loc:       loc,
		logger:    logger.With(slog.String("component", "scheduler")),
		triggerCh: make(chan struct{}, 1),
	}
}

// AddWindow validates a standard 5-field cron expression and registers it.
func (s *Scheduler) AddWindow(name, spec string) error {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return errors.Wrapf(err, "parse %s schedule %q", name, spec)
	}
	s.mu.Lock()
	s.windows = append(s.windows, Window{Name: name, Spec: spec, schedule: sched})
	s.mu.Unlock()
	return nil
}

func (s *Scheduler) Windows(now time.Time) []WindowInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]WindowInfo, 0, len(s.windows))
	for _, w := range s.windows {
		out = append(out, WindowInfo{Name: w.Name, Spec: w.Spec, Next: w.schedule.Next(now.In(s.loc))})
	}
	return out
}

// Trigger forces an immediate pass (best-effort, non-blocking).
func (s *Scheduler) Trigger() {
	s.lastTriggerUnixNano.Store(time.Now().UTC().UnixNano())
	select {
	case s.triggerCh <- struct{}{}:
	default:
	}
}

func (s *Scheduler) LastTriggerAt() *time.Time {
	n := s.lastTriggerUnixNano.Load()
	if n == 0 {
		return nil
	}
	t := time.Unix(0, n).UTC()
	return &t
}

// Run blocks until ctx is done. Cron firings and triggers run independent passes;
// on shutdown it waits for passes already started by cron.
func (s *Scheduler) Run(ctx context.Context) error {
	c := cron.New(cron.WithLocation(s.loc))

	s.mu.Lock()
	for _, w := range s.windows {
		name := w.Name
		c.Schedule(w.schedule, cron.FuncJob(func() {
			s.job.RunTriggered(ctx, name)
		}))
		s.logger.Info("schedule window registered", slog.String("window", w.Name), slog.String("spec", w.Spec))
	}
	s.mu.Unlock()

	c.Start()
	defer func() {
		<-c.Stop().Done()
		s.logger.Info("scheduler stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.triggerCh:
			s.job.RunTriggered(ctx, "trigger")
		}
	}
}
