package reconcile

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingRunner struct {
	mu       sync.Mutex
	triggers []string
	ran      chan struct{}
}

func (r *countingRunner) RunTriggered(ctx context.Context, trigger string) Report {
	r.mu.Lock()
	r.triggers = append(r.triggers, trigger)
	r.mu.Unlock()
	select {
	case r.ran <- struct{}{}:
	default:
	}
	return Report{}
}

func TestScheduler_AddWindowRejectsBadSpec(t *testing.T) {
	s := NewScheduler(&countingRunner{}, nil, nil)
	require.Error(t, s.AddWindow("baseline", "every 15 minutes"))
	require.NoError(t, s.AddWindow("baseline", "*/15 7-19 * * 1-6"))
}

func TestScheduler_WindowsDoNotOverlap(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		loc = time.FixedZone("BRT", -3*3600)
	}
	s := NewScheduler(&countingRunner{}, loc, nil)
	require.NoError(t, s.AddWindow("baseline", "*/15 7-19 * * 1-6"))
	require.NoError(t, s.AddWindow("peak", "5,10,20,25,35,40,50,55 11-13 * * 1-6"))

	// понедельник, 11:00 по Сан-Паулу: пройдём по всем срабатываниям часа пик
	from := time.Date(2025, 3, 10, 11, 0, 0, 0, loc)
	to := time.Date(2025, 3, 10, 14, 0, 0, 0, loc)

	s.mu.Lock()
	baseline, peak := s.windows[0].schedule, s.windows[1].schedule
	s.mu.Unlock()

	fired := map[time.Time]string{}
	for next := baseline.Next(from.Add(-time.Second)); next.Before(to); next = baseline.Next(next) {
		fired[next] = "baseline"
	}
	peakCount := 0
	for next := peak.Next(from.Add(-time.Second)); next.Before(to); next = peak.Next(next) {
		_, clash := fired[next]
		require.False(t, clash, next)
		peakCount++
	}
	require.Equal(t, 24, peakCount)

	// воскресенье не запускаем
	sunday := time.Date(2025, 3, 9, 6, 0, 0, 0, loc)
	next := baseline.Next(sunday)
	require.Equal(t, time.Monday, next.Weekday())
	require.Equal(t, 7, next.Hour())

	infos := s.Windows(sunday)
	require.Len(t, infos, 2)
	require.Equal(t, "baseline", infos[0].Name)
	require.Equal(t, next, infos[0].Next)
}

func TestScheduler_TriggerRunsPass(t *testing.T) {
	r := &countingRunner{ran: make(chan struct{}, 1)}
	s := NewScheduler(r, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	s.Trigger()
	select {
	case <-r.ran:
	case <-time.After(2 * time.Second):
		t.Fatal("trigger did not run a pass")
	}
	require.NotNil(t, s.LastTriggerAt())

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	require.Equal(t, []string{"trigger"}, r.triggers)
}
