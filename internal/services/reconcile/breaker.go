package reconcile

import (
	"sync"
	"time"
)

const maxPauseMultiplier = 5

// failureStreak считает подряд идущие ошибки обработки записей в рамках одного прохода.
// После порога перед следующей записью делается пауза base × min(перебор, 5).
type failureStreak struct {
	mu        sync.Mutex
	threshold int
	baseWait  time.Duration
	count     int
}

func newFailureStreak(threshold int, baseWait time.Duration) *failureStreak {
	return &failureStreak{threshold: threshold, baseWait: baseWait}
}

func (f *failureStreak) failure() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count++
	return f.count
}

func (f *failureStreak) success() {
	f.mu.Lock()
	f.count = 0
	f.mu.Unlock()
}

// pause returns how long to wait before dispatching the next record.
func (f *failureStreak) pause() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.threshold <= 0 || f.count < f.threshold {
		return 0
	}
	overshoot := f.count - f.threshold + 1
	if overshoot > maxPauseMultiplier {
		overshoot = maxPauseMultiplier
	}
	return f.baseWait * time.Duration(overshoot)
}
