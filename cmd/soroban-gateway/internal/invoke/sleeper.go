package invoke

import (
	"context"
	"time"
)

// Sleeper is the engine's suspension point between polling attempts. It is an
// interface so tests can replace real delays with a recording fake.
type Sleeper interface {
	// Sleep blocks for d or until ctx is done, returning ctx.Err() in the
	// latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

type timerSleeper struct{}

// NewTimerSleeper returns the production Sleeper backed by a timer. Sleeping
// never blocks other in-flight confirmations.
func NewTimerSleeper() Sleeper {
	return timerSleeper{}
}

func (timerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
