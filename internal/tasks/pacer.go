package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/plsync/internal/shared"
	"golang.org/x/time/rate"
)

// DefaultDelay is the minimum pause between mutation calls.
const DefaultDelay = shared.MinSyncDelay

// Pacer spaces out mutation calls. Wait blocks until the next call may be issued or ctx
// is done.
type Pacer interface {
	Wait(ctx context.Context) error
}

// FixedDelay pauses for the same duration every time.
type FixedDelay time.Duration

func (d FixedDelay) Wait(ctx context.Context) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(time.Duration(d))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// LimiterPacer waits for a floor delay and then for a token bucket shared by every
// batch using the pacer.
type LimiterPacer struct {
	floor   FixedDelay
	limiter *rate.Limiter
}

// NewLimiterPacer allows perSecond calls with a burst of one, never closer than floor.
// A floor below [DefaultDelay] is raised to it.
func NewLimiterPacer(floor time.Duration, perSecond float64) *LimiterPacer {
	floor = max(floor, DefaultDelay)
	return &LimiterPacer{
		floor:   FixedDelay(floor),
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
	}
}

func (p *LimiterPacer) Wait(ctx context.Context) error {
	if err := p.floor.Wait(ctx); err != nil {
		return err
	}
	return p.limiter.Wait(ctx)
}

// NewPacer builds the pacer described by the sync config: a [LimiterPacer] when
// rate_limit is set, otherwise a [FixedDelay].
func NewPacer(cfg shared.SyncConfig) (Pacer, error) {
	delay, err := cfg.DelayDuration()
	if err != nil {
		return nil, err
	}
	if cfg.RateLimit < 0 {
		return nil, fmt.Errorf("%w: sync.rate_limit must not be negative", shared.ErrInvalidConfig)
	}

	if cfg.RateLimit > 0 {
		return NewLimiterPacer(delay, cfg.RateLimit), nil
	}
	return FixedDelay(delay), nil
}
