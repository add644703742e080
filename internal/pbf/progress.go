package pbf

import (
	"context"
	"time"
)

// ProgressTicker calls a function periodically for progress updates
type ProgressTicker struct {
	ctx      context.Context
	callback func()
	interval time.Duration
}

// NewProgressTicker creates a new progress ticker that fires callback
// every interval until ctx is done.
func NewProgressTicker(ctx context.Context, callback func(), interval time.Duration) *ProgressTicker {
	return &ProgressTicker{
		ctx:      ctx,
		callback: callback,
		interval: interval,
	}
}

// Run starts the ticker
func (p *ProgressTicker) Run() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.callback()
		}
	}
}
