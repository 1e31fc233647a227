package connector

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Polling timing bounds.
const (
	// maxBackoff caps the error backoff between poll attempts.
	maxBackoff = 30 * time.Second

	// stopTimeout bounds how long StopPolling waits for the loop to
	// acknowledge cancellation before proceeding with resource release.
	stopTimeout = 5 * time.Second
)

// PollFunc reads all configured mappings once and returns the resulting
// batch. Per-mapping failures must degrade to Bad-quality points inside
// the batch; a returned error means the whole cycle failed.
type PollFunc func(ctx context.Context) ([]DataPoint, error)

// Poller is the timer-driven read loop shared by all polling connectors.
//
// State machine: Idle → Polling → Idle via StartPolling/StopPolling.
// Each iteration invokes the protocol's poll function only while the
// connector reports connected; a momentary disconnect skips that tick.
//
// Thread Safety: all methods are safe for concurrent use.
type Poller struct {
	base     *Base
	interval time.Duration
	poll     PollFunc

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller creates an idle poller bound to a lifecycle base.
// The interval must be positive (Config.Normalize guarantees this).
func NewPoller(base *Base, interval time.Duration, poll PollFunc) *Poller {
	return &Poller{
		base:     base,
		interval: interval,
		poll:     poll,
	}
}

// Polling reports whether the background loop is running.
func (p *Poller) Polling() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// StartPolling launches the background read loop. Starting while already
// polling logs a warning and is a no-op.
func (p *Poller) StartPolling(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		p.base.logWarn("start polling ignored: already polling")
		return nil
	}

	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.loop(loopCtx, p.done)

	p.base.logInfo("polling started", "interval", p.interval.String())
	return nil
}

// StopPolling signals cancellation, waits up to stopTimeout for the loop
// to exit, logs (but does not fail) on timeout, and always leaves the
// poller ready for resource release. Repeated calls are idempotent.
func (p *Poller) StopPolling() error {
	p.mu.Lock()
	cancel := p.cancel
	done := p.done
	p.cancel = nil
	p.done = nil
	p.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		p.base.logInfo("polling stopped")
	case <-time.After(stopTimeout):
		p.base.logWarn("polling stop timed out, releasing resources anyway",
			"error", ErrShutdownTimeout.Error(), "timeout", stopTimeout.String())
	}
	return nil
}

// loop is the background poll cycle. Cooperative cancellation ends the
// loop cleanly and is not treated as failure.
func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		delay := p.interval

		if p.base.Connected() {
			start := time.Now()
			points, err := p.poll(ctx)

			switch {
			case err == nil:
				if len(points) > 0 {
					p.base.RecordSuccess(time.Since(start))
					p.base.Emit(points)
				}
			case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
				if ctx.Err() != nil {
					return
				}
				// I/O deadline from the transport, not shutdown.
				p.base.RecordFailure(err.Error())
				delay = backoff(p.interval)
			default:
				p.base.RecordFailure(err.Error())
				p.base.logWarn("poll cycle failed", "error", err.Error())
				delay = backoff(p.interval)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// backoff returns the post-error delay: min(2×interval, 30s).
func backoff(interval time.Duration) time.Duration {
	d := 2 * interval
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}
