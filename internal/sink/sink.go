package sink

import (
	"context"

	"github.com/alaininaustralia-ux/Sensormine-Platform-v5-sub006/internal/connector"
)

// Sink consumes data-received events from the connector manager's fan-in
// channel. Implementations must be non-blocking or internally buffered;
// the runner calls them sequentially per event.
type Sink interface {
	// Name identifies the sink in logs.
	Name() string

	// Write delivers one batch of data points downstream.
	Write(ctx context.Context, event connector.DataReceived) error
}

// Logger is the structured logging surface used by the sinks and runner.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Run drains the event channel into every sink until the channel closes
// or the context is cancelled. Sink failures are logged and counted but
// never stop the pipeline; one misbehaving sink must not starve the
// others.
func Run(ctx context.Context, events <-chan connector.DataReceived, sinks []Sink, logger Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			for _, s := range sinks {
				if err := s.Write(ctx, event); err != nil && logger != nil {
					logger.Warn("sink write failed",
						"sink", s.Name(),
						"connector_id", event.ConnectorID,
						"points", len(event.Points),
						"error", err.Error())
				}
			}
		}
	}
}
