package connector

import (
	"context"
	"sync"
	"time"
)

// maxLatencySamples bounds the rolling latency window used for the
// health snapshot's average latency.
const maxLatencySamples = 100

// defaultEventBuffer is the capacity of a connector's data-received
// channel. When full, the oldest pending event is dropped so a slow
// consumer cannot stall the poll loop.
const defaultEventBuffer = 256

// Logger is the minimal structured logging interface used throughout the
// connector framework. *logging.Logger and *slog.Logger both satisfy it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Connector is the uniform surface every protocol implementation exposes
// to the factory and manager.
//
// Lifecycle: NewX → Connect → Start → (produces DataReceived events) →
// Stop → Disconnect → Close. Close is terminal and idempotent: it stops
// production, releases the transport, and closes the event channel.
type Connector interface {
	// ID returns the configuration identifier.
	ID() string

	// Name returns the human-readable connector name.
	Name() string

	// Protocol returns the protocol tag.
	Protocol() Protocol

	// TenantID returns the owning tenant identifier.
	TenantID() string

	// Connect opens the protocol transport. Connect-time failures set
	// Error status and propagate to the caller.
	Connect(ctx context.Context) error

	// Disconnect releases the protocol transport.
	Disconnect(ctx context.Context) error

	// Start begins producing data (polling loop or subscriptions).
	Start(ctx context.Context) error

	// Stop halts production. Bounded-time and idempotent.
	Stop() error

	// Status returns the current connection state.
	Status() ConnectionStatus

	// Health assembles an immutable health snapshot without blocking.
	Health() HealthSnapshot

	// Events returns the connector's data-received channel. The channel
	// closes when the connector is disposed.
	Events() <-chan DataReceived

	// Close stops, disconnects, and releases all resources.
	Close() error
}

// Base provides the shared connector lifecycle: identity passthrough, a
// lock-guarded status field with logged transitions, health and latency
// aggregation, and the data-received event channel.
//
// Thread Safety: all methods are safe for concurrent use; a health
// snapshot read can race with poll-loop writes by design.
type Base struct {
	cfg    *Config
	logger Logger

	// Status (guarded separately from metrics so snapshot assembly
	// never contends with a status transition log).
	statusMu sync.RWMutex
	status   ConnectionStatus
	message  string

	// Metrics. Ring insertion and eviction-past-capacity are atomic
	// together under mu to avoid lost updates.
	mu            sync.Mutex
	successCount  uint64
	failureCount  uint64
	latencies     [maxLatencySamples]time.Duration
	latencyCount  int
	latencyIdx    int
	lastDataAt    time.Time
	lastError     string
	lastErrorAt   time.Time
	eventsDropped uint64

	// Event fan-out.
	eventMu sync.Mutex
	events  chan DataReceived
	closed  bool
}

// NewBase creates the lifecycle base for a validated configuration.
// The logger may be nil; transitions are then unlogged.
func NewBase(cfg *Config, logger Logger) *Base {
	return &Base{
		cfg:    cfg,
		logger: logger,
		status: StatusDisconnected,
		events: make(chan DataReceived, defaultEventBuffer),
	}
}

// ID returns the configuration identifier.
func (b *Base) ID() string { return b.cfg.ID }

// Name returns the human-readable connector name.
func (b *Base) Name() string { return b.cfg.Name }

// Protocol returns the protocol tag.
func (b *Base) Protocol() Protocol { return b.cfg.Protocol }

// TenantID returns the owning tenant identifier.
func (b *Base) TenantID() string { return b.cfg.TenantID }

// Config returns the connector configuration.
func (b *Base) Config() *Config { return b.cfg }

// Logger returns the logger the base was constructed with, or nil.
func (b *Base) Logger() Logger { return b.logger }

// Status returns the current connection state.
func (b *Base) Status() ConnectionStatus {
	b.statusMu.RLock()
	defer b.statusMu.RUnlock()
	return b.status
}

// Connected reports whether the connector is in the Connected state.
func (b *Base) Connected() bool {
	return b.Status() == StatusConnected
}

// SetStatus transitions the connection state. The transition is logged;
// setting the current status again is a no-op.
func (b *Base) SetStatus(status ConnectionStatus) {
	b.SetStatusMessage(status, "")
}

// SetStatusMessage transitions the connection state with a human-readable
// message carried into health snapshots. Setting the current status again
// suppresses the transition log but still refreshes a non-empty message,
// so repeated failures in Error state stay visible in health.
func (b *Base) SetStatusMessage(status ConnectionStatus, message string) {
	b.statusMu.Lock()
	if b.status == status {
		if message != "" {
			b.message = message
		}
		b.statusMu.Unlock()
		return
	}
	old := b.status
	b.status = status
	b.message = message
	b.statusMu.Unlock()

	b.logInfo("status changed", "from", string(old), "to", string(status))
}

// SetError forces the status to Error and records the failure message.
// The connector stays in Error until an explicit reconnect succeeds.
func (b *Base) SetError(message string) {
	b.SetStatusMessage(StatusError, message)
	b.RecordFailure(message)
}

// RecordSuccess atomically increments the success counter, stamps the
// last-data time, and appends the latency to the bounded ring buffer,
// evicting the oldest sample past capacity.
func (b *Base) RecordSuccess(latency time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.successCount++
	b.lastDataAt = time.Now().UTC()

	b.latencies[b.latencyIdx] = latency
	b.latencyIdx = (b.latencyIdx + 1) % maxLatencySamples
	if b.latencyCount < maxLatencySamples {
		b.latencyCount++
	}
}

// RecordFailure increments the failure counter and stamps the last error
// text and time.
func (b *Base) RecordFailure(message string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++
	b.lastError = message
	b.lastErrorAt = time.Now().UTC()
}

// Health assembles an immutable snapshot from the base's fields. It
// performs no I/O and never blocks on the poll loop.
func (b *Base) Health() HealthSnapshot {
	b.statusMu.RLock()
	status := b.status
	message := b.message
	b.statusMu.RUnlock()

	if message == "" {
		message = defaultStatusMessage(status)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var avg time.Duration
	if b.latencyCount > 0 {
		var total time.Duration
		for i := 0; i < b.latencyCount; i++ {
			total += b.latencies[i]
		}
		avg = total / time.Duration(b.latencyCount)
	}

	return HealthSnapshot{
		ConnectorID:   b.cfg.ID,
		Status:        status,
		Healthy:       status == StatusConnected,
		Message:       message,
		SuccessCount:  b.successCount,
		FailureCount:  b.failureCount,
		AvgLatency:    avg,
		LastDataAt:    b.lastDataAt,
		LastError:     b.lastError,
		LastErrorAt:   b.lastErrorAt,
		EventsDropped: b.eventsDropped,
	}
}

// Events returns the connector's data-received channel.
func (b *Base) Events() <-chan DataReceived {
	return b.events
}

// Emit publishes a batch of data points on the event channel without
// blocking. When the channel is full the oldest pending event is dropped
// and the drop counter incremented.
func (b *Base) Emit(points []DataPoint) {
	if len(points) == 0 {
		return
	}

	event := DataReceived{
		ConnectorID: b.cfg.ID,
		Timestamp:   time.Now().UTC(),
		Points:      points,
	}

	b.eventMu.Lock()
	defer b.eventMu.Unlock()

	if b.closed {
		return
	}

	select {
	case b.events <- event:
		return
	default:
	}

	// Channel full: evict the oldest pending event, then retry once.
	select {
	case <-b.events:
		b.mu.Lock()
		b.eventsDropped++
		b.mu.Unlock()
	default:
	}

	select {
	case b.events <- event:
	default:
	}
}

// CloseEvents closes the event channel. Safe to call more than once;
// Emit after close is a no-op.
func (b *Base) CloseEvents() {
	b.eventMu.Lock()
	defer b.eventMu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	close(b.events)
}

// NewBadPoint builds the Bad-quality point emitted when a mapping fails
// to read. The value is nil so failures remain visible downstream.
func (b *Base) NewBadPoint(m PointMapping, readErr error) DataPoint {
	now := time.Now().UTC()
	point := DataPoint{
		ConnectorID:  b.cfg.ID,
		TagID:        m.ID,
		Name:         m.Name,
		Value:        nil,
		DataType:     m.DataType,
		Quality:      QualityBad,
		SourceTime:   now,
		ReceivedTime: now,
		Unit:         m.Unit,
	}
	if readErr != nil {
		point.Metadata = map[string]string{"error": readErr.Error()}
	}
	if m.SchemaID != "" {
		if point.Metadata == nil {
			point.Metadata = make(map[string]string, 1)
		}
		point.Metadata["schema_id"] = m.SchemaID
	}
	return point
}

// NewGoodPoint builds a Good-quality point for a decoded value.
func (b *Base) NewGoodPoint(m PointMapping, value any, sourceTime time.Time) DataPoint {
	point := DataPoint{
		ConnectorID:  b.cfg.ID,
		TagID:        m.ID,
		Name:         m.Name,
		Value:        value,
		DataType:     m.DataType,
		Quality:      QualityGood,
		SourceTime:   sourceTime,
		ReceivedTime: time.Now().UTC(),
		Unit:         m.Unit,
	}
	if m.SchemaID != "" {
		point.Metadata = map[string]string{"schema_id": m.SchemaID}
	}
	return point
}

// defaultStatusMessage maps a status to a human-readable summary for
// health snapshots that carry no explicit message.
func defaultStatusMessage(status ConnectionStatus) string {
	switch status {
	case StatusConnected:
		return "connected"
	case StatusConnecting:
		return "connecting"
	case StatusReconnecting:
		return "reconnecting"
	case StatusError:
		return "connector in error state"
	default:
		return "disconnected"
	}
}

// logInfo logs an info message if a logger is set.
func (b *Base) logInfo(msg string, args ...any) {
	if b.logger != nil {
		args = append(args, "connector_id", b.cfg.ID)
		b.logger.Info(msg, args...)
	}
}

// logWarn logs a warning if a logger is set.
func (b *Base) logWarn(msg string, args ...any) {
	if b.logger != nil {
		args = append(args, "connector_id", b.cfg.ID)
		b.logger.Warn(msg, args...)
	}
}
