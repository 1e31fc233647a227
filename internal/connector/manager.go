package connector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// managerEventBuffer is the capacity of the manager's fan-in channel.
const managerEventBuffer = 256

// Manager owns the live set of connector instances keyed by configuration
// ID. It consumes every owned connector's data-received channel and
// re-publishes onto a single manager-level channel, so downstream
// consumers need one subscription regardless of connector count.
//
// Thread Safety: all methods are safe for concurrent use.
type Manager struct {
	factory *Factory
	logger  Logger

	mu         sync.RWMutex
	connectors map[string]Connector
	closed     bool

	events        chan DataReceived
	eventsDropped uint64
	wg            sync.WaitGroup
	closeOnce     sync.Once
}

// NewManager creates a manager that builds connectors through the given
// factory. The logger may be nil.
func NewManager(factory *Factory, logger Logger) *Manager {
	return &Manager{
		factory:    factory,
		logger:     logger,
		connectors: make(map[string]Connector),
		events:     make(chan DataReceived, managerEventBuffer),
	}
}

// Events returns the manager-level data-received channel. It closes when
// the manager is disposed via Close.
func (m *Manager) Events() <-chan DataReceived {
	return m.events
}

// Add constructs a connector from the configuration and takes ownership.
// Exactly one live instance exists per configuration ID: adding a
// duplicate ID returns ErrAlreadyExists.
//
// The connector is constructed but neither connected nor started; call
// StartAll or drive the instance explicitly.
func (m *Manager) Add(cfg *Config) (Connector, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	if _, exists := m.connectors[cfg.ID]; exists {
		return nil, fmt.Errorf("%w: %q", ErrAlreadyExists, cfg.ID)
	}

	conn, err := m.factory.New(cfg, m.logger)
	if err != nil {
		return nil, err
	}

	m.connectors[cfg.ID] = conn
	m.wg.Add(1)
	go m.forward(conn)

	m.logInfo("connector added", "connector_id", cfg.ID, "protocol", string(cfg.Protocol))
	return conn, nil
}

// Update replaces a live connector with one built from the new
// configuration. Implemented as remove-then-recreate rather than live
// reconfiguration, deliberately avoiding partial-state mutation.
func (m *Manager) Update(ctx context.Context, cfg *Config) (Connector, error) {
	if err := m.Remove(ctx, cfg.ID); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return m.Add(cfg)
}

// Remove stops, disconnects, and disposes the connector with the given
// ID, releasing its transport.
func (m *Manager) Remove(ctx context.Context, id string) error {
	m.mu.Lock()
	conn, ok := m.connectors[id]
	if ok {
		delete(m.connectors, id)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	if err := conn.Stop(); err != nil {
		m.logWarn("stop failed during remove", "connector_id", id, "error", err.Error())
	}
	if err := conn.Disconnect(ctx); err != nil {
		m.logWarn("disconnect failed during remove", "connector_id", id, "error", err.Error())
	}
	if err := conn.Close(); err != nil {
		m.logWarn("close failed during remove", "connector_id", id, "error", err.Error())
	}

	m.logInfo("connector removed", "connector_id", id)
	return nil
}

// Get returns the live connector for a configuration ID.
func (m *Manager) Get(id string) (Connector, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conn, ok := m.connectors[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return conn, nil
}

// List returns a point-in-time copy of all live connectors.
func (m *Manager) List() []Connector {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Connector, 0, len(m.connectors))
	for _, c := range m.connectors {
		out = append(out, c)
	}
	return out
}

// GetByProtocol returns live connectors matching a protocol tag.
func (m *Manager) GetByProtocol(protocol Protocol) []Connector {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Connector
	for _, c := range m.connectors {
		if c.Protocol() == protocol {
			out = append(out, c)
		}
	}
	return out
}

// GetByTenant returns live connectors owned by a tenant.
func (m *Manager) GetByTenant(tenantID string) []Connector {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Connector
	for _, c := range m.connectors {
		if c.TenantID() == tenantID {
			out = append(out, c)
		}
	}
	return out
}

// StartAll connects and starts every owned connector. Individual
// failures are collected and joined; one failing connector does not
// prevent the rest from starting.
func (m *Manager) StartAll(ctx context.Context) error {
	var errs []error
	for _, conn := range m.List() {
		if err := conn.Connect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("connect %s: %w", conn.ID(), err))
			continue
		}
		if err := conn.Start(ctx); err != nil {
			errs = append(errs, fmt.Errorf("start %s: %w", conn.ID(), err))
		}
	}
	return errors.Join(errs...)
}

// StopAll stops and disconnects every owned connector, tolerating
// individual failures so one misbehaving connector cannot block teardown
// of the rest.
func (m *Manager) StopAll(ctx context.Context) error {
	var errs []error
	for _, conn := range m.List() {
		if err := conn.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", conn.ID(), err))
		}
		if err := conn.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("disconnect %s: %w", conn.ID(), err))
		}
	}
	return errors.Join(errs...)
}

// HealthAll returns a point-in-time health snapshot per connector ID for
// the operational-monitoring collaborator.
func (m *Manager) HealthAll() map[string]HealthSnapshot {
	connectors := m.List()
	out := make(map[string]HealthSnapshot, len(connectors))
	for _, c := range connectors {
		out[c.ID()] = c.Health()
	}
	return out
}

// Close disposes the manager: stops and disconnects every connector,
// tolerating individual failures, then closes the manager event channel
// once all forwarders have drained.
func (m *Manager) Close(ctx context.Context) error {
	var errs []error

	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		ids := make([]string, 0, len(m.connectors))
		for id := range m.connectors {
			ids = append(ids, id)
		}
		m.mu.Unlock()

		for _, id := range ids {
			if err := m.Remove(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
				errs = append(errs, err)
			}
		}

		// All connectors are closed, so their event channels are closed
		// and every forwarder exits.
		m.wg.Wait()
		close(m.events)

		m.logInfo("manager closed")
	})

	return errors.Join(errs...)
}

// forward drains one connector's event channel into the manager channel.
// It exits when the connector's channel closes on dispose.
func (m *Manager) forward(conn Connector) {
	defer m.wg.Done()

	for event := range conn.Events() {
		m.publish(event)
	}
}

// publish re-publishes an event without blocking. When the fan-in
// channel is full the oldest pending event is dropped so a slow
// downstream subscriber cannot stall connector poll loops indefinitely.
func (m *Manager) publish(event DataReceived) {
	select {
	case m.events <- event:
		return
	default:
	}

	select {
	case <-m.events:
		m.mu.Lock()
		m.eventsDropped++
		m.mu.Unlock()
	default:
	}

	select {
	case m.events <- event:
	default:
	}
}

// EventsDropped returns how many events the manager has discarded due to
// a full fan-in channel.
func (m *Manager) EventsDropped() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.eventsDropped
}

// WaitForDrain blocks until the fan-in channel is empty or the timeout
// elapses. Intended for tests and graceful shutdown.
func (m *Manager) WaitForDrain(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if len(m.events) == 0 {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return len(m.events) == 0
}

// logInfo logs at info level if a logger is set.
func (m *Manager) logInfo(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Info(msg, args...)
	}
}

// logWarn logs a warning if a logger is set.
func (m *Manager) logWarn(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Warn(msg, args...)
	}
}
