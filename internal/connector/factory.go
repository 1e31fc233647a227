package connector

import (
	"fmt"
	"sync"
)

// Builder constructs a connector bound to one validated configuration.
// Construction must be pure: no transport is opened until Connect.
type Builder func(cfg *Config, logger Logger) (Connector, error)

// Factory maps protocol tags to connector constructors. Protocol
// dispatch is a plain table lookup; there is no reflection-based type
// discrimination.
//
// Thread Safety: Register and New are safe for concurrent use, though
// registration normally happens once at startup.
type Factory struct {
	mu       sync.RWMutex
	builders map[Protocol]Builder
}

// NewFactory creates an empty factory. Protocol packages register their
// builders against it at startup.
func NewFactory() *Factory {
	return &Factory{
		builders: make(map[Protocol]Builder),
	}
}

// Register binds a builder to a protocol tag, replacing any prior binding.
func (f *Factory) Register(protocol Protocol, builder Builder) {
	f.mu.Lock()
	f.builders[protocol] = builder
	f.mu.Unlock()
}

// Supports reports whether a builder is registered for the protocol.
func (f *Factory) Supports(protocol Protocol) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.builders[protocol]
	return ok
}

// Protocols returns the registered protocol tags.
func (f *Factory) Protocols() []Protocol {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]Protocol, 0, len(f.builders))
	for p := range f.builders {
		out = append(out, p)
	}
	return out
}

// New validates protocol support and constructs the concrete connector
// for the configuration. Construction failures (ErrInvalidConfig,
// ErrUnsupportedProtocol) surface to the caller; the connector never
// reaches the manager's live set.
func (f *Factory) New(cfg *Config, logger Logger) (Connector, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil configuration", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	f.mu.RLock()
	builder, ok := f.builders[cfg.Protocol]
	f.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProtocol, cfg.Protocol)
	}

	return builder(cfg, logger)
}
