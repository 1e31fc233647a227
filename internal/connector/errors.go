package connector

import "errors"

// Domain errors for the connector framework.
//
// Propagation policy:
//   - Construction- and connect-time errors surface to the caller.
//   - Steady-state read errors are absorbed per mapping: they become
//     Bad-quality points and health counter increments, never aborts.
var (
	// ErrNotConnected is returned when an operation requires an open
	// transport but the connector is not connected.
	ErrNotConnected = errors.New("connector: not connected")

	// ErrConnectionFailed is returned when the transport fails at
	// connect time. Fails fast and sets Error status.
	ErrConnectionFailed = errors.New("connector: connection failed")

	// ErrReadFailed is returned for a single-mapping decode or I/O
	// failure. Degrades to one Bad-quality point.
	ErrReadFailed = errors.New("connector: read failed")

	// ErrWriteFailed is returned when a direct write operation fails.
	ErrWriteFailed = errors.New("connector: write failed")

	// ErrUnsupportedOperation is returned for an unknown register or
	// object kind. Same degrade-to-Bad policy as ErrReadFailed.
	ErrUnsupportedOperation = errors.New("connector: unsupported operation")

	// ErrShutdownTimeout is returned when a stop operation exceeded its
	// bound. Logged and non-fatal; resources are still released.
	ErrShutdownTimeout = errors.New("connector: shutdown timed out")

	// ErrInvalidConfig is returned for an invalid or incomplete
	// configuration at construction time. The connector never reaches
	// the manager's live set.
	ErrInvalidConfig = errors.New("connector: invalid configuration")

	// ErrUnsupportedProtocol is returned by the factory for a protocol
	// tag with no registered constructor.
	ErrUnsupportedProtocol = errors.New("connector: unsupported protocol")

	// ErrAlreadyExists is returned when adding a configuration whose ID
	// is already live in the manager.
	ErrAlreadyExists = errors.New("connector: connector already exists")

	// ErrNotFound is returned for lookups of unknown connector IDs.
	ErrNotFound = errors.New("connector: connector not found")

	// ErrClosed is returned for operations on a disposed manager.
	ErrClosed = errors.New("connector: manager closed")
)
