package bacnet

import (
	"fmt"

	"github.com/alaininaustralia-ux/Sensormine-Platform-v5-sub006/internal/connector"
)

// Package-specific errors. Each wraps the framework taxonomy so callers
// can match either the broad class (connector.ErrReadFailed) or the
// precise cause.
var (
	// ErrDeviceNotFound means the target device is neither statically
	// configured nor present in the discovered-device directory.
	ErrDeviceNotFound = fmt.Errorf("%w: device not found", connector.ErrReadFailed)

	// ErrRequestTimeout means a confirmed-service request got no
	// correlated reply within the request timeout.
	ErrRequestTimeout = fmt.Errorf("%w: request timeout", connector.ErrReadFailed)

	// ErrInvalidFrame means an inbound datagram failed BVLC/NPDU/APDU
	// validation.
	ErrInvalidFrame = fmt.Errorf("%w: invalid frame", connector.ErrReadFailed)
)
