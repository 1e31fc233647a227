// Package opcua holds the OPC UA connector placeholder. It participates
// fully in the lifecycle and health contract but has no wire
// implementation yet; reads fail with the unsupported-operation error so
// callers can distinguish "not implemented" from "broken".
package opcua

import (
	"context"
	"fmt"

	"github.com/alaininaustralia-ux/Sensormine-Platform-v5-sub006/internal/connector"
)

// Connector is the OPC UA stub.
type Connector struct {
	*connector.Base

	opts connector.OPCUAOptions
}

// New constructs the stub. The endpoint URL is validated so broken
// configurations surface at creation time even before the protocol is
// implemented.
func New(cfg *connector.Config, logger connector.Logger) (connector.Connector, error) {
	var opts connector.OPCUAOptions
	if err := cfg.DecodeParams(&opts); err != nil {
		return nil, err
	}
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("%w: opc-ua requires params.endpoint", connector.ErrInvalidConfig)
	}

	return &Connector{
		Base: connector.NewBase(cfg, logger),
		opts: opts,
	}, nil
}

// Connect marks the connector connected without opening a session.
func (c *Connector) Connect(ctx context.Context) error {
	c.SetStatusMessage(connector.StatusConnected, "opc-ua stub: no session established")
	return nil
}

// Disconnect clears the connected status.
func (c *Connector) Disconnect(ctx context.Context) error {
	c.SetStatus(connector.StatusDisconnected)
	return nil
}

// Start reports that data production is not implemented.
func (c *Connector) Start(ctx context.Context) error {
	return fmt.Errorf("%w: opc-ua data acquisition", connector.ErrUnsupportedOperation)
}

// Stop is a no-op; nothing runs.
func (c *Connector) Stop() error {
	return nil
}

// Read reports that property reads are not implemented.
func (c *Connector) Read(ctx context.Context, m connector.PointMapping) (connector.DataPoint, error) {
	return connector.DataPoint{}, fmt.Errorf("%w: opc-ua read", connector.ErrUnsupportedOperation)
}

// Close releases the event channel.
func (c *Connector) Close() error {
	c.SetStatus(connector.StatusDisconnected)
	c.CloseEvents()
	return nil
}
