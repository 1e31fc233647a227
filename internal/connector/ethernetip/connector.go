// Package ethernetip holds the EtherNet/IP connector placeholder. Like
// the OPC UA stub it satisfies the full lifecycle and health contract
// while reads fail with the unsupported-operation error.
package ethernetip

import (
	"context"
	"fmt"

	"github.com/alaininaustralia-ux/Sensormine-Platform-v5-sub006/internal/connector"
)

// Connector is the EtherNet/IP stub.
type Connector struct {
	*connector.Base

	opts connector.EtherNetIPOptions
}

// New constructs the stub, validating the PLC address up front.
func New(cfg *connector.Config, logger connector.Logger) (connector.Connector, error) {
	var opts connector.EtherNetIPOptions
	if err := cfg.DecodeParams(&opts); err != nil {
		return nil, err
	}
	if opts.Address == "" {
		return nil, fmt.Errorf("%w: ethernet-ip requires params.address", connector.ErrInvalidConfig)
	}

	return &Connector{
		Base: connector.NewBase(cfg, logger),
		opts: opts,
	}, nil
}

// Connect marks the connector connected without opening a session.
func (c *Connector) Connect(ctx context.Context) error {
	c.SetStatusMessage(connector.StatusConnected, "ethernet-ip stub: no session established")
	return nil
}

// Disconnect clears the connected status.
func (c *Connector) Disconnect(ctx context.Context) error {
	c.SetStatus(connector.StatusDisconnected)
	return nil
}

// Start reports that data production is not implemented.
func (c *Connector) Start(ctx context.Context) error {
	return fmt.Errorf("%w: ethernet-ip data acquisition", connector.ErrUnsupportedOperation)
}

// Stop is a no-op; nothing runs.
func (c *Connector) Stop() error {
	return nil
}

// Read reports that tag reads are not implemented.
func (c *Connector) Read(ctx context.Context, m connector.PointMapping) (connector.DataPoint, error) {
	return connector.DataPoint{}, fmt.Errorf("%w: ethernet-ip read", connector.ErrUnsupportedOperation)
}

// Close releases the event channel.
func (c *Connector) Close() error {
	c.SetStatus(connector.StatusDisconnected)
	c.CloseEvents()
	return nil
}
