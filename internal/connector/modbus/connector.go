package modbus

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/goburrow/modbus"

	"github.com/alaininaustralia-ux/Sensormine-Platform-v5-sub006/internal/connector"
)

// Serial line defaults applied when the RTU parameter block omits them.
const (
	defaultTCPPort  = 502
	defaultBaudRate = 19200
	defaultDataBits = 8
	defaultParity   = "N"
	defaultStopBits = 1
)

// regClient is the register-level surface of goburrow's modbus.Client
// used by the connector. Narrowed for test doubles.
type regClient interface {
	ReadCoils(address, quantity uint16) ([]byte, error)
	ReadDiscreteInputs(address, quantity uint16) ([]byte, error)
	ReadHoldingRegisters(address, quantity uint16) ([]byte, error)
	ReadInputRegisters(address, quantity uint16) ([]byte, error)
	WriteSingleRegister(address, value uint16) ([]byte, error)
	WriteSingleCoil(address, value uint16) ([]byte, error)
}

// transport is the connect/close surface of a goburrow client handler.
type transport interface {
	Connect() error
	Close() error
}

// Connector polls a Modbus TCP gateway or RTU serial line on a fixed
// interval and emits normalized data points for every configured
// mapping.
//
// Thread Safety: the underlying modbus handler serializes one request at
// a time; ioMu guards it so explicit writes can interleave with the poll
// loop.
type Connector struct {
	*connector.Base

	opts   connector.ModbusOptions
	poller *connector.Poller

	ioMu    sync.Mutex
	handler transport
	client  regClient
}

// New constructs a Modbus connector for a validated configuration.
// Construction is pure: the transport is built but not dialed until
// Connect. Registered against the factory for both the TCP and RTU
// protocol tags.
func New(cfg *connector.Config, logger connector.Logger) (connector.Connector, error) {
	var opts connector.ModbusOptions
	if err := cfg.DecodeParams(&opts); err != nil {
		return nil, err
	}

	// Modbus addresses a 16-bit register space; the mapping field is
	// wider because other protocols use it for object instances.
	for _, m := range cfg.Mappings {
		if m.Address > math.MaxUint16 {
			return nil, fmt.Errorf("%w: mapping %q address %d exceeds the modbus register space",
				connector.ErrInvalidConfig, m.ID, m.Address)
		}
	}

	c := &Connector{
		Base: connector.NewBase(cfg, logger),
		opts: opts,
	}

	switch cfg.Protocol {
	case connector.ProtocolModbusTCP:
		if opts.Host == "" {
			return nil, fmt.Errorf("%w: modbus-tcp requires params.host", connector.ErrInvalidConfig)
		}
		port := opts.Port
		if port == 0 {
			port = defaultTCPPort
		}
		h := modbus.NewTCPClientHandler(fmt.Sprintf("%s:%d", opts.Host, port))
		h.Timeout = cfg.ConnectTimeout()
		h.SlaveId = opts.UnitID
		c.handler = h
		c.client = modbus.NewClient(h)

	case connector.ProtocolModbusRTU:
		if opts.Device == "" {
			return nil, fmt.Errorf("%w: modbus-rtu requires params.device", connector.ErrInvalidConfig)
		}
		h := modbus.NewRTUClientHandler(opts.Device)
		h.BaudRate = intOrDefault(opts.BaudRate, defaultBaudRate)
		h.DataBits = intOrDefault(opts.DataBits, defaultDataBits)
		h.StopBits = intOrDefault(opts.StopBits, defaultStopBits)
		h.Parity = opts.Parity
		if h.Parity == "" {
			h.Parity = defaultParity
		}
		h.SlaveId = opts.UnitID
		h.Timeout = cfg.ConnectTimeout()
		c.handler = h
		c.client = modbus.NewClient(h)

	default:
		return nil, fmt.Errorf("%w: %q is not a modbus protocol", connector.ErrUnsupportedProtocol, cfg.Protocol)
	}

	c.poller = connector.NewPoller(c.Base, cfg.PollInterval(), c.pollOnce)
	return c, nil
}

// Connect dials the TCP gateway or opens the serial line.
func (c *Connector) Connect(ctx context.Context) error {
	c.SetStatus(connector.StatusConnecting)

	c.ioMu.Lock()
	err := c.handler.Connect()
	c.ioMu.Unlock()

	if err != nil {
		c.SetError(err.Error())
		return fmt.Errorf("%w: %w", connector.ErrConnectionFailed, err)
	}

	c.SetStatus(connector.StatusConnected)
	return nil
}

// Disconnect closes the transport. Safe to call when never connected.
func (c *Connector) Disconnect(ctx context.Context) error {
	c.ioMu.Lock()
	err := c.handler.Close()
	c.ioMu.Unlock()

	c.SetStatus(connector.StatusDisconnected)
	return err
}

// Start launches the poll loop.
func (c *Connector) Start(ctx context.Context) error {
	return c.poller.StartPolling(ctx)
}

// Stop halts the poll loop within the framework's stop bound.
func (c *Connector) Stop() error {
	return c.poller.StopPolling()
}

// Close stops polling, releases the transport, and closes the event
// channel. Idempotent.
func (c *Connector) Close() error {
	_ = c.poller.StopPolling()
	err := c.Disconnect(context.Background())
	c.CloseEvents()
	return err
}

// pollOnce reads every configured mapping. A mapping that fails to read
// degrades to a Bad-quality point inside the batch rather than aborting
// the cycle, so one unreadable register cannot blind the rest of the
// device.
func (c *Connector) pollOnce(ctx context.Context) ([]connector.DataPoint, error) {
	mappings := c.Config().Mappings
	points := make([]connector.DataPoint, 0, len(mappings))

	for _, m := range mappings {
		if ctx.Err() != nil {
			return points, ctx.Err()
		}

		point, err := c.readMapping(m)
		if err != nil {
			c.RecordFailure(err.Error())
			points = append(points, c.NewBadPoint(m, err))
			continue
		}
		points = append(points, point)
	}

	return points, nil
}

// readMapping performs one register or bit read and normalizes the
// result.
func (c *Connector) readMapping(m connector.PointMapping) (connector.DataPoint, error) {
	address := uint16(m.Address)
	readAt := time.Now().UTC()

	c.ioMu.Lock()
	defer c.ioMu.Unlock()

	switch m.Register {
	case connector.RegisterCoil, connector.RegisterDiscreteInput:
		var data []byte
		var err error
		if m.Register == connector.RegisterCoil {
			data, err = c.client.ReadCoils(address, 1)
		} else {
			data, err = c.client.ReadDiscreteInputs(address, 1)
		}
		if err != nil {
			return connector.DataPoint{}, fmt.Errorf("%w: %s at %d: %w",
				connector.ErrReadFailed, m.Register, m.Address, err)
		}
		on, err := decodeBit(data)
		if err != nil {
			return connector.DataPoint{}, err
		}
		return c.NewGoodPoint(m, on, readAt), nil

	case connector.RegisterHolding, connector.RegisterInput:
		quantity := m.DataType.RegisterCount()
		var data []byte
		var err error
		if m.Register == connector.RegisterHolding {
			data, err = c.client.ReadHoldingRegisters(address, quantity)
		} else {
			data, err = c.client.ReadInputRegisters(address, quantity)
		}
		if err != nil {
			return connector.DataPoint{}, fmt.Errorf("%w: %s at %d: %w",
				connector.ErrReadFailed, m.Register, m.Address, err)
		}
		value, err := decodeRegisters(m, data)
		if err != nil {
			return connector.DataPoint{}, err
		}
		if m.DataType == connector.TypeBoolean {
			return c.NewGoodPoint(m, value != 0, readAt), nil
		}
		return c.NewGoodPoint(m, value, readAt), nil

	default:
		return connector.DataPoint{}, fmt.Errorf("%w: register kind %q",
			connector.ErrUnsupportedOperation, m.Register)
	}
}

// WriteRegister writes one holding register. The connector must be
// connected; the poll loop is excluded for the duration of the write.
func (c *Connector) WriteRegister(address uint16, value uint16) error {
	if !c.Connected() {
		return connector.ErrNotConnected
	}

	c.ioMu.Lock()
	_, err := c.client.WriteSingleRegister(address, value)
	c.ioMu.Unlock()

	if err != nil {
		c.RecordFailure(err.Error())
		return fmt.Errorf("%w: register %d: %w", connector.ErrWriteFailed, address, err)
	}
	return nil
}

// WriteCoil forces one coil on or off.
func (c *Connector) WriteCoil(address uint16, on bool) error {
	if !c.Connected() {
		return connector.ErrNotConnected
	}

	// Per the Modbus application protocol, FF00 forces a coil on and
	// 0000 forces it off.
	var value uint16
	if on {
		value = 0xFF00
	}

	c.ioMu.Lock()
	_, err := c.client.WriteSingleCoil(address, value)
	c.ioMu.Unlock()

	if err != nil {
		c.RecordFailure(err.Error())
		return fmt.Errorf("%w: coil %d: %w", connector.ErrWriteFailed, address, err)
	}
	return nil
}

func intOrDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
