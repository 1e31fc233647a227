package bacnet

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/alaininaustralia-ux/Sensormine-Platform-v5-sub006/internal/connector"
)

// Defaults applied when the parameter block omits them.
const (
	defaultDiscoveryWindow = 5 * time.Second
	defaultRequestTimeout  = 3 * time.Second
	defaultCOVLifetime     = 300
)

// Connector polls BACnet/IP objects for their Present_Value over a UDP
// endpoint it exclusively owns. A static target address bypasses
// discovery; otherwise reads resolve the peer through the device
// directory populated by Who-Is/I-Am discovery during Connect.
type Connector struct {
	*connector.Base

	opts   connector.BACnetOptions
	poller *connector.Poller
	subs   *connector.SubscriptionSet

	// processID seeds COV subscriber process identifiers, unique per
	// subscription within this endpoint's lifetime.
	processID atomic.Uint32

	mu     sync.Mutex
	client *client
	target *net.UDPAddr
}

// New constructs a BACnet/IP connector for a validated configuration.
// Construction is pure: the UDP endpoint is not bound until Connect.
// Mapping object types are resolved eagerly so a typo fails at
// configuration time, not mid-poll.
func New(cfg *connector.Config, logger connector.Logger) (connector.Connector, error) {
	var opts connector.BACnetOptions
	if err := cfg.DecodeParams(&opts); err != nil {
		return nil, err
	}

	for _, m := range cfg.Mappings {
		if _, err := objectType(m.ObjectType); err != nil {
			return nil, fmt.Errorf("mapping %q: %w", m.ID, err)
		}
	}

	if opts.DiscoveryWindowMs <= 0 {
		opts.DiscoveryWindowMs = int(defaultDiscoveryWindow / time.Millisecond)
	}
	if opts.RequestTimeoutMs <= 0 {
		opts.RequestTimeoutMs = int(defaultRequestTimeout / time.Millisecond)
	}
	if opts.COVLifetimeSeconds == 0 {
		opts.COVLifetimeSeconds = defaultCOVLifetime
	}

	c := &Connector{
		Base: connector.NewBase(cfg, logger),
		opts: opts,
		subs: connector.NewSubscriptionSet(),
	}
	c.poller = connector.NewPoller(c.Base, cfg.PollInterval(), c.pollOnce)
	return c, nil
}

// Connect binds the UDP endpoint, starts the receive loop, and resolves
// the peer: either the statically configured target address or the
// device directory filled by one discovery pass.
func (c *Connector) Connect(ctx context.Context) error {
	c.SetStatus(connector.StatusConnecting)

	cl, err := listen(c.opts.LocalAddress, c.Logger())
	if err != nil {
		c.SetError(err.Error())
		return err
	}

	var target *net.UDPAddr
	if c.opts.TargetAddress != "" {
		port := c.opts.TargetPort
		if port == 0 {
			port = defaultPort
		}
		target, err = net.ResolveUDPAddr("udp4", fmt.Sprintf("%s:%d", c.opts.TargetAddress, port))
		if err != nil {
			_ = cl.close()
			c.SetError(err.Error())
			return fmt.Errorf("%w: resolve target: %w", connector.ErrConnectionFailed, err)
		}
	} else {
		devices, err := cl.discover(ctx, c.opts.BroadcastAddress, c.discoveryWindow())
		if err != nil {
			_ = cl.close()
			c.SetError(err.Error())
			return err
		}
		c.logInfo("discovery window closed", "devices", len(devices))
	}

	c.mu.Lock()
	c.client = cl
	c.target = target
	c.mu.Unlock()

	c.SetStatus(connector.StatusConnected)
	return nil
}

// Disconnect releases the UDP endpoint and clears the resolved peer.
func (c *Connector) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	cl := c.client
	c.client = nil
	c.target = nil
	c.mu.Unlock()

	var err error
	if cl != nil {
		err = cl.close()
	}

	c.SetStatus(connector.StatusDisconnected)
	return err
}

// Start launches the Present_Value poll loop.
func (c *Connector) Start(ctx context.Context) error {
	return c.poller.StartPolling(ctx)
}

// Stop halts the poll loop within the framework's stop bound.
func (c *Connector) Stop() error {
	return c.poller.StopPolling()
}

// Close stops polling, releases the endpoint, and closes the event
// channel. Idempotent.
func (c *Connector) Close() error {
	_ = c.poller.StopPolling()
	err := c.Disconnect(context.Background())
	c.subs.Clear()
	c.CloseEvents()
	return err
}

// Discover triggers an on-demand Who-Is pass and returns the announced
// device instances.
func (c *Connector) Discover(ctx context.Context) ([]uint32, error) {
	cl, err := c.endpoint()
	if err != nil {
		return nil, err
	}

	devices, err := cl.discover(ctx, c.opts.BroadcastAddress, c.discoveryWindow())
	if err != nil {
		return nil, err
	}

	instances := make([]uint32, 0, len(devices))
	for _, d := range devices {
		instances = append(instances, d.Instance)
	}
	return instances, nil
}

// Subscribe issues a fire-and-forget SubscribeCOV request for one
// mapping and records the subscription. No renewal is scheduled; the
// subscription lapses when its lifetime expires on the device.
func (c *Connector) Subscribe(ctx context.Context, m connector.PointMapping) (connector.Subscription, error) {
	cl, err := c.endpoint()
	if err != nil {
		return connector.Subscription{}, err
	}

	objType, err := objectType(m.ObjectType)
	if err != nil {
		return connector.Subscription{}, err
	}

	target, err := c.resolveTarget(cl)
	if err != nil {
		return connector.Subscription{}, err
	}

	processID := c.processID.Add(1)
	if err := cl.subscribeCOV(target, processID, objType, m.Address, c.opts.COVLifetimeSeconds, c.opts.COVIncrement); err != nil {
		c.RecordFailure(err.Error())
		return connector.Subscription{}, err
	}

	sub := connector.Subscription{
		ID:    uuid.NewString(),
		TagID: m.ID,
	}
	c.subs.Add(sub)

	c.logInfo("COV subscription sent",
		"tag_id", m.ID, "object", m.ObjectType, "instance", m.Address,
		"lifetime_s", c.opts.COVLifetimeSeconds)
	return sub, nil
}

// Unsubscribe drops the local bookkeeping entry. No cancellation is
// sent; the device-side subscription lapses at its lifetime.
func (c *Connector) Unsubscribe(id string) {
	c.subs.Remove(id)
}

// Subscriptions returns the active subscription records.
func (c *Connector) Subscriptions() []connector.Subscription {
	return c.subs.List()
}

// pollOnce reads every mapping's Present_Value. Per-mapping timeouts,
// parse failures, and unresolved devices degrade to Bad-quality points.
func (c *Connector) pollOnce(ctx context.Context) ([]connector.DataPoint, error) {
	cl, err := c.endpoint()
	if err != nil {
		return nil, err
	}

	target, targetErr := c.resolveTarget(cl)

	mappings := c.Config().Mappings
	points := make([]connector.DataPoint, 0, len(mappings))

	for _, m := range mappings {
		if ctx.Err() != nil {
			return points, ctx.Err()
		}

		if targetErr != nil {
			c.RecordFailure(targetErr.Error())
			points = append(points, c.NewBadPoint(m, targetErr))
			continue
		}

		point, err := c.readMapping(ctx, cl, target, m)
		if err != nil {
			c.RecordFailure(err.Error())
			points = append(points, c.NewBadPoint(m, err))
			continue
		}
		points = append(points, point)
	}

	return points, nil
}

func (c *Connector) readMapping(ctx context.Context, cl *client, target *net.UDPAddr, m connector.PointMapping) (connector.DataPoint, error) {
	objType, err := objectType(m.ObjectType)
	if err != nil {
		return connector.DataPoint{}, err
	}

	value, err := cl.readProperty(ctx, target, objType, m.Address, propPresentValue, c.requestTimeout())
	if err != nil {
		return connector.DataPoint{}, err
	}

	readAt := time.Now().UTC()
	switch v := value.(type) {
	case float64:
		return c.NewGoodPoint(m, m.Transform(v), readAt), nil
	case bool, string:
		return c.NewGoodPoint(m, v, readAt), nil
	case nil:
		return connector.DataPoint{}, fmt.Errorf("%w: object %s:%d returned null",
			connector.ErrReadFailed, m.ObjectType, m.Address)
	default:
		return connector.DataPoint{}, fmt.Errorf("%w: unsupported value type %T",
			connector.ErrReadFailed, value)
	}
}

// resolveTarget returns the static target address or the discovered
// address of the configured device instance. Failing both is an
// immediate error so reads never hang waiting for a peer that was
// never seen.
func (c *Connector) resolveTarget(cl *client) (*net.UDPAddr, error) {
	c.mu.Lock()
	target := c.target
	c.mu.Unlock()

	if target != nil {
		return target, nil
	}

	if addr, ok := cl.lookup(c.opts.DeviceInstance); ok {
		return addr, nil
	}
	return nil, fmt.Errorf("%w: instance %d (not configured and not discovered)",
		ErrDeviceNotFound, c.opts.DeviceInstance)
}

// endpoint returns the live UDP client or ErrNotConnected.
func (c *Connector) endpoint() (*client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return nil, connector.ErrNotConnected
	}
	return c.client, nil
}

func (c *Connector) discoveryWindow() time.Duration {
	return time.Duration(c.opts.DiscoveryWindowMs) * time.Millisecond
}

func (c *Connector) logInfo(msg string, args ...any) {
	if log := c.Logger(); log != nil {
		args = append(args, "connector_id", c.ID())
		log.Info(msg, args...)
	}
}

func (c *Connector) requestTimeout() time.Duration {
	return time.Duration(c.opts.RequestTimeoutMs) * time.Millisecond
}
