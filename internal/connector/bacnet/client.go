package bacnet

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/alaininaustralia-ux/Sensormine-Platform-v5-sub006/internal/connector"
)

// readBufferSize fits any single BACnet/IP datagram (max APDU 1476 plus
// framing).
const readBufferSize = 1500

// device is one directory entry recorded from an I-Am announcement.
type device struct {
	Instance uint32
	Addr     *net.UDPAddr
	SeenAt   time.Time
}

// client owns the BACnet/IP UDP endpoint: it sends Who-Is broadcasts and
// confirmed requests, and runs one background receive loop that feeds
// the device directory and the pending-request table.
//
// Thread Safety: the directory and pending table are lock-guarded; the
// directory is written only by the receive loop but read from the
// request path.
type client struct {
	conn   *net.UDPConn
	logger connector.Logger

	// Pending confirmed requests keyed by invoke id. The receive loop
	// delivers exactly one reply per entry.
	pendingMu  sync.Mutex
	pending    map[byte]chan apduReply
	nextInvoke byte

	devMu   sync.RWMutex
	devices map[uint32]device

	done *closeOnce
	wg   sync.WaitGroup
}

// closeOnce wraps a channel with sync.Once to prevent double-close panics.
type closeOnce struct {
	ch   chan struct{}
	once sync.Once
}

func newCloseOnce() *closeOnce {
	return &closeOnce{ch: make(chan struct{})}
}

func (c *closeOnce) Close() {
	c.once.Do(func() { close(c.ch) })
}

func (c *closeOnce) Done() <-chan struct{} {
	return c.ch
}

// listen binds the local UDP endpoint and starts the receive loop.
func listen(localAddress string, logger connector.Logger) (*client, error) {
	if localAddress == "" {
		localAddress = fmt.Sprintf(":%d", defaultPort)
	}
	addr, err := net.ResolveUDPAddr("udp4", localAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve %q: %w", connector.ErrConnectionFailed, localAddress, err)
	}
	conn, err := net.ListenUDP("udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", connector.ErrConnectionFailed, err)
	}

	c := &client{
		conn:    conn,
		logger:  logger,
		pending: make(map[byte]chan apduReply),
		devices: make(map[uint32]device),
		done:    newCloseOnce(),
	}

	c.wg.Add(1)
	go c.receiveLoop()

	return c, nil
}

// close releases the endpoint and waits for the receive loop to exit.
func (c *client) close() error {
	c.done.Close()
	err := c.conn.Close()
	c.wg.Wait()

	// Fail any requests still waiting so callers do not ride out their
	// full timeout against a dead endpoint.
	c.pendingMu.Lock()
	for id, ch := range c.pending {
		select {
		case ch <- apduReply{invokeID: id, err: connector.ErrClosed}:
		default:
		}
		delete(c.pending, id)
	}
	c.pendingMu.Unlock()

	return err
}

// receiveLoop reads datagrams until the socket closes, dispatching I-Am
// announcements to the directory and confirmed-service replies to the
// pending table. Unknown or unparseable frames are dropped with a debug
// log; a bad peer must not kill the loop.
func (c *client) receiveLoop() {
	defer c.wg.Done()

	buf := make([]byte, readBufferSize)
	for {
		n, src, err := c.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-c.done.Done():
			default:
				c.logDebug("receive loop ending", "error", err.Error())
			}
			return
		}

		c.handleDatagram(buf[:n], src)
	}
}

func (c *client) handleDatagram(data []byte, src *net.UDPAddr) {
	apdu, err := decodeFrame(data)
	if err != nil {
		c.logDebug("dropping malformed frame", "source", src.String(), "error", err.Error())
		return
	}
	if len(apdu) < 2 {
		return
	}

	switch apdu[0] & 0xF0 {
	case pduUnconfirmedRequest:
		switch apdu[1] {
		case serviceUnconfirmedIAm:
			c.recordIAm(apdu, src)
		case serviceUnconfirmedCOV:
			// COV notifications are accepted but not interpreted; the
			// subscription contract is fire-and-forget.
			c.logDebug("COV notification received", "source", src.String())
		}

	default:
		if reply, ok := decodeReply(apdu); ok {
			c.deliver(reply)
		}
	}
}

func (c *client) recordIAm(apdu []byte, src *net.UDPAddr) {
	instance, err := decodeIAm(apdu)
	if err != nil {
		c.logDebug("dropping I-Am", "source", src.String(), "error", err.Error())
		return
	}

	c.devMu.Lock()
	c.devices[instance] = device{Instance: instance, Addr: src, SeenAt: time.Now().UTC()}
	c.devMu.Unlock()

	c.logDebug("device announced", "instance", instance, "address", src.String())
}

// deliver hands a reply to its waiting request, if any. Replies for
// unknown invoke ids (late arrivals after timeout) are dropped.
func (c *client) deliver(reply apduReply) {
	c.pendingMu.Lock()
	ch, ok := c.pending[reply.invokeID]
	if ok {
		delete(c.pending, reply.invokeID)
	}
	c.pendingMu.Unlock()

	if ok {
		ch <- reply
	}
}

// discover broadcasts a Who-Is request and collects I-Am replies for the
// given window, then returns a snapshot of the directory. An empty
// window with no replies yields an empty snapshot, not an error.
func (c *client) discover(ctx context.Context, broadcastAddress string, window time.Duration) ([]device, error) {
	if broadcastAddress == "" {
		broadcastAddress = fmt.Sprintf("255.255.255.255:%d", defaultPort)
	}
	addr, err := net.ResolveUDPAddr("udp4", broadcastAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve broadcast %q: %w", connector.ErrConnectionFailed, broadcastAddress, err)
	}

	frame := encodeFrame(bvlcOriginalBroadcast, false, encodeWhoIs())
	if _, err := c.conn.WriteToUDP(frame, addr); err != nil {
		return nil, fmt.Errorf("%w: send Who-Is: %w", connector.ErrConnectionFailed, err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done.Done():
		return nil, connector.ErrClosed
	case <-time.After(window):
	}

	return c.snapshot(), nil
}

// snapshot returns a copy of the device directory.
func (c *client) snapshot() []device {
	c.devMu.RLock()
	defer c.devMu.RUnlock()

	out := make([]device, 0, len(c.devices))
	for _, d := range c.devices {
		out = append(out, d)
	}
	return out
}

// lookup returns a discovered device's address by instance.
func (c *client) lookup(instance uint32) (*net.UDPAddr, bool) {
	c.devMu.RLock()
	defer c.devMu.RUnlock()

	d, ok := c.devices[instance]
	if !ok {
		return nil, false
	}
	return d.Addr, true
}

// readProperty sends a confirmed ReadProperty request and blocks until
// the correlated reply arrives, the timeout elapses, or the context is
// cancelled. Timeouts surface as wrapped ErrReadFailed so the mapping
// degrades to a Bad-quality point.
func (c *client) readProperty(ctx context.Context, target *net.UDPAddr, objType uint16, instance uint32, property byte, timeout time.Duration) (any, error) {
	invokeID, ch := c.register()
	defer c.unregister(invokeID)

	apdu := encodeReadProperty(invokeID, objType, instance, property)
	frame := encodeFrame(bvlcOriginalUnicast, true, apdu)

	if _, err := c.conn.WriteToUDP(frame, target); err != nil {
		return nil, fmt.Errorf("%w: send ReadProperty: %w", connector.ErrReadFailed, err)
	}

	select {
	case reply := <-ch:
		if reply.err != nil {
			return nil, reply.err
		}
		return reply.value, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("%w: ReadProperty after %s for object %d:%d",
			ErrRequestTimeout, timeout, objType, instance)
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done.Done():
		return nil, connector.ErrClosed
	}
}

// subscribeCOV sends a fire-and-forget SubscribeCOV request. The
// invoke id is registered so a SimpleAck is consumed rather than
// logged as stray, but the caller does not wait for it.
func (c *client) subscribeCOV(target *net.UDPAddr, processID uint32, objType uint16, instance, lifetime uint32, increment float64) error {
	invokeID, _ := c.register()

	apdu := encodeSubscribeCOV(invokeID, processID, objType, instance, lifetime, increment)
	frame := encodeFrame(bvlcOriginalUnicast, true, apdu)

	if _, err := c.conn.WriteToUDP(frame, target); err != nil {
		c.unregister(invokeID)
		return fmt.Errorf("%w: send SubscribeCOV: %w", connector.ErrWriteFailed, err)
	}

	// Drop the ack in the background so the table entry does not leak.
	go func() {
		select {
		case <-time.After(stalePendingTimeout):
			c.unregister(invokeID)
		case <-c.done.Done():
		}
	}()

	return nil
}

// stalePendingTimeout bounds how long a fire-and-forget entry stays in
// the pending table.
const stalePendingTimeout = 30 * time.Second

// register allocates the next invoke id and its reply channel. Invoke
// ids wrap at 256; with the table bounded by in-flight requests a
// collision would require 256 simultaneous requests.
func (c *client) register() (byte, chan apduReply) {
	ch := make(chan apduReply, 1)

	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()

	id := c.nextInvoke
	for {
		if _, inUse := c.pending[id]; !inUse {
			break
		}
		id++
	}
	c.nextInvoke = id + 1
	c.pending[id] = ch
	return id, ch
}

func (c *client) unregister(id byte) {
	c.pendingMu.Lock()
	delete(c.pending, id)
	c.pendingMu.Unlock()
}

func (c *client) logDebug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
