// Package bacnet implements the BACnet/IP polling connector.
//
// One connector instance owns one UDP endpoint. Discovery broadcasts a
// Who-Is request and collects I-Am announcements into a device directory
// for a fixed window; property reads address either a statically
// configured target or a discovered device and fail immediately when
// neither is available.
//
// Confirmed services use genuine request/response correlation: each
// outgoing request is assigned an invoke id and parked in a pending
// table, and the background receive loop matches ComplexAck, SimpleAck,
// Error, Reject and Abort PDUs back to their waiters. A read that times
// out or fails to parse degrades to a Bad-quality point for that mapping
// only.
//
// Wire scope is deliberately narrow: BVLC original-unicast, original-
// broadcast and forwarded-NPDU framing, Who-Is/I-Am, ReadProperty of
// Present_Value, and fire-and-forget SubscribeCOV. Inbound COV
// notifications are accepted but not interpreted.
package bacnet
