// Package network defines the boundary between the controller and the
// actual AVB/TSN segment (spec section 6's "Network Collaborator"). The
// controller never touches a socket directly; it calls Collaborator.Send
// and reads frames off the channel Collaborator.Frames returns. Two
// implementations are provided: Loopback, an in-memory collaborator for
// tests and same-process simulation, and UDPMulticast, a development
// harness that tunnels AVTP payloads over UDP multicast rather than a raw
// Ethernet socket (no pcap/AF_PACKET library appears anywhere in the
// example pack; see DESIGN.md).
package network

import "context"

// Frame is a raw Ethernet II frame carrying one AVTPDU, as produced or
// consumed by internal/wire's ParseEthernetFrame/SerializeEthernetFrame.
type Frame struct {
	Data []byte
}

// Collaborator is the controller's only way to exchange Ethernet frames
// with the outside world. Implementations must be safe to call Send from
// the event loop goroutine and must deliver received frames on Frames'
// channel without blocking the sender (spec section 6).
type Collaborator interface {
	// Send transmits a raw Ethernet frame. dst/src are the addresses
	// already baked into frame by the caller.
	Send(ctx context.Context, frame []byte) error

	// Frames returns the channel of frames received from the segment.
	// The channel is closed when the collaborator is stopped.
	Frames() <-chan Frame

	// LocalMAC returns this collaborator's own MAC address, used by the
	// controller to populate the source address of frames it sends.
	LocalMAC() [6]byte

	// Close stops the collaborator and releases its resources.
	Close() error
}
