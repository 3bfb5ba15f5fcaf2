package network

import (
	"context"
	"sync"
)

// Loopback is an in-memory Collaborator used by tests and by peer
// Loopback instances wired together to simulate a segment without real
// sockets. Sent frames are delivered to every peer's Frames channel
// except the sender's own.
type Loopback struct {
	mac   [6]byte
	frame chan Frame

	mu    sync.Mutex
	peers []*Loopback
	closed bool
}

// NewLoopback creates an unconnected Loopback collaborator with the given
// MAC and a frame channel of the given capacity.
func NewLoopback(mac [6]byte, capacity int) *Loopback {
	return &Loopback{mac: mac, frame: make(chan Frame, capacity)}
}

// Connect wires two Loopback collaborators together bidirectionally, as if
// they shared a segment.
func Connect(a, b *Loopback) {
	a.mu.Lock()
	a.peers = append(a.peers, b)
	a.mu.Unlock()

	b.mu.Lock()
	b.peers = append(b.peers, a)
	b.mu.Unlock()
}

func (l *Loopback) LocalMAC() [6]byte { return l.mac }

func (l *Loopback) Frames() <-chan Frame { return l.frame }

func (l *Loopback) Send(ctx context.Context, data []byte) error {
	l.mu.Lock()
	peers := append([]*Loopback(nil), l.peers...)
	l.mu.Unlock()

	cp := make([]byte, len(data))
	copy(cp, data)

	for _, p := range peers {
		select {
		case p.frame <- Frame{Data: cp}:
		case <-ctx.Done():
			return ctx.Err()
		default:
			// Peer's inbound queue is full; drop, matching a real
			// segment's behavior under loss.
		}
	}
	return nil
}

func (l *Loopback) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	close(l.frame)
	return nil
}
