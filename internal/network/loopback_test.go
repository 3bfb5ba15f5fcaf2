package network

import (
	"context"
	"testing"
	"time"
)

func TestLoopbackDeliversToConnectedPeer(t *testing.T) {
	a := NewLoopback([6]byte{1}, 4)
	b := NewLoopback([6]byte{2}, 4)
	Connect(a, b)

	if err := a.Send(context.Background(), []byte{0xAA}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case f := <-b.Frames():
		if len(f.Data) != 1 || f.Data[0] != 0xAA {
			t.Fatalf("got frame %v, want [0xAA]", f.Data)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame on peer")
	}
}

func TestLoopbackDoesNotEchoToSender(t *testing.T) {
	a := NewLoopback([6]byte{1}, 4)
	b := NewLoopback([6]byte{2}, 4)
	Connect(a, b)

	if err := a.Send(context.Background(), []byte{0xAA}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	select {
	case <-a.Frames():
		t.Fatal("sender should not receive its own frame")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestLoopbackCloseClosesFrameChannel(t *testing.T) {
	a := NewLoopback([6]byte{1}, 1)
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, ok := <-a.Frames(); ok {
		t.Fatal("expected closed Frames channel after Close")
	}
}
