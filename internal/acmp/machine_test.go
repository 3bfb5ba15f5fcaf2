package acmp

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/vronchetti/avdecc-lib/internal/clock"
	"github.com/vronchetti/avdecc-lib/internal/wire"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSubmitAllocatesGlobalSequence(t *testing.T) {
	m := New(clock.NewManual(0), testLogger())
	p1 := m.Submit(Command{TargetEntityID: 1, MessageType: wire.ACMPConnectRXCommand, OnComplete: func(*wire.ACMPDU, error) {}})
	p2 := m.Submit(Command{TargetEntityID: 2, MessageType: wire.ACMPConnectRXCommand, OnComplete: func(*wire.ACMPDU, error) {}})
	if p1.SequenceID != 0 || p2.SequenceID != 1 {
		t.Fatalf("sequence ids = (%d, %d), want (0, 1)", p1.SequenceID, p2.SequenceID)
	}
}

func TestConcurrentCommandsToDifferentEntities(t *testing.T) {
	m := New(clock.NewManual(0), testLogger())
	m.Submit(Command{TargetEntityID: 1, MessageType: wire.ACMPConnectRXCommand, OnComplete: func(*wire.ACMPDU, error) {}})
	m.Submit(Command{TargetEntityID: 2, MessageType: wire.ACMPConnectRXCommand, OnComplete: func(*wire.ACMPDU, error) {}})
	if m.InFlightCount() != 2 {
		t.Fatalf("InFlightCount() = %d, want 2 (no per-destination serialization in ACMP)", m.InFlightCount())
	}
}

func TestHandleResponseCompletesMatchingSequence(t *testing.T) {
	m := New(clock.NewManual(0), testLogger())
	var got *wire.ACMPDU
	m.Submit(Command{TargetEntityID: 1, MessageType: wire.ACMPGetTXStateCommand, OnComplete: func(resp *wire.ACMPDU, err error) { got = resp }})

	m.HandleResponse(&wire.ACMPDU{SequenceID: 0, MessageType: wire.ACMPGetTXStateResponse, Status: wire.ACMPStatusSuccess})
	if got == nil || got.Status != wire.ACMPStatusSuccess {
		t.Fatalf("got %+v, want matched response", got)
	}
	if m.InFlightCount() != 0 {
		t.Fatal("expected command removed from in-flight after response")
	}
}

func TestTickTimesOutWithoutRetry(t *testing.T) {
	clk := clock.NewManual(0)
	m := New(clk, testLogger())
	var timedOut bool
	m.Submit(Command{
		TargetEntityID: 1, MessageType: wire.ACMPDisconnectTXCommand,
		OnComplete: func(resp *wire.ACMPDU, err error) { timedOut = err == ErrTimeout },
	})

	clk.Advance(250 * time.Millisecond) // DISCONNECT_TX timeout is 200ms
	m.Tick()
	if !timedOut {
		t.Fatal("expected command to time out")
	}
	if m.InFlightCount() != 0 {
		t.Fatal("expected no retry: command should be gone after single timeout")
	}
}

func TestPerMessageTypeTimeoutsDiffer(t *testing.T) {
	clk := clock.NewManual(0)
	m := New(clk, testLogger())
	var txDone, rxDone bool
	m.Submit(Command{TargetEntityID: 1, MessageType: wire.ACMPDisconnectTXCommand, OnComplete: func(resp *wire.ACMPDU, err error) { txDone = true }})
	m.Submit(Command{TargetEntityID: 2, MessageType: wire.ACMPConnectRXCommand, OnComplete: func(resp *wire.ACMPDU, err error) { rxDone = true }})

	clk.Advance(250 * time.Millisecond)
	m.Tick()
	if !txDone {
		t.Fatal("expected DISCONNECT_TX (200ms timeout) to have timed out")
	}
	if rxDone {
		t.Fatal("expected CONNECT_RX (4.5s timeout) to still be pending")
	}
}

func TestHandleResponseRejectsWrongMessageType(t *testing.T) {
	m := New(clock.NewManual(0), testLogger())
	var completed bool
	m.Submit(Command{TargetEntityID: 1, MessageType: wire.ACMPConnectRXCommand, OnComplete: func(*wire.ACMPDU, error) { completed = true }})

	// A response with the wrong message_type (not command+1) must not
	// match, even though the sequence_id lines up (spec section 4.5).
	m.HandleResponse(&wire.ACMPDU{SequenceID: 0, MessageType: wire.ACMPGetTXStateResponse, Status: wire.ACMPStatusSuccess})
	if completed {
		t.Fatal("response with mismatched message_type must not complete the command")
	}
	if m.InFlightCount() != 1 {
		t.Fatal("command should remain in flight")
	}
}

func TestCancelForEntityDropsOnlyThatEntitysCommands(t *testing.T) {
	m := New(clock.NewManual(0), testLogger())
	m.Submit(Command{TargetEntityID: 1, MessageType: wire.ACMPConnectRXCommand, OnComplete: func(*wire.ACMPDU, error) {}})
	m.Submit(Command{TargetEntityID: 2, MessageType: wire.ACMPConnectRXCommand, OnComplete: func(*wire.ACMPDU, error) {}})

	m.CancelForEntity(1)
	if m.InFlightCount() != 1 {
		t.Fatalf("InFlightCount() = %d, want 1 after canceling entity 1's command", m.InFlightCount())
	}
}
