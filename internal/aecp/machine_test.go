package aecp

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

func TestSubmitDispatchesImmediatelyWhenIdle(t *testing.T) {
	m := New(clock.NewManual(0), testLogger())
	pdu := m.Submit(Command{DestinationEntityID: 1, ControllerEntityID: 99, CommandType: wire.AEMCommandReadDescriptor})
	if pdu == nil {
		t.Fatal("expected immediate dispatch")
	}
	if pdu.SequenceID != 0 {
		t.Fatalf("SequenceID = %d, want 0", pdu.SequenceID)
	}
	if !m.InFlight(1) {
		t.Fatal("expected destination to be in flight")
	}
}

func TestSubmitQueuesWhenBusy(t *testing.T) {
	m := New(clock.NewManual(0), testLogger())
	m.Submit(Command{DestinationEntityID: 1, ControllerEntityID: 99, CommandType: wire.AEMCommandReadDescriptor})

	pdu := m.Submit(Command{DestinationEntityID: 1, ControllerEntityID: 99, CommandType: wire.AEMCommandReadDescriptor})
	if pdu != nil {
		t.Fatal("expected second command to queue, not dispatch")
	}
}

func TestHandleResponseCompletesAndAdvancesQueue(t *testing.T) {
	m := New(clock.NewManual(0), testLogger())
	var gotFirst, gotSecond bool
	m.Submit(Command{
		DestinationEntityID: 1, ControllerEntityID: 99, CommandType: wire.AEMCommandReadDescriptor,
		OnComplete: func(resp *wire.AECPAEMPDU, err error) { gotFirst = true },
	})
	m.Submit(Command{
		DestinationEntityID: 1, ControllerEntityID: 99, CommandType: wire.AEMCommandReadDescriptor,
		OnComplete: func(resp *wire.AECPAEMPDU, err error) { gotSecond = true },
	})

	next := m.HandleResponse(1, &wire.AECPAEMPDU{SequenceID: 0, Status: wire.AEMStatusSuccess, CommandType: wire.AEMCommandReadDescriptor, ControllerEntityID: 99})
	if !gotFirst {
		t.Fatal("expected first command's callback to fire")
	}
	if next == nil || next.SequenceID != 1 {
		t.Fatalf("expected second command dispatched with SequenceID=1, got %+v", next)
	}

	m.HandleResponse(1, &wire.AECPAEMPDU{SequenceID: 1, Status: wire.AEMStatusSuccess, CommandType: wire.AEMCommandReadDescriptor, ControllerEntityID: 99})
	if !gotSecond {
		t.Fatal("expected second command's callback to fire")
	}
}

func TestHandleResponseRejectsWrongCommandTypeOrController(t *testing.T) {
	m := New(clock.NewManual(0), testLogger())
	var completed bool
	m.Submit(Command{
		DestinationEntityID: 1, ControllerEntityID: 99, CommandType: wire.AEMCommandReadDescriptor,
		OnComplete: func(resp *wire.AECPAEMPDU, err error) { completed = true },
	})

	// Right sequence_id, wrong command_type: must not match (spec section 4.4).
	if got := m.HandleResponse(1, &wire.AECPAEMPDU{SequenceID: 0, Status: wire.AEMStatusSuccess, CommandType: wire.AEMCommandGetControl, ControllerEntityID: 99}); got != nil {
		t.Fatal("response with mismatched command_type must not complete the command")
	}
	// Right sequence_id and command_type, wrong controller_entity_id: must not match.
	if got := m.HandleResponse(1, &wire.AECPAEMPDU{SequenceID: 0, Status: wire.AEMStatusSuccess, CommandType: wire.AEMCommandReadDescriptor, ControllerEntityID: 1}); got != nil {
		t.Fatal("response with mismatched controller_entity_id must not complete the command")
	}
	if completed {
		t.Fatal("mismatched responses must not complete the command")
	}
	if !m.InFlight(1) {
		t.Fatal("command should remain in flight")
	}
}

func TestInProgressExtendsDeadlineWithoutCompleting(t *testing.T) {
	clk := clock.NewManual(0)
	m := New(clk, testLogger())
	var completed bool
	m.Submit(Command{
		DestinationEntityID: 1, ControllerEntityID: 99, CommandType: wire.AEMCommandReadDescriptor,
		OnComplete: func(resp *wire.AECPAEMPDU, err error) { completed = true },
	})

	// IN_PROGRESS at t=100ms moves the deadline from 250ms to 350ms.
	clk.Advance(100 * time.Millisecond)
	next := m.HandleResponse(1, &wire.AECPAEMPDU{SequenceID: 0, Status: wire.AEMStatusInProgress, CommandType: wire.AEMCommandReadDescriptor, ControllerEntityID: 99})
	if next != nil {
		t.Fatal("IN_PROGRESS must not dispatch a next command")
	}
	if completed {
		t.Fatal("IN_PROGRESS must not complete the command")
	}
	if !m.InFlight(1) {
		t.Fatal("command should remain in flight after IN_PROGRESS")
	}

	clk.Advance(200 * time.Millisecond) // t=300ms: past the original deadline, before the extended one
	if out := m.Tick(); len(out) != 0 {
		t.Fatalf("expected no retransmit yet after IN_PROGRESS extension, got %d", len(out))
	}
}

func TestTickRetransmitsOnceThenTimesOut(t *testing.T) {
	clk := clock.NewManual(0)
	m := New(clk, testLogger())
	var timedOut bool
	m.Submit(Command{
		DestinationEntityID: 1, ControllerEntityID: 99, CommandType: wire.AEMCommandReadDescriptor,
		OnComplete: func(resp *wire.AECPAEMPDU, err error) {
			if err == ErrTimeout {
				timedOut = true
			}
		},
	})

	clk.Advance(300 * time.Millisecond)
	retransmits := m.Tick()
	if len(retransmits) != 1 {
		t.Fatalf("got %d retransmits, want 1", len(retransmits))
	}
	if retransmits[0].SequenceID != 0 {
		t.Fatalf("retransmit SequenceID = %d, want 0 (same as original)", retransmits[0].SequenceID)
	}
	if timedOut {
		t.Fatal("should not be timed out after first retry")
	}

	clk.Advance(300 * time.Millisecond)
	m.Tick()
	if !timedOut {
		t.Fatal("expected command to time out after exhausting its retry")
	}
	if m.InFlight(1) {
		t.Fatal("destination should be idle after timeout")
	}
}

func TestCancelDropsQueueAndInFlight(t *testing.T) {
	m := New(clock.NewManual(0), testLogger())
	m.Submit(Command{DestinationEntityID: 1, ControllerEntityID: 99, CommandType: wire.AEMCommandReadDescriptor, OnComplete: func(*wire.AECPAEMPDU, error) {}})
	m.Submit(Command{DestinationEntityID: 1, ControllerEntityID: 99, CommandType: wire.AEMCommandReadDescriptor, OnComplete: func(*wire.AECPAEMPDU, error) {}})

	m.Cancel(1)
	if m.InFlight(1) {
		t.Fatal("expected no in-flight command after Cancel")
	}

	pdu := m.Submit(Command{DestinationEntityID: 1, ControllerEntityID: 99, CommandType: wire.AEMCommandReadDescriptor, OnComplete: func(*wire.AECPAEMPDU, error) {}})
	if pdu == nil || pdu.SequenceID != 0 {
		t.Fatalf("expected fresh sequence allocation starting at 0, got %+v", pdu)
	}
}
