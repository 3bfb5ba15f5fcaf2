package adp

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/vronchetti/avdecc-lib/internal/clock"
	"github.com/vronchetti/avdecc-lib/internal/model"
	"github.com/vronchetti/avdecc-lib/internal/wire"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func available(entityID uint64, availableIndex uint32, validTime uint8) *wire.ADPDU {
	return &wire.ADPDU{
		MessageType:    wire.ADPEntityAvailable,
		ValidTime:      validTime,
		EntityID:       entityID,
		AvailableIndex: availableIndex,
	}
}

func TestTrackerDiscoversNewEntity(t *testing.T) {
	clk := clock.NewManual(0)
	tr := New(clk, testLogger())

	events := tr.HandleADPDU(available(1, 1, 31), model.MAC(0x1))
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if _, ok := events[0].(model.EntityDiscovered); !ok {
		t.Fatalf("got %T, want EntityDiscovered", events[0])
	}
	if tr.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", tr.Len())
	}
}

func TestTrackerAvailableIndexChangeTriggersUpdate(t *testing.T) {
	clk := clock.NewManual(0)
	tr := New(clk, testLogger())
	tr.HandleADPDU(available(1, 1, 31), model.MAC(0x1))

	events := tr.HandleADPDU(available(1, 2, 31), model.MAC(0x1))
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	upd, ok := events[0].(model.EntityUpdated)
	if !ok || upd.AvailableIndex != 2 {
		t.Fatalf("got %+v, want EntityUpdated{AvailableIndex:2}", events[0])
	}

	ep, _ := tr.Get(1)
	if ep.State != model.StateEnumerating {
		t.Fatalf("endpoint state = %v, want ENUMERATING after reset", ep.State)
	}
}

func TestTrackerAvailableIndexDecreaseIsTreatedAsRestart(t *testing.T) {
	clk := clock.NewManual(0)
	tr := New(clk, testLogger())
	tr.HandleADPDU(available(1, 5, 31), model.MAC(0x1))

	events := tr.HandleADPDU(available(1, 2, 31), model.MAC(0x1))
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if _, ok := events[0].(model.EntityDiscovered); !ok {
		t.Fatalf("got %T, want EntityDiscovered (decrease treated as first appearance)", events[0])
	}

	ep, _ := tr.Get(1)
	if ep.State != model.StateEnumerating {
		t.Fatalf("endpoint state = %v, want ENUMERATING after reset", ep.State)
	}
	if ep.AvailableIndex != 2 {
		t.Fatalf("AvailableIndex = %d, want 2", ep.AvailableIndex)
	}
}

func TestTrackerSameAvailableIndexIsSilent(t *testing.T) {
	clk := clock.NewManual(0)
	tr := New(clk, testLogger())
	tr.HandleADPDU(available(1, 1, 31), model.MAC(0x1))

	events := tr.HandleADPDU(available(1, 1, 31), model.MAC(0x1))
	if len(events) != 0 {
		t.Fatalf("got %d events, want 0 for unchanged available_index", len(events))
	}
}

func TestTrackerDepartingRemovesEntity(t *testing.T) {
	clk := clock.NewManual(0)
	tr := New(clk, testLogger())
	tr.HandleADPDU(available(1, 1, 31), model.MAC(0x1))

	events := tr.HandleADPDU(&wire.ADPDU{MessageType: wire.ADPEntityDeparting, EntityID: 1}, model.MAC(0x1))
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if _, ok := events[0].(model.EntityDeparted); !ok {
		t.Fatalf("got %T, want EntityDeparted", events[0])
	}
	if tr.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 after departure", tr.Len())
	}
}

func TestTrackerTickDoesNotExpireFreshEntity(t *testing.T) {
	clk := clock.NewManual(0)
	tr := New(clk, testLogger())
	// valid_time field is in units of 2s; validTime=1 => 2s expiry.
	tr.HandleADPDU(available(1, 1, 1), model.MAC(0x1))

	clk.Advance(1900 * time.Millisecond)
	events, _ := tr.Tick()
	if len(events) != 0 {
		t.Fatalf("got %d events before expiry, want 0", len(events))
	}
}

func TestTrackerTickExpiresStaleEntity(t *testing.T) {
	clk := clock.NewManual(0)
	tr := New(clk, testLogger())
	tr.HandleADPDU(available(1, 1, 1), model.MAC(0x1))

	clk.Advance(2100 * time.Millisecond)
	events, _ := tr.Tick()
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	departed, ok := events[0].(model.EntityDeparted)
	if !ok || !departed.TimedOut {
		t.Fatalf("got %+v, want EntityDeparted{TimedOut:true}", events[0])
	}
	if tr.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 after expiry", tr.Len())
	}
}

func TestTrackerTickSignalsDiscoverDue(t *testing.T) {
	clk := clock.NewManual(0)
	tr := New(clk, testLogger())

	_, due := tr.Tick()
	if !due {
		t.Fatal("expected discover probe due on first tick")
	}
	_, due = tr.Tick()
	if due {
		t.Fatal("expected discover probe not due immediately again")
	}
}
