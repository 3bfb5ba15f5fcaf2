// Package adp implements the ADP Tracker: it consumes decoded ADPDUs and
// maintains the set of known entities, detecting arrivals, departures and
// descriptor-model updates (spec section 4.3). The tracker is confined to
// the controller's event-loop goroutine; it keeps no lock of its own.
package adp

import (
	"log/slog"
	"time"

	"github.com/vronchetti/avdecc-lib/internal/clock"
	"github.com/vronchetti/avdecc-lib/internal/model"
	"github.com/vronchetti/avdecc-lib/internal/wire"
)

// DiscoverInterval is how often the tracker emits an ENTITY_DISCOVER probe
// while running (spec section 4.3).
const DiscoverInterval = 10_000 // milliseconds

// Tracker owns the table of known entities, keyed by EntityID.
type Tracker struct {
	clock    clock.Clock
	logger   *slog.Logger
	entities map[model.EntityID]*model.Endpoint

	discoverInterval int64 // milliseconds
	lastDiscoverAt   int64
}

// New creates a Tracker using the default DiscoverInterval. clk is used
// for all expiry and probe-interval decisions (spec section 3: no
// protocol decision consults wall time directly).
func New(clk clock.Clock, logger *slog.Logger) *Tracker {
	return NewWithDiscoverInterval(clk, logger, 0)
}

// NewWithDiscoverInterval creates a Tracker whose ENTITY_DISCOVER probe
// cadence is interval (falling back to DiscoverInterval when zero).
func NewWithDiscoverInterval(clk clock.Clock, logger *slog.Logger, interval time.Duration) *Tracker {
	if interval <= 0 {
		interval = DiscoverInterval * time.Millisecond
	}
	return &Tracker{
		clock:            clk,
		logger:           logger,
		entities:         make(map[model.EntityID]*model.Endpoint),
		discoverInterval: interval.Milliseconds(),
		// One interval in the past, so the first Tick reports a probe due.
		lastDiscoverAt: clk.NowMillis() - interval.Milliseconds(),
	}
}

// HandleADPDU applies one received ADPDU, returning the events it produced
// (zero or one).
func (t *Tracker) HandleADPDU(p *wire.ADPDU, mac model.MAC) []model.Event {
	switch p.MessageType {
	case wire.ADPEntityDeparting:
		return t.handleDeparting(p)
	case wire.ADPEntityAvailable:
		return t.handleAvailable(p, mac)
	default:
		return nil
	}
}

func (t *Tracker) handleAvailable(p *wire.ADPDU, mac model.MAC) []model.Event {
	now := t.clock.NowMillis()
	ep, known := t.entities[model.EntityID(p.EntityID)]
	if !known {
		ep = model.NewEndpoint(model.EntityID(p.EntityID), mac, now)
		t.entities[ep.EntityID] = ep
		ep.AvailableIndex = p.AvailableIndex
		applyADP(ep, p, now)
		t.logger.Info("entity discovered", slog.String("entity_id", ep.EntityID.String()), slog.String("mac", mac.String()))
		return []model.Event{model.EntityDiscovered{EntityID: ep.EntityID, MAC: mac}}
	}

	prevIndex := ep.AvailableIndex
	applyADP(ep, p, now)

	switch {
	case p.AvailableIndex > prevIndex:
		ep.ResetForReenumeration()
		t.logger.Info("entity available_index advanced, re-enumerating",
			slog.String("entity_id", ep.EntityID.String()),
			slog.Uint64("available_index", uint64(p.AvailableIndex)))
		return []model.Event{model.EntityUpdated{EntityID: ep.EntityID, AvailableIndex: p.AvailableIndex}}
	case p.AvailableIndex < prevIndex:
		// A decreased available_index means the entity restarted: treat it
		// identically to a first appearance rather than an update (spec
		// section 4.3).
		ep.ResetForReenumeration()
		t.logger.Info("entity available_index decreased, treating as restart",
			slog.String("entity_id", ep.EntityID.String()),
			slog.Uint64("available_index", uint64(p.AvailableIndex)))
		return []model.Event{model.EntityDiscovered{EntityID: ep.EntityID, MAC: mac}}
	default:
		return nil
	}
}

func (t *Tracker) handleDeparting(p *wire.ADPDU) []model.Event {
	id := model.EntityID(p.EntityID)
	if _, known := t.entities[id]; !known {
		return nil
	}
	delete(t.entities, id)
	t.logger.Info("entity departing", slog.String("entity_id", id.String()))
	return []model.Event{model.EntityDeparted{EntityID: id, TimedOut: false}}
}

func applyADP(ep *model.Endpoint, p *wire.ADPDU, now int64) {
	ep.EntityModelID = p.EntityModelID
	ep.EntityCapabilities = model.EntityCapabilityFlags(p.EntityCapabilities)
	ep.TalkerCapabilities = model.TalkerCapabilityFlags(p.TalkerCapabilities)
	ep.ListenerCapabilities = model.ListenerCapabilityFlags(p.ListenerCapabilities)
	ep.TalkerStreamSources = p.TalkerStreamSources
	ep.ListenerStreamSinks = p.ListenerStreamSinks
	ep.ControllerCapabilities = p.ControllerCapabilities
	ep.AvailableIndex = p.AvailableIndex
	ep.GPTPGrandmasterID = p.GPTPGrandmasterID
	ep.IdentifyControlIndex = p.IdentifyControlIndex
	ep.AssociationID = p.AssociationID
	ep.ValidTimeSeconds = p.ValidTime * 2
	ep.LastSeenMillis = now
}

// Tick purges entities whose advertisement has expired, reports whether an
// ENTITY_DISCOVER probe is due, and returns the events produced by any
// purges (spec section 4.3's periodic reaper).
func (t *Tracker) Tick() (events []model.Event, discoverDue bool) {
	now := t.clock.NowMillis()
	for id, ep := range t.entities {
		expiresAt := ep.LastSeenMillis + int64(ep.ValidTimeSeconds)*1000
		if now >= expiresAt {
			delete(t.entities, id)
			t.logger.Warn("entity advertisement expired", slog.String("entity_id", id.String()))
			events = append(events, model.EntityDeparted{EntityID: id, TimedOut: true})
		}
	}

	if now-t.lastDiscoverAt >= t.discoverInterval {
		t.lastDiscoverAt = now
		discoverDue = true
	}
	return events, discoverDue
}

// Get returns the endpoint for id, if known.
func (t *Tracker) Get(id model.EntityID) (*model.Endpoint, bool) {
	ep, ok := t.entities[id]
	return ep, ok
}

// ByMAC finds the endpoint advertised from the given MAC, if any.
func (t *Tracker) ByMAC(mac model.MAC) (*model.Endpoint, bool) {
	for _, ep := range t.entities {
		if ep.MAC == mac {
			return ep, true
		}
	}
	return nil, false
}

// All returns every currently known endpoint. Order is unspecified.
func (t *Tracker) All() []*model.Endpoint {
	out := make([]*model.Endpoint, 0, len(t.entities))
	for _, ep := range t.entities {
		out = append(out, ep)
	}
	return out
}

// Len reports the number of currently known entities.
func (t *Tracker) Len() int { return len(t.entities) }
