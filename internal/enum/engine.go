// Package enum implements the Enumeration Engine: a breadth-first
// READ_DESCRIPTOR walk (ENTITY, then its current CONFIGURATION, then every
// descriptor named in that configuration's descriptor_counts) bounded by a
// per-entity in-flight budget, tolerating individual READ_DESCRIPTOR
// failures rather than aborting the walk (spec section 4.6).
package enum

import (
	"log/slog"

	"github.com/vronchetti/avdecc-lib/internal/aecp"
	"github.com/vronchetti/avdecc-lib/internal/model"
	"github.com/vronchetti/avdecc-lib/internal/wire"
)

// DefaultMaxInflightReadDescriptor bounds how many READ_DESCRIPTOR
// commands the engine keeps outstanding per entity at once.
const DefaultMaxInflightReadDescriptor = 4

type pendingRead struct {
	descriptorType  uint16
	descriptorIndex uint16
}

type walk struct {
	entity        *model.Endpoint
	configIndex   uint16
	pending       []pendingRead
	inflightCount int
}

// Engine drives descriptor enumeration for any number of concurrently
// enumerating entities.
type Engine struct {
	logger             *slog.Logger
	aecpMachine        *aecp.Machine
	controllerEntityID model.EntityID
	maxInflight        int

	walks map[model.EntityID]*walk

	// OnDescriptorResult, if set, is called once per READ_DESCRIPTOR
	// completion with whether it was decoded successfully. Used to feed
	// external metrics; nil is a valid no-op.
	OnDescriptorResult func(ok bool)
}

// New creates an Engine that submits its READ_DESCRIPTOR commands through
// aecpMachine.
func New(aecpMachine *aecp.Machine, controllerEntityID model.EntityID, maxInflight int, logger *slog.Logger) *Engine {
	if maxInflight <= 0 {
		maxInflight = DefaultMaxInflightReadDescriptor
	}
	return &Engine{
		logger:             logger,
		aecpMachine:        aecpMachine,
		controllerEntityID: controllerEntityID,
		maxInflight:        maxInflight,
		walks:              make(map[model.EntityID]*walk),
	}
}

// Start begins (or restarts) enumeration for entity, returning the first
// PDU to send. ent must already be in StateEnumerating (spec section 4.3's
// arrival/re-enumeration transition).
func (e *Engine) Start(ent *model.Endpoint) *wire.AECPAEMPDU {
	w := &walk{entity: ent}
	e.walks[ent.EntityID] = w
	return e.submitRead(w, uint16(model.DescriptorEntity), 0, 0)
}

func (e *Engine) submitRead(w *walk, configurationIndex, descriptorType, descriptorIndex uint16) *wire.AECPAEMPDU {
	w.inflightCount++
	dest := w.entity.EntityID
	dt, di := descriptorType, descriptorIndex
	return e.aecpMachine.Submit(aecp.Command{
		DestinationEntityID: dest,
		ControllerEntityID:  e.controllerEntityID,
		CommandType:         wire.AEMCommandReadDescriptor,
		Body:                wire.ReadDescriptorRequestBody(configurationIndex, dt, di),
		OnComplete: func(resp *wire.AECPAEMPDU, err error) {
			e.handleReadDescriptorResult(w, dt, di, resp, err)
		},
	})
}

func (e *Engine) handleReadDescriptorResult(w *walk, descriptorType, descriptorIndex uint16, resp *wire.AECPAEMPDU, err error) {
	w.inflightCount--

	if err != nil || resp.Status != wire.AEMStatusSuccess {
		w.entity.IncrementEnumerationErrors()
		e.logger.Warn("READ_DESCRIPTOR failed",
			slog.String("entity_id", w.entity.EntityID.String()),
			slog.Uint64("descriptor_type", uint64(descriptorType)), slog.Uint64("descriptor_index", uint64(descriptorIndex)))
		e.reportResult(false)
	} else if perr := e.storeDescriptor(w, descriptorType, descriptorIndex, resp.Body); perr != nil {
		w.entity.IncrementEnumerationErrors()
		e.logger.Warn("failed to decode descriptor",
			slog.String("entity_id", w.entity.EntityID.String()), slog.String("error", perr.Error()))
		e.reportResult(false)
	} else {
		e.reportResult(true)
	}
}

func (e *Engine) reportResult(ok bool) {
	if e.OnDescriptorResult != nil {
		e.OnDescriptorResult(ok)
	}
}

func (e *Engine) storeDescriptor(w *walk, descriptorType, descriptorIndex uint16, body []byte) error {
	_, _, _, rest, err := wire.ParseReadDescriptorResponseHeader(body)
	if err != nil {
		return err
	}
	desc, err := wire.ParseDescriptor(descriptorType, descriptorIndex, rest)
	if err != nil {
		return err
	}
	w.entity.Registry.Put(desc)

	switch d := desc.(type) {
	case model.EntityDescriptor:
		w.configIndex = d.CurrentConfiguration
		w.entity.CurrentConfigIndex = d.CurrentConfiguration
		w.pending = append(w.pending, pendingRead{descriptorType: uint16(model.DescriptorConfiguration), descriptorIndex: w.configIndex})
	case model.ConfigurationDescriptor:
		for _, c := range d.DescriptorCounts {
			for i := uint16(0); i < c.Count; i++ {
				w.pending = append(w.pending, pendingRead{descriptorType: uint16(c.Type), descriptorIndex: i})
			}
		}
	}
	return nil
}

// Drain dispatches as many queued reads as the in-flight budget allows and
// reports whether the walk for entity is now complete. Callers should call
// Drain after Start and after every handleReadDescriptorResult-triggered
// state change (i.e. after every AECP response affecting this entity).
func (e *Engine) Drain(entity model.EntityID) (sends []*wire.AECPAEMPDU, done bool) {
	w, ok := e.walks[entity]
	if !ok {
		return nil, true
	}

	for w.inflightCount < e.maxInflight && len(w.pending) > 0 {
		next := w.pending[0]
		w.pending = w.pending[1:]
		// submitRead's aecpMachine.Submit returns nil when the destination
		// already has a command in flight and this one is queued behind it
		// (internal/aecp.Machine allows only one in-flight command per
		// destination); aecpMachine.HandleResponse's own advance dispatches
		// it later, so only PDUs that actually need sending now are kept.
		if pdu := e.submitRead(w, w.configIndex, next.descriptorType, next.descriptorIndex); pdu != nil {
			sends = append(sends, pdu)
		}
	}

	if w.inflightCount == 0 && len(w.pending) == 0 {
		w.entity.State = model.StateReady
		delete(e.walks, entity)
		return sends, true
	}
	return sends, false
}

// Cancel abandons an in-progress walk for entity, e.g. on departure.
func (e *Engine) Cancel(entity model.EntityID) {
	delete(e.walks, entity)
}

// Active reports whether entity currently has an enumeration walk running.
func (e *Engine) Active(entity model.EntityID) bool {
	_, ok := e.walks[entity]
	return ok
}
