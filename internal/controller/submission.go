package controller

import (
	"fmt"
	"log/slog"

	"github.com/vronchetti/avdecc-lib/internal/acmp"
	"github.com/vronchetti/avdecc-lib/internal/aecp"
	"github.com/vronchetti/avdecc-lib/internal/model"
	"github.com/vronchetti/avdecc-lib/internal/wire"
)

// Submission is the closed tagged union of commands callers can enqueue
// through Submit (spec section 3's added CommandSubmission type). Only this
// package can produce one: apply is unexported, so the set of variants is
// fixed here, the same closed-variant discipline as model.Descriptor and
// model.Event.
type Submission interface {
	apply(c *Controller)
}

// aemCommandSubmission submits one AECP-AEM command (READ_DESCRIPTOR,
// SET_CONTROL, or any other command_type a caller wants to originate) and
// reports its outcome as a CommandCompleted, CommandTimedOut, or
// CommandCanceled event carrying handle.
type aemCommandSubmission struct {
	entityID    model.EntityID
	commandType uint16
	body        []byte
	handle      model.NotificationHandle
}

func (s *aemCommandSubmission) apply(c *Controller) {
	c.mu.Lock()
	ep, known := c.tracker.Get(s.entityID)
	if !known {
		c.mu.Unlock()
		c.pushEvent(model.NoMatchFound{EntityID: s.entityID})
		return
	}
	pdu := c.aecpM.Submit(aecp.Command{
		DestinationEntityID: s.entityID,
		ControllerEntityID:  c.cfg.ControllerEntityID,
		CommandType:         s.commandType,
		Body:                s.body,
		OnComplete:          c.aemCompletion(s.entityID, s.commandType, s.handle),
	})
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordAECPCommandSent(fmt.Sprintf("%d", s.commandType))
	}
	if pdu != nil {
		c.sendAECP(ep.MAC, pdu)
	}
}

// aemCompletion builds the aecp.Callback that turns a READ_DESCRIPTOR or
// caller-submitted AEM command's outcome into the one notification event
// spec section 6 promises for it, skipping the push entirely if the caller
// already canceled its own registration (spec section 10 item 3).
func (c *Controller) aemCompletion(entityID model.EntityID, commandType uint16, handle model.NotificationHandle) aecp.Callback {
	return func(resp *wire.AECPAEMPDU, err error) {
		if c.handleCanceled(handle) {
			return
		}
		switch {
		case err == nil:
			if c.metrics != nil {
				c.metrics.RecordAECPCommandCompleted(fmt.Sprintf("%d", commandType))
			}
			c.pushEvent(model.CommandCompleted{
				EntityID:    entityID,
				CommandType: commandType,
				Status:      resp.Status,
				Body:        resp.Body,
				Handle:      handle,
			})
		case err == aecp.ErrCanceled:
			c.pushEvent(model.CommandCanceled{EntityID: entityID, CommandType: commandType, Handle: handle})
		default:
			if c.metrics != nil {
				c.metrics.RecordAECPCommandTimedOut(fmt.Sprintf("%d", commandType))
			}
			c.pushEvent(model.CommandTimedOut{EntityID: entityID, CommandType: commandType, Handle: handle})
		}
	}
}

// acmpSubmission submits one ACMP command addressed to target and reports
// its outcome as ConnectionChanged (spec section 4.5; spec section 6's
// ACMP-specific channel is folded into this single event per model.Event's
// doc comment).
type acmpSubmission struct {
	target           model.EntityID
	messageType      uint8
	talkerEntityID   model.EntityID
	talkerUniqueID   uint16
	listenerEntityID model.EntityID
	listenerUniqueID uint16
	handle           model.NotificationHandle
}

func (s *acmpSubmission) apply(c *Controller) {
	c.mu.Lock()
	ep, known := c.tracker.Get(s.target)
	if !known {
		c.mu.Unlock()
		c.pushEvent(model.NoMatchFound{EntityID: s.target})
		return
	}
	pdu := c.acmpM.Submit(acmp.Command{
		TargetEntityID:     s.target,
		ControllerEntityID: c.cfg.ControllerEntityID,
		MessageType:        s.messageType,
		PDU: wire.ACMPDU{
			TalkerEntityID:   uint64(s.talkerEntityID),
			TalkerUniqueID:   s.talkerUniqueID,
			ListenerEntityID: uint64(s.listenerEntityID),
			ListenerUniqueID: s.listenerUniqueID,
		},
		OnComplete: c.acmpCompletion(s.target, s.messageType, s.handle),
	})
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordACMPCommandSent(fmt.Sprintf("%d", s.messageType))
	}
	c.sendACMP(ep.MAC, pdu)
}

// acmpCompletion builds the acmp.Callback that reports an ACMP exchange's
// outcome: ConnectionChanged if it succeeded or was refused, CommandCanceled
// if its target departed mid-exchange (acmp.ErrCanceled), CommandTimedOut
// otherwise. resp is nil on timeout, so Connected/Status reflect that case
// too.
func (c *Controller) acmpCompletion(target model.EntityID, messageType uint8, handle model.NotificationHandle) acmp.Callback {
	return func(resp *wire.ACMPDU, err error) {
		if c.handleCanceled(handle) {
			return
		}
		if err == acmp.ErrCanceled {
			c.pushEvent(model.CommandCanceled{EntityID: target, CommandType: uint16(messageType), Handle: handle})
			return
		}
		if err != nil {
			if c.metrics != nil {
				c.metrics.RecordACMPCommandTimedOut(fmt.Sprintf("%d", messageType))
			}
			c.pushEvent(model.CommandTimedOut{EntityID: target, CommandType: uint16(messageType), Handle: handle})
			return
		}
		if c.metrics != nil {
			c.metrics.RecordACMPCommandCompleted(fmt.Sprintf("%d", messageType))
		}
		c.pushEvent(model.ConnectionChanged{
			TalkerEntityID:   model.EntityID(resp.TalkerEntityID),
			TalkerUniqueID:   resp.TalkerUniqueID,
			ListenerEntityID: model.EntityID(resp.ListenerEntityID),
			ListenerUniqueID: resp.ListenerUniqueID,
			ConnectionCount:  resp.ConnectionCount,
			Flags:            resp.Flags,
			Connected:        resp.Status == wire.ACMPStatusSuccess,
			Status:           resp.Status,
			SequenceID:       resp.SequenceID,
			Handle:           handle,
		})
	}
}

// capabilityFilterSubmission replaces the discovery admission filter
// applied to not-yet-known entities (spec section 4.6, last paragraph).
type capabilityFilterSubmission struct {
	filters CapabilityFilters
}

func (s *capabilityFilterSubmission) apply(c *Controller) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filters = s.filters
}

// logLevelSubmission adjusts the controller's slog minimum level at
// runtime, routed through the event loop so it serializes with logf calls
// from Run's own goroutine.
type logLevelSubmission struct {
	level slog.Level
}

func (s *logLevelSubmission) apply(c *Controller) {
	c.levelVar.Set(s.level)
}

// cancelSubmission marks handle as no longer wanted by its caller (spec
// section 10 item 3): the in-flight command this handle was tracking keeps
// running to completion, but its eventual event is suppressed.
type cancelSubmission struct {
	handle model.NotificationHandle
}

func (s *cancelSubmission) apply(c *Controller) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.canceled[s.handle] = true
}

// handleCanceled reports whether handle was canceled by its caller before
// its command resolved, consuming the cancellation record so the map
// doesn't grow unboundedly across a long-running Controller. It runs inside
// the aecp/acmp completion callbacks, which the event loop invokes with mu
// already held, so it does not take mu itself.
func (c *Controller) handleCanceled(handle model.NotificationHandle) bool {
	if handle == 0 {
		return false
	}
	if c.canceled[handle] {
		delete(c.canceled, handle)
		return true
	}
	return false
}

// discoverProbeSubmission sends one extra ADP discover outside the tracker's
// own periodic schedule, used by ControllerAvailable to prompt any dormant
// competing controller into announcing itself sooner.
type discoverProbeSubmission struct{}

func (s *discoverProbeSubmission) apply(c *Controller) {
	c.sendDiscover()
}

// identifySubmission drives the IDENTIFY control on an entity's
// IdentifyControlIndex via SET_CONTROL (spec section 10 item 5: AVDECC has
// no dedicated IDENTIFY message, so this is the idiomatic way to trigger
// it).
type identifySubmission struct {
	entityID model.EntityID
	on       bool
	handle   model.NotificationHandle
}

func (s *identifySubmission) apply(c *Controller) {
	c.mu.Lock()
	ep, known := c.tracker.Get(s.entityID)
	if !known {
		c.mu.Unlock()
		c.pushEvent(model.NoMatchFound{EntityID: s.entityID})
		return
	}
	index := ep.IdentifyControlIndex
	value := []byte{0}
	if s.on {
		value[0] = 1
	}
	pdu := c.aecpM.Submit(aecp.Command{
		DestinationEntityID: s.entityID,
		ControllerEntityID:  c.cfg.ControllerEntityID,
		CommandType:         wire.AEMCommandSetControl,
		Body:                wire.SetControlRequestBody(uint16(model.DescriptorControl), index, value),
		OnComplete:          c.aemCompletion(s.entityID, wire.AEMCommandSetControl, s.handle),
	})
	c.mu.Unlock()

	if pdu != nil {
		c.sendAECP(ep.MAC, pdu)
	}
}
