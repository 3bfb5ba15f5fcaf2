package controller

import (
	"context"
	"log/slog"
	"time"

	"github.com/vronchetti/avdecc-lib/internal/model"
	"github.com/vronchetti/avdecc-lib/internal/wire"
)

// controllerAvailablePollInterval is how often ControllerAvailable rechecks
// the tracker for a competing controller after sending its probe.
const controllerAvailablePollInterval = 50 * time.Millisecond

// LookupByEntityID returns the tracked Endpoint for entityID, if any
// (spec section 4.7). Safe to call from any goroutine.
func (c *Controller) LookupByEntityID(entityID model.EntityID) (*model.Endpoint, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tracker.Get(entityID)
}

// LookupByMAC returns the tracked Endpoint advertising mac, if any.
func (c *Controller) LookupByMAC(mac model.MAC) (*model.Endpoint, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tracker.ByMAC(mac)
}

// LookupByIndex returns the entityIndex-th tracked Endpoint in the
// controller's internal iteration order, for UIs that page through the
// known-entity list by position rather than entity_id.
func (c *Controller) LookupByIndex(entityIndex int) (*model.Endpoint, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	all := c.tracker.All()
	if entityIndex < 0 || entityIndex >= len(all) {
		return nil, false
	}
	return all[entityIndex], true
}

// Entities returns every currently tracked Endpoint.
func (c *Controller) Entities() []*model.Endpoint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tracker.All()
}

// GetCurrentConfigDesc returns the CONFIGURATION descriptor for ep's
// current_configuration, if it has been enumerated. ep's registry and
// CurrentConfigIndex are mutated by the event loop as enumeration
// progresses (internal/enum.storeDescriptor, handleUnsolicited), so the
// read is taken under mu rather than against the live map unsynchronized.
func (c *Controller) GetCurrentConfigDesc(ep *model.Endpoint) (model.ConfigurationDescriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ep.Registry.Configuration(ep.CurrentConfigIndex)
}

// GetConfigDesc returns the CONFIGURATION descriptor at configIndex for the
// entity identified by entityID, if both the entity and that descriptor are
// known. Unlike GetCurrentConfigDesc this doesn't require the caller to
// already hold an *model.Endpoint (a convenience overload keyed purely by
// entity_id, since most callers only have that).
func (c *Controller) GetConfigDesc(entityID model.EntityID, configIndex uint16) (model.ConfigurationDescriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ep, ok := c.tracker.Get(entityID)
	if !ok {
		return model.ConfigurationDescriptor{}, false
	}
	return ep.Registry.Configuration(configIndex)
}

// SetCapabilityFilters replaces the discovery admission filter, routed
// through the event loop so it serializes with in-flight handleADP calls.
func (c *Controller) SetCapabilityFilters(ctx context.Context, filters CapabilityFilters) error {
	return c.Submit(ctx, &capabilityFilterSubmission{filters: filters})
}

// SetLogLevel adjusts the controller's minimum slog level at runtime.
func (c *Controller) SetLogLevel(ctx context.Context, level slog.Level) error {
	return c.Submit(ctx, &logLevelSubmission{level: level})
}

// SubmitAEMCommand originates an AECP-AEM command of commandType against
// entityID, returning the handle its eventual CommandCompleted,
// CommandTimedOut, or CommandCanceled event will carry.
func (c *Controller) SubmitAEMCommand(ctx context.Context, entityID model.EntityID, commandType uint16, body []byte) (model.NotificationHandle, error) {
	handle := c.allocateHandle()
	sub := &aemCommandSubmission{entityID: entityID, commandType: commandType, body: body, handle: handle}
	if err := c.Submit(ctx, sub); err != nil {
		return 0, err
	}
	return handle, nil
}

// ConnectRX originates a CONNECT_RX_COMMAND addressed to listenerEntityID
// (spec section 4.5).
func (c *Controller) ConnectRX(ctx context.Context, talkerEntityID model.EntityID, talkerUniqueID uint16, listenerEntityID model.EntityID, listenerUniqueID uint16) (model.NotificationHandle, error) {
	return c.submitACMP(ctx, listenerEntityID, wire.ACMPConnectRXCommand, talkerEntityID, talkerUniqueID, listenerEntityID, listenerUniqueID)
}

// DisconnectRX originates a DISCONNECT_RX_COMMAND addressed to
// listenerEntityID.
func (c *Controller) DisconnectRX(ctx context.Context, talkerEntityID model.EntityID, talkerUniqueID uint16, listenerEntityID model.EntityID, listenerUniqueID uint16) (model.NotificationHandle, error) {
	return c.submitACMP(ctx, listenerEntityID, wire.ACMPDisconnectRXCommand, talkerEntityID, talkerUniqueID, listenerEntityID, listenerUniqueID)
}

// GetRXState originates a GET_RX_STATE_COMMAND addressed to
// listenerEntityID.
func (c *Controller) GetRXState(ctx context.Context, listenerEntityID model.EntityID, listenerUniqueID uint16) (model.NotificationHandle, error) {
	return c.submitACMP(ctx, listenerEntityID, wire.ACMPGetRXStateCommand, 0, 0, listenerEntityID, listenerUniqueID)
}

// GetTXState originates a GET_TX_STATE_COMMAND addressed to
// talkerEntityID.
func (c *Controller) GetTXState(ctx context.Context, talkerEntityID model.EntityID, talkerUniqueID uint16) (model.NotificationHandle, error) {
	return c.submitACMP(ctx, talkerEntityID, wire.ACMPGetTXStateCommand, talkerEntityID, talkerUniqueID, 0, 0)
}

// GetTXConnection originates a GET_TX_CONNECTION_COMMAND addressed to
// talkerEntityID (spec section 10 item 4: the original exposes this ACMP
// message the distilled spec's §4.5 enumeration omitted).
func (c *Controller) GetTXConnection(ctx context.Context, talkerEntityID model.EntityID, talkerUniqueID uint16) (model.NotificationHandle, error) {
	return c.submitACMP(ctx, talkerEntityID, wire.ACMPGetTXConnectionCommand, talkerEntityID, talkerUniqueID, 0, 0)
}

func (c *Controller) submitACMP(ctx context.Context, target model.EntityID, messageType uint8, talkerEntityID model.EntityID, talkerUniqueID uint16, listenerEntityID model.EntityID, listenerUniqueID uint16) (model.NotificationHandle, error) {
	handle := c.allocateHandle()
	sub := &acmpSubmission{
		target:           target,
		messageType:      messageType,
		talkerEntityID:   talkerEntityID,
		talkerUniqueID:   talkerUniqueID,
		listenerEntityID: listenerEntityID,
		listenerUniqueID: listenerUniqueID,
		handle:           handle,
	}
	if err := c.Submit(ctx, sub); err != nil {
		return 0, err
	}
	return handle, nil
}

// Identify toggles entityID's IDENTIFY control via SET_CONTROL (spec
// section 10 item 5).
func (c *Controller) Identify(ctx context.Context, entityID model.EntityID, on bool) (model.NotificationHandle, error) {
	handle := c.allocateHandle()
	sub := &identifySubmission{entityID: entityID, on: on, handle: handle}
	if err := c.Submit(ctx, sub); err != nil {
		return 0, err
	}
	return handle, nil
}

// Cancel suppresses the notification handle's eventual event (spec section
// 10 item 3). It never cancels the underlying AECP/ACMP command itself —
// that keeps running to completion either way — only whether this caller
// still wants to hear about it.
func (c *Controller) Cancel(ctx context.Context, handle model.NotificationHandle) error {
	return c.Submit(ctx, &cancelSubmission{handle: handle})
}

// DrainEvents returns every notification queued since the last drain, in
// FIFO order.
func (c *Controller) DrainEvents() []model.Event {
	return c.events.DrainAll()
}

// EventsMissed reports how many notifications have been dropped because the
// event ring was full (spec section 5's bounded drop-oldest ring).
func (c *Controller) EventsMissed() uint64 {
	return c.events.MissedCount()
}

// DrainLogs returns every log record queued since the last drain.
func (c *Controller) DrainLogs() []LogRecord {
	return c.logs.DrainAll()
}

// anyControllerCapable reports whether a tracked Endpoint advertises
// non-zero ControllerCapabilities, i.e. is itself an AVDECC controller.
func (c *Controller) anyControllerCapable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, ep := range c.tracker.All() {
		if ep.ControllerCapabilities != 0 {
			return true
		}
	}
	return false
}

// ControllerAvailable probes the segment for a competing AVDECC controller
// (spec section 10 item 1): it sends an ADP discover and waits, until ctx
// is done, for any tracked entity to advertise non-zero
// ControllerCapabilities.
func (c *Controller) ControllerAvailable(ctx context.Context) (bool, error) {
	if c.anyControllerCapable() {
		return true, nil
	}
	if err := c.Submit(ctx, &discoverProbeSubmission{}); err != nil {
		return false, err
	}

	ticker := time.NewTicker(controllerAvailablePollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return false, nil
		case <-ticker.C:
			if c.anyControllerCapable() {
				return true, nil
			}
		}
	}
}
