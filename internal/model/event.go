package model

// NotificationHandle correlates a caller's command submission with the
// event that eventually carries its outcome (spec section 3's
// CommandSubmission/NotificationHandle addition). The zero value means
// "no caller is awaiting this event" (e.g. an ADP-driven event nobody
// submitted a command for).
type NotificationHandle uint64

// Event is a notification the controller pushes onto the notification ring
// for external consumption (spec section 5's notification callback
// boundary). It is a closed tagged-variant like Descriptor: callers type
// switch over the concrete events below rather than subclassing. This
// collapses spec section 6's two notification callbacks (the general one
// and the ACMP-specific one) into a single ring, since ConnectionChanged
// already carries every field the ACMP channel needs — per design note 9's
// preference for one tagged variant over parallel ad hoc channels.
type Event interface {
	isEvent()
}

// EntityDiscovered fires the first time an entity's ADP advertisement is
// seen, and again when a known entity's available_index decreases (a
// restart) (spec section 4.3).
type EntityDiscovered struct {
	EntityID EntityID
	MAC      MAC
}

// EntityUpdated fires when a known entity's available_index advances,
// signaling its descriptor model may have changed (spec section 4.3).
type EntityUpdated struct {
	EntityID       EntityID
	AvailableIndex uint32
}

// EntityDeparted fires on ENTITY_DEPARTING or on ADP advertisement timeout
// (spec section 4.3).
type EntityDeparted struct {
	EntityID EntityID
	TimedOut bool
}

// EnumerationComplete fires once an entity's descriptor walk reaches READY,
// reporting how many READ_DESCRIPTOR failures were tolerated along the way
// (spec section 4.6, "END_STATION_READ_COMPLETED").
type EnumerationComplete struct {
	EntityID EntityID
	Errors   int
}

// ConnectionChanged fires when any ACMP command this controller originated
// (connect, disconnect or state query) receives its response, whatever the
// response status (spec section 4.5).
type ConnectionChanged struct {
	TalkerEntityID   EntityID
	TalkerUniqueID   uint16
	ListenerEntityID EntityID
	ListenerUniqueID uint16
	ConnectionCount  uint16
	Flags            uint16
	Connected        bool
	Status           uint8
	SequenceID       uint16
	Handle           NotificationHandle
}

// CommandTimedOut fires when an AECP or ACMP command exhausts its retries
// (or, for ACMP, its single attempt) without a response (spec section 4.4
// and 4.5).
type CommandTimedOut struct {
	EntityID    EntityID
	CommandType uint16
	SequenceID  uint16
	Handle      NotificationHandle
}

// CommandCompleted fires when a caller-submitted AECP-AEM command (other
// than the enumeration engine's own READ_DESCRIPTOR traffic, which is
// reported via EnumerationComplete instead) receives a response — spec
// section 6's RESPONSE_RECEIVED notification.
type CommandCompleted struct {
	EntityID    EntityID
	CommandType uint16
	Status      uint8
	Body        []byte
	Handle      NotificationHandle
}

// CommandCanceled fires for a command still queued or in flight when its
// destination entity departs or the event loop stops (spec section 4.4/4.5
// "Canceled"). A handle its caller canceled through Controller.Cancel gets
// no event at all, this one included.
type CommandCanceled struct {
	EntityID    EntityID
	CommandType uint16
	Handle      NotificationHandle
}

// NoMatchFound fires when an AEM command, ACMP command or Identify is
// submitted for an entity_id this controller is not tracking (spec section
// 6's NO_MATCH_FOUND notification). The Facade's Lookup methods report a
// miss through their bool result and push no event.
type NoMatchFound struct {
	EntityID EntityID
}

func (EntityDiscovered) isEvent()    {}
func (EntityUpdated) isEvent()       {}
func (EntityDeparted) isEvent()      {}
func (EnumerationComplete) isEvent() {}
func (ConnectionChanged) isEvent()   {}
func (CommandTimedOut) isEvent()     {}
func (CommandCompleted) isEvent()    {}
func (CommandCanceled) isEvent()     {}
func (NoMatchFound) isEvent()        {}
