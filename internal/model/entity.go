package model

import "fmt"

// EntityID is a 64-bit EUI-64 identifier uniquely naming a controller or a
// controlled entity on the AVB/TSN segment.
type EntityID uint64

func (e EntityID) String() string {
	return fmt.Sprintf("%016X", uint64(e))
}

// MAC is a 48-bit Ethernet address stored in the low 48 bits of a 64-bit
// container; the upper 16 bits are always zero.
type MAC uint64

func (m MAC) String() string {
	b := m.Bytes()
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", b[0], b[1], b[2], b[3], b[4], b[5])
}

// Bytes returns the 6 address octets, most significant first.
func (m MAC) Bytes() [6]byte {
	var b [6]byte
	v := uint64(m)
	for i := 5; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}

// MACFromBytes packs six address octets into a MAC.
func MACFromBytes(b [6]byte) MAC {
	var v uint64
	for _, o := range b {
		v = v<<8 | uint64(o)
	}
	return MAC(v)
}

// LifecycleState is the discovery/enumeration phase of an Endpoint.
type LifecycleState int

const (
	StateEnumerating LifecycleState = iota
	StateReady
	StateStale
	StateDeparted
)

func (s LifecycleState) String() string {
	switch s {
	case StateEnumerating:
		return "ENUMERATING"
	case StateReady:
		return "READY"
	case StateStale:
		return "STALE"
	case StateDeparted:
		return "DEPARTED"
	default:
		return "UNKNOWN"
	}
}

// EntityCapabilityFlags mirrors the ADPDU entity_capabilities bit field
// (only the bits this controller inspects are named).
type EntityCapabilityFlags uint32

const (
	EntityCapAEMSupported          EntityCapabilityFlags = 1 << 3
	EntityCapClassASupported       EntityCapabilityFlags = 1 << 5
	EntityCapClassBSupported       EntityCapabilityFlags = 1 << 6
	EntityCapGPTPSupported         EntityCapabilityFlags = 1 << 9
	EntityCapControllerImplemented EntityCapabilityFlags = 1 << 10
)

// Has reports whether all bits in want are set.
func (f EntityCapabilityFlags) Has(want EntityCapabilityFlags) bool {
	return f&want == want
}

// TalkerCapabilityFlags mirrors the ADPDU talker_capabilities bit field.
type TalkerCapabilityFlags uint16

// ListenerCapabilityFlags mirrors the ADPDU listener_capabilities bit field.
type ListenerCapabilityFlags uint16

// Endpoint is a discovered AVDECC entity tracked by the controller. One
// Endpoint exclusively owns its DescriptorRegistry; the per-destination
// AECP inflight queue lives in internal/aecp's Machine, keyed by EntityID.
type Endpoint struct {
	EntityID               EntityID
	EntityModelID          uint64
	MAC                    MAC
	EntityCapabilities     EntityCapabilityFlags
	TalkerCapabilities     TalkerCapabilityFlags
	ListenerCapabilities   ListenerCapabilityFlags
	TalkerStreamSources    uint16
	ListenerStreamSinks    uint16
	ControllerCapabilities uint32
	AvailableIndex         uint32
	GPTPGrandmasterID      uint64
	IdentifyControlIndex   uint16
	AssociationID          uint64
	ValidTimeSeconds       uint8

	LastSeenMillis     int64
	CurrentConfigIndex uint16
	State              LifecycleState

	Registry *Registry

	enumerationErrors int
}

// NewEndpoint creates a freshly discovered Endpoint, starting in
// ENUMERATING state with an empty registry, per spec section 4.3.
func NewEndpoint(id EntityID, mac MAC, nowMillis int64) *Endpoint {
	return &Endpoint{
		EntityID:       id,
		MAC:            mac,
		LastSeenMillis: nowMillis,
		State:          StateEnumerating,
		Registry:       NewRegistry(),
	}
}

// IncrementEnumerationErrors records a failed READ_DESCRIPTOR for this
// endpoint without aborting enumeration (spec section 4.6).
func (e *Endpoint) IncrementEnumerationErrors() {
	e.enumerationErrors++
}

// EnumerationErrors returns the number of READ_DESCRIPTOR failures observed
// during the current enumeration pass (spec section 10 item 2).
func (e *Endpoint) EnumerationErrors() int {
	return e.enumerationErrors
}

// ResetForReenumeration clears the registry and error count and returns the
// endpoint to ENUMERATING, per spec section 4.3's stale-refresh behavior.
func (e *Endpoint) ResetForReenumeration() {
	e.Registry = NewRegistry()
	e.enumerationErrors = 0
	e.State = StateEnumerating
}
