// Package avdecc is the public entry point to this module: a thin
// re-export of internal/controller's Facade plus the supporting types
// external callers need to construct one (config, clock, network
// collaborator, and the data model the Facade's lookups and events return).
// The protocol internals stay in internal/ — this file only forwards names.
package avdecc

import (
	"log/slog"

	"github.com/vronchetti/avdecc-lib/internal/clock"
	"github.com/vronchetti/avdecc-lib/internal/config"
	"github.com/vronchetti/avdecc-lib/internal/controller"
	"github.com/vronchetti/avdecc-lib/internal/model"
	"github.com/vronchetti/avdecc-lib/internal/network"
)

// Controller is the AVDECC controller Facade and event loop.
type Controller = controller.Controller

// ControllerConfig tunes a Controller's identity, discovery filter, and
// event-loop/ring sizing. See FileConfig for the on-disk YAML shape a
// cmd/avdecc-controller-style binary loads and translates into one of
// these.
type ControllerConfig = controller.Config

// CapabilityFilters gates which newly discovered entities get inserted and
// enumerated.
type CapabilityFilters = controller.CapabilityFilters

// LogRecord is one structured log line mirrored onto the log ring.
type LogRecord = controller.LogRecord

// NewController creates a Controller; call Run in its own goroutine to
// start the event loop.
func NewController(cfg ControllerConfig, clk clock.Clock, collab network.Collaborator, logger *slog.Logger) *Controller {
	return controller.New(cfg, clk, collab, logger)
}

// FileConfig is the on-disk YAML configuration shape.
type FileConfig = config.Config

// LoadConfig reads, parses, and validates the YAML configuration at path.
func LoadConfig(path string) (*FileConfig, error) {
	return config.Load(path)
}

// Clock abstracts the time source state machines use for deadlines.
type Clock = clock.Clock

// SystemClock is the production Clock backed by the runtime clock.
type SystemClock = clock.System

// ManualClock is a deterministic Clock for tests and simulation.
type ManualClock = clock.Manual

// NewManualClock creates a ManualClock starting at startMs.
func NewManualClock(startMs int64) *ManualClock {
	return clock.NewManual(startMs)
}

// Collaborator is the controller's Ethernet-frame transport boundary.
type Collaborator = network.Collaborator

// Loopback is an in-memory Collaborator for tests and same-process
// simulation.
type Loopback = network.Loopback

// NewLoopback creates a Loopback collaborator advertising mac.
func NewLoopback(mac [6]byte, capacity int) *Loopback {
	return network.NewLoopback(mac, capacity)
}

// ConnectLoopback wires two Loopback collaborators so each receives the
// other's sent frames, for same-process controller-to-controller tests.
func ConnectLoopback(a, b *Loopback) {
	network.Connect(a, b)
}

// UDPMulticast tunnels AVTP frames over UDP multicast for development and
// testing where a raw Ethernet socket isn't available.
type UDPMulticast = network.UDPMulticast

// UDPMulticastConfig configures a UDPMulticast collaborator.
type UDPMulticastConfig = network.UDPMulticastConfig

// NewUDPMulticast creates and starts a UDPMulticast collaborator.
func NewUDPMulticast(cfg UDPMulticastConfig, logger *slog.Logger) (*UDPMulticast, error) {
	return network.NewUDPMulticast(cfg, logger)
}

// Data model types returned by Controller lookups and carried on its
// notification events.
type (
	EntityID           = model.EntityID
	MAC                = model.MAC
	Endpoint           = model.Endpoint
	LifecycleState     = model.LifecycleState
	NotificationHandle = model.NotificationHandle

	Event              = model.Event
	EntityDiscovered   = model.EntityDiscovered
	EntityUpdated      = model.EntityUpdated
	EntityDeparted     = model.EntityDeparted
	EnumerationComplete = model.EnumerationComplete
	ConnectionChanged  = model.ConnectionChanged
	CommandTimedOut    = model.CommandTimedOut
	CommandCompleted   = model.CommandCompleted
	CommandCanceled    = model.CommandCanceled
	NoMatchFound       = model.NoMatchFound

	Descriptor               = model.Descriptor
	DescriptorType           = model.DescriptorType
	EntityDescriptor         = model.EntityDescriptor
	ConfigurationDescriptor  = model.ConfigurationDescriptor
	StreamDescriptor         = model.StreamDescriptor
	AudioUnitDescriptor      = model.AudioUnitDescriptor
	StreamPortDescriptor     = model.StreamPortDescriptor
	AVBInterfaceDescriptor   = model.AVBInterfaceDescriptor
	ClockSourceDescriptor    = model.ClockSourceDescriptor
	LocaleDescriptor         = model.LocaleDescriptor
	StringsDescriptor        = model.StringsDescriptor
)
