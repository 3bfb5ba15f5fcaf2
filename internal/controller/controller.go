package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vronchetti/avdecc-lib/internal/acmp"
	"github.com/vronchetti/avdecc-lib/internal/adp"
	"github.com/vronchetti/avdecc-lib/internal/aecp"
	"github.com/vronchetti/avdecc-lib/internal/aerr"
	"github.com/vronchetti/avdecc-lib/internal/clock"
	"github.com/vronchetti/avdecc-lib/internal/enum"
	"github.com/vronchetti/avdecc-lib/internal/metrics"
	"github.com/vronchetti/avdecc-lib/internal/model"
	"github.com/vronchetti/avdecc-lib/internal/network"
	"github.com/vronchetti/avdecc-lib/internal/ring"
	"github.com/vronchetti/avdecc-lib/internal/wire"
)

// DefaultTickInterval is the event loop's timer granularity when Config
// doesn't override it (spec section 5: "1-10 ms granularity").
const DefaultTickInterval = 10 * time.Millisecond

const (
	defaultEventRingSize = 256
	defaultLogRingSize   = 512
	defaultSubmitBuffer  = 64
)

// ErrClosed is returned by Submit once the event loop has stopped.
var ErrClosed = errors.New("controller: event loop stopped")

// CapabilityFilters are the entity/talker/listener flag masks a newly
// advertised entity must satisfy before it is inserted and enumerated
// (spec section 4.6, last paragraph).
type CapabilityFilters struct {
	RequiredEntityCapabilities   model.EntityCapabilityFlags
	RequiredTalkerCapabilities   model.TalkerCapabilityFlags
	RequiredListenerCapabilities model.ListenerCapabilityFlags
}

// satisfies reports whether an ADPDU's advertised capabilities meet f.
func (f CapabilityFilters) satisfies(p *wire.ADPDU) bool {
	if !model.EntityCapabilityFlags(p.EntityCapabilities).Has(f.RequiredEntityCapabilities) {
		return false
	}
	if model.TalkerCapabilityFlags(p.TalkerCapabilities)&f.RequiredTalkerCapabilities != f.RequiredTalkerCapabilities {
		return false
	}
	if model.ListenerCapabilityFlags(p.ListenerCapabilities)&f.RequiredListenerCapabilities != f.RequiredListenerCapabilities {
		return false
	}
	return true
}

// Config configures a Controller: its own AVDECC identity (spec section
// 3's ControllerIdentity), discovery capability filters, the enumeration
// budget, and event-loop/ring tuning.
type Config struct {
	ControllerEntityID        model.EntityID
	CapabilityFilters         CapabilityFilters
	MaxInflightReadDescriptor int
	TickInterval              time.Duration
	EventRingSize             int
	LogRingSize               int
	SubmitBufferSize          int

	// AECPCommandTimeout overrides the AECP state machine's per-command
	// timeout (spec-default 250ms when zero).
	AECPCommandTimeout time.Duration
	// DiscoveryProbeInterval overrides the ADP tracker's ENTITY_DISCOVER
	// cadence (spec-default 10s when zero).
	DiscoveryProbeInterval time.Duration
}

func (cfg *Config) setDefaults() {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.EventRingSize <= 0 {
		cfg.EventRingSize = defaultEventRingSize
	}
	if cfg.LogRingSize <= 0 {
		cfg.LogRingSize = defaultLogRingSize
	}
	if cfg.SubmitBufferSize <= 0 {
		cfg.SubmitBufferSize = defaultSubmitBuffer
	}
}

// LogRecord mirrors one structured log call onto the bounded log ring, so
// the log callback of spec section 6 can be served without the caller
// touching the slog pipeline (spec section 5's "Ring buffers").
type LogRecord struct {
	Level           slog.Level
	Message         string
	TimestampMillis int64
}

// Controller is the public AVDECC controller facade (spec section 4.7). A
// single goroutine runs Run and is the sole mutator of the ADP/AECP/ACMP
// state below (spec section 5); Facade methods may be called from any
// goroutine and take mu for the O(map-lookup) critical sections that touch
// that state.
type Controller struct {
	cfg    Config
	clk    clock.Clock
	logger *slog.Logger
	collab network.Collaborator

	mu       sync.RWMutex
	tracker  *adp.Tracker
	aecpM    *aecp.Machine
	acmpM    *acmp.Machine
	enumEng  *enum.Engine
	filters  CapabilityFilters
	canceled map[model.NotificationHandle]bool

	levelVar slog.LevelVar

	metrics         *metrics.Metrics
	enumStartedMs   map[model.EntityID]int64
	lastMissedCount uint64

	events *ring.Ring[model.Event]
	logs   *ring.Ring[LogRecord]

	submissions chan Submission
	nextHandle  uint64

	closeOnce sync.Once
	closed    chan struct{}
}

// New creates a Controller. It does not start the event loop; call Run in
// its own goroutine.
func New(cfg Config, clk clock.Clock, collab network.Collaborator, logger *slog.Logger) *Controller {
	cfg.setDefaults()
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	c := &Controller{
		cfg:         cfg,
		clk:         clk,
		logger:      logger,
		collab:      collab,
		tracker:     adp.NewWithDiscoverInterval(clk, logger, cfg.DiscoveryProbeInterval),
		aecpM:       aecp.NewWithTimeout(clk, logger, cfg.AECPCommandTimeout),
		acmpM:       acmp.New(clk, logger),
		filters:     cfg.CapabilityFilters,
		canceled:    make(map[model.NotificationHandle]bool),
		enumStartedMs: make(map[model.EntityID]int64),
		events:      ring.New[model.Event](cfg.EventRingSize),
		logs:        ring.New[LogRecord](cfg.LogRingSize),
		submissions: make(chan Submission, cfg.SubmitBufferSize),
		closed:      make(chan struct{}),
	}
	c.enumEng = enum.New(c.aecpM, cfg.ControllerEntityID, cfg.MaxInflightReadDescriptor, logger)
	return c
}

// AttachMetrics wires m's recorders into the event loop's descriptor-read
// outcomes. Call before Run; nil is accepted and leaves metrics unwired.
func (c *Controller) AttachMetrics(m *metrics.Metrics) {
	c.metrics = m
	if m == nil {
		return
	}
	c.enumEng.OnDescriptorResult = func(ok bool) {
		if ok {
			m.RecordDescriptorRead()
		} else {
			m.RecordDescriptorReadError()
		}
	}
}

// allocateHandle returns a fresh NotificationHandle, unique for the life
// of this Controller.
func (c *Controller) allocateHandle() model.NotificationHandle {
	return model.NotificationHandle(atomic.AddUint64(&c.nextHandle, 1))
}

// Submit enqueues sub for processing by the event loop. Safe to call from
// any goroutine (spec section 5's thread-safe command queue).
func (c *Controller) Submit(ctx context.Context, sub Submission) error {
	select {
	case c.submissions <- sub:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.closed:
		return ErrClosed
	}
}

// Run drives the event loop until ctx is canceled or the network
// collaborator's frame channel closes (spec section 5's cooperative
// single-threaded loop). It blocks and returns the reason it stopped.
func (c *Controller) Run(ctx context.Context) error {
	defer c.closeOnce.Do(func() { close(c.closed) })

	ticker := c.clk.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()
	frames := c.collab.Frames()

	for {
		select {
		case <-ctx.Done():
			c.cancelAll()
			return ctx.Err()

		case frame, ok := <-frames:
			if !ok {
				c.cancelAll()
				return aerr.ErrNetworkUnavailable
			}
			c.handleFrame(frame.Data)

		case <-ticker.C():
			c.handleTick()

		case sub := <-c.submissions:
			sub.apply(c)
		}
	}
}

func (c *Controller) handleFrame(data []byte) {
	ef, err := wire.ParseEthernetFrame(data)
	if err != nil {
		c.logf(slog.LevelDebug, "dropping frame: %v", err)
		return
	}
	hdr, _, err := wire.ParseCommonHeader(ef.Payload)
	if err != nil {
		c.logf(slog.LevelDebug, "dropping frame: %v", err)
		return
	}

	switch hdr.Subtype {
	case wire.SubtypeADP:
		c.handleADP(ef.Payload, ef.SrcMAC)
	case wire.SubtypeAECP:
		c.handleAECP(ef.Payload)
	case wire.SubtypeACMP:
		c.handleACMP(ef.Payload)
	default:
		c.logf(slog.LevelWarn, "unrecognized AVTP subtype 0x%02X", hdr.Subtype)
	}
}

func (c *Controller) handleADP(payload []byte, srcMAC [6]byte) {
	pdu, err := wire.ParseADPDU(payload)
	if err != nil {
		c.logf(slog.LevelDebug, "malformed ADPDU: %v", err)
		return
	}
	mac := model.MACFromBytes(srcMAC)

	c.mu.Lock()
	defer c.mu.Unlock()

	if pdu.MessageType == wire.ADPEntityAvailable {
		if _, known := c.tracker.Get(model.EntityID(pdu.EntityID)); !known && !c.filters.satisfies(pdu) {
			return
		}
	}

	events := c.tracker.HandleADPDU(pdu, mac)
	for _, ev := range events {
		c.onADPEvent(ev)
	}
}

// onADPEvent reacts to one ADP-tracker event while mu is held: it starts
// or restarts enumeration on discovery/update, cancels in-flight AECP/ACMP
// work on departure, and always pushes the event onto the notification
// ring (spec sections 4.3, 4.4, 4.5, 4.6).
func (c *Controller) onADPEvent(ev model.Event) {
	c.pushEvent(ev)

	switch e := ev.(type) {
	case model.EntityDiscovered:
		if c.metrics != nil {
			c.metrics.RecordEntityDiscovered()
			c.metrics.SetEntitiesTracked(c.tracker.Len())
		}
		ep, ok := c.tracker.Get(e.EntityID)
		if ok {
			c.enumStartedMs[e.EntityID] = c.clk.NowMillis()
			if pdu := c.enumEng.Start(ep); pdu != nil {
				c.sendAECP(ep.MAC, pdu)
			}
		}
	case model.EntityUpdated:
		if c.metrics != nil {
			c.metrics.RecordEntityUpdated()
		}
		ep, ok := c.tracker.Get(e.EntityID)
		if ok {
			c.enumEng.Cancel(e.EntityID)
			c.enumStartedMs[e.EntityID] = c.clk.NowMillis()
			if pdu := c.enumEng.Start(ep); pdu != nil {
				c.sendAECP(ep.MAC, pdu)
			}
		}
	case model.EntityDeparted:
		if c.metrics != nil {
			c.metrics.RecordEntityDeparted()
			c.metrics.SetEntitiesTracked(c.tracker.Len())
		}
		c.aecpM.Cancel(e.EntityID)
		c.acmpM.CancelForEntity(e.EntityID)
		c.enumEng.Cancel(e.EntityID)
		delete(c.enumStartedMs, e.EntityID)
	}
}

func (c *Controller) handleAECP(payload []byte) {
	pdu, err := wire.ParseAECPAEMPDU(payload)
	if err != nil {
		c.logf(slog.LevelDebug, "malformed AECP-AEM PDU: %v", err)
		return
	}
	if pdu.MessageType != wire.AECPAEMResponse {
		return // commands addressed to us aren't in scope; this is a controller
	}

	if pdu.Unsolicited {
		c.handleUnsolicited(pdu)
		return
	}

	c.mu.Lock()
	next := c.aecpM.HandleResponse(model.EntityID(pdu.TargetEntityID), pdu)
	var ep *model.Endpoint
	if e, ok := c.tracker.Get(model.EntityID(pdu.TargetEntityID)); ok {
		ep = e
	}
	c.mu.Unlock()

	if next != nil && ep != nil {
		c.sendAECP(ep.MAC, next)
	}

	if c.enumEng.Active(model.EntityID(pdu.TargetEntityID)) {
		c.drainEnumeration(model.EntityID(pdu.TargetEntityID))
	}
}

// handleUnsolicited routes a u-bit response straight to the endpoint's
// registry without touching any in-flight command (spec section 4.4). Only
// unsolicited READ_DESCRIPTOR responses are applied: the descriptor they
// carry, of any type the wire package decodes, replaces the registry entry
// (configuration-scoped ones only when they belong to the current
// configuration). Unsolicited responses of every other command_type,
// stream-format changes included, are dropped.
func (c *Controller) handleUnsolicited(pdu *wire.AECPAEMPDU) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ep, ok := c.tracker.Get(model.EntityID(pdu.TargetEntityID))
	if !ok || pdu.CommandType != wire.AEMCommandReadDescriptor {
		return
	}
	configIndex, descriptorType, descriptorIndex, rest, err := wire.ParseReadDescriptorResponseHeader(pdu.Body)
	if err != nil {
		return
	}
	if descriptorType != uint16(model.DescriptorEntity) && configIndex != ep.CurrentConfigIndex {
		return // stale configuration; spec section 3's locked-configuration invariant
	}
	desc, err := wire.ParseDescriptor(descriptorType, descriptorIndex, rest)
	if err != nil {
		c.logger.Warn("failed to decode unsolicited descriptor update",
			slog.String("entity_id", ep.EntityID.String()), slog.String("error", err.Error()))
		return
	}
	ep.Registry.Put(desc)
}

// drainEnumeration dispatches whatever the enumeration engine has queued
// for entity and, once its walk finishes, records the completion event
// (spec section 4.6's step 4).
func (c *Controller) drainEnumeration(entity model.EntityID) {
	c.mu.Lock()
	sends, done := c.enumEng.Drain(entity)
	var ep *model.Endpoint
	if e, ok := c.tracker.Get(entity); ok {
		ep = e
	}
	c.mu.Unlock()

	if ep != nil {
		for _, pdu := range sends {
			c.sendAECP(ep.MAC, pdu)
		}
		if done {
			c.pushEvent(model.EnumerationComplete{EntityID: entity, Errors: ep.EnumerationErrors()})
			if c.metrics != nil {
				if startedAt, ok := c.enumStartedMs[entity]; ok {
					c.metrics.RecordEnumerationComplete(float64(c.clk.NowMillis()-startedAt) / 1000)
					delete(c.enumStartedMs, entity)
				}
				c.metrics.SetEnumerationsActive(len(c.enumStartedMs))
			}
		} else if c.metrics != nil {
			c.metrics.SetEnumerationsActive(len(c.enumStartedMs))
		}
	}
}

func (c *Controller) handleACMP(payload []byte) {
	pdu, err := wire.ParseACMPDU(payload)
	if err != nil {
		c.logf(slog.LevelDebug, "malformed ACMPDU: %v", err)
		return
	}
	if pdu.MessageType%2 == 0 {
		return // even message_types are commands; we only consume responses
	}
	c.mu.Lock()
	c.acmpM.HandleResponse(pdu)
	c.mu.Unlock()
}

func (c *Controller) handleTick() {
	c.mu.Lock()
	events, discoverDue := c.tracker.Tick()
	for _, ev := range events {
		if ed, ok := ev.(model.EntityDeparted); ok {
			c.aecpM.Cancel(ed.EntityID)
			c.acmpM.CancelForEntity(ed.EntityID)
			c.enumEng.Cancel(ed.EntityID)
			if c.metrics != nil {
				c.metrics.RecordEntityDeparted()
				c.metrics.SetEntitiesTracked(c.tracker.Len())
			}
		}
	}
	retransmits := c.aecpM.Tick()
	c.acmpM.Tick()
	c.mu.Unlock()

	for _, ev := range events {
		c.pushEvent(ev)
	}
	for _, pdu := range retransmits {
		if c.metrics != nil {
			c.metrics.RecordAECPCommandRetried(fmt.Sprintf("%d", pdu.CommandType))
		}
		if ep, ok := c.LookupByEntityID(model.EntityID(pdu.TargetEntityID)); ok {
			c.sendAECP(ep.MAC, pdu)
		}
	}
	if discoverDue {
		c.sendDiscover()
	}
	if c.metrics != nil {
		c.metrics.SetEventRingDepth(c.events.Len())
		c.metrics.SetSubmitQueueDepth(len(c.submissions))
	}
	c.lastMissedCount = c.reconcileMissedMetric(c.lastMissedCount)
}

func (c *Controller) sendDiscover() {
	pdu := &wire.ADPDU{MessageType: wire.ADPEntityDiscover}
	payload := wire.SerializeADPDU(pdu)
	c.sendFrame(broadcastMAC, payload)
}

// broadcastMAC is the AVDECC multicast destination (IEEE 1722.1-2013
// clause 6.2.1).
var broadcastMAC = [6]byte{0x91, 0xE0, 0xF0, 0x01, 0x00, 0x00}

func (c *Controller) sendAECP(dst model.MAC, pdu *wire.AECPAEMPDU) {
	c.sendFrame(dst.Bytes(), wire.SerializeAECPAEMPDU(pdu))
}

func (c *Controller) sendACMP(dst model.MAC, pdu *wire.ACMPDU) {
	c.sendFrame(dst.Bytes(), wire.SerializeACMPDU(pdu))
}

func (c *Controller) sendFrame(dst [6]byte, payload []byte) {
	frame := wire.SerializeEthernetFrame(dst, c.collab.LocalMAC(), payload)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.collab.Send(ctx, frame); err != nil {
		c.logf(slog.LevelWarn, "send failed: %v", err)
	}
}

// cancelAll abandons every in-flight AECP/ACMP command as Canceled (spec
// section 5: "Fatal conditions ... stop the loop and signal all inflight
// as Canceled").
func (c *Controller) cancelAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ep := range c.tracker.All() {
		c.aecpM.Cancel(ep.EntityID)
		c.acmpM.CancelForEntity(ep.EntityID)
		c.enumEng.Cancel(ep.EntityID)
	}
}

func (c *Controller) pushEvent(ev model.Event) {
	c.events.Push(ev)
}

// reconcileMissedMetric reports any newly-missed events (ring overflow)
// since the last tick, via m's monotonic counter.
func (c *Controller) reconcileMissedMetric(prevMissed uint64) uint64 {
	missed := c.events.MissedCount()
	if c.metrics != nil && missed > prevMissed {
		c.metrics.AddEventsMissed(missed - prevMissed)
	}
	return missed
}

func (c *Controller) logf(level slog.Level, format string, args ...any) {
	if level < c.levelVar.Level() {
		return
	}
	msg := fmt.Sprintf(format, args...)
	c.logger.Log(context.Background(), level, msg)
	c.logs.Push(LogRecord{Level: level, Message: msg, TimestampMillis: c.clk.NowMillis()})
}
