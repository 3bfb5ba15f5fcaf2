// Package acmp implements the ACMP connection-management state machine:
// a controller-global monotone sequence counter (a distinct space from
// AECP's per-destination sequence ids), per-message-type timeouts, and no
// retries — unlike AECP, a single unanswered ACMP command is simply
// reported as timed out (spec section 4.5). Multiple commands to
// different entities run concurrently; there is no per-destination
// single-in-flight restriction here.
package acmp

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/vronchetti/avdecc-lib/internal/aerr"
	"github.com/vronchetti/avdecc-lib/internal/clock"
	"github.com/vronchetti/avdecc-lib/internal/model"
	"github.com/vronchetti/avdecc-lib/internal/wire"
)

// ErrTimeout is passed to a Command's OnComplete callback when no
// response arrives within the message type's timeout.
var ErrTimeout = fmt.Errorf("acmp: command timed out: %w", aerr.ErrTimeout)

// ErrCanceled is passed to a Command's OnComplete callback when its target
// entity departs while the command is still in flight (spec section 4.5).
var ErrCanceled = fmt.Errorf("acmp: command canceled: %w", aerr.ErrCanceled)

// timeouts maps each ACMP message_type this controller originates to its
// response deadline (spec section 4.5).
var timeouts = map[uint8]time.Duration{
	wire.ACMPConnectTXCommand:       2 * time.Second,
	wire.ACMPDisconnectTXCommand:    200 * time.Millisecond,
	wire.ACMPGetTXStateCommand:      200 * time.Millisecond,
	wire.ACMPConnectRXCommand:       4500 * time.Millisecond,
	wire.ACMPDisconnectRXCommand:    500 * time.Millisecond,
	wire.ACMPGetRXStateCommand:      200 * time.Millisecond,
	wire.ACMPGetTXConnectionCommand: 200 * time.Millisecond,
}

// Callback receives the outcome of a submitted command: resp is nil and
// err is non-nil on timeout.
type Callback func(resp *wire.ACMPDU, err error)

// Command is a caller-submitted ACMP command.
type Command struct {
	TargetEntityID     model.EntityID // the talker or listener this message is addressed to
	ControllerEntityID model.EntityID
	MessageType        uint8
	PDU                wire.ACMPDU // fields other than MessageType/SequenceID already populated
	OnComplete         Callback
}

type inflightCmd struct {
	cmd        Command
	deadlineAt int64
}

// Machine tracks in-flight ACMP commands by their globally allocated
// sequence id.
type Machine struct {
	clk    clock.Clock
	logger *slog.Logger

	nextSeq  uint16
	inflight map[uint16]*inflightCmd
}

// New creates an empty Machine.
func New(clk clock.Clock, logger *slog.Logger) *Machine {
	return &Machine{clk: clk, logger: logger, inflight: make(map[uint16]*inflightCmd)}
}

// Submit dispatches cmd immediately, allocating the next global sequence
// id, and returns the PDU to send.
func (m *Machine) Submit(cmd Command) *wire.ACMPDU {
	seq := m.nextSeq
	m.nextSeq++

	timeout, ok := timeouts[cmd.MessageType]
	if !ok {
		timeout = 200 * time.Millisecond
	}
	now := m.clk.NowMillis()
	m.inflight[seq] = &inflightCmd{cmd: cmd, deadlineAt: now + timeout.Milliseconds()}

	pdu := cmd.PDU
	pdu.MessageType = cmd.MessageType
	pdu.SequenceID = seq
	pdu.ControllerEntityID = uint64(cmd.ControllerEntityID)
	return &pdu
}

// HandleResponse completes the in-flight command matching resp's sequence
// id, controller_entity_id, and message_type (command+1), per spec section
// 4.5's matching criteria.
func (m *Machine) HandleResponse(resp *wire.ACMPDU) {
	cur, ok := m.inflight[resp.SequenceID]
	if !ok || cur.cmd.MessageType+1 != resp.MessageType || uint64(cur.cmd.ControllerEntityID) != resp.ControllerEntityID {
		m.logger.Debug("ACMP response matched no in-flight command", slog.Uint64("sequence_id", uint64(resp.SequenceID)))
		return
	}
	delete(m.inflight, resp.SequenceID)
	cur.cmd.OnComplete(resp, nil)
}

// Tick finalizes every command whose deadline has passed as a timeout.
func (m *Machine) Tick() {
	now := m.clk.NowMillis()
	for seq, cur := range m.inflight {
		if now < cur.deadlineAt {
			continue
		}
		delete(m.inflight, seq)
		m.logger.Warn("ACMP command timed out",
			slog.String("entity_id", cur.cmd.TargetEntityID.String()), slog.Uint64("sequence_id", uint64(seq)))
		cur.cmd.OnComplete(nil, ErrTimeout)
	}
}

// CancelForEntity completes every in-flight command addressed to entity
// with ErrCanceled (spec section 4.5: abandoned on departure, same as
// AECP's every-command-resolves-once guarantee).
func (m *Machine) CancelForEntity(entity model.EntityID) {
	for seq, cur := range m.inflight {
		if cur.cmd.TargetEntityID == entity {
			delete(m.inflight, seq)
			cur.cmd.OnComplete(nil, ErrCanceled)
		}
	}
}

// InFlightCount reports how many ACMP commands are currently awaiting
// response.
func (m *Machine) InFlightCount() int { return len(m.inflight) }
