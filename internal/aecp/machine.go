// Package aecp implements the AECP-AEM command state machine: one
// in-flight command per destination entity, sequence-id allocation,
// 250ms timeout with a single retransmission, IN_PROGRESS deadline
// extension capped at 2.5s total, and unsolicited-response bypass (spec
// section 4.4). Like internal/adp, the Machine is confined to the
// controller's event-loop goroutine and keeps no lock of its own.
package aecp

import (
	"log/slog"
	"time"

	"github.com/vronchetti/avdecc-lib/internal/clock"
	"github.com/vronchetti/avdecc-lib/internal/model"
	"github.com/vronchetti/avdecc-lib/internal/wire"
)

const (
	commandTimeout   = 250 * time.Millisecond
	maxTotalInFlight = 2500 * time.Millisecond
)

// Callback receives the outcome of a submitted command: resp is nil and
// err is non-nil on timeout.
type Callback func(resp *wire.AECPAEMPDU, err error)

// Command is a caller-submitted AECP-AEM command.
type Command struct {
	DestinationEntityID model.EntityID
	ControllerEntityID  model.EntityID
	CommandType         uint16
	Body                []byte
	OnComplete          Callback
}

type queued struct {
	cmd Command
}

type inflight struct {
	cmd           Command
	sequenceID    uint16
	sentAt        int64
	deadlineAt    int64
	totalDeadline int64
	retried       bool
}

// Machine tracks per-destination AECP command queues.
type Machine struct {
	clk    clock.Clock
	logger *slog.Logger

	cmdTimeout  time.Duration
	totalBudget time.Duration

	nextSeq map[model.EntityID]uint16
	queue   map[model.EntityID][]queued
	current map[model.EntityID]*inflight
}

// New creates an empty Machine using the spec-mandated 250ms command
// timeout and 2.5s IN_PROGRESS budget.
func New(clk clock.Clock, logger *slog.Logger) *Machine {
	return NewWithTimeout(clk, logger, 0)
}

// NewWithTimeout creates a Machine whose per-command timeout is cmdTimeout
// (falling back to the spec default when zero); the total IN_PROGRESS
// budget scales with it at the same 10x ratio as the default.
func NewWithTimeout(clk clock.Clock, logger *slog.Logger, cmdTimeout time.Duration) *Machine {
	if cmdTimeout <= 0 {
		cmdTimeout = commandTimeout
	}
	return &Machine{
		clk:         clk,
		logger:      logger,
		cmdTimeout:  cmdTimeout,
		totalBudget: cmdTimeout * 10,
		nextSeq:     make(map[model.EntityID]uint16),
		queue:       make(map[model.EntityID][]queued),
		current:     make(map[model.EntityID]*inflight),
	}
}

// Submit enqueues cmd. If no command is currently in flight to its
// destination, it is dispatched immediately and the PDU to send is
// returned; otherwise it waits behind the destination's current command
// and Submit returns nil.
func (m *Machine) Submit(cmd Command) *wire.AECPAEMPDU {
	dest := cmd.DestinationEntityID
	if _, busy := m.current[dest]; busy {
		m.queue[dest] = append(m.queue[dest], queued{cmd: cmd})
		return nil
	}
	return m.dispatch(dest, cmd)
}

func (m *Machine) dispatch(dest model.EntityID, cmd Command) *wire.AECPAEMPDU {
	seq := m.nextSeq[dest]
	m.nextSeq[dest] = seq + 1

	now := m.clk.NowMillis()
	m.current[dest] = &inflight{
		cmd:           cmd,
		sequenceID:    seq,
		sentAt:        now,
		deadlineAt:    now + m.cmdTimeout.Milliseconds(),
		totalDeadline: now + m.totalBudget.Milliseconds(),
	}

	return &wire.AECPAEMPDU{
		MessageType:        wire.AECPAEMCommand,
		TargetEntityID:     uint64(dest),
		ControllerEntityID: uint64(cmd.ControllerEntityID),
		SequenceID:         seq,
		CommandType:        cmd.CommandType,
		Body:               cmd.Body,
	}
}

// HandleResponse applies a solicited AECP-AEM response (the caller must
// have already routed unsolicited responses — the u-bit set — elsewhere,
// since those bypass inflight tracking entirely per spec section 4.4). It
// returns the next PDU to send for this destination, if the completed
// command's queue has one waiting.
func (m *Machine) HandleResponse(dest model.EntityID, resp *wire.AECPAEMPDU) *wire.AECPAEMPDU {
	cur, ok := m.current[dest]
	if !ok || cur.sequenceID != resp.SequenceID || cur.cmd.CommandType != resp.CommandType ||
		uint64(cur.cmd.ControllerEntityID) != resp.ControllerEntityID {
		m.logger.Debug("AECP response matched no in-flight command",
			slog.String("entity_id", dest.String()), slog.Uint64("sequence_id", uint64(resp.SequenceID)))
		return nil
	}

	if resp.Status == wire.AEMStatusInProgress {
		now := m.clk.NowMillis()
		ext := now + m.cmdTimeout.Milliseconds()
		if ext > cur.totalDeadline {
			ext = cur.totalDeadline
		}
		cur.deadlineAt = ext
		return nil
	}

	delete(m.current, dest)
	cur.cmd.OnComplete(resp, nil)
	return m.advance(dest)
}

// advance pops the next queued command for dest, if any, and dispatches
// it.
func (m *Machine) advance(dest model.EntityID) *wire.AECPAEMPDU {
	q := m.queue[dest]
	if len(q) == 0 {
		return nil
	}
	next := q[0]
	m.queue[dest] = q[1:]
	return m.dispatch(dest, next.cmd)
}

// Tick checks every in-flight command's deadline, retransmitting once on
// first expiry and finalizing as a timeout on second expiry. It returns
// the PDUs that need (re)sending now.
func (m *Machine) Tick() []*wire.AECPAEMPDU {
	now := m.clk.NowMillis()
	var out []*wire.AECPAEMPDU

	for dest, cur := range m.current {
		if now < cur.deadlineAt {
			continue
		}
		if !cur.retried {
			cur.retried = true
			cur.deadlineAt = now + m.cmdTimeout.Milliseconds()
			m.logger.Debug("AECP command timed out, retransmitting",
				slog.String("entity_id", dest.String()), slog.Uint64("sequence_id", uint64(cur.sequenceID)))
			out = append(out, &wire.AECPAEMPDU{
				MessageType:        wire.AECPAEMCommand,
				TargetEntityID:     uint64(dest),
				ControllerEntityID: uint64(cur.cmd.ControllerEntityID),
				SequenceID:         cur.sequenceID,
				CommandType:        cur.cmd.CommandType,
				Body:               cur.cmd.Body,
			})
			continue
		}

		m.logger.Warn("AECP command exhausted retries",
			slog.String("entity_id", dest.String()), slog.Uint64("sequence_id", uint64(cur.sequenceID)))
		delete(m.current, dest)
		cur.cmd.OnComplete(nil, ErrTimeout)
		if next := m.advance(dest); next != nil {
			out = append(out, next)
		}
	}
	return out
}

// Cancel completes every queued and in-flight command for dest with
// ErrCanceled and drops the destination's queue and sequence counter (spec
// section 4.4: every submitted command resolves exactly once, even on
// cancellation).
func (m *Machine) Cancel(dest model.EntityID) {
	if cur, ok := m.current[dest]; ok {
		delete(m.current, dest)
		cur.cmd.OnComplete(nil, ErrCanceled)
	}
	for _, q := range m.queue[dest] {
		q.cmd.OnComplete(nil, ErrCanceled)
	}
	delete(m.queue, dest)
	delete(m.nextSeq, dest)
}

// InFlight reports whether dest currently has a command awaiting response.
func (m *Machine) InFlight(dest model.EntityID) bool {
	_, ok := m.current[dest]
	return ok
}
