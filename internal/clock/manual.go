package clock

import (
	"sync"
	"time"
)

// Manual is a Clock driven entirely by test code via Advance. It backs the
// scenario tests in internal/aecp, internal/acmp, internal/adp and
// internal/enum, letting them assert timeout/retry behavior without
// sleeping real wall-clock time.
type Manual struct {
	mu      sync.Mutex
	nowMs   int64
	timers  []*manualTimer
	tickers []*manualTicker
}

// NewManual creates a Manual clock starting at the given millisecond.
func NewManual(startMs int64) *Manual {
	return &Manual{nowMs: startMs}
}

func (m *Manual) NowMillis() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nowMs
}

type manualTimer struct {
	fireAt int64
	ch     chan time.Time
	fired  bool
}

func (m *Manual) After(d time.Duration) <-chan time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTimer{fireAt: m.nowMs + d.Milliseconds(), ch: make(chan time.Time, 1)}
	m.timers = append(m.timers, t)
	return t.ch
}

type manualTicker struct {
	period int64
	nextAt int64
	ch     chan time.Time
	stopped bool
}

func (m *manualTicker) C() <-chan time.Time { return m.ch }

func (m *manualTicker) Stop() {
	m.stopped = true
}

func (m *Manual) NewTicker(d time.Duration) Ticker {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTicker{period: d.Milliseconds(), nextAt: m.nowMs + d.Milliseconds(), ch: make(chan time.Time, 1)}
	m.tickers = append(m.tickers, t)
	return t
}

// Advance moves the clock forward by d, firing any timers and tickers whose
// deadline has passed (delivering on their channel, non-blocking).
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nowMs += d.Milliseconds()

	live := m.timers[:0]
	for _, t := range m.timers {
		if !t.fired && t.fireAt <= m.nowMs {
			t.fired = true
			select {
			case t.ch <- time.UnixMilli(m.nowMs):
			default:
			}
			continue
		}
		live = append(live, t)
	}
	m.timers = live

	for _, t := range m.tickers {
		if t.stopped {
			continue
		}
		for t.nextAt <= m.nowMs {
			select {
			case t.ch <- time.UnixMilli(m.nowMs):
			default:
			}
			t.nextAt += t.period
		}
	}
}
