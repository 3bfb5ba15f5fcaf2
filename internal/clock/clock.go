// Package clock provides the monotonic time source the protocol state
// machines use for deadlines, timeouts, and the ADP purge tick. Wall-clock
// time is never consulted for a protocol decision (spec section 3); every
// caller goes through a Clock so tests can drive time deterministically.
package clock

import "time"

// Clock reports monotonic time in milliseconds and creates timers/tickers
// against that same notion of time.
type Clock interface {
	NowMillis() int64
	After(d time.Duration) <-chan time.Time
	NewTicker(d time.Duration) Ticker
}

// Ticker is the subset of *time.Ticker the controller loop needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// monotonicEpoch anchors System.NowMillis to time.Since instead of
// time.Now().UnixMilli(): the latter reports wall-clock time, which an NTP
// step can move backward or jump forward and perturb a protocol deadline
// mid-wait. time.Since keeps comparing the monotonic reading time.Now()
// attaches to both values, which a wall-clock step never touches.
var monotonicEpoch = time.Now()

// System is the production Clock, backed directly by the runtime clock.
type System struct{}

func (System) NowMillis() int64 { return time.Since(monotonicEpoch).Milliseconds() }

func (System) After(d time.Duration) <-chan time.Time { return time.After(d) }

func (System) NewTicker(d time.Duration) Ticker {
	return &systemTicker{t: time.NewTicker(d)}
}

type systemTicker struct{ t *time.Ticker }

func (s *systemTicker) C() <-chan time.Time { return s.t.C }
func (s *systemTicker) Stop()               { s.t.Stop() }

// DeadlineFrom returns the absolute millisecond deadline d in the future
// of now, per the Clock.
func DeadlineFrom(c Clock, d time.Duration) int64 {
	return c.NowMillis() + d.Milliseconds()
}
