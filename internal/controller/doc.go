// Package controller implements the Controller Facade (spec section 4.7):
// a single event loop (spec section 5) that owns the ADP tracker, the AECP
// and ACMP state machines, and the enumeration engine, and exposes lookup,
// command submission, and notification draining to callers running on
// other goroutines.
package controller
