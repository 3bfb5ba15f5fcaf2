package wire

import (
	"fmt"

	"github.com/vronchetti/avdecc-lib/internal/aerr"
)

// MalformedError is returned by every Parse* function in this package when
// a frame or PDU structurally violates the wire format. Callers drop the
// frame and log it; no partial state is ever exposed (spec section 4.1).
type MalformedError struct {
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("wire: malformed: %s", e.Reason)
}

// Unwrap lets callers errors.Is(err, aerr.ErrMalformed) regardless of the
// specific structural reason.
func (e *MalformedError) Unwrap() error {
	return aerr.ErrMalformed
}

func malformed(format string, args ...any) error {
	return &MalformedError{Reason: fmt.Sprintf(format, args...)}
}
