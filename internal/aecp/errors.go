package aecp

import (
	"fmt"

	"github.com/vronchetti/avdecc-lib/internal/aerr"
)

// ErrTimeout is passed to a Command's OnComplete callback when no response
// arrives after the initial send and its single retransmission.
var ErrTimeout = fmt.Errorf("aecp: command timed out: %w", aerr.ErrTimeout)

// ErrCanceled is passed to a Command's OnComplete callback when its
// destination is canceled (e.g. the entity departed) while the command was
// still queued or in flight (spec section 4.4).
var ErrCanceled = fmt.Errorf("aecp: command canceled: %w", aerr.ErrCanceled)
