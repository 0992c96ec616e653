package contextutil

import (
	"context"
)

// IsCancelled returns whether or not the context's Done channel is closed. It
// is the primitive each pipeline stage uses to check the shared cancellation
// signal between processing items, so that a stage stops pulling new work
// promptly after another stage has failed or the run has been interrupted.
func IsCancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
