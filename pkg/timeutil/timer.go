package timeutil

import (
	"time"
)

// StopAndDrainTimer stops a timer and performs a non-blocking drain on its
// channel. This allows a timer to be stopped and drained without any knowledge
// of its current state. Used by the retry backoff wait in the transfer
// worker pool, which creates a new timer for every retry attempt.
func StopAndDrainTimer(timer *time.Timer) {
	timer.Stop()
	select {
	case <-timer.C:
	default:
	}
}
