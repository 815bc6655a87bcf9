package preempt

import "runtime"

// Guard brackets a short, non-blocking critical sequence.
//
// Enter and Leave must be called in pairs on the same goroutine. Sections may
// nest.
type Guard interface {
	Enter()
	Leave()
}

// Pin keeps the calling goroutine on its OS thread for the duration of the
// section. Go offers no user-level way to disable preemption; pinning is the
// closest primitive and nests correctly (the runtime counts LockOSThread calls).
type Pin struct{}

// Enter implements Guard.
func (Pin) Enter() { runtime.LockOSThread() }

// Leave implements Guard.
func (Pin) Leave() { runtime.UnlockOSThread() }

// Noop is a Guard that does nothing.
type Noop struct{}

// Enter implements Guard.
func (Noop) Enter() {}

// Leave implements Guard.
func (Noop) Leave() {}

var (
	_ Guard = Pin{}
	_ Guard = Noop{}
)
