//go:build deadlock

// Package syncutil provides the mutexes guarding state shared between the
// render loop and the message listener. Build with -tags=deadlock to abort on
// potential deadlocks instead of hanging.
package syncutil

import (
	"os"
	"time"

	deadlock "github.com/sasha-s/go-deadlock"
)

// DeadlockEnabled is true if the deadlock detector is compiled in.
const DeadlockEnabled = true

func init() {
	// A lock held longer than a whole fetch timeout means shared state is
	// wedged; the station cannot recover from that, so exit.
	deadlock.Opts.DeadlockTimeout = 45 * time.Second
	deadlock.Opts.OnPotentialDeadlock = func() {
		os.Exit(2)
	}
}

// A Mutex is a mutual exclusion lock.
type Mutex struct {
	deadlock.Mutex
}

// An RWMutex is a reader/writer mutual exclusion lock.
type RWMutex struct {
	deadlock.RWMutex
}
