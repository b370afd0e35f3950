//go:build !deadlock

// Package syncutil provides the mutexes guarding state shared between the
// render loop and the message listener. Build with -tags=deadlock to abort on
// potential deadlocks instead of hanging.
package syncutil

import "sync"

// DeadlockEnabled is true if the deadlock detector is compiled in.
const DeadlockEnabled = false

// A Mutex is a mutual exclusion lock.
type Mutex struct {
	sync.Mutex
}

// An RWMutex is a reader/writer mutual exclusion lock.
type RWMutex struct {
	sync.RWMutex
}
