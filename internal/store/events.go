package store

import (
	"github.com/i474232898/weather-station/internal/syncutil"
)

// EventLogCapacity is the number of movement events kept for display.
const EventLogCapacity = 6

// EventLog is a bounded, newest-first log of formatted movement timestamps.
// One goroutine pushes, another snapshots; each call holds the lock only for
// its own duration.
type EventLog struct {
	mu syncutil.Mutex

	// entries[0] is the newest event
	entries []string
	max     int
}

// NewEventLog creates an empty EventLog holding at most EventLogCapacity entries.
func NewEventLog() *EventLog {
	return &EventLog{
		entries: make([]string, 0, EventLogCapacity+1),
		max:     EventLogCapacity,
	}
}

// Push inserts an entry at the front, evicting the oldest one when full.
func (l *EventLog) Push(entry string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, "")
	copy(l.entries[1:], l.entries)
	l.entries[0] = entry

	if len(l.entries) > l.max {
		l.entries = l.entries[:l.max]
	}
}

// Snapshot returns a copy of the entries, newest first.
func (l *EventLog) Snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]string, len(l.entries))
	copy(out, l.entries)
	return out
}
