package main

import (
	"sync"
	"time"
)

type trackerEntry struct {
	consecutiveFailures int
	lastSuccess         time.Time
	lastErrorKind       errorKind
	lastErrorMessage    string
}

// errorStateTracker is the durable-across-cycles record per commander:
// consecutive failures, last success time and last error. Entries are
// created lazily on first observation and never deleted, so a target
// that gets disabled keeps its history. The consecutive-failure count
// here is independent from the circuit breaker's cycle-scoped counter.
type errorStateTracker struct {
	sync.Mutex
	entries map[string]trackerEntry
	now     func() time.Time
}

func newErrorStateTracker() *errorStateTracker {
	return &errorStateTracker{
		entries: make(map[string]trackerEntry),
		now:     time.Now,
	}
}

// recordSuccess resets the failure count and stamps the success time,
// returning the updated entry for metric emission.
func (t *errorStateTracker) recordSuccess(address string) trackerEntry {
	t.Lock()
	defer t.Unlock()

	entry := t.entries[address]
	entry.consecutiveFailures = 0
	entry.lastSuccess = t.now()
	entry.lastErrorKind = ""
	entry.lastErrorMessage = ""
	t.entries[address] = entry
	return entry
}

func (t *errorStateTracker) recordFailure(address string, kind errorKind, message string) trackerEntry {
	t.Lock()
	defer t.Unlock()

	entry := t.entries[address]
	entry.consecutiveFailures++
	entry.lastErrorKind = kind
	entry.lastErrorMessage = message
	t.entries[address] = entry
	return entry
}

func (t *errorStateTracker) entry(address string) (trackerEntry, bool) {
	t.Lock()
	defer t.Unlock()
	entry, ok := t.entries[address]
	return entry, ok
}

// snapshot returns a copy of the current state for the status endpoint.
func (t *errorStateTracker) snapshot() map[string]trackerEntry {
	t.Lock()
	defer t.Unlock()

	entries := make(map[string]trackerEntry, len(t.entries))
	for address, entry := range t.entries {
		entries[address] = entry
	}
	return entries
}
