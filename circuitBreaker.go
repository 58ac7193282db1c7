package main

import "sync"

// maxAuthFailures is the number of consecutive failed authentication
// attempts after which further attempts against a commander are
// suppressed for the rest of the cycle.
const maxAuthFailures = 2

// authCircuitBreaker counts consecutive authentication failures per
// commander address within the current scrape cycle. The counters are
// reset in bulk at the start of every cycle, so the gate only protects
// against hammering a down commander with many workers inside one
// cycle; the cross-cycle failure count lives in the tracker and is kept
// deliberately separate (see DESIGN.md).
type authCircuitBreaker struct {
	sync.Mutex
	failures map[string]int
}

func newAuthCircuitBreaker() *authCircuitBreaker {
	return &authCircuitBreaker{failures: make(map[string]int)}
}

// isOpen reports whether authentication attempts against the address
// should be skipped.
func (b *authCircuitBreaker) isOpen(address string) bool {
	b.Lock()
	defer b.Unlock()
	return b.failures[address] >= maxAuthFailures
}

func (b *authCircuitBreaker) recordFailure(address string) {
	b.Lock()
	b.failures[address]++
	b.Unlock()
}

func (b *authCircuitBreaker) reset(address string) {
	b.Lock()
	b.failures[address] = 0
	b.Unlock()
}

// resetAll clears every counter. Called once at the start of each cycle.
func (b *authCircuitBreaker) resetAll() {
	b.Lock()
	b.failures = make(map[string]int)
	b.Unlock()
}
