package pairing

import "sync"

// MaxSetupAttempts is the number of failed pair-setup proofs tolerated
// before the accessory refuses further attempts.
const MaxSetupAttempts = 100

// SetupCoordinator allows one pair-setup at a time. The owner is an opaque
// connection id.
type SetupCoordinator struct {
	mu       sync.Mutex
	owner    string
	failures int
}

// NewSetupCoordinator returns an idle coordinator.
func NewSetupCoordinator() *SetupCoordinator {
	return &SetupCoordinator{}
}

// Begin claims the coordinator for owner. It returns false when another
// connection already has a setup in progress. Re-claiming by the same owner
// succeeds.
func (c *SetupCoordinator) Begin(owner string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.owner != "" && c.owner != owner {
		return false
	}
	c.owner = owner
	return true
}

// Owner returns the connection currently running pair-setup, or "".
func (c *SetupCoordinator) Owner() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.owner
}

// Release frees the coordinator if owner holds it.
func (c *SetupCoordinator) Release(owner string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.owner != owner || owner == "" {
		return false
	}
	c.owner = ""
	return true
}

// RecordFailure counts a failed proof and returns the running total.
func (c *SetupCoordinator) RecordFailure() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures++
	return c.failures
}

// TooManyAttempts reports whether the failure limit was exceeded.
func (c *SetupCoordinator) TooManyAttempts() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failures > MaxSetupAttempts
}

// ResetFailures clears the failure count after a successful pairing.
func (c *SetupCoordinator) ResetFailures() {
	c.mu.Lock()
	c.failures = 0
	c.mu.Unlock()
}
