package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Tracker keeps cancel functions for in-flight runs so the API can interrupt
// them. Entries live only as long as the run does; persistence is the Store's
// job.
type Tracker struct {
	mu   sync.Mutex
	runs map[string]context.CancelFunc
}

// NewTracker creates an empty run tracker.
func NewTracker() *Tracker {
	return &Tracker{runs: make(map[string]context.CancelFunc)}
}

// Register records a running session's cancel function and returns the
// session id, minting one when the caller did not supply it.
func (t *Tracker) Register(sessionID string, cancel context.CancelFunc) string {
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	t.mu.Lock()
	t.runs[sessionID] = cancel
	t.mu.Unlock()
	return sessionID
}

// Cancel interrupts the run for the session. The workflow treats this as a
// cancellation: completed task results are kept and a final event is still
// delivered.
func (t *Tracker) Cancel(sessionID string) error {
	t.mu.Lock()
	cancel, ok := t.runs[sessionID]
	delete(t.runs, sessionID)
	t.mu.Unlock()

	if !ok {
		return fmt.Errorf("no active run for session %s", sessionID)
	}
	cancel()
	return nil
}

// Remove drops a finished run without cancelling it.
func (t *Tracker) Remove(sessionID string) {
	t.mu.Lock()
	delete(t.runs, sessionID)
	t.mu.Unlock()
}

// Active returns the number of in-flight runs.
func (t *Tracker) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.runs)
}
