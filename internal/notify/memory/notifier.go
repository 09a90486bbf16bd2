// Package memory keeps submission events in-process for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/socialrelay/internal/notify"
)

// Notifier stores notified events for inspection.
type Notifier struct {
	mu     sync.RWMutex
	events []notify.SubmissionEvent
}

// New returns an empty memory Notifier.
func New() *Notifier {
	return &Notifier{}
}

// Notify records the event and returns a pseudo message ID.
func (n *Notifier) Notify(_ context.Context, evt notify.SubmissionEvent) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	evt.Platforms = append([]string(nil), evt.Platforms...)
	evt.Results = append([]notify.EventResult(nil), evt.Results...)
	n.events = append(n.events, evt)
	return fmt.Sprintf("memory-%d", len(n.events)), nil
}

// Events returns a copy of the recorded events.
func (n *Notifier) Events() []notify.SubmissionEvent {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]notify.SubmissionEvent, len(n.events))
	copy(out, n.events)
	return out
}

// Close implements notify.Notifier.
func (n *Notifier) Close() error { return nil }
