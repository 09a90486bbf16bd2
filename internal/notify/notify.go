// Package notify fans completed submissions out to downstream listeners.
package notify

import (
	"context"
	"time"
)

// Notifier receives one event per accepted submission.
type Notifier interface {
	Notify(ctx context.Context, evt SubmissionEvent) (string, error)
	Close() error
}

// SubmissionEvent is the compact record published after a submission is relayed.
type SubmissionEvent struct {
	ID          string        `json:"id"`
	ReceivedAt  time.Time     `json:"received_at"`
	Platforms   []string      `json:"platforms"`
	HasMedia    bool          `json:"has_media"`
	MediaBytes  int           `json:"media_bytes,omitempty"`
	MediaSHA256 string        `json:"media_sha256,omitempty"`
	Results     []EventResult `json:"results"`
}

// EventResult is one platform outcome inside a SubmissionEvent.
type EventResult struct {
	Platform string `json:"platform"`
	Status   string `json:"status"`
	Detail   string `json:"detail,omitempty"`
}

// Nop discards every event.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(context.Context, SubmissionEvent) (string, error) { return "", nil }

// Close implements Notifier.
func (Nop) Close() error { return nil }
