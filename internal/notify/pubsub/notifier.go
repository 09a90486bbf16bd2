// Package pubsub publishes submission events to a Google Cloud Pub/Sub topic.
package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"

	"github.com/JakeFAU/socialrelay/internal/notify"
)

// Notifier wraps a Pub/Sub topic handle.
type Notifier struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// New dials Pub/Sub using Application Default Credentials unless opts override them.
func New(ctx context.Context, projectID, topicName string, opts ...option.ClientOption) (*Notifier, error) {
	if projectID == "" || topicName == "" {
		return nil, errors.New("pubsub notifier requires project_id and topic_name")
	}
	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	return &Notifier{client: client, topic: client.Topic(topicName)}, nil
}

// Notify marshals the event to JSON and waits for the server-assigned message ID.
func (n *Notifier) Notify(ctx context.Context, evt notify.SubmissionEvent) (string, error) {
	if n.topic == nil {
		return "", fmt.Errorf("pubsub topic is not configured")
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}
	msg := &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"submission_id": evt.ID,
		},
	}
	id, err := n.topic.Publish(ctx, msg).Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish event: %w", err)
	}
	return id, nil
}

// Close flushes pending messages and releases the client.
func (n *Notifier) Close() error {
	if n.topic != nil {
		n.topic.Stop()
	}
	if n.client == nil {
		return nil
	}
	if err := n.client.Close(); err != nil {
		return fmt.Errorf("close pubsub client: %w", err)
	}
	return nil
}
