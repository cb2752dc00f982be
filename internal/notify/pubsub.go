package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
)

// PubSubProvider implements Provider on Google Cloud Pub/Sub.
type PubSubProvider struct {
	client *pubsub.Client
	topic  *pubsub.Topic
	logger *zap.Logger
}

// NewPubSubProvider creates a Pub/Sub client and verifies the topic exists.
// Authentication uses Application Default Credentials.
func NewPubSubProvider(ctx context.Context, projectID, topicID string, logger *zap.Logger) (*PubSubProvider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}

	topic := client.Topic(topicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		if closeErr := client.Close(); closeErr != nil {
			logger.Warn("close pubsub client after topic check failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("check pubsub topic %q: %w", topicID, err)
	}
	if !exists {
		if closeErr := client.Close(); closeErr != nil {
			logger.Warn("close pubsub client after missing topic", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("pubsub topic %q does not exist in project %q", topicID, projectID)
	}

	return &PubSubProvider{client: client, topic: topic, logger: logger}, nil
}

// Publish sends the event JSON to the topic. The send is fire-and-forget;
// the Pub/Sub client batches and retries in the background.
func (p *PubSubProvider) Publish(ctx context.Context, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal notify event: %w", err)
	}
	p.topic.Publish(ctx, &pubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"job_id": evt.JobID,
			"phase":  string(evt.Phase),
		},
	})
	return nil
}

// Close flushes pending publishes and releases the client.
func (p *PubSubProvider) Close() error {
	p.topic.Stop()
	if err := p.client.Close(); err != nil {
		return fmt.Errorf("close pubsub client: %w", err)
	}
	return nil
}

var _ Provider = (*PubSubProvider)(nil)
