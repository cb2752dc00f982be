// Package notify defines the interfaces for publishing job lifecycle
// notifications. The abstraction keeps the orchestrator independent of a
// specific message bus (GCP Pub/Sub in production, no-op by default).
package notify

import (
	"context"
	"time"

	"github.com/seekrai/jobsearch/internal/search"
)

// Event describes a search job reaching a terminal phase.
type Event struct {
	JobID      string       `json:"job_id"`
	Phase      search.Phase `json:"phase"`
	Count      int          `json:"count"`
	OutputFile string       `json:"output_file,omitempty"`
	At         time.Time    `json:"at"`
}

// Provider publishes terminal-phase events. Publish should be cheap from the
// caller's perspective; implementations may send asynchronously.
type Provider interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// NoOpProvider discards all events. Useful when no message bus is configured.
type NoOpProvider struct{}

// Publish for NoOpProvider does nothing and returns nil.
func (NoOpProvider) Publish(_ context.Context, _ Event) error { return nil }

// Close for NoOpProvider does nothing and returns nil.
func (NoOpProvider) Close() error { return nil }
