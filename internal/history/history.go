// Package history persists a record of completed searches. The interface
// decouples the orchestrator from a specific database; production uses
// Postgres, tests and minimal deployments use the no-op provider.
package history

import (
	"context"
	"time"
)

// Record holds the essential facts about one completed search job.
type Record struct {
	JobID         string
	SearchTerm    string
	Location      string
	ResultsWanted int
	ReturnedCount int
	Analyzed      bool
	OutputFile    string
	CreatedAt     time.Time
}

// Provider is the common interface for the history layer.
type Provider interface {
	// SaveSearch stores the record and returns the persisted row id.
	SaveSearch(ctx context.Context, rec Record) (string, error)

	// Close releases any underlying resources.
	Close() error
}

// NoOpProvider discards history records.
type NoOpProvider struct{}

// SaveSearch for NoOpProvider does nothing and returns a dummy id.
func (NoOpProvider) SaveSearch(_ context.Context, _ Record) (string, error) {
	return "noop-search-id", nil
}

// Close for NoOpProvider does nothing and returns nil.
func (NoOpProvider) Close() error { return nil }
