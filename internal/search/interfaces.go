package search

import (
	"context"
	"time"
)

// Fetcher is the external data-gathering collaborator. Implementations return
// raw job records for the query; they may over-deliver, the orchestrator
// truncates to the requested count.
type Fetcher interface {
	Fetch(ctx context.Context, q Query) ([]Job, error)
}

// Analyzer is the external analysis collaborator. AnalyzeBatch scores and
// enriches one batch of records against the keyword set. DefaultAnnotations
// produces the neutral fallback used when a batch fails; it must preserve
// input order and length.
type Analyzer interface {
	AnalyzeBatch(ctx context.Context, batch []Job, keywords map[string][]string) ([]Job, error)
	DefaultAnnotations(batch []Job) []Job
}

// Exporter persists the final record set as a tabular artifact. It returns
// the artifact name echoed to the client.
type Exporter interface {
	Export(ctx context.Context, jobID string, req Request, jobs []Job) (string, error)
}

// ProgressStore tracks the latest ProgressRecord per job id. Implementations
// never fail outward: backend errors are swallowed and logged, with an
// in-process fallback as the safety net.
type ProgressStore interface {
	// Put persists rec as the current state for jobID with a refreshed TTL.
	Put(ctx context.Context, jobID string, rec ProgressRecord)
	// Get returns the current record, or ok=false when absent everywhere.
	Get(ctx context.Context, jobID string) (rec ProgressRecord, ok bool)
	// Delete removes the record from every backend, best effort.
	Delete(ctx context.Context, jobID string)
}

// IDGenerator mints job identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// Clock abstracts time.Now for testability.
type Clock interface {
	Now() time.Time
}
