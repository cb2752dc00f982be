// Package progress tracks the latest status snapshot per search job.
//
// Writes prefer a shared cache (Redis) so progress is visible across
// processes; when the cache is unreachable the store transparently falls
// back to an in-process lock-guarded table. No operation propagates a
// backend error to its caller: availability wins over durability for this
// ephemeral, advisory data.
package progress

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/seekrai/jobsearch/internal/search"
)

// ErrCacheMiss signals that the shared cache has no value for the key.
var ErrCacheMiss = errors.New("progress: cache miss")

const (
	keyPrefix   = "job_progress:"
	defaultTTL  = time.Hour
	pingTimeout = 500 * time.Millisecond
)

// Cache is the narrow surface the store needs from a shared backend.
// Implementations must be safe for concurrent use; Get returns ErrCacheMiss
// for absent keys.
type Cache interface {
	Ping(ctx context.Context) error
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Del(ctx context.Context, key string) error
}

// Store implements search.ProgressStore over an optional shared cache plus
// an in-process fallback table. A nil cache means fallback-only operation.
type Store struct {
	cache  Cache
	local  *table
	ttl    time.Duration
	logger *zap.Logger
}

// NewStore constructs a Store. A zero ttl defaults to one hour.
func NewStore(cache Cache, ttl time.Duration, logger *zap.Logger) *Store {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		cache:  cache,
		local:  newTable(),
		ttl:    ttl,
		logger: logger,
	}
}

// Put persists rec as the current state for jobID with a refreshed TTL.
// Shared-cache failures fall back to the in-process table; the call always
// succeeds from the caller's perspective.
func (s *Store) Put(ctx context.Context, jobID string, rec search.ProgressRecord) {
	if c := s.reachable(ctx); c != nil {
		payload, err := json.Marshal(rec)
		if err != nil {
			s.logger.Warn("marshal progress record failed", zap.String("job_id", jobID), zap.Error(err))
		} else if err := c.Set(ctx, keyPrefix+jobID, payload, s.ttl); err == nil {
			return
		} else {
			s.logger.Warn("shared cache write failed, using fallback", zap.String("job_id", jobID), zap.Error(err))
		}
	}
	s.local.put(jobID, rec, s.ttl)
}

// Get returns the current record for jobID, trying the shared cache first
// and the fallback table on miss, unreachability, or decode failure. An
// unknown id yields ok=false, never an error.
func (s *Store) Get(ctx context.Context, jobID string) (search.ProgressRecord, bool) {
	if c := s.reachable(ctx); c != nil {
		payload, err := c.Get(ctx, keyPrefix+jobID)
		switch {
		case err == nil:
			var rec search.ProgressRecord
			if jsonErr := json.Unmarshal(payload, &rec); jsonErr == nil {
				return rec, true
			}
			s.logger.Warn("decode cached progress failed", zap.String("job_id", jobID))
		case !errors.Is(err, ErrCacheMiss):
			s.logger.Warn("shared cache read failed, using fallback", zap.String("job_id", jobID), zap.Error(err))
		}
	}
	return s.local.get(jobID)
}

// Delete removes the record for jobID: best effort against the shared cache
// and unconditionally from the fallback table.
func (s *Store) Delete(ctx context.Context, jobID string) {
	if c := s.reachable(ctx); c != nil {
		if err := c.Del(ctx, keyPrefix+jobID); err != nil {
			s.logger.Warn("shared cache delete failed", zap.String("job_id", jobID), zap.Error(err))
		}
	}
	s.local.delete(jobID)
}

// reachable re-evaluates cache connectivity with a lightweight round trip.
// Connectivity is probed per call; it is not assumed to be stable.
func (s *Store) reachable(ctx context.Context) Cache {
	if s.cache == nil {
		return nil
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := s.cache.Ping(pingCtx); err != nil {
		s.logger.Debug("shared cache unreachable", zap.Error(err))
		return nil
	}
	return s.cache
}

var _ search.ProgressStore = (*Store)(nil)
