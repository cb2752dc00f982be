package notify

import (
	"context"
	"sync"
)

// MemoryProvider records events in memory for tests and local development.
type MemoryProvider struct {
	mu     sync.Mutex
	events []Event
}

// NewMemoryProvider constructs an empty MemoryProvider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{}
}

// Publish appends the event.
func (p *MemoryProvider) Publish(_ context.Context, evt Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

// Events returns a copy of everything published so far.
func (p *MemoryProvider) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// Close does nothing.
func (p *MemoryProvider) Close() error { return nil }

var _ Provider = (*MemoryProvider)(nil)
