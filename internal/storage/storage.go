// Package storage defines the blob store interface used to persist exported
// result files. The abstraction keeps the export layer independent of the
// concrete backend (Google Cloud Storage, the local filesystem, or memory).
package storage

import (
	"context"
	"fmt"
	"io"
)

// BlobStore is the common interface for a blob storage backend.
type BlobStore interface {
	// PutObject uploads the content under path and returns the URI of the
	// stored object.
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}

// NoOpStore discards everything it is given. Useful for dry runs where
// searches execute but nothing is exported.
type NoOpStore struct{}

// PutObject drains the reader and returns a placeholder URI.
func (NoOpStore) PutObject(_ context.Context, path string, _ string, r io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", fmt.Errorf("drain object data: %w", err)
	}
	return "noop://" + path, nil
}

var _ BlobStore = NoOpStore{}
