package storage

import (
	"context"
	"errors"
	"time"
)

var ErrObjectNotFound = errors.New("object not found")

// BlobStore is the object-storage contract the pipeline depends on. The S3
// implementation is the production one; tests substitute in-memory fakes.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Sign(ctx context.Context, key string, ttl time.Duration) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}
