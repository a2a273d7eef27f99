package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const maxAllocationAttempts = 50

// PathAllocator derives collision-free storage keys under a parent entity's
// namespace. Collisions against pre-existing objects are resolved by an
// existence-check-and-increment loop with a hard cap; past the cap a uuid
// suffix guarantees uniqueness. Keys handed out during the allocator's
// lifetime are reserved so that two identically-named files in one batch can
// never race to the same key.
type PathAllocator struct {
	store BlobStore

	mu       sync.Mutex
	reserved map[string]bool
}

func NewPathAllocator(store BlobStore) *PathAllocator {
	return &PathAllocator{
		store:    store,
		reserved: make(map[string]bool),
	}
}

func (a *PathAllocator) Allocate(ctx context.Context, entityID, filename string) (string, error) {
	base := sanitizeFilename(filename)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	for i := 0; i <= maxAllocationAttempts; i++ {
		candidate := fmt.Sprintf("%s/%s%s", entityID, stem, ext)
		if i > 0 {
			candidate = fmt.Sprintf("%s/%s-%d%s", entityID, stem, i, ext)
		}

		taken, err := a.tryReserve(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}

	// Pathological collision run; a random suffix always terminates.
	suffix := uuid.New().String()[:8]
	candidate := fmt.Sprintf("%s/%s-%s%s", entityID, stem, suffix, ext)
	a.mu.Lock()
	a.reserved[candidate] = true
	a.mu.Unlock()
	return candidate, nil
}

func (a *PathAllocator) tryReserve(ctx context.Context, key string) (taken bool, err error) {
	a.mu.Lock()
	if a.reserved[key] {
		a.mu.Unlock()
		return true, nil
	}
	a.mu.Unlock()

	exists, err := a.store.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check existing object %s: %w", key, err)
	}
	if exists {
		return true, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.reserved[key] {
		return true, nil
	}
	a.reserved[key] = true
	return false, nil
}

func sanitizeFilename(filename string) string {
	base := filepath.Base(filename)
	base = strings.ReplaceAll(base, " ", "_")
	return base
}
