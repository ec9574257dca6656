package emails

import (
	"context"
	"sync"
)

// EventDeduper guarantees at-most-one notification per (message, kind)
// pair. FirstEmission records the pair and reports whether this call was
// the first to do so; every later call for the same pair returns false.
type EventDeduper interface {
	FirstEmission(ctx context.Context, messageID, kind string) (bool, error)
}

// MemoryDeduper is an in-process EventDeduper for tests and single-node
// deployments.
type MemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewMemoryDeduper creates an empty in-memory deduper.
func NewMemoryDeduper() *MemoryDeduper {
	return &MemoryDeduper{seen: make(map[string]struct{})}
}

func (d *MemoryDeduper) FirstEmission(_ context.Context, messageID, kind string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := messageID + ":" + kind
	if _, ok := d.seen[key]; ok {
		return false, nil
	}
	d.seen[key] = struct{}{}
	return true, nil
}
