package memory

import (
	"context"
	"sync"
)

// ResumeCache keeps quiz snapshots in process memory, keyed by owner.
type ResumeCache struct {
	mu        sync.RWMutex
	snapshots map[string][]byte
}

func NewResumeCache() *ResumeCache {
	return &ResumeCache{snapshots: make(map[string][]byte)}
}

func (c *ResumeCache) Put(_ context.Context, ownerID string, snapshot []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots[ownerID] = cloneBytes(snapshot)
	return nil
}

func (c *ResumeCache) Get(_ context.Context, ownerID string) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snapshot, ok := c.snapshots[ownerID]
	if !ok {
		return nil, false, nil
	}
	return cloneBytes(snapshot), true, nil
}

func (c *ResumeCache) Delete(_ context.Context, ownerID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.snapshots, ownerID)
	return nil
}
