// Package result caches finished analyses in memory and collapses
// concurrent requests for the same story into one pipeline run.
package result

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"threadlens/internal/analysis"
	"threadlens/internal/types"
)

// Key derives the cache key for a story under a specific engine
// configuration. Different configs never share an entry.
func Key(storyID string, cfg analysis.Config) string {
	raw, _ := json.Marshal(cfg)
	sum := sha256.Sum256(append([]byte(storyID+"\x00"), raw...))
	return storyID + ":" + hex.EncodeToString(sum[:8])
}

type call struct {
	done chan struct{}
	res  *types.AnalysisResult
	err  error
}

type Cache struct {
	lru *expirable.LRU[string, *types.AnalysisResult]

	mu       sync.Mutex
	inflight map[string]*call
}

func New(maxEntries int, ttl time.Duration) *Cache {
	if maxEntries <= 0 {
		maxEntries = 128
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Cache{
		lru:      expirable.NewLRU[string, *types.AnalysisResult](maxEntries, nil, ttl),
		inflight: make(map[string]*call),
	}
}

func (c *Cache) Get(key string) (*types.AnalysisResult, bool) {
	return c.lru.Get(key)
}

func (c *Cache) Invalidate(key string) {
	c.lru.Remove(key)
}

// Do returns the cached result for key, or runs fn to produce it. Concurrent
// callers with the same key share a single fn invocation. Errors are returned
// to every waiter and never cached.
func (c *Cache) Do(ctx context.Context, key string, fn func() (*types.AnalysisResult, error)) (*types.AnalysisResult, bool, error) {
	if res, ok := c.lru.Get(key); ok {
		return res, true, nil
	}

	c.mu.Lock()
	if cl, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		select {
		case <-cl.done:
			return cl.res, cl.res != nil, cl.err
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}
	cl := &call{done: make(chan struct{})}
	c.inflight[key] = cl
	c.mu.Unlock()

	cl.res, cl.err = fn()
	if cl.err == nil && cl.res != nil {
		c.lru.Add(key, cl.res)
	}

	c.mu.Lock()
	delete(c.inflight, key)
	c.mu.Unlock()
	close(cl.done)

	return cl.res, false, cl.err
}
