// Package jobcache keeps parsed job workbooks in memory for the life of the process.
package jobcache

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/cyramp/cyrscan/internal/workbook"
)

// LoadFunc parses a job's workbook.
type LoadFunc func(ctx context.Context, jobNumber string) (*workbook.JobPartSet, error)

// Cache maps job numbers to parsed part sets. Entries are written once and never
// evicted; concurrent first requests for a job share a single load, and failed loads
// are not remembered so the next request retries.
type Cache struct {
	load    LoadFunc
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.RWMutex
	entries map[string]*workbook.JobPartSet
	group   singleflight.Group

	loads  atomic.Int64
	hits   atomic.Int64
	misses atomic.Int64
}

type Option func(*Cache)

// WithLoadTimeout bounds a shared load independently of the callers waiting on it.
func WithLoadTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func New(load LoadFunc, opts ...Option) *Cache {
	c := &Cache{
		load:    load,
		timeout: 30 * time.Second,
		logger:  slog.Default(),
		entries: make(map[string]*workbook.JobPartSet),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Entries int   `json:"entries"`
	Loads   int64 `json:"loads"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

// Get returns the part set of jobNumber, loading it on first use.
func (c *Cache) Get(ctx context.Context, jobNumber string) (*workbook.JobPartSet, error) {
	key := strings.TrimSpace(jobNumber)
	if key == "" {
		return nil, fmt.Errorf("empty job number: %w", workbook.ErrFileNotFound)
	}

	if set, ok := c.Peek(key); ok {
		c.hits.Add(1)
		return set, nil
	}
	c.misses.Add(1)

	ch := c.group.DoChan(key, func() (any, error) {
		// Another flight may have stored the entry between Peek and DoChan.
		if set, ok := c.Peek(key); ok {
			return set, nil
		}

		// The load outlives any single caller so that a caller giving up does not
		// fail the others waiting on the same job.
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		c.loads.Add(1)
		set, err := c.load(loadCtx, key)
		if err != nil {
			c.logger.Warn("job load failed", "job_number", key, "error", err)
			return nil, err
		}

		c.mu.Lock()
		c.entries[key] = set
		c.mu.Unlock()
		return set, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*workbook.JobPartSet), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Peek returns a cached entry without loading.
func (c *Cache) Peek(jobNumber string) (*workbook.JobPartSet, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	set, ok := c.entries[strings.TrimSpace(jobNumber)]
	return set, ok
}

// Stats returns the current counters. Loads counts calls into the load function.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	n := len(c.entries)
	c.mu.RUnlock()
	return Stats{
		Entries: n,
		Loads:   c.loads.Load(),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
}

// Jobs lists the cached job numbers.
func (c *Cache) Jobs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.entries))
	for k := range c.entries {
		out = append(out, k)
	}
	return out
}
