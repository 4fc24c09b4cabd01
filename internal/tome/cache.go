package tome

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/LISSConsulting/LISSTech.Spellbook/internal/logging"
)

// Cache memoizes resolved actions for the life of the process. Fetches run
// in the background; at most one is outstanding per id. A failed id is not
// retried until the retry quiet period has passed.
type Cache struct {
	resolver   Resolver
	timeout    time.Duration
	retryAfter time.Duration
	now        func() time.Time
	logger     *slog.Logger
	results    chan Result

	mu       sync.Mutex
	actions  map[string]Action
	inflight map[string]struct{}
	failedAt map[string]time.Time
	wg       sync.WaitGroup
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithTimeout bounds each fetch.
func WithTimeout(d time.Duration) CacheOption {
	return func(c *Cache) { c.timeout = d }
}

// WithRetryAfter sets the quiet period after a failed fetch.
func WithRetryAfter(d time.Duration) CacheOption {
	return func(c *Cache) { c.retryAfter = d }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

// WithLogger sets the cache logger.
func WithLogger(logger *slog.Logger) CacheOption {
	return func(c *Cache) { c.logger = logger }
}

// NewCache creates an empty cache backed by resolver.
func NewCache(resolver Resolver, opts ...CacheOption) *Cache {
	c := &Cache{
		resolver:   resolver,
		timeout:    10 * time.Second,
		retryAfter: 30 * time.Second,
		now:        time.Now,
		results:    make(chan Result, 64),
		actions:    make(map[string]Action),
		inflight:   make(map[string]struct{}),
		failedAt:   make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "tome")
	return c
}

// Results delivers the outcome of every background fetch.
func (c *Cache) Results() <-chan Result {
	return c.results
}

// Lookup returns the cached action for id.
func (c *Cache) Lookup(id string) (Action, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.actions[id]
	return a, ok
}

// Seed inserts previously resolved actions, e.g. from persisted state.
func (c *Cache) Seed(actions map[string]Action) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, a := range actions {
		c.actions[id] = a
	}
}

// Snapshot returns a copy of every cached action.
func (c *Cache) Snapshot() map[string]Action {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.actions)
}

// Len returns the number of cached actions.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.actions)
}

// Ensure starts a background fetch for id unless it is cached, already in
// flight, or failed within the retry quiet period. It never blocks on the
// fetch and reports whether a fetch was started.
func (c *Cache) Ensure(ctx context.Context, id string) bool {
	c.mu.Lock()
	if _, ok := c.actions[id]; ok {
		c.mu.Unlock()
		return false
	}
	if _, ok := c.inflight[id]; ok {
		c.mu.Unlock()
		return false
	}
	if at, ok := c.failedAt[id]; ok && c.now().Sub(at) < c.retryAfter {
		c.mu.Unlock()
		return false
	}
	c.inflight[id] = struct{}{}
	c.wg.Add(1)
	c.mu.Unlock()

	go c.fetch(ctx, id)
	return true
}

// Wait blocks until every started fetch has delivered its result.
func (c *Cache) Wait() {
	c.wg.Wait()
}

func (c *Cache) fetch(ctx context.Context, id string) {
	defer c.wg.Done()

	fetchCtx, cancel := context.WithTimeout(ctx, c.timeout)
	action, err := c.resolver.Resolve(fetchCtx, id)
	cancel()

	c.mu.Lock()
	delete(c.inflight, id)
	if err != nil {
		c.failedAt[id] = c.now()
	} else {
		if action.ID == "" {
			action.ID = id
		}
		c.actions[id] = action
		delete(c.failedAt, id)
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("metadata lookup failed", slog.String(logging.FieldAbility, id), logging.Error(err))
	} else {
		c.logger.Debug("metadata resolved", slog.String(logging.FieldAbility, id), slog.String("name", action.Name))
	}

	select {
	case c.results <- Result{ID: id, Action: action, Err: err}:
	case <-ctx.Done():
	}
}
