// Package stats tracks success/failure counts of scraping operations.
package stats

import (
	"context"
	"sync/atomic"
	"time"

	"igproxy/pkg/logger"
)

// Snapshot is a point-in-time view of the counters
type Snapshot struct {
	Succeeded uint64 `json:"requests_succeeded"`
	Failed    uint64 `json:"requests_failed"`
}

// Counter counts succeeded and failed operations. It is constructed once at
// process start and shared by reference; all methods are safe for concurrent
// use and never lose updates.
type Counter struct {
	succeeded atomic.Uint64
	failed    atomic.Uint64
	logger    logger.Logger
}

// NewCounter creates a zeroed counter
func NewCounter(log logger.Logger) *Counter {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Counter{logger: log}
}

// IncrementSucceeded records one successful operation
func (c *Counter) IncrementSucceeded() {
	c.succeeded.Add(1)
}

// IncrementFailed records one failed operation
func (c *Counter) IncrementFailed() {
	c.failed.Add(1)
}

// Reset zeroes both counters
func (c *Counter) Reset() {
	c.succeeded.Store(0)
	c.failed.Store(0)
}

// Snapshot returns the current counts
func (c *Counter) Snapshot() Snapshot {
	return Snapshot{
		Succeeded: c.succeeded.Load(),
		Failed:    c.failed.Load(),
	}
}

// RunPeriodicReset zeroes the counters once per interval until the context is
// cancelled. Call it in its own goroutine; it returns when ctx is done.
func (c *Counter) RunPeriodicReset(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Debug("stats reset loop stopped")
			return
		case <-ticker.C:
			snapshot := c.Snapshot()
			c.Reset()
			c.logger.InfoWithFields("stats counters reset", map[string]interface{}{
				"succeeded": snapshot.Succeeded,
				"failed":    snapshot.Failed,
				"interval":  interval,
			})
		}
	}
}
