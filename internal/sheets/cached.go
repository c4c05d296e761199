package sheets

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"lihkab/internal/cache"
	"lihkab/internal/log"
)

// DefaultReadTTL is how long a table read stays fresh in Cached.
const DefaultReadTTL = 5 * time.Second

// Cached is a Gateway that keeps recent reads for a short TTL. Concurrent
// misses for the same table share one upstream read. Writes go straight
// through and drop the cached copy of the table.
type Cached struct {
	next     Gateway
	ttl      time.Duration
	tables   *cache.LRUCache[Table]
	group    singleflight.Group
	notifier Notifier
	logger   *log.Logger

	mu  sync.Mutex
	gen map[string]uint64
}

// NewCached wraps next. A ttl of zero uses DefaultReadTTL.
func NewCached(next Gateway, ttl time.Duration, logger *log.Logger) *Cached {
	if ttl <= 0 {
		ttl = DefaultReadTTL
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Cached{
		next:   next,
		ttl:    ttl,
		tables: cache.NewLRUCache[Table](32, ttl),
		logger: logger.WithComponent(log.ComponentCache),
		gen:    make(map[string]uint64),
	}
}

// TTL returns how long a read stays fresh.
func (c *Cached) TTL() time.Duration {
	return c.ttl
}

// SetNotifier registers n to be told about every successful write.
func (c *Cached) SetNotifier(n Notifier) {
	c.notifier = n
}

// Read returns a copy of the table, from cache when fresh.
func (c *Cached) Read(ctx context.Context, table string) (Table, error) {
	if t, ok := c.tables.Get(table); ok {
		c.logger.DebugContext(ctx, "Cache hit", log.FieldTable, table)
		return t.Clone(), nil
	}
	gen := c.generation(table)
	ch := c.group.DoChan(table, func() (interface{}, error) {
		t, err := c.next.Read(ctx, table)
		if err != nil {
			return Table{}, err
		}
		// A write that landed while we were reading makes this result stale.
		if c.generation(table) == gen {
			c.tables.Set(table, t)
		}
		return t, nil
	})
	select {
	case <-ctx.Done():
		return Table{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Table{}, res.Err
		}
		return res.Val.(Table).Clone(), nil
	}
}

// ReadFresh bypasses the cached copy and refreshes it.
func (c *Cached) ReadFresh(ctx context.Context, table string) (Table, error) {
	c.Invalidate(table)
	return c.Read(ctx, table)
}

// Write overwrites the table upstream, drops the cached copy and notifies
// the registered Notifier. Notification failures are logged only.
func (c *Cached) Write(ctx context.Context, table string, t Table) error {
	err := c.next.Write(ctx, table, t)
	c.Invalidate(table)
	if err != nil {
		return err
	}
	if c.notifier != nil {
		if nerr := c.notifier.TableWritten(ctx, table, Fingerprint(t), t.Len()); nerr != nil {
			c.logger.WarnContext(ctx, "Failed to publish table write",
				log.FieldTable, table, log.FieldError, nerr)
		}
	}
	return nil
}

// Invalidate drops the cached copy of table.
func (c *Cached) Invalidate(table string) {
	c.mu.Lock()
	c.gen[table]++
	c.mu.Unlock()
	c.tables.Delete(table)
	c.group.Forget(table)
}

// CleanExpired lets a cache.Manager sweep this gateway.
func (c *Cached) CleanExpired() int {
	return c.tables.CleanExpired()
}

func (c *Cached) generation(table string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen[table]
}
