package names

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultSnapshotTTL  = 60 * time.Second
	defaultSnapshotSize = 256
)

// CachedSource wraps a Source. Unfiltered snapshots are served from a TTL
// cache; every query is deduplicated while in flight.
type CachedSource struct {
	Source Source

	snapshots *expirable.LRU[string, []Name]
	inflight  singleflight.Group
}

// NewCachedSource caches unfiltered snapshots of src for ttl. A ttl <= 0 uses
// DefaultSnapshotTTL.
func NewCachedSource(src Source, ttl time.Duration) *CachedSource {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	return &CachedSource{
		Source:    src,
		snapshots: expirable.NewLRU[string, []Name](defaultSnapshotSize, nil, ttl),
	}
}

// FetchNames implements Source. Returned slices are shared and must not be
// modified.
func (c *CachedSource) FetchNames(ctx context.Context, q Query) ([]Name, error) {
	key := q.Key()
	cacheable := q.Unfiltered()
	if cacheable {
		if ns, ok := c.snapshots.Get(key); ok {
			return ns, nil
		}
	}

	// The shared fetch outlives any one caller; each caller only waits on
	// its own context.
	ch := c.inflight.DoChan(key, func() (any, error) {
		ns, err := c.Source.FetchNames(context.WithoutCancel(ctx), q)
		if err != nil {
			return nil, err
		}
		if cacheable {
			c.snapshots.Add(key, ns)
		}
		return ns, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]Name), nil
	}
}

// Purge drops every cached snapshot, e.g. after new names were indexed.
func (c *CachedSource) Purge() {
	c.snapshots.Purge()
}
