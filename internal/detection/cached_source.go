// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

package detection

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/civicpulse/internal/cache"
	"github.com/tomtom215/civicpulse/internal/metrics"
)

const (
	snapshotKeyPrefix = "snapshot:"

	// defaultSnapshotFetchTimeout bounds a shared fetch, which no longer
	// follows any single caller's context.
	defaultSnapshotFetchTimeout = 30 * time.Second
)

// CachedSource keeps recent snapshots for a short TTL so that bursts of
// dashboard requests share one storage query. Concurrent misses for the same
// region are collapsed into a single fetch. Cached slices are shared between
// callers and must be treated as read-only.
//
// The shared fetch runs detached from the caller that started it, so one
// cancelled request does not fail the others waiting on it. Every
// Invalidate starts a new generation; a fetch begun in an older generation
// never populates the cache.
type CachedSource struct {
	next         ReportSource
	snapshots    *cache.Cache[[]Report]
	group        singleflight.Group
	generation   atomic.Uint64
	fetchTimeout time.Duration
}

// NewCachedSource wraps next with a snapshot cache of the given TTL.
func NewCachedSource(next ReportSource, ttl time.Duration) *CachedSource {
	return &CachedSource{
		next:         next,
		snapshots:    cache.New[[]Report](ttl),
		fetchTimeout: defaultSnapshotFetchTimeout,
	}
}

// FetchActiveReports implements ReportSource.
func (c *CachedSource) FetchActiveReports(ctx context.Context, region string) ([]Report, error) {
	key := snapshotKeyPrefix + region
	if reports, ok := c.snapshots.Get(key); ok {
		metrics.RecordSnapshotCache(true)
		return reports, nil
	}
	metrics.RecordSnapshotCache(false)

	gen := c.generation.Load()
	flight := key + "@" + strconv.FormatUint(gen, 10)
	ch := c.group.DoChan(flight, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()

		reports, err := c.next.FetchActiveReports(fetchCtx, region)
		if err != nil {
			return nil, err
		}
		if c.generation.Load() == gen {
			c.snapshots.Set(key, reports)
			// Invalidate may have run between the check and the Set.
			if c.generation.Load() != gen {
				c.snapshots.Delete(key)
			}
		}
		return reports, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]Report), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Invalidate drops every cached snapshot. Called after a write so the next
// read reflects it.
func (c *CachedSource) Invalidate() {
	c.generation.Add(1)
	c.snapshots.DeletePrefix(snapshotKeyPrefix)
}

// Close stops the cache sweeper.
func (c *CachedSource) Close() {
	c.snapshots.Close()
}
