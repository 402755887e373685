package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/Strob0t/taskalign/internal/port/cache"
	"github.com/Strob0t/taskalign/internal/port/tracker"
)

// CachedTracker caches a tracker's project list. Boards and issues are
// always read through, since alignment must see the current status.
type CachedTracker struct {
	tracker.Tracker
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedTracker wraps t. A nil cache disables caching.
func NewCachedTracker(t tracker.Tracker, c cache.Cache, ttl time.Duration) *CachedTracker {
	return &CachedTracker{Tracker: t, cache: c, ttl: ttl}
}

func (t *CachedTracker) projectsKey() string { return "projects:" + t.Tracker.Name() }

// ListProjects serves the project list from cache when possible. Cache
// errors fall through to the tracker; tracker errors are never cached.
func (t *CachedTracker) ListProjects(ctx context.Context) ([]tracker.Project, error) {
	if t.cache == nil {
		return t.Tracker.ListProjects(ctx)
	}
	key := t.projectsKey()
	if projects, ok, err := cache.GetJSON[[]tracker.Project](ctx, t.cache, key); err != nil {
		slog.DebugContext(ctx, "project cache read failed", "key", key, "error", err)
	} else if ok {
		return projects, nil
	}

	projects, err := t.Tracker.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	if err := cache.SetJSON(ctx, t.cache, key, projects, t.ttl); err != nil {
		slog.DebugContext(ctx, "project cache write failed", "key", key, "error", err)
	}
	return projects, nil
}

// CheckConfigured forwards to the wrapped tracker when it supports it.
func (t *CachedTracker) CheckConfigured() error {
	if cc, ok := t.Tracker.(configChecker); ok {
		return cc.CheckConfigured()
	}
	return nil
}

// Invalidate drops the cached project list.
func (t *CachedTracker) Invalidate(ctx context.Context) error {
	if t.cache == nil {
		return nil
	}
	return t.cache.Delete(ctx, t.projectsKey())
}
