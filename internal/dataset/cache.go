// Package dataset loads and memoizes normalized record sets keyed by
// dataset identity.
package dataset

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/bizmap/internal/model"
	"github.com/sells-group/bizmap/internal/normalize"
	"github.com/sells-group/bizmap/internal/source"
)

// Loader resolves a dataset's current identity and reads its rows.
// *source.Reader implements it.
type Loader interface {
	Identity(ctx context.Context, location string) (string, error)
	Read(ctx context.Context, location string) (*source.Table, error)
}

// Recorder receives the audit trail of load attempts. store.Store
// implements it.
type Recorder interface {
	CreateLoadRun(ctx context.Context, location, identity string) (*model.LoadRun, error)
	CompleteLoadRun(ctx context.Context, id string, stats model.LoadStats) error
	FailLoadRun(ctx context.Context, id string, cause string) error
}

// Snapshot is an immutable normalized record set. Callers must not
// modify Records or Schema.
type Snapshot struct {
	Location string
	Identity string
	Records  []model.Record
	Schema   model.Schema
	Stats    model.LoadStats
	LoadedAt time.Time
}

// Empty returns the snapshot handed out when a load fails.
func Empty(location string) *Snapshot {
	return &Snapshot{Location: location, Records: []model.Record{}, Schema: model.Schema{}}
}

// Cache memoizes one snapshot per location. A cached snapshot is served
// without consulting the loader until the revalidation window passes;
// after that the dataset's identity is checked and the snapshot reloaded
// only if it changed. Concurrent first requests for the same identity
// share a single load.
type Cache struct {
	loader     Loader
	recorder   Recorder
	revalidate time.Duration
	now        func() time.Time

	group singleflight.Group

	mu      sync.RWMutex
	entries map[string]*entry
}

type entry struct {
	snap    *Snapshot
	checked time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithRecorder records every load attempt.
func WithRecorder(r Recorder) Option {
	return func(c *Cache) { c.recorder = r }
}

// WithRevalidateAfter sets how long a snapshot is served before the
// dataset's identity is checked again. Zero or less disables the check:
// the snapshot then lives until Invalidate or Reload.
func WithRevalidateAfter(d time.Duration) Option {
	return func(c *Cache) { c.revalidate = d }
}

// New creates a Cache backed by loader.
func New(loader Loader, opts ...Option) *Cache {
	c := &Cache{
		loader:  loader,
		now:     time.Now,
		entries: make(map[string]*entry),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Get returns the snapshot for location, loading it on first use or when
// a revalidation finds the dataset changed. A failed revalidation keeps
// serving the cached snapshot. When no snapshot can be produced it
// returns an empty snapshot together with a *model.DataLoadError;
// failures are not cached.
func (c *Cache) Get(ctx context.Context, location string) (*Snapshot, error) {
	cached, due := c.cached(location)
	if cached != nil && !due {
		return cached, nil
	}

	identity, err := c.loader.Identity(ctx, location)
	if err != nil {
		if cached != nil {
			zap.L().Warn("dataset version check failed, serving cached snapshot",
				zap.String("component", "dataset.cache"),
				zap.String("location", location),
				zap.String("identity", cached.Identity),
				zap.Error(err),
			)
			c.touch(location, cached)
			return cached, nil
		}
		return Empty(location), model.NewDataLoadError(location, err)
	}

	if cached != nil && cached.Identity == identity {
		c.touch(location, cached)
		return cached, nil
	}

	// The load outlives any single caller: others may be waiting on it.
	loadCtx := context.WithoutCancel(ctx)
	v, err, shared := c.group.Do(identity, func() (any, error) {
		if snap := c.lookup(location, identity); snap != nil {
			return snap, nil
		}
		return c.load(loadCtx, location, identity)
	})
	if err != nil {
		return Empty(location), err
	}
	if shared {
		zap.L().Debug("dataset load shared", zap.String("location", location))
	}
	return v.(*Snapshot), nil
}

// Invalidate drops the cached snapshot for location.
func (c *Cache) Invalidate(location string) {
	c.mu.Lock()
	delete(c.entries, location)
	c.mu.Unlock()
}

// Reload discards the cached snapshot and loads location again.
func (c *Cache) Reload(ctx context.Context, location string) (*Snapshot, error) {
	c.Invalidate(location)
	return c.Get(ctx, location)
}

// cached returns the snapshot for location and whether its identity is
// due for a check.
func (c *Cache) cached(location string) (*Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[location]
	if !ok {
		return nil, true
	}
	if c.revalidate <= 0 {
		return e.snap, false
	}
	return e.snap, c.now().Sub(e.checked) >= c.revalidate
}

// touch restarts the revalidation window if snap is still current.
func (c *Cache) touch(location string, snap *Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[location]; ok && e.snap == snap {
		e.checked = c.now()
	}
}

func (c *Cache) lookup(location, identity string) *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if e, ok := c.entries[location]; ok && e.snap.Identity == identity {
		return e.snap
	}
	return nil
}

func (c *Cache) load(ctx context.Context, location, identity string) (*Snapshot, error) {
	log := zap.L().With(zap.String("component", "dataset.cache"), zap.String("location", location))
	start := c.now()

	run := c.startRun(ctx, log, location, identity)

	snap, err := c.build(ctx, location, identity)
	if err != nil {
		log.Error("dataset load failed", zap.Error(err))
		c.failRun(ctx, log, run, err)
		return nil, model.NewDataLoadError(location, err)
	}

	c.mu.Lock()
	c.entries[location] = &entry{snap: snap, checked: c.now()}
	c.mu.Unlock()

	log.Info("dataset loaded",
		zap.String("identity", identity),
		zap.Int("records", len(snap.Records)),
		zap.Duration("elapsed", c.now().Sub(start)),
	)
	c.completeRun(ctx, log, run, snap.Stats)
	return snap, nil
}

func (c *Cache) build(ctx context.Context, location, identity string) (*Snapshot, error) {
	table, err := c.loader.Read(ctx, location)
	if err != nil {
		return nil, err
	}
	res, err := normalize.Normalize(table.Rows, table.Schema)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Location: location,
		Identity: identity,
		Records:  res.Records,
		Schema:   res.Schema,
		Stats:    res.Stats,
		LoadedAt: c.now(),
	}, nil
}

// Audit failures are logged and never fail the load.

func (c *Cache) startRun(ctx context.Context, log *zap.Logger, location, identity string) *model.LoadRun {
	if c.recorder == nil {
		return nil
	}
	run, err := c.recorder.CreateLoadRun(ctx, location, identity)
	if err != nil {
		log.Warn("record load run failed", zap.Error(err))
		return nil
	}
	return run
}

func (c *Cache) completeRun(ctx context.Context, log *zap.Logger, run *model.LoadRun, stats model.LoadStats) {
	if run == nil {
		return
	}
	if err := c.recorder.CompleteLoadRun(ctx, run.ID, stats); err != nil {
		log.Warn("complete load run failed", zap.String("run_id", run.ID), zap.Error(err))
	}
}

func (c *Cache) failRun(ctx context.Context, log *zap.Logger, run *model.LoadRun, cause error) {
	if run == nil {
		return
	}
	if err := c.recorder.FailLoadRun(ctx, run.ID, cause.Error()); err != nil {
		log.Warn("fail load run failed", zap.String("run_id", run.ID), zap.Error(err))
	}
}
