package dataset

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bizmap/internal/model"
	"github.com/sells-group/bizmap/internal/source"
)

type fakeLoader struct {
	mu       sync.Mutex
	identity string
	table    *source.Table
	readErr  error
	idErr    error
	gate     chan struct{}
	reads    atomic.Int32
	checks   atomic.Int32
}

func (f *fakeLoader) Identity(_ context.Context, _ string) (string, error) {
	f.checks.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.identity, f.idErr
}

func (f *fakeLoader) Read(_ context.Context, _ string) (*source.Table, error) {
	f.reads.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.table, f.readErr
}

func (f *fakeLoader) setIdentity(id string) {
	f.mu.Lock()
	f.identity = id
	f.mu.Unlock()
}

func (f *fakeLoader) setIdentityErr(err error) {
	f.mu.Lock()
	f.idErr = err
	f.mu.Unlock()
}

// fakeClock is a settable time source for revalidation tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newRevalidatingCache(loader Loader, clock *fakeClock, opts ...Option) *Cache {
	c := New(loader, append([]Option{WithRevalidateAfter(time.Minute)}, opts...)...)
	c.now = clock.Now
	return c
}

func sampleTable() *source.Table {
	return &source.Table{
		Rows: []model.RawRow{
			{Latitude: "37.5", Longitude: "127.0", Address: "서울특별시 강남구"},
			{Latitude: "40.0", Longitude: "127.0"},
			{Latitude: "", Longitude: ""},
		},
		Schema: model.Schema{model.ColLatitude: true, model.ColLongitude: true, model.ColAddress: true},
	}
}

type fakeRecorder struct {
	mu        sync.Mutex
	created   []string
	completed map[string]model.LoadStats
	failed    map[string]string
	createErr error
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{completed: map[string]model.LoadStats{}, failed: map[string]string{}}
}

func (r *fakeRecorder) CreateLoadRun(_ context.Context, location, identity string) (*model.LoadRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	id := identity
	r.created = append(r.created, id)
	return &model.LoadRun{ID: id, Location: location, Identity: identity, Status: model.LoadStatusRunning}, nil
}

func (r *fakeRecorder) CompleteLoadRun(_ context.Context, id string, stats model.LoadStats) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed[id] = stats
	return nil
}

func (r *fakeRecorder) FailLoadRun(_ context.Context, id string, cause string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed[id] = cause
	return nil
}

func TestCache_LoadsAndNormalizes(t *testing.T) {
	loader := &fakeLoader{identity: "v1", table: sampleTable()}
	c := New(loader)

	snap, err := c.Get(context.Background(), "companies.csv")
	require.NoError(t, err)
	require.Len(t, snap.Records, 1)
	assert.Equal(t, "서울", snap.Records[0].Province)
	assert.Equal(t, "v1", snap.Identity)
	assert.True(t, snap.Schema.Has(model.ColProvince))
	assert.Equal(t, 3, snap.Stats.RowsRead)
	assert.Equal(t, 1, snap.Stats.DroppedOutOfBounds)
	assert.Equal(t, 1, snap.Stats.DroppedNoCoords)
	assert.False(t, snap.LoadedAt.IsZero())
}

func TestCache_ServesRepeatLoadsFromCache(t *testing.T) {
	loader := &fakeLoader{identity: "v1", table: sampleTable()}
	c := New(loader)

	first, err := c.Get(context.Background(), "companies.csv")
	require.NoError(t, err)
	second, err := c.Get(context.Background(), "companies.csv")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), loader.reads.Load())
}

func TestCache_CachedSnapshotSkipsVersionCheck(t *testing.T) {
	loader := &fakeLoader{identity: "v1", table: sampleTable()}
	c := New(loader)

	for range 10 {
		_, err := c.Get(context.Background(), "companies.csv")
		require.NoError(t, err)
	}

	assert.Equal(t, int32(1), loader.checks.Load())
	assert.Equal(t, int32(1), loader.reads.Load())
}

func TestCache_RevalidatesAfterWindow(t *testing.T) {
	clock := newFakeClock()
	loader := &fakeLoader{identity: "v1", table: sampleTable()}
	c := newRevalidatingCache(loader, clock)

	first, err := c.Get(context.Background(), "companies.csv")
	require.NoError(t, err)

	clock.Advance(30 * time.Second)
	_, err = c.Get(context.Background(), "companies.csv")
	require.NoError(t, err)
	assert.Equal(t, int32(1), loader.checks.Load(), "inside the window")

	clock.Advance(time.Minute)
	same, err := c.Get(context.Background(), "companies.csv")
	require.NoError(t, err)
	assert.Same(t, first, same)
	assert.Equal(t, int32(2), loader.checks.Load())
	assert.Equal(t, int32(1), loader.reads.Load(), "unchanged identity is not reloaded")

	// The successful check restarted the window.
	clock.Advance(30 * time.Second)
	_, err = c.Get(context.Background(), "companies.csv")
	require.NoError(t, err)
	assert.Equal(t, int32(2), loader.checks.Load())
}

func TestCache_FailedVersionCheckServesCachedSnapshot(t *testing.T) {
	clock := newFakeClock()
	loader := &fakeLoader{identity: "v1", table: sampleTable()}
	c := newRevalidatingCache(loader, clock)

	first, err := c.Get(context.Background(), "companies.csv")
	require.NoError(t, err)

	loader.setIdentityErr(errors.New("head: unexpected status 503"))
	clock.Advance(2 * time.Minute)

	snap, err := c.Get(context.Background(), "companies.csv")
	require.NoError(t, err)
	assert.Same(t, first, snap)
	assert.Len(t, snap.Records, 1)
	assert.Equal(t, int32(1), loader.reads.Load())

	// The failed check still restarts the window.
	_, err = c.Get(context.Background(), "companies.csv")
	require.NoError(t, err)
	assert.Equal(t, int32(2), loader.checks.Load())
}

func TestCache_ConcurrentFirstAccessLoadsOnce(t *testing.T) {
	loader := &fakeLoader{identity: "v1", table: sampleTable(), gate: make(chan struct{})}
	c := New(loader)

	const callers = 16
	var wg sync.WaitGroup
	snaps := make([]*Snapshot, callers)
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			snaps[i], errs[i] = c.Get(context.Background(), "companies.csv")
		}(i)
	}

	require.Eventually(t, func() bool { return loader.reads.Load() == 1 }, time.Second, time.Millisecond)
	close(loader.gate)
	wg.Wait()

	assert.Equal(t, int32(1), loader.reads.Load())
	for i := range callers {
		require.NoError(t, errs[i])
		assert.Same(t, snaps[0], snaps[i])
	}
}

func TestCache_IdentityChangeReloads(t *testing.T) {
	clock := newFakeClock()
	loader := &fakeLoader{identity: "v1", table: sampleTable()}
	c := newRevalidatingCache(loader, clock)

	first, err := c.Get(context.Background(), "companies.csv")
	require.NoError(t, err)

	loader.setIdentity("v2")
	clock.Advance(time.Minute)
	second, err := c.Get(context.Background(), "companies.csv")
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, "v2", second.Identity)
	assert.Equal(t, int32(2), loader.reads.Load())
}

func TestCache_InvalidateAndReload(t *testing.T) {
	loader := &fakeLoader{identity: "v1", table: sampleTable()}
	c := New(loader)

	_, err := c.Get(context.Background(), "companies.csv")
	require.NoError(t, err)

	c.Invalidate("companies.csv")
	_, err = c.Get(context.Background(), "companies.csv")
	require.NoError(t, err)
	assert.Equal(t, int32(2), loader.reads.Load())

	_, err = c.Reload(context.Background(), "companies.csv")
	require.NoError(t, err)
	assert.Equal(t, int32(3), loader.reads.Load())
}

func TestCache_ReadFailure(t *testing.T) {
	loader := &fakeLoader{identity: "v1", readErr: errors.New("xlsx: open file")}
	c := New(loader)

	snap, err := c.Get(context.Background(), "companies.xlsx")
	require.Error(t, err)
	assert.True(t, model.IsDataLoadError(err))
	require.NotNil(t, snap)
	assert.Empty(t, snap.Records)
	assert.NotNil(t, snap.Records)

	// Failures are not memoized.
	_, err = c.Get(context.Background(), "companies.xlsx")
	require.Error(t, err)
	assert.Equal(t, int32(2), loader.reads.Load())
}

func TestCache_NormalizeFailure(t *testing.T) {
	table := &source.Table{
		Rows:   []model.RawRow{{Latitude: "abc", Longitude: "127"}},
		Schema: model.Schema{model.ColLatitude: true, model.ColLongitude: true},
	}
	c := New(&fakeLoader{identity: "v1", table: table})

	snap, err := c.Get(context.Background(), "companies.csv")
	require.Error(t, err)

	var dle *model.DataLoadError
	require.ErrorAs(t, err, &dle)
	assert.Equal(t, "companies.csv", dle.Location)
	assert.Empty(t, snap.Records)
}

func TestCache_IdentityFailure(t *testing.T) {
	loader := &fakeLoader{idErr: errors.New("source: stat dataset")}
	c := New(loader)

	snap, err := c.Get(context.Background(), "missing.csv")
	require.Error(t, err)
	assert.True(t, model.IsDataLoadError(err))
	assert.Empty(t, snap.Records)
	assert.Zero(t, loader.reads.Load())
}

func TestCache_RecordsLoadRuns(t *testing.T) {
	rec := newFakeRecorder()
	clock := newFakeClock()
	loader := &fakeLoader{identity: "v1", table: sampleTable()}
	c := newRevalidatingCache(loader, clock, WithRecorder(rec))

	_, err := c.Get(context.Background(), "companies.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"v1"}, rec.created)
	assert.Equal(t, 1, rec.completed["v1"].RecordsKept)

	loader.setIdentity("v2")
	loader.mu.Lock()
	loader.readErr = errors.New("boom")
	loader.mu.Unlock()
	clock.Advance(time.Minute)
	_, err = c.Get(context.Background(), "companies.csv")
	require.Error(t, err)
	assert.Equal(t, "boom", rec.failed["v2"])
}

func TestCache_RecorderFailureDoesNotFailLoad(t *testing.T) {
	rec := newFakeRecorder()
	rec.createErr = errors.New("database is locked")
	c := New(&fakeLoader{identity: "v1", table: sampleTable()}, WithRecorder(rec))

	snap, err := c.Get(context.Background(), "companies.csv")
	require.NoError(t, err)
	assert.Len(t, snap.Records, 1)
	assert.Empty(t, rec.completed)
}
