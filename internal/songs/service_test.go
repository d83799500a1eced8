package songs

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/oriys/songcache/internal/cache"
	"github.com/oriys/songcache/internal/domain"
	"github.com/oriys/songcache/internal/store"
)

// countingStore wraps a MemoryStore and counts calls so tests can assert
// whether the store was consulted.
type countingStore struct {
	*store.MemoryStore

	insertCalls atomic.Int64
	findCalls   atomic.Int64

	insertErr error
	findErr   error
}

func newCountingStore() *countingStore {
	return &countingStore{MemoryStore: store.NewMemoryStore()}
}

func (s *countingStore) Insert(ctx context.Context, song *domain.Song) error {
	s.insertCalls.Add(1)
	if s.insertErr != nil {
		return s.insertErr
	}
	return s.MemoryStore.Insert(ctx, song)
}

func (s *countingStore) FindByTitle(ctx context.Context, title string) (*domain.Song, error) {
	s.findCalls.Add(1)
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.MemoryStore.FindByTitle(ctx, title)
}

// flakyCache wraps an InMemoryCache with injectable failures.
type flakyCache struct {
	*cache.InMemoryCache

	getErr error
	setErr error

	getCalls atomic.Int64
	setCalls atomic.Int64
}

func newFlakyCache() *flakyCache {
	return &flakyCache{InMemoryCache: cache.NewInMemoryCache()}
}

func (c *flakyCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.getCalls.Add(1)
	if c.getErr != nil {
		return nil, c.getErr
	}
	return c.InMemoryCache.Get(ctx, key)
}

func (c *flakyCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.setCalls.Add(1)
	if c.setErr != nil {
		return c.setErr
	}
	return c.InMemoryCache.Set(ctx, key, value, ttl)
}

var errConnRefused = errors.New("dial tcp 127.0.0.1:6379: connection refused")

func seed(t *testing.T, s *countingStore, title, singer, text string) {
	t.Helper()
	if err := s.MemoryStore.Insert(context.Background(), &domain.Song{Title: title, Singer: singer, Text: text}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
}

func TestSave_PersistsToStore(t *testing.T) {
	st := newCountingStore()
	c := newFlakyCache()
	defer c.Close()
	svc := New(st, c, Options{})
	ctx := context.Background()

	if err := svc.Save(ctx, "Yesterday", "Beatles", "lyrics..."); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := st.MemoryStore.FindByTitle(ctx, "Yesterday")
	if err != nil {
		t.Fatalf("expected song in store: %v", err)
	}
	if got.Singer != "Beatles" || got.Text != "lyrics..." {
		t.Fatalf("unexpected stored song: %+v", got)
	}
	if c.setCalls.Load() != 0 || c.getCalls.Load() != 0 {
		t.Fatal("Save must not touch the cache")
	}
}

func TestSave_PropagatesStoreError(t *testing.T) {
	st := newCountingStore()
	st.insertErr = errors.New("write rejected")
	c := newFlakyCache()
	defer c.Close()
	svc := New(st, c, Options{})

	err := svc.Save(context.Background(), "Yesterday", "Beatles", "lyrics...")
	if !errors.Is(err, st.insertErr) {
		t.Fatalf("expected store error unmodified, got: %v", err)
	}
	if st.insertCalls.Load() != 1 {
		t.Fatalf("expected exactly one insert attempt, got %d", st.insertCalls.Load())
	}
}

func TestSave_DuplicatesAreIndependentRows(t *testing.T) {
	st := newCountingStore()
	c := newFlakyCache()
	defer c.Close()
	svc := New(st, c, Options{})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := svc.Save(ctx, "Yesterday", "Beatles", "lyrics..."); err != nil {
			t.Fatalf("Save #%d failed: %v", i+1, err)
		}
	}

	if n := st.CountByTitle("Yesterday"); n != 2 {
		t.Fatalf("expected 2 rows, got %d", n)
	}
}

func TestFindByTitle_MissPopulatesCache(t *testing.T) {
	st := newCountingStore()
	seed(t, st, "Yesterday", "Beatles", "lyrics...")
	c := newFlakyCache()
	defer c.Close()
	svc := New(st, c, Options{})
	ctx := context.Background()

	song, ok := svc.FindByTitle(ctx, "Yesterday")
	if !ok {
		t.Fatal("expected song to be found")
	}
	if song.Singer != "Beatles" {
		t.Fatalf("unexpected song: %+v", song)
	}

	raw, err := c.InMemoryCache.Get(ctx, "Yesterday")
	if err != nil {
		t.Fatalf("expected cache to be populated: %v", err)
	}
	var cached domain.Song
	if err := json.Unmarshal(raw, &cached); err != nil {
		t.Fatalf("cached value is not a JSON song: %v", err)
	}
	if cached != *song {
		t.Fatalf("cached %+v, returned %+v", cached, *song)
	}
}

func TestFindByTitle_CacheHitBypassesStore(t *testing.T) {
	st := newCountingStore()
	seed(t, st, "Yesterday", "Beatles", "original lyrics")
	c := newFlakyCache()
	defer c.Close()
	ctx := context.Background()

	cached, _ := json.Marshal(domain.Song{Title: "Yesterday", Singer: "Cover Band", Text: "cached lyrics"})
	c.InMemoryCache.Set(ctx, "Yesterday", cached, 0)

	svc := New(st, c, Options{})
	l := svc.Lookup(ctx, "Yesterday")

	if !l.Found() || l.Source != SourceCache {
		t.Fatalf("expected cache hit, got %+v", l)
	}
	if l.Song.Singer != "Cover Band" {
		t.Fatalf("expected cached song to win, got %+v", l.Song)
	}
	if st.findCalls.Load() != 0 {
		t.Fatalf("store must not be consulted on a cache hit, got %d calls", st.findCalls.Load())
	}
}

func TestFindByTitle_TotalMiss(t *testing.T) {
	st := newCountingStore()
	c := newFlakyCache()
	defer c.Close()
	svc := New(st, c, Options{})
	ctx := context.Background()

	l := svc.Lookup(ctx, "Unknown")
	if l.Found() {
		t.Fatalf("expected absent, got %+v", l.Song)
	}
	if l.Source != SourceNone || l.Err() != nil {
		t.Fatalf("plain not-found must not record errors: %+v", l)
	}
	if _, err := c.InMemoryCache.Get(ctx, "Unknown"); err != cache.ErrNotFound {
		t.Fatalf("cache must stay empty after a total miss, got: %v", err)
	}
	if c.setCalls.Load() != 0 {
		t.Fatalf("expected no cache writes, got %d", c.setCalls.Load())
	}
}

func TestFindByTitle_CacheOutageAsMiss(t *testing.T) {
	st := newCountingStore()
	seed(t, st, "Yesterday", "Beatles", "lyrics...")
	c := newFlakyCache()
	defer c.Close()
	c.getErr = errConnRefused

	svc := New(st, c, Options{CacheOutageAsMiss: true})
	l := svc.Lookup(context.Background(), "Yesterday")

	if l.Found() {
		t.Fatalf("expected absent during cache outage, got %+v", l.Song)
	}
	if !errors.Is(l.CacheErr, errConnRefused) {
		t.Fatalf("expected cache error to be recorded, got %v", l.CacheErr)
	}
	if st.findCalls.Load() != 0 {
		t.Fatalf("store must not be consulted, got %d calls", st.findCalls.Load())
	}
}

func TestFindByTitle_CacheOutageFallsBackToStore(t *testing.T) {
	st := newCountingStore()
	seed(t, st, "Yesterday", "Beatles", "lyrics...")
	c := newFlakyCache()
	defer c.Close()
	c.getErr = errConnRefused

	svc := New(st, c, Options{})
	l := svc.Lookup(context.Background(), "Yesterday")

	if !l.Found() || l.Source != SourceStore {
		t.Fatalf("expected store fallback, got %+v", l)
	}
	if !errors.Is(l.CacheErr, errConnRefused) {
		t.Fatalf("expected cache error to be recorded, got %v", l.CacheErr)
	}
	if c.setCalls.Load() != 1 {
		t.Fatalf("expected a populate attempt, got %d", c.setCalls.Load())
	}

	song, ok := svc.FindByTitle(context.Background(), "Yesterday")
	if !ok || song.Singer != "Beatles" {
		t.Fatalf("FindByTitle should find the song via the store, got %+v, %v", song, ok)
	}
}

func TestFindByTitle_StoreErrorIsAbsent(t *testing.T) {
	st := newCountingStore()
	st.findErr = errors.New("connection reset by peer")
	c := newFlakyCache()
	defer c.Close()
	svc := New(st, c, Options{})

	l := svc.Lookup(context.Background(), "Yesterday")
	if l.Found() {
		t.Fatal("expected absent on store error")
	}
	if !errors.Is(l.StoreErr, st.findErr) {
		t.Fatalf("expected store error to be recorded, got %v", l.StoreErr)
	}
	if c.setCalls.Load() != 0 {
		t.Fatal("cache must not be populated on store error")
	}
	if _, ok := svc.FindByTitle(context.Background(), "Yesterday"); ok {
		t.Fatal("FindByTitle must collapse store errors to absent")
	}
}

func TestFindByTitle_PopulateFailureStillReturnsSong(t *testing.T) {
	st := newCountingStore()
	seed(t, st, "Yesterday", "Beatles", "lyrics...")
	c := newFlakyCache()
	defer c.Close()
	c.setErr = errConnRefused

	svc := New(st, c, Options{})
	l := svc.Lookup(context.Background(), "Yesterday")

	if !l.Found() {
		t.Fatal("expected store hit to be returned despite populate failure")
	}
	if !errors.Is(l.PopulateErr, errConnRefused) {
		t.Fatalf("expected populate error, got %v", l.PopulateErr)
	}
}

func TestFindByTitle_CorruptEntryIsRepaired(t *testing.T) {
	st := newCountingStore()
	seed(t, st, "Yesterday", "Beatles", "lyrics...")
	c := newFlakyCache()
	defer c.Close()
	ctx := context.Background()
	c.InMemoryCache.Set(ctx, "Yesterday", []byte("{not json"), 0)

	svc := New(st, c, Options{})
	l := svc.Lookup(ctx, "Yesterday")

	if !l.Found() || l.Source != SourceStore {
		t.Fatalf("expected store fallback for corrupt entry, got %+v", l)
	}
	if !errors.Is(l.CacheErr, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", l.CacheErr)
	}

	l = svc.Lookup(ctx, "Yesterday")
	if l.Source != SourceCache {
		t.Fatalf("expected repaired entry to be served from cache, got %v", l.Source)
	}
}

func TestFindByTitle_EmptyCachedValueIsMiss(t *testing.T) {
	st := newCountingStore()
	seed(t, st, "Yesterday", "Beatles", "lyrics...")
	c := newFlakyCache()
	defer c.Close()
	ctx := context.Background()
	c.InMemoryCache.Set(ctx, "Yesterday", []byte{}, 0)

	l := New(st, c, Options{}).Lookup(ctx, "Yesterday")
	if l.Source != SourceStore || l.CacheErr != nil {
		t.Fatalf("expected clean miss to the store, got %+v", l)
	}
}

func TestFindByTitle_UsesConfiguredTTL(t *testing.T) {
	st := newCountingStore()
	seed(t, st, "Yesterday", "Beatles", "lyrics...")
	c := newFlakyCache()
	defer c.Close()
	ctx := context.Background()

	svc := New(st, c, Options{CacheTTL: 10 * time.Millisecond})
	if _, ok := svc.FindByTitle(ctx, "Yesterday"); !ok {
		t.Fatal("expected song")
	}
	time.Sleep(20 * time.Millisecond)

	if _, err := c.InMemoryCache.Get(ctx, "Yesterday"); err != cache.ErrNotFound {
		t.Fatalf("expected cache entry to expire, got: %v", err)
	}
}

func TestScenario_SaveThenLookupTwice(t *testing.T) {
	st := newCountingStore()
	c := newFlakyCache()
	defer c.Close()
	svc := New(st, c, Options{})
	ctx := context.Background()

	if err := svc.Save(ctx, "Yesterday", "Beatles", "lyrics..."); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	first := svc.Lookup(ctx, "Yesterday")
	if !first.Found() || first.Source != SourceStore {
		t.Fatalf("first lookup should come from the store, got %+v", first)
	}
	if st.findCalls.Load() != 1 {
		t.Fatalf("expected 1 store query, got %d", st.findCalls.Load())
	}

	second := svc.Lookup(ctx, "Yesterday")
	if !second.Found() || second.Source != SourceCache {
		t.Fatalf("second lookup should come from the cache, got %+v", second)
	}
	if st.findCalls.Load() != 1 {
		t.Fatalf("store must not be queried again, got %d calls", st.findCalls.Load())
	}
	if *first.Song != *second.Song {
		t.Fatalf("payload changed between lookups: %+v vs %+v", first.Song, second.Song)
	}
}

func TestSaveDoesNotInvalidateCachedSong(t *testing.T) {
	st := newCountingStore()
	seed(t, st, "Yesterday", "Beatles", "v1")
	c := newFlakyCache()
	defer c.Close()
	svc := New(st, c, Options{})
	ctx := context.Background()

	svc.FindByTitle(ctx, "Yesterday")
	if err := svc.Save(ctx, "Yesterday", "Beatles", "v2"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	song, ok := svc.FindByTitle(ctx, "Yesterday")
	if !ok || song.Text != "v1" {
		t.Fatalf("expected stale cached v1, got %+v", song)
	}
}

func TestPing(t *testing.T) {
	st := newCountingStore()
	c := newFlakyCache()
	defer c.Close()

	storeErr, cacheErr := New(st, c, Options{}).Ping(context.Background())
	if storeErr != nil || cacheErr != nil {
		t.Fatalf("unexpected ping errors: store=%v cache=%v", storeErr, cacheErr)
	}
}

func TestSourceString(t *testing.T) {
	for src, want := range map[Source]string{SourceNone: "none", SourceCache: "cache", SourceStore: "store"} {
		if got := src.String(); got != want {
			t.Fatalf("Source(%d).String() = %q, want %q", src, got, want)
		}
	}
}
