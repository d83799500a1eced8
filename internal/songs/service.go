// Package songs implements save and cache-aside lookup of song records.
//
// A lookup consults the cache first. On a miss it reads the backing store
// and, when the song exists, writes the encoded song into the cache before
// returning it. Saves go straight to the store and never touch the cache,
// so a cached song can be stale until the cache entry expires.
//
// The package does not log; callers inspect the Lookup result to log or
// record metrics for the path that was taken.
package songs

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/oriys/songcache/internal/cache"
	"github.com/oriys/songcache/internal/domain"
	"github.com/oriys/songcache/internal/observability"
	"github.com/oriys/songcache/internal/store"
)

// Options tunes lookup behaviour.
type Options struct {
	// CacheTTL is passed to Cache.Set when populating after a store hit.
	// Zero leaves expiry to the cache's default policy.
	CacheTTL time.Duration

	// CacheOutageAsMiss makes a failing cache read report the song as
	// absent without consulting the store. Off by default: a cache outage
	// falls back to the store.
	CacheOutageAsMiss bool
}

// Service saves songs and looks them up through a cache.
type Service struct {
	store store.SongStore
	cache cache.Cache
	opts  Options
}

// New returns a Service over the given store and cache. Both are owned by
// the caller, which is responsible for closing them.
func New(s store.SongStore, c cache.Cache, opts Options) *Service {
	return &Service{store: s, cache: c, opts: opts}
}

// Options returns the options the service was built with.
func (s *Service) Options() Options {
	return s.opts
}

// Save inserts a song unconditionally. The store error is returned as is.
func (s *Service) Save(ctx context.Context, title, singer, text string) error {
	ctx, span := observability.StartSpan(ctx, "songs.Save", observability.AttrSongTitle.String(title))
	defer span.End()

	if err := s.store.Insert(ctx, &domain.Song{Title: title, Singer: singer, Text: text}); err != nil {
		observability.SetSpanError(span, err)
		return err
	}
	observability.SetSpanOK(span)
	return nil
}

// FindByTitle returns the song for title. Every failure, including cache
// and store errors, is reported as not found.
func (s *Service) FindByTitle(ctx context.Context, title string) (*domain.Song, bool) {
	l := s.Lookup(ctx, title)
	return l.Song, l.Found()
}

// Lookup performs the cache-aside read and reports how it was served.
func (s *Service) Lookup(ctx context.Context, title string) Lookup {
	ctx, span := observability.StartSpan(ctx, "songs.Lookup", observability.AttrSongTitle.String(title))
	defer span.End()

	l := s.lookup(ctx, title)

	span.SetAttributes(
		observability.AttrLookupSource.String(l.Source.String()),
		attribute.Bool("songcache.cache_error", l.CacheErr != nil),
	)
	if err := l.Err(); err != nil {
		observability.SetSpanError(span, err)
	} else {
		observability.SetSpanOK(span)
	}
	return l
}

func (s *Service) lookup(ctx context.Context, title string) Lookup {
	var l Lookup

	raw, err := s.cache.Get(ctx, title)
	switch {
	case err == nil && len(raw) == 0:
		// An empty value counts as a miss.
	case err == nil:
		song, decErr := decodeSong(raw)
		if decErr == nil {
			l.Song = song
			l.Source = SourceCache
			return l
		}
		// An unreadable entry is a miss; a store hit overwrites it.
		l.CacheErr = decErr
	case errors.Is(err, cache.ErrNotFound):
	default:
		l.CacheErr = err
		if s.opts.CacheOutageAsMiss {
			return l
		}
	}

	song, err := s.store.FindByTitle(ctx, title)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			l.StoreErr = err
		}
		return l
	}

	l.Song = song
	l.Source = SourceStore

	// The song is returned only after the populate call has completed.
	data, err := encodeSong(song)
	if err != nil {
		l.PopulateErr = err
		return l
	}
	if err := s.cache.Set(ctx, title, data, s.opts.CacheTTL); err != nil {
		l.PopulateErr = err
	}
	return l
}

// Ping checks the store and the cache.
func (s *Service) Ping(ctx context.Context) (storeErr, cacheErr error) {
	return s.store.Ping(ctx), s.cache.Ping(ctx)
}
