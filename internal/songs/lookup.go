package songs

import (
	"errors"

	"github.com/oriys/songcache/internal/domain"
)

// Source tells where a lookup found its song.
type Source int

const (
	SourceNone Source = iota
	SourceCache
	SourceStore
)

func (s Source) String() string {
	switch s {
	case SourceCache:
		return "cache"
	case SourceStore:
		return "store"
	default:
		return "none"
	}
}

// Lookup is the outcome of a cache-aside read. Song is nil when the song
// was not found for any reason; the error fields say which step failed.
type Lookup struct {
	Song   *domain.Song
	Source Source

	CacheErr    error // cache read failed or held an undecodable entry
	StoreErr    error // store read failed; nil when the song simply does not exist
	PopulateErr error // writing the store hit back into the cache failed
}

// Found reports whether a song was returned.
func (l Lookup) Found() bool {
	return l.Song != nil
}

// Err joins every failure recorded during the lookup.
func (l Lookup) Err() error {
	return errors.Join(l.CacheErr, l.StoreErr, l.PopulateErr)
}
