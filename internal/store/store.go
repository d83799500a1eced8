package store

import (
	"context"
	"errors"

	"github.com/oriys/songcache/internal/domain"
)

// ErrNotFound is returned by FindByTitle when no song has the given title.
var ErrNotFound = errors.New("store: song not found")

// SongStore is the durable record store for songs.
//
// Insert never checks for an existing title; saving the same song twice
// produces two independent rows. FindByTitle returns the oldest row for a
// title, or ErrNotFound.
type SongStore interface {
	Insert(ctx context.Context, song *domain.Song) error
	FindByTitle(ctx context.Context, title string) (*domain.Song, error)
	Ping(ctx context.Context) error
	Close() error
}
