package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/oriys/songcache/internal/domain"
)

// MemoryStore is an in-process SongStore. Rows are kept in insertion
// order, so FindByTitle returns the first song saved under a title.
type MemoryStore struct {
	mu    sync.RWMutex
	songs []domain.Song
}

var _ SongStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Insert(_ context.Context, song *domain.Song) error {
	if song.ID == "" {
		song.ID = uuid.New().String()
	}
	s.mu.Lock()
	s.songs = append(s.songs, *song)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) FindByTitle(_ context.Context, title string) (*domain.Song, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.songs {
		if s.songs[i].Title == title {
			cp := s.songs[i]
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// CountByTitle reports how many rows share a title.
func (s *MemoryStore) CountByTitle(title string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for i := range s.songs {
		if s.songs[i].Title == title {
			n++
		}
	}
	return n
}

func (s *MemoryStore) Ping(_ context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
