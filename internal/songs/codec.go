package songs

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/oriys/songcache/internal/domain"
)

// ErrDecode marks a cache entry that is not a valid encoded song.
var ErrDecode = errors.New("songs: decode cached song")

func encodeSong(song *domain.Song) ([]byte, error) {
	data, err := json.Marshal(song)
	if err != nil {
		return nil, fmt.Errorf("encode song: %w", err)
	}
	return data, nil
}

func decodeSong(data []byte) (*domain.Song, error) {
	var song domain.Song
	if err := json.Unmarshal(data, &song); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if song.Title == "" {
		return nil, fmt.Errorf("%w: missing title", ErrDecode)
	}
	return &song, nil
}
