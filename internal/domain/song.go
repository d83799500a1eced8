package domain

import (
	"errors"
	"strings"
)

var (
	// ErrMissingTitleOrSinger is returned when a save request lacks a title or singer.
	ErrMissingTitleOrSinger = errors.New("please send a title and a singer of the song")
	// ErrMissingText is returned when a save request has no lyric text.
	ErrMissingText = errors.New("please send some text lyrics of the song")
	// ErrMissingTitle is returned when a lookup is attempted without a title.
	ErrMissingTitle = errors.New("please send a proper song title")
)

// Song is a single lyric record keyed by its title. Titles are not unique:
// two saves of the same title produce two rows with distinct IDs.
type Song struct {
	ID     string `json:"id,omitempty"`
	Title  string `json:"title"`
	Singer string `json:"singer"`
	Text   string `json:"text"`
}

// ValidateSong checks the fields required to save a song. Transports call
// it before handing the values to the service.
func ValidateSong(title, singer, text string) error {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(singer) == "" {
		return ErrMissingTitleOrSinger
	}
	if strings.TrimSpace(text) == "" {
		return ErrMissingText
	}
	return nil
}

// ValidateTitle checks a lookup key.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return ErrMissingTitle
	}
	return nil
}
