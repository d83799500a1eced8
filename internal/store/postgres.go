package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oriys/songcache/internal/domain"
)

// PostgresStore persists songs in a single songs table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ SongStore = (*PostgresStore)(nil)

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	s := &PostgresStore{pool: pool}

	if err := s.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	if s.pool == nil {
		return fmt.Errorf("postgres not initialized")
	}
	return s.pool.Ping(ctx)
}

// Title is indexed, not unique.
func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS songs (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			singer TEXT NOT NULL,
			text TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_songs_title ON songs(title, created_at)`,
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Insert(ctx context.Context, song *domain.Song) error {
	if song.ID == "" {
		song.ID = uuid.New().String()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO songs (id, title, singer, text)
		VALUES ($1, $2, $3, $4)
	`, song.ID, song.Title, song.Singer, song.Text)
	if err != nil {
		return fmt.Errorf("insert song: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByTitle(ctx context.Context, title string) (*domain.Song, error) {
	var song domain.Song
	err := s.pool.QueryRow(ctx, `
		SELECT id, title, singer, text
		FROM songs
		WHERE title = $1
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`, title).Scan(&song.ID, &song.Title, &song.Singer, &song.Text)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find song by title: %w", err)
	}
	return &song, nil
}
