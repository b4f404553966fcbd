package repositories

import (
	"fmt"

	"github.com/mkessler/crate/internal/models"
)

// SongRepository handles persistence for [models.Song] rows.
type SongRepository struct {
	q Querier
}

// NewSongRepository creates a new SongRepository over the given querier
func NewSongRepository(q Querier) *SongRepository {
	return &SongRepository{q: q}
}

// Create inserts a new song and sets its generated surrogate ID.
// The created_at timestamp is assigned by the store's column default.
func (r *SongRepository) Create(song *models.Song) error {
	if err := song.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	result, err := r.q.Exec("INSERT INTO songs (title, album_id) VALUES (?, ?)", song.Title, song.AlbumID)
	if err != nil {
		return fmt.Errorf("failed to insert song: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get song id: %w", err)
	}

	song.ID = id
	return nil
}

// List retrieves all songs ordered by surrogate ID.
func (r *SongRepository) List() ([]models.Song, error) {
	rows, err := r.q.Query("SELECT id, title, album_id, created_at FROM songs ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query songs: %w", err)
	}
	defer rows.Close()

	var songs []models.Song
	for rows.Next() {
		var song models.Song
		if err := rows.Scan(&song.ID, &song.Title, &song.AlbumID, &song.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan song: %w", err)
		}
		songs = append(songs, song)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return songs, nil
}

// Count returns the number of song rows.
func (r *SongRepository) Count() (int, error) {
	var count int
	if err := r.q.QueryRow("SELECT COUNT(*) FROM songs").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count songs: %w", err)
	}
	return count, nil
}
