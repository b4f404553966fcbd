package repositories

import (
	"database/sql"
	"fmt"

	"github.com/mkessler/crate/internal/models"
)

// ArtistRepository handles persistence for [models.Artist] rows.
type ArtistRepository struct {
	q Querier
}

// NewArtistRepository creates a new ArtistRepository over the given querier
func NewArtistRepository(q Querier) *ArtistRepository {
	return &ArtistRepository{q: q}
}

// Create inserts a new artist and sets its generated surrogate ID.
func (r *ArtistRepository) Create(artist *models.Artist) error {
	if err := artist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	result, err := r.q.Exec("INSERT INTO artists (name) VALUES (?)", artist.Name)
	if err != nil {
		return fmt.Errorf("failed to insert artist: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get artist id: %w", err)
	}

	artist.ID = id
	return nil
}

// GetByName retrieves an artist by exact name.
//
// Returns [sql.ErrNoRows] wrapped when no artist with that name exists, which
// the ingestion engine uses to recover from unique-constraint rejections on
// re-runs against a non-cleared store.
func (r *ArtistRepository) GetByName(name string) (*models.Artist, error) {
	var artist models.Artist

	err := r.q.QueryRow("SELECT id, name FROM artists WHERE name = ?", name).Scan(&artist.ID, &artist.Name)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("artist not found: %s: %w", name, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query artist: %w", err)
	}

	return &artist, nil
}

// List retrieves all artists ordered by surrogate ID.
func (r *ArtistRepository) List() ([]models.Artist, error) {
	rows, err := r.q.Query("SELECT id, name FROM artists ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query artists: %w", err)
	}
	defer rows.Close()

	var artists []models.Artist
	for rows.Next() {
		var artist models.Artist
		if err := rows.Scan(&artist.ID, &artist.Name); err != nil {
			return nil, fmt.Errorf("failed to scan artist: %w", err)
		}
		artists = append(artists, artist)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return artists, nil
}

// Count returns the number of artist rows.
func (r *ArtistRepository) Count() (int, error) {
	var count int
	if err := r.q.QueryRow("SELECT COUNT(*) FROM artists").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count artists: %w", err)
	}
	return count, nil
}
