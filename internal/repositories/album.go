package repositories

import (
	"database/sql"
	"fmt"

	"github.com/mkessler/crate/internal/models"
)

// AlbumRepository handles persistence for [models.Album] rows.
type AlbumRepository struct {
	q Querier
}

// NewAlbumRepository creates a new AlbumRepository over the given querier
func NewAlbumRepository(q Querier) *AlbumRepository {
	return &AlbumRepository{q: q}
}

// Create inserts a new album and sets its generated surrogate ID.
//
// A nil ReleaseYear is stored as NULL; genre may be blank.
func (r *AlbumRepository) Create(album *models.Album) error {
	if err := album.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	var year sql.NullInt64
	if album.ReleaseYear != nil {
		year = sql.NullInt64{Int64: int64(*album.ReleaseYear), Valid: true}
	}

	var genre sql.NullString
	if album.Genre != "" {
		genre = sql.NullString{String: album.Genre, Valid: true}
	}

	result, err := r.q.Exec(
		"INSERT INTO albums (title, artist_id, genre, release_year) VALUES (?, ?, ?, ?)",
		album.Title, album.ArtistID, genre, year,
	)
	if err != nil {
		return fmt.Errorf("failed to insert album: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get album id: %w", err)
	}

	album.ID = id
	return nil
}

// GetByArtistAndTitle retrieves an album by its owning artist and exact title.
func (r *AlbumRepository) GetByArtistAndTitle(artistID int64, title string) (*models.Album, error) {
	query := `
		SELECT id, title, artist_id, genre, release_year
		FROM albums
		WHERE artist_id = ? AND title = ?
	`

	album, err := scanAlbum(r.q.QueryRow(query, artistID, title))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("album not found: %s: %w", title, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query album: %w", err)
	}

	return album, nil
}

// List retrieves all albums ordered by surrogate ID.
func (r *AlbumRepository) List() ([]models.Album, error) {
	rows, err := r.q.Query("SELECT id, title, artist_id, genre, release_year FROM albums ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query albums: %w", err)
	}
	defer rows.Close()

	var albums []models.Album
	for rows.Next() {
		album, err := scanAlbumRow(rows)
		if err != nil {
			return nil, err
		}
		albums = append(albums, *album)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return albums, nil
}

// Count returns the number of album rows.
func (r *AlbumRepository) Count() (int, error) {
	var count int
	if err := r.q.QueryRow("SELECT COUNT(*) FROM albums").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count albums: %w", err)
	}
	return count, nil
}

// scanAlbum scans a single [sql.Row] into a [models.Album]
func scanAlbum(row *sql.Row) (*models.Album, error) {
	var (
		album models.Album
		genre sql.NullString
		year  sql.NullInt64
	)

	if err := row.Scan(&album.ID, &album.Title, &album.ArtistID, &genre, &year); err != nil {
		return nil, err
	}

	applyAlbumNulls(&album, genre, year)
	return &album, nil
}

// scanAlbumRow scans the current row of a [sql.Rows] into a [models.Album]
func scanAlbumRow(rows *sql.Rows) (*models.Album, error) {
	var (
		album models.Album
		genre sql.NullString
		year  sql.NullInt64
	)

	if err := rows.Scan(&album.ID, &album.Title, &album.ArtistID, &genre, &year); err != nil {
		return nil, fmt.Errorf("failed to scan album: %w", err)
	}

	applyAlbumNulls(&album, genre, year)
	return &album, nil
}

func applyAlbumNulls(album *models.Album, genre sql.NullString, year sql.NullInt64) {
	if genre.Valid {
		album.Genre = genre.String
	}
	if year.Valid {
		y := int(year.Int64)
		album.ReleaseYear = &y
	}
}
