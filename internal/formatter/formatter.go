// package formatter provides functions to export library tables to delimited flat files
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/mkessler/crate/internal/models"
	"github.com/mkessler/crate/internal/shared"
)

// timestampLayout matches the store's TIMESTAMP column rendering.
const timestampLayout = "2006-01-02 15:04:05"

// writeCSV renders a header row plus records with standard CSV escaping.
// Fields containing the delimiter, quotes, or newlines are quoted by encoding/csv.
func writeCSV(header []string, records [][]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ArtistsCSV renders the artists table with columns: id, name
func ArtistsCSV(artists []models.Artist) ([]byte, error) {
	records := make([][]string, 0, len(artists))
	for _, artist := range artists {
		records = append(records, []string{
			strconv.FormatInt(artist.ID, 10),
			artist.Name,
		})
	}

	return writeCSV([]string{"id", "name"}, records)
}

// AlbumsCSV renders the albums table with columns: id, title, artist_id, genre, release_year
//
// An absent release year exports as an empty field.
func AlbumsCSV(albums []models.Album) ([]byte, error) {
	records := make([][]string, 0, len(albums))
	for _, album := range albums {
		year := ""
		if album.ReleaseYear != nil {
			year = strconv.Itoa(*album.ReleaseYear)
		}

		records = append(records, []string{
			strconv.FormatInt(album.ID, 10),
			album.Title,
			strconv.FormatInt(album.ArtistID, 10),
			album.Genre,
			year,
		})
	}

	return writeCSV([]string{"id", "title", "artist_id", "genre", "release_year"}, records)
}

// SongsCSV renders the songs table with columns: id, title, album_id, created_at
func SongsCSV(songs []models.Song) ([]byte, error) {
	records := make([][]string, 0, len(songs))
	for _, song := range songs {
		createdAt := ""
		if !song.CreatedAt.IsZero() {
			createdAt = song.CreatedAt.UTC().Format(timestampLayout)
		}

		records = append(records, []string{
			strconv.FormatInt(song.ID, 10),
			song.Title,
			strconv.FormatInt(song.AlbumID, 10),
			createdAt,
		})
	}

	return writeCSV([]string{"id", "title", "album_id", "created_at"}, records)
}

// WriteManifest writes a pretty-printed JSON manifest for an export run.
func WriteManifest(manifest any, path string) error {
	data, err := shared.MarshalJSON(manifest, true)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	return nil
}

// FormatTimestamp renders a time the way the store's TIMESTAMP columns do.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
