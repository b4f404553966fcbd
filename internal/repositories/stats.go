package repositories

import (
	"database/sql"
	"fmt"
)

// LibraryOverview holds row counts for the three library tables.
type LibraryOverview struct {
	Artists int
	Albums  int
	Songs   int
}

// ArtistStat summarizes one artist's catalog footprint.
type ArtistStat struct {
	Name       string
	AlbumCount int
	SongCount  int
}

// GenreStat summarizes albums and artists per genre.
type GenreStat struct {
	Genre       string
	AlbumCount  int
	ArtistCount int
}

// YearStat counts albums released in a given year.
type YearStat struct {
	Year       int
	AlbumCount int
}

// AlbumStat summarizes one album and its song count.
type AlbumStat struct {
	Title     string
	Artist    string
	Year      *int
	SongCount int
}

// LibraryInsights holds aggregate averages across the library.
type LibraryInsights struct {
	AvgSongsPerAlbum   float64
	AvgAlbumsPerArtist float64
}

// StatsRepository runs read-only analysis queries across all three tables.
type StatsRepository struct {
	q Querier
}

// NewStatsRepository creates a new StatsRepository over the given querier
func NewStatsRepository(q Querier) *StatsRepository {
	return &StatsRepository{q: q}
}

// Overview returns row counts for all three tables.
func (r *StatsRepository) Overview() (*LibraryOverview, error) {
	var o LibraryOverview
	for _, c := range []struct {
		table string
		dest  *int
	}{
		{"artists", &o.Artists},
		{"albums", &o.Albums},
		{"songs", &o.Songs},
	} {
		if err := r.q.QueryRow("SELECT COUNT(*) FROM " + c.table).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", c.table, err)
		}
	}
	return &o, nil
}

// TopArtists returns artists ranked by album count, then song count.
func (r *StatsRepository) TopArtists(limit int) ([]ArtistStat, error) {
	query := `
		SELECT a.name, COUNT(DISTINCT al.id) AS album_count, COUNT(s.id) AS song_count
		FROM artists a
		JOIN albums al ON al.artist_id = a.id
		JOIN songs s ON s.album_id = al.id
		GROUP BY a.id, a.name
		ORDER BY album_count DESC, song_count DESC
		LIMIT ?
	`

	rows, err := r.q.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top artists: %w", err)
	}
	defer rows.Close()

	var stats []ArtistStat
	for rows.Next() {
		var s ArtistStat
		if err := rows.Scan(&s.Name, &s.AlbumCount, &s.SongCount); err != nil {
			return nil, fmt.Errorf("failed to scan artist stat: %w", err)
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

// GenreDistribution returns albums and distinct artists per genre, most common first.
// Albums without a genre are grouped under "Unknown".
func (r *StatsRepository) GenreDistribution(limit int) ([]GenreStat, error) {
	query := `
		SELECT COALESCE(genre, 'Unknown') AS genre,
			COUNT(DISTINCT id) AS album_count,
			COUNT(DISTINCT artist_id) AS artist_count
		FROM albums
		GROUP BY genre
		ORDER BY album_count DESC
		LIMIT ?
	`

	rows, err := r.q.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query genre distribution: %w", err)
	}
	defer rows.Close()

	var stats []GenreStat
	for rows.Next() {
		var s GenreStat
		if err := rows.Scan(&s.Genre, &s.AlbumCount, &s.ArtistCount); err != nil {
			return nil, fmt.Errorf("failed to scan genre stat: %w", err)
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

// YearDistribution returns album counts per release year, newest first.
// Albums with a NULL release year are excluded.
func (r *StatsRepository) YearDistribution(limit int) ([]YearStat, error) {
	query := `
		SELECT release_year, COUNT(*) AS album_count
		FROM albums
		WHERE release_year IS NOT NULL
		GROUP BY release_year
		ORDER BY release_year DESC
		LIMIT ?
	`

	rows, err := r.q.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query year distribution: %w", err)
	}
	defer rows.Close()

	var stats []YearStat
	for rows.Next() {
		var s YearStat
		if err := rows.Scan(&s.Year, &s.AlbumCount); err != nil {
			return nil, fmt.Errorf("failed to scan year stat: %w", err)
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

// ProlificAlbums returns albums ranked by song count.
func (r *StatsRepository) ProlificAlbums(limit int) ([]AlbumStat, error) {
	query := `
		SELECT al.title, a.name AS artist, al.release_year, COUNT(s.id) AS song_count
		FROM albums al
		JOIN artists a ON al.artist_id = a.id
		JOIN songs s ON s.album_id = al.id
		GROUP BY al.id, al.title, a.name, al.release_year
		ORDER BY song_count DESC
		LIMIT ?
	`

	rows, err := r.q.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query prolific albums: %w", err)
	}
	defer rows.Close()

	var stats []AlbumStat
	for rows.Next() {
		var (
			s    AlbumStat
			year sql.NullInt64
		)
		if err := rows.Scan(&s.Title, &s.Artist, &year, &s.SongCount); err != nil {
			return nil, fmt.Errorf("failed to scan album stat: %w", err)
		}
		if year.Valid {
			y := int(year.Int64)
			s.Year = &y
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

// Insights returns aggregate averages across the library.
func (r *StatsRepository) Insights() (*LibraryInsights, error) {
	var insights LibraryInsights

	songsQuery := `
		SELECT COALESCE(AVG(song_count), 0)
		FROM (
			SELECT COUNT(s.id) AS song_count
			FROM albums al
			JOIN songs s ON s.album_id = al.id
			GROUP BY al.id
		)
	`
	if err := r.q.QueryRow(songsQuery).Scan(&insights.AvgSongsPerAlbum); err != nil {
		return nil, fmt.Errorf("failed to query songs per album: %w", err)
	}

	albumsQuery := `
		SELECT COALESCE(AVG(album_count), 0)
		FROM (
			SELECT COUNT(al.id) AS album_count
			FROM artists a
			JOIN albums al ON al.artist_id = a.id
			GROUP BY a.id
		)
	`
	if err := r.q.QueryRow(albumsQuery).Scan(&insights.AvgAlbumsPerArtist); err != nil {
		return nil, fmt.Errorf("failed to query albums per artist: %w", err)
	}

	return &insights, nil
}
