package tasks

import (
	"context"
	"fmt"

	"github.com/mkessler/crate/internal/models"
	"github.com/mkessler/crate/internal/repositories"
	"github.com/mkessler/crate/internal/services"
	"github.com/mkessler/crate/internal/shared"
)

// BuildOpts contains configuration for a library build run.
type BuildOpts struct {
	Limit     int     // Results requested per artist search (default: 50)
	RateLimit float64 // Catalog requests per second (default: 5)
}

// albumKey identifies an album within a run by owning artist and title.
type albumKey struct {
	artistID int64
	title    string
}

// dedupState holds the run-scoped lookup caches.
//
// The catalog returns the same artist and album across many records, so a
// single-pass build needs O(1) lookups to avoid a query per record. Both maps
// are owned by one run and never shared across goroutines; artists are
// processed strictly one at a time.
type dedupState struct {
	artists map[string]int64   // normalized name -> artist id
	albums  map[albumKey]int64 // (artist id, normalized title) -> album id
}

func newDedupState() *dedupState {
	return &dedupState{
		artists: make(map[string]int64),
		albums:  make(map[albumKey]int64),
	}
}

// batchState tracks one artist batch's cache additions and counts so a
// rolled-back transaction can also revert the in-memory lookups.
type batchState struct {
	newArtists []string
	newAlbums  []albumKey
	artists    int
	albums     int
	songs      int
	skipped    int
}

func (b *batchState) revert(dedup *dedupState) {
	for _, key := range b.newArtists {
		delete(dedup.artists, key)
	}
	for _, key := range b.newAlbums {
		delete(dedup.albums, key)
	}
}

// Build runs the full ingestion pipeline: for each search term, fetch catalog
// records, normalize them into artist/album/song rows, and persist the batch
// in one transaction.
//
// Failures are per-artist: a failed fetch or a failed batch is recorded in
// the result and the run continues. Previously committed artists are never
// rolled back. Returns an error only for run-level conditions (cancellation,
// unusable store).
func (e *LibraryEngine) Build(ctx context.Context, progress chan<- ProgressUpdate, artistTerms []string, opts BuildOpts) (*BuildResult, error) {
	if e.catalog == nil {
		return nil, fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)
	}
	if e.db == nil {
		return nil, fmt.Errorf("%w: database not initialized", shared.ErrServiceUnavailable)
	}

	result := &BuildResult{RunID: shared.GenerateID()}
	dedup := newDedupState()
	limiter := newLimiter(opts.RateLimit)
	logger := shared.WithLogger(e.logger, "run_id", result.RunID)

	for i, term := range artistTerms {
		if err := limiter.Wait(ctx); err != nil {
			return result, fmt.Errorf("build cancelled: %w", err)
		}

		e.sendProgress(progress, fetchArtistUpdate(i+1, len(artistTerms), term))

		records, err := e.catalog.SearchSongs(ctx, term, opts.Limit)
		if err != nil {
			logger.Warn("fetch failed, skipping artist", "artist", term, "error", err)
			result.Failures = append(result.Failures, ArtistFailure{Artist: term, Err: err})
			e.sendProgress(progress, fetchFailedUpdate(i+1, len(artistTerms), term, err))
			continue
		}

		result.ArtistsSearched++
		result.RecordsFetched += len(records)
		e.sendProgress(progress, normalizeUpdate(i+1, len(artistTerms), term, len(records)))

		batch, err := e.persistBatch(dedup, records, logger)
		if err != nil {
			logger.Warn("batch failed, skipping artist", "artist", term, "error", err)
			result.Failures = append(result.Failures, ArtistFailure{Artist: term, Err: err})
			continue
		}

		result.ArtistsAdded += batch.artists
		result.AlbumsAdded += batch.albums
		result.SongsAdded += batch.songs
		result.RecordsSkipped += batch.skipped

		e.sendProgress(progress, commitUpdate(i+1, len(artistTerms), term, batch.songs))
	}

	logger.Info("build complete",
		"artists", result.ArtistsAdded,
		"albums", result.AlbumsAdded,
		"songs", result.SongsAdded,
		"skipped", result.RecordsSkipped,
		"failures", len(result.Failures),
	)

	return result, nil
}

// persistBatch normalizes one artist's records and writes them in a single
// transaction. On any persistence error the transaction is rolled back and
// the dedup caches are reverted to their pre-batch state.
func (e *LibraryEngine) persistBatch(dedup *dedupState, records []services.SongResult, logger loggerIface) (*batchState, error) {
	tx, err := e.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	batch := &batchState{}
	artists := repositories.NewArtistRepository(tx)
	albums := repositories.NewAlbumRepository(tx)
	songs := repositories.NewSongRepository(tx)

	for _, record := range records {
		if record.ArtistName == "" || record.CollectionName == "" || record.TrackName == "" {
			logger.Warn("skipping record with missing fields",
				"artist", record.ArtistName, "album", record.CollectionName, "track", record.TrackName)
			batch.skipped++
			continue
		}

		artistID, err := e.resolveArtist(artists, dedup, batch, record.ArtistName)
		if err != nil {
			tx.Rollback()
			batch.revert(dedup)
			return nil, err
		}

		albumID, err := e.resolveAlbum(albums, dedup, batch, artistID, record)
		if err != nil {
			tx.Rollback()
			batch.revert(dedup)
			return nil, err
		}

		// Songs are never deduplicated; repeated records produce repeated rows.
		song := &models.Song{Title: record.TrackName, AlbumID: albumID}
		if err := songs.Create(song); err != nil {
			tx.Rollback()
			batch.revert(dedup)
			return nil, err
		}
		batch.songs++
	}

	if err := tx.Commit(); err != nil {
		batch.revert(dedup)
		return nil, fmt.Errorf("failed to commit batch: %w", err)
	}

	return batch, nil
}

// resolveArtist returns the artist row id for the record's artist name,
// inserting a new row at most once per distinct name per run.
//
// A unique-constraint rejection means the store already holds the artist from
// a previous run; the existing row is adopted instead of aborting.
func (e *LibraryEngine) resolveArtist(repo *repositories.ArtistRepository, dedup *dedupState, batch *batchState, name string) (int64, error) {
	key := shared.NormalizeName(name)
	if id, ok := dedup.artists[key]; ok {
		return id, nil
	}

	artist := &models.Artist{Name: name}
	if err := repo.Create(artist); err != nil {
		existing, lookupErr := repo.GetByName(name)
		if lookupErr != nil {
			return 0, fmt.Errorf("failed to resolve artist %q: %w", name, err)
		}
		artist = existing
	} else {
		batch.newArtists = append(batch.newArtists, key)
		batch.artists++
	}

	dedup.artists[key] = artist.ID
	return artist.ID, nil
}

// resolveAlbum returns the album row id for the record's (artist, title)
// pair, inserting a new row at most once per distinct pair per run. The
// release year is parsed best-effort; failures leave the year absent.
func (e *LibraryEngine) resolveAlbum(repo *repositories.AlbumRepository, dedup *dedupState, batch *batchState, artistID int64, record services.SongResult) (int64, error) {
	key := albumKey{artistID: artistID, title: shared.NormalizeName(record.CollectionName)}
	if id, ok := dedup.albums[key]; ok {
		return id, nil
	}

	album := &models.Album{
		Title:    record.CollectionName,
		ArtistID: artistID,
		Genre:    record.PrimaryGenreName,
	}
	if year, ok := shared.ParseReleaseYear(record.ReleaseDate); ok {
		album.ReleaseYear = &year
	}

	if err := repo.Create(album); err != nil {
		existing, lookupErr := repo.GetByArtistAndTitle(artistID, record.CollectionName)
		if lookupErr != nil {
			return 0, fmt.Errorf("failed to resolve album %q: %w", record.CollectionName, err)
		}
		album = existing
	} else {
		batch.newAlbums = append(batch.newAlbums, key)
		batch.albums++
	}

	dedup.albums[key] = album.ID
	return album.ID, nil
}

// loggerIface is the slice of charmbracelet/log used by the batch path,
// kept narrow so tests can substitute a recorder.
type loggerIface interface {
	Warn(msg any, kv ...any)
	Info(msg any, kv ...any)
}
