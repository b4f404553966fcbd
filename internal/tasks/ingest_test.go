package tasks

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/mkessler/crate/internal/repositories"
	"github.com/mkessler/crate/internal/services"
	"github.com/mkessler/crate/internal/shared"
	tu "github.com/mkessler/crate/internal/testing"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	shared.ConfigureDatabase(db, 1, 1)

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func record(artist, album, track, date, genre string) services.SongResult {
	return services.SongResult{
		WrapperType:      "track",
		ArtistName:       artist,
		CollectionName:   album,
		TrackName:        track,
		ReleaseDate:      date,
		PrimaryGenreName: genre,
	}
}

func counts(t *testing.T, db *sql.DB) (artists, albums, songs int) {
	t.Helper()

	var err error
	if artists, err = repositories.NewArtistRepository(db).Count(); err != nil {
		t.Fatalf("failed to count artists: %v", err)
	}
	if albums, err = repositories.NewAlbumRepository(db).Count(); err != nil {
		t.Fatalf("failed to count albums: %v", err)
	}
	if songs, err = repositories.NewSongRepository(db).Count(); err != nil {
		t.Fatalf("failed to count songs: %v", err)
	}
	return artists, albums, songs
}

func TestBuild(t *testing.T) {
	t.Run("deduplicates artists and albums within a run", func(t *testing.T) {
		db := setupTestDB(t)
		catalog := &tu.MockCatalog{
			Results: map[string][]services.SongResult{
				"Queen": {
					record("Queen", "Greatest Hits", "Bohemian Rhapsody", "1981-10-26T07:00:00Z", "Rock"),
					record("Queen", "Greatest Hits", "Another One Bites the Dust", "1981-10-26T07:00:00Z", "Rock"),
					record("queen", "greatest   hits", "Killer Queen", "1981-10-26T07:00:00Z", "Rock"),
					record("Queen", "A Night at the Opera", "Love of My Life", "1975-11-21T08:00:00Z", "Rock"),
				},
			},
		}

		engine := NewLibraryEngine(catalog, db, nil)
		result, err := engine.Build(context.Background(), nil, []string{"Queen"}, BuildOpts{})
		if err != nil {
			t.Fatalf("build failed: %v", err)
		}

		if result.ArtistsAdded != 1 {
			t.Errorf("expected 1 artist added, got %d", result.ArtistsAdded)
		}
		if result.AlbumsAdded != 2 {
			t.Errorf("expected 2 albums added, got %d", result.AlbumsAdded)
		}
		if result.SongsAdded != 4 {
			t.Errorf("expected 4 songs added, got %d", result.SongsAdded)
		}

		artists, albums, songs := counts(t, db)
		if artists != 1 || albums != 2 || songs != 4 {
			t.Errorf("unexpected row counts: %d artists, %d albums, %d songs", artists, albums, songs)
		}
	})

	t.Run("skips records missing key fields", func(t *testing.T) {
		db := setupTestDB(t)
		catalog := &tu.MockCatalog{
			Results: map[string][]services.SongResult{
				"Queen": {
					record("Queen", "Greatest Hits", "Bohemian Rhapsody", "1981-10-26T07:00:00Z", "Rock"),
					record("", "Greatest Hits", "No Artist", "", ""),
					record("Queen", "", "No Album", "", ""),
					record("Queen", "Greatest Hits", "", "", ""),
				},
			},
		}

		engine := NewLibraryEngine(catalog, db, nil)
		result, err := engine.Build(context.Background(), nil, []string{"Queen"}, BuildOpts{})
		if err != nil {
			t.Fatalf("build failed: %v", err)
		}

		if result.RecordsFetched != 4 {
			t.Errorf("expected 4 records fetched, got %d", result.RecordsFetched)
		}
		if result.RecordsSkipped != 3 {
			t.Errorf("expected 3 records skipped, got %d", result.RecordsSkipped)
		}
		if result.SongsAdded != 1 {
			t.Errorf("expected 1 song added, got %d", result.SongsAdded)
		}
	})

	t.Run("failed artist does not stop the run", func(t *testing.T) {
		db := setupTestDB(t)
		catalog := &tu.MockCatalog{
			Results: map[string][]services.SongResult{
				"Queen": {record("Queen", "Greatest Hits", "Bohemian Rhapsody", "1981-10-26T07:00:00Z", "Rock")},
			},
			Errs: map[string]error{
				"Adele": errors.New("catalog unavailable"),
			},
		}

		engine := NewLibraryEngine(catalog, db, nil)
		result, err := engine.Build(context.Background(), nil, []string{"Adele", "Queen"}, BuildOpts{})
		if err != nil {
			t.Fatalf("build failed: %v", err)
		}

		if len(result.Failures) != 1 || result.Failures[0].Artist != "Adele" {
			t.Errorf("expected one failure for Adele, got %+v", result.Failures)
		}
		if result.ArtistsSearched != 1 {
			t.Errorf("expected 1 artist searched, got %d", result.ArtistsSearched)
		}
		if result.SongsAdded != 1 {
			t.Errorf("expected Queen's song to land, got %d", result.SongsAdded)
		}
	})

	t.Run("malformed release date leaves year absent", func(t *testing.T) {
		db := setupTestDB(t)
		catalog := &tu.MockCatalog{
			Results: map[string][]services.SongResult{
				"Queen": {record("Queen", "Greatest Hits", "Bohemian Rhapsody", "not-a-date", "Rock")},
			},
		}

		engine := NewLibraryEngine(catalog, db, nil)
		if _, err := engine.Build(context.Background(), nil, []string{"Queen"}, BuildOpts{}); err != nil {
			t.Fatalf("build failed: %v", err)
		}

		albums, err := repositories.NewAlbumRepository(db).List()
		if err != nil {
			t.Fatalf("failed to list albums: %v", err)
		}
		if len(albums) != 1 {
			t.Fatalf("expected 1 album, got %d", len(albums))
		}
		if albums[0].ReleaseYear != nil {
			t.Errorf("expected absent release year, got %v", *albums[0].ReleaseYear)
		}
	})

	t.Run("adopts existing artists across runs", func(t *testing.T) {
		db := setupTestDB(t)
		catalog := &tu.MockCatalog{
			Results: map[string][]services.SongResult{
				"Queen": {record("Queen", "Greatest Hits", "Bohemian Rhapsody", "1981-10-26T07:00:00Z", "Rock")},
			},
		}

		engine := NewLibraryEngine(catalog, db, nil)
		if _, err := engine.Build(context.Background(), nil, []string{"Queen"}, BuildOpts{}); err != nil {
			t.Fatalf("first build failed: %v", err)
		}

		result, err := engine.Build(context.Background(), nil, []string{"Queen"}, BuildOpts{})
		if err != nil {
			t.Fatalf("second build failed: %v", err)
		}
		if len(result.Failures) != 0 {
			t.Fatalf("expected no failures, got %+v", result.Failures)
		}
		if result.ArtistsAdded != 0 {
			t.Errorf("expected existing artist to be adopted, got %d added", result.ArtistsAdded)
		}

		artists, _, songs := counts(t, db)
		if artists != 1 {
			t.Errorf("expected 1 artist row across runs, got %d", artists)
		}
		if songs != 2 {
			t.Errorf("songs are never deduplicated, expected 2 rows, got %d", songs)
		}
	})

	t.Run("progress updates flow without a drain", func(t *testing.T) {
		db := setupTestDB(t)
		catalog := &tu.MockCatalog{
			Results: map[string][]services.SongResult{
				"Queen": {record("Queen", "Greatest Hits", "Bohemian Rhapsody", "1981-10-26T07:00:00Z", "Rock")},
			},
		}

		// Unbuffered channel with no reader: sends must not block the run.
		progress := make(chan ProgressUpdate)
		engine := NewLibraryEngine(catalog, db, nil)
		if _, err := engine.Build(context.Background(), progress, []string{"Queen"}, BuildOpts{}); err != nil {
			t.Fatalf("build failed: %v", err)
		}
	})

	t.Run("cancelled context stops the run", func(t *testing.T) {
		db := setupTestDB(t)
		catalog := &tu.MockCatalog{}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		engine := NewLibraryEngine(catalog, db, nil)
		if _, err := engine.Build(ctx, nil, []string{"Queen"}, BuildOpts{}); err == nil {
			t.Error("expected cancellation error")
		}
	})

	t.Run("fails without a catalog", func(t *testing.T) {
		db := setupTestDB(t)

		engine := NewLibraryEngine(nil, db, nil)
		_, err := engine.Build(context.Background(), nil, []string{"Queen"}, BuildOpts{})
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}
