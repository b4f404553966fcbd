package repositories

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/mkessler/crate/internal/models"
	"github.com/mkessler/crate/internal/shared"
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

// seedArtist inserts an artist row and returns it.
func seedArtist(t *testing.T, db *sql.DB, name string) *models.Artist {
	t.Helper()

	artist := &models.Artist{Name: name}
	if err := NewArtistRepository(db).Create(artist); err != nil {
		t.Fatalf("failed to seed artist: %v", err)
	}
	return artist
}

// seedAlbum inserts an album row owned by the given artist and returns it.
func seedAlbum(t *testing.T, db *sql.DB, artistID int64, title string) *models.Album {
	t.Helper()

	album := &models.Album{Title: title, ArtistID: artistID}
	if err := NewAlbumRepository(db).Create(album); err != nil {
		t.Fatalf("failed to seed album: %v", err)
	}
	return album
}

func TestArtistRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewArtistRepository(db)

		artist := &models.Artist{Name: "queen"}
		if err := repo.Create(artist); err != nil {
			t.Fatalf("failed to create artist: %v", err)
		}
		if artist.ID == 0 {
			t.Error("artist ID should be set after creation")
		}
	})

	t.Run("Create rejects blank name", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewArtistRepository(db)

		if err := repo.Create(&models.Artist{Name: "   "}); err == nil {
			t.Error("expected validation error for blank name")
		}
	})

	t.Run("Create rejects duplicate name", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewArtistRepository(db)

		if err := repo.Create(&models.Artist{Name: "queen"}); err != nil {
			t.Fatalf("failed to create artist: %v", err)
		}
		if err := repo.Create(&models.Artist{Name: "queen"}); err == nil {
			t.Error("expected unique constraint violation for duplicate name")
		}
	})

	t.Run("GetByName", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewArtistRepository(db)
		seeded := seedArtist(t, db, "queen")

		artist, err := repo.GetByName("queen")
		if err != nil {
			t.Fatalf("failed to get artist: %v", err)
		}
		if artist.ID != seeded.ID {
			t.Errorf("expected ID %d, got %d", seeded.ID, artist.ID)
		}
	})

	t.Run("GetByName wraps sql.ErrNoRows", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewArtistRepository(db)

		_, err := repo.GetByName("absent")
		if !errors.Is(err, sql.ErrNoRows) {
			t.Errorf("expected wrapped sql.ErrNoRows, got %v", err)
		}
	})

	t.Run("List and Count", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewArtistRepository(db)
		seedArtist(t, db, "queen")
		seedArtist(t, db, "adele")

		artists, err := repo.List()
		if err != nil {
			t.Fatalf("failed to list artists: %v", err)
		}
		if len(artists) != 2 {
			t.Errorf("expected 2 artists, got %d", len(artists))
		}

		count, err := repo.Count()
		if err != nil {
			t.Fatalf("failed to count artists: %v", err)
		}
		if count != 2 {
			t.Errorf("expected count 2, got %d", count)
		}
	})
}

func TestAlbumRepository(t *testing.T) {
	t.Run("Create with genre and year", func(t *testing.T) {
		db := setupTestDB(t)
		artist := seedArtist(t, db, "queen")
		repo := NewAlbumRepository(db)

		year := 1975
		album := &models.Album{Title: "A Night at the Opera", ArtistID: artist.ID, Genre: "Rock", ReleaseYear: &year}
		if err := repo.Create(album); err != nil {
			t.Fatalf("failed to create album: %v", err)
		}

		retrieved, err := repo.GetByArtistAndTitle(artist.ID, "A Night at the Opera")
		if err != nil {
			t.Fatalf("failed to get album: %v", err)
		}
		if retrieved.Genre != "Rock" {
			t.Errorf("expected genre Rock, got %s", retrieved.Genre)
		}
		if retrieved.ReleaseYear == nil || *retrieved.ReleaseYear != 1975 {
			t.Errorf("expected release year 1975, got %v", retrieved.ReleaseYear)
		}
	})

	t.Run("Create stores NULL for absent year and genre", func(t *testing.T) {
		db := setupTestDB(t)
		artist := seedArtist(t, db, "queen")
		repo := NewAlbumRepository(db)

		album := &models.Album{Title: "Untitled", ArtistID: artist.ID}
		if err := repo.Create(album); err != nil {
			t.Fatalf("failed to create album: %v", err)
		}

		retrieved, err := repo.GetByArtistAndTitle(artist.ID, "Untitled")
		if err != nil {
			t.Fatalf("failed to get album: %v", err)
		}
		if retrieved.ReleaseYear != nil {
			t.Errorf("expected nil release year, got %v", *retrieved.ReleaseYear)
		}
		if retrieved.Genre != "" {
			t.Errorf("expected empty genre, got %s", retrieved.Genre)
		}
	})

	t.Run("Create rejects missing artist", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewAlbumRepository(db)

		album := &models.Album{Title: "Orphan", ArtistID: 9999}
		if err := repo.Create(album); err == nil {
			t.Error("expected foreign key violation for missing artist")
		}
	})

	t.Run("GetByArtistAndTitle wraps sql.ErrNoRows", func(t *testing.T) {
		db := setupTestDB(t)
		artist := seedArtist(t, db, "queen")
		repo := NewAlbumRepository(db)

		_, err := repo.GetByArtistAndTitle(artist.ID, "absent")
		if !errors.Is(err, sql.ErrNoRows) {
			t.Errorf("expected wrapped sql.ErrNoRows, got %v", err)
		}
	})

	t.Run("same title under different artists", func(t *testing.T) {
		db := setupTestDB(t)
		first := seedArtist(t, db, "queen")
		second := seedArtist(t, db, "adele")
		repo := NewAlbumRepository(db)

		seedAlbum(t, db, first.ID, "Greatest Hits")
		seedAlbum(t, db, second.ID, "Greatest Hits")

		count, err := repo.Count()
		if err != nil {
			t.Fatalf("failed to count albums: %v", err)
		}
		if count != 2 {
			t.Errorf("expected 2 albums, got %d", count)
		}
	})
}

func TestSongRepository(t *testing.T) {
	t.Run("Create assigns timestamp", func(t *testing.T) {
		db := setupTestDB(t)
		artist := seedArtist(t, db, "queen")
		album := seedAlbum(t, db, artist.ID, "A Night at the Opera")
		repo := NewSongRepository(db)

		song := &models.Song{Title: "Bohemian Rhapsody", AlbumID: album.ID}
		if err := repo.Create(song); err != nil {
			t.Fatalf("failed to create song: %v", err)
		}
		if song.ID == 0 {
			t.Error("song ID should be set after creation")
		}

		songs, err := repo.List()
		if err != nil {
			t.Fatalf("failed to list songs: %v", err)
		}
		if len(songs) != 1 {
			t.Fatalf("expected 1 song, got %d", len(songs))
		}
		if songs[0].CreatedAt.IsZero() {
			t.Error("expected created_at to be assigned by the store")
		}
	})

	t.Run("Create rejects missing album", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewSongRepository(db)

		song := &models.Song{Title: "Orphan", AlbumID: 9999}
		if err := repo.Create(song); err == nil {
			t.Error("expected foreign key violation for missing album")
		}
	})

	t.Run("duplicate titles produce separate rows", func(t *testing.T) {
		db := setupTestDB(t)
		artist := seedArtist(t, db, "queen")
		album := seedAlbum(t, db, artist.ID, "Greatest Hits")
		repo := NewSongRepository(db)

		for i := 0; i < 2; i++ {
			song := &models.Song{Title: "Bohemian Rhapsody", AlbumID: album.ID}
			if err := repo.Create(song); err != nil {
				t.Fatalf("failed to create song: %v", err)
			}
		}

		count, err := repo.Count()
		if err != nil {
			t.Fatalf("failed to count songs: %v", err)
		}
		if count != 2 {
			t.Errorf("expected 2 rows for repeated title, got %d", count)
		}
	})
}

func TestQuerierWithTransaction(t *testing.T) {
	t.Run("rollback discards inserts", func(t *testing.T) {
		db := setupTestDB(t)

		tx, err := db.Begin()
		if err != nil {
			t.Fatalf("failed to begin transaction: %v", err)
		}

		repo := NewArtistRepository(tx)
		if err := repo.Create(&models.Artist{Name: "queen"}); err != nil {
			t.Fatalf("failed to create artist in transaction: %v", err)
		}

		if err := tx.Rollback(); err != nil {
			t.Fatalf("failed to roll back: %v", err)
		}

		count, err := NewArtistRepository(db).Count()
		if err != nil {
			t.Fatalf("failed to count artists: %v", err)
		}
		if count != 0 {
			t.Errorf("expected 0 artists after rollback, got %d", count)
		}
	})
}
