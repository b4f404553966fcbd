package models

import (
	"fmt"
	"strings"
	"time"
)

// Artist represents one row in the artists table. Names are unique.
type Artist struct {
	ID   int64
	Name string
}

// Validate checks that the artist has a non-blank name.
func (a Artist) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("artist name is required")
	}
	return nil
}

// Album represents one row in the albums table, owned by an artist.
//
// ReleaseYear is nil when the catalog's release date failed to parse.
type Album struct {
	ID          int64
	Title       string
	ArtistID    int64
	Genre       string
	ReleaseYear *int
}

// Validate checks that the album has a title and an owning artist.
func (a Album) Validate() error {
	if strings.TrimSpace(a.Title) == "" {
		return fmt.Errorf("album title is required")
	}
	if a.ArtistID <= 0 {
		return fmt.Errorf("album requires an owning artist")
	}
	return nil
}

// Song represents one row in the songs table, owned by an album.
// Songs are never deduplicated; repeated catalog records produce repeated rows.
type Song struct {
	ID        int64
	Title     string
	AlbumID   int64
	CreatedAt time.Time
}

// Validate checks that the song has a title and an owning album.
func (s Song) Validate() error {
	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("song title is required")
	}
	if s.AlbumID <= 0 {
		return fmt.Errorf("song requires an owning album")
	}
	return nil
}

// Todo represents one row in the hosted backend's todos table.
//
// UserID is the owning identity stamped at creation; the backend's policy
// rules scope every read and write to rows whose user_id matches the caller.
type Todo struct {
	ID         int64     `json:"id,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
	Task       string    `json:"task"`
	IsComplete bool      `json:"is_complete"`
	UserID     string    `json:"user_id"`
}

// User represents the authenticated identity returned by the backend's auth service.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session holds the authenticated backend session.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// Valid reports whether the session carries a usable access token.
func (s *Session) Valid() bool {
	return s != nil && s.AccessToken != "" && s.User.ID != ""
}

// Expired reports whether the access token is past its expiry.
func (s *Session) Expired() bool {
	if s == nil {
		return true
	}
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}
