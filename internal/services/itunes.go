// iTunes Search API implementation of [Catalog]
//
// Response types based on https://developer.apple.com/library/archive/documentation/AudioVideo/Conceptual/iTuneSearchAPI/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mkessler/crate/internal/shared"
)

const (
	defaultITunesBaseURL = "https://itunes.apple.com"
	defaultSearchLimit   = 50
	defaultSearchTimeout = 10 * time.Second
)

// SongResult represents one flat record from a catalog song search.
//
// The catalog is untrusted: any field may be missing or empty, and consumers
// must tolerate partial records.
type SongResult struct {
	WrapperType      string `json:"wrapperType"`
	ArtistName       string `json:"artistName"`
	CollectionName   string `json:"collectionName"`
	TrackName        string `json:"trackName"`
	ReleaseDate      string `json:"releaseDate"`
	PrimaryGenreName string `json:"primaryGenreName"`
}

type searchResponse struct {
	ResultCount int          `json:"resultCount"`
	Results     []SongResult `json:"results"`
}

// ITunesService implements the [Catalog] interface for the iTunes Search API.
type ITunesService struct {
	baseURL    string
	httpClient *http.Client
}

// NewITunesService creates a new iTunes catalog client.
//
// The timeout bounds every search request; zero selects the default.
func NewITunesService(baseURL string, timeout time.Duration) *ITunesService {
	if baseURL == "" {
		baseURL = defaultITunesBaseURL
	}
	if timeout <= 0 {
		timeout = defaultSearchTimeout
	}

	return &ITunesService{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name returns the catalog name.
func (s *ITunesService) Name() string {
	return "iTunes"
}

// SearchSongs searches the catalog for songs matching the term.
//
// Entity type is fixed to "song". Returns the flat result records, which may
// be empty when the catalog has no matches.
func (s *ITunesService) SearchSongs(ctx context.Context, term string, limit int) ([]SongResult, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	params := url.Values{}
	params.Set("term", term)
	params.Set("entity", "song")
	params.Set("limit", strconv.Itoa(limit))

	searchURL := fmt.Sprintf("%s/search?%s", s.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: search returned status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var result searchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	return result.Results, nil
}
