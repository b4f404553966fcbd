// package tasks implements the music library build and export operations.
//
// The core abstraction is LibraryEngine, which orchestrates catalog fetches,
// normalization, persistence, and flat-file exports. Operations emit progress
// updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"database/sql"

	"github.com/charmbracelet/log"
	"github.com/mkessler/crate/internal/services"
	"github.com/mkessler/crate/internal/shared"
	"golang.org/x/time/rate"
)

// ArtistFailure records a per-artist fetch or persistence failure.
// Failures are scoped to one artist; the run continues with the rest.
type ArtistFailure struct {
	Artist string
	Err    error
}

// BuildResult contains all data from a full library build run.
type BuildResult struct {
	RunID           string          // Unique identifier for this run
	ArtistsSearched int             // Search terms processed
	RecordsFetched  int             // Flat records returned by the catalog
	RecordsSkipped  int             // Records dropped for missing fields
	ArtistsAdded    int             // New artist rows inserted
	AlbumsAdded     int             // New album rows inserted
	SongsAdded      int             // Song rows inserted (never deduplicated)
	Failures        []ArtistFailure // Per-artist failures, non-fatal
}

// ExportFile describes one written flat file.
type ExportFile struct {
	Table string `json:"table"`
	Path  string `json:"path"`
	Rows  int    `json:"rows"`
}

// ExportResult contains all data from a table export run.
type ExportResult struct {
	RunID        string       `json:"run_id"`
	Directory    string       `json:"directory"`
	Files        []ExportFile `json:"files"`
	ManifestPath string       `json:"-"`
}

// LibraryEngine orchestrates the ingestion pipeline: fetch, normalize,
// deduplicate, persist, export.
type LibraryEngine struct {
	catalog services.Catalog
	db      *sql.DB
	logger  *log.Logger
}

// NewLibraryEngine creates a new LibraryEngine with the provided catalog and store.
func NewLibraryEngine(catalog services.Catalog, db *sql.DB, logger *log.Logger) *LibraryEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &LibraryEngine{
		catalog: catalog,
		db:      db,
		logger:  logger,
	}
}

// newLimiter builds a catalog request limiter; zero or negative selects the default.
func newLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		perSecond = 5.0
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *LibraryEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}
