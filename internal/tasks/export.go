package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mkessler/crate/internal/formatter"
	"github.com/mkessler/crate/internal/repositories"
	"github.com/mkessler/crate/internal/shared"
)

// ExportOpts contains configuration for table exports.
type ExportOpts struct {
	Dir string // Output directory (default: exports)
}

// Export writes each library table to a delimited flat file with a header
// row, plus a JSON manifest summarizing the run.
func (e *LibraryEngine) Export(ctx context.Context, progress chan<- ProgressUpdate, opts ExportOpts) (*ExportResult, error) {
	if e.db == nil {
		return nil, fmt.Errorf("%w: database not initialized", shared.ErrServiceUnavailable)
	}

	if opts.Dir == "" {
		opts.Dir = "exports"
	}
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	result := &ExportResult{
		RunID:     shared.GenerateID(),
		Directory: opts.Dir,
	}

	artists, err := repositories.NewArtistRepository(e.db).List()
	if err != nil {
		return nil, fmt.Errorf("failed to read artists: %w", err)
	}
	albums, err := repositories.NewAlbumRepository(e.db).List()
	if err != nil {
		return nil, fmt.Errorf("failed to read albums: %w", err)
	}
	songs, err := repositories.NewSongRepository(e.db).List()
	if err != nil {
		return nil, fmt.Errorf("failed to read songs: %w", err)
	}

	tables := []struct {
		name string
		rows int
		data func() ([]byte, error)
	}{
		{"artists", len(artists), func() ([]byte, error) { return formatter.ArtistsCSV(artists) }},
		{"albums", len(albums), func() ([]byte, error) { return formatter.AlbumsCSV(albums) }},
		{"songs", len(songs), func() ([]byte, error) { return formatter.SongsCSV(songs) }},
	}

	for i, table := range tables {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		data, err := table.data()
		if err != nil {
			return result, fmt.Errorf("failed to generate %s CSV: %w", table.name, err)
		}

		path := filepath.Join(opts.Dir, table.name+".csv")
		if err := os.WriteFile(path, data, 0644); err != nil {
			return result, fmt.Errorf("failed to write %s CSV: %w", table.name, err)
		}

		result.Files = append(result.Files, ExportFile{Table: table.name, Path: path, Rows: table.rows})
		e.sendProgress(progress, exportTableUpdate(i+1, len(tables), table.name, table.rows))
	}

	manifestPath := filepath.Join(opts.Dir, "export_manifest.json")
	if err := formatter.WriteManifest(result, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath

	e.sendProgress(progress, writeManifestUpdate(manifestPath))
	return result, nil
}
