package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mkessler/crate/internal/repositories"
	"github.com/mkessler/crate/internal/shared"
	"github.com/mkessler/crate/internal/tasks"
	"github.com/urfave/cli/v3"
)

// loadCommandConfig loads the file named by --config, falling back to the
// runner's config when the file is missing or unreadable.
func (r *Runner) loadCommandConfig(cmd *cli.Command) *shared.Config {
	configPath := cmd.String("config")
	if configPath == "" {
		return r.config
	}
	config, err := shared.LoadConfig(configPath)
	if err != nil {
		r.logger.Debug("using existing config", "path", configPath, "error", err)
		return r.config
	}
	return config
}

// openLibrary opens the library database and brings its schema current.
func (r *Runner) openLibrary(config *shared.Config) (*sql.DB, error) {
	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// LibraryBuild fetches songs for each configured artist and loads them into the database.
func (r *Runner) LibraryBuild(ctx context.Context, cmd *cli.Command) error {
	config := r.loadCommandConfig(cmd)
	if err := config.ValidateCatalog(); err != nil {
		return err
	}

	artists := cmd.StringSlice("artist")
	if len(artists) == 0 {
		artists = config.Catalog.Artists
	}

	limit := cmd.Int("limit")
	if limit <= 0 {
		limit = config.Catalog.Limit
	}

	if r.catalog == nil {
		return fmt.Errorf("%w: catalog service not initialized", shared.ErrServiceUnavailable)
	}

	db, err := r.openLibrary(config)
	if err != nil {
		return err
	}
	defer db.Close()

	engine := tasks.NewLibraryEngine(r.catalog, db, r.logger)

	r.logger.Info("starting library build", "artists", len(artists), "limit", limit)
	r.writePlain("Building library from %s...\n\n", r.catalog.Name())

	progressCh := make(chan tasks.ProgressUpdate, 50)
	go func() {
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchArtist:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.NormalizeRecords:
				r.writePlain("   %s\n", update.Message)
			case tasks.CommitBatch:
				r.writePlain("   %s\n", update.Message)
			}
		}
	}()

	result, err := engine.Build(ctx, progressCh, artists, tasks.BuildOpts{
		Limit:     limit,
		RateLimit: config.Catalog.RateLimit,
	})
	close(progressCh)

	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}

	r.writePlain("\n")
	r.writePlainHeader("Library Build Complete!")
	r.writePlain("Artists searched: %d\n", result.ArtistsSearched)
	r.writePlain("Records fetched: %d (skipped %d)\n", result.RecordsFetched, result.RecordsSkipped)
	r.writePlain("Added: %d artists, %d albums, %d songs\n", result.ArtistsAdded, result.AlbumsAdded, result.SongsAdded)

	if len(result.Failures) > 0 {
		r.writePlain("\nFailed artists:\n")
		for _, failure := range result.Failures {
			r.writePlain("  - %s: %v\n", failure.Artist, failure.Err)
		}
	}

	return nil
}

// LibraryExport writes each library table to a flat file plus a JSON manifest.
func (r *Runner) LibraryExport(ctx context.Context, cmd *cli.Command) error {
	config := r.loadCommandConfig(cmd)

	dir := cmd.String("output")
	if dir == "" {
		dir = config.Export.Dir
	}

	db, err := r.openLibrary(config)
	if err != nil {
		return err
	}
	defer db.Close()

	engine := tasks.NewLibraryEngine(r.catalog, db, r.logger)

	r.logger.Info("starting export", "dir", dir)

	progressCh := make(chan tasks.ProgressUpdate, 10)
	go func() {
		for update := range progressCh {
			r.writePlain("📤 %s\n", update.Message)
		}
	}()

	result, err := engine.Export(ctx, progressCh, tasks.ExportOpts{Dir: dir})
	close(progressCh)

	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}

	r.writePlain("\n")
	r.writePlainHeader("Export Complete!")
	for _, file := range result.Files {
		r.writePlain("%s: %d rows → %s\n", file.Table, file.Rows, file.Path)
	}
	r.writePlain("Manifest: %s\n", result.ManifestPath)

	return nil
}

// libraryStats aggregates every ranking the stats command prints.
type libraryStats struct {
	Overview *repositories.LibraryOverview `json:"overview"`
	Artists  []repositories.ArtistStat     `json:"top_artists"`
	Genres   []repositories.GenreStat      `json:"genres"`
	Years    []repositories.YearStat       `json:"years"`
	Albums   []repositories.AlbumStat      `json:"prolific_albums"`
	Insights *repositories.LibraryInsights `json:"insights"`
}

// LibraryStats summarizes the library with counts and rankings.
func (r *Runner) LibraryStats(ctx context.Context, cmd *cli.Command) error {
	config := r.loadCommandConfig(cmd)
	top := cmd.Int("top")

	db, err := r.openLibrary(config)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := repositories.NewStatsRepository(db)

	stats := &libraryStats{}
	if stats.Overview, err = repo.Overview(); err != nil {
		return fmt.Errorf("failed to read overview: %w", err)
	}
	if stats.Artists, err = repo.TopArtists(top); err != nil {
		return fmt.Errorf("failed to rank artists: %w", err)
	}
	if stats.Genres, err = repo.GenreDistribution(top); err != nil {
		return fmt.Errorf("failed to rank genres: %w", err)
	}
	if stats.Years, err = repo.YearDistribution(top); err != nil {
		return fmt.Errorf("failed to rank years: %w", err)
	}
	if stats.Albums, err = repo.ProlificAlbums(top); err != nil {
		return fmt.Errorf("failed to rank albums: %w", err)
	}
	if stats.Insights, err = repo.Insights(); err != nil {
		return fmt.Errorf("failed to compute insights: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(stats, cmd.Bool("pretty"))
	}

	r.writePlainHeader("Library Stats")
	r.writePlain("Artists: %d | Albums: %d | Songs: %d\n", stats.Overview.Artists, stats.Overview.Albums, stats.Overview.Songs)

	r.writePlainln("Top artists by song count:")
	for i, artist := range stats.Artists {
		r.writePlain("  %d. %s (%d albums, %d songs)\n", i+1, artist.Name, artist.AlbumCount, artist.SongCount)
	}

	r.writePlainln("Genres:")
	for _, genre := range stats.Genres {
		r.writePlain("  %s: %d albums across %d artists\n", genre.Genre, genre.AlbumCount, genre.ArtistCount)
	}

	r.writePlainln("Release years:")
	for _, year := range stats.Years {
		r.writePlain("  %d: %d albums\n", year.Year, year.AlbumCount)
	}

	r.writePlainln("Albums with the most songs:")
	for _, album := range stats.Albums {
		r.writePlain("  %s | %s (%d songs)\n", album.Title, album.Artist, album.SongCount)
	}

	r.writePlainln("Averages:")
	r.writePlain("  %.1f albums per artist, %.1f songs per album\n", stats.Insights.AvgAlbumsPerArtist, stats.Insights.AvgSongsPerAlbum)

	return nil
}
