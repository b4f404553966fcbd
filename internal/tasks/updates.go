package tasks

import "fmt"

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchArtist Phase = iota
	NormalizeRecords
	CommitBatch
	ExportTable
	WriteManifest
)

func (p Phase) String() string {
	switch p {
	case FetchArtist:
		return "fetch_artist"
	case NormalizeRecords:
		return "normalize_records"
	case CommitBatch:
		return "commit_batch"
	case ExportTable:
		return "export_table"
	case WriteManifest:
		return "write_manifest"
	default:
		return ""
	}
}

func fetchArtistUpdate(step, total int, artist string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchArtist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Fetching songs for %s...", step, total, artist),
	}
}

func fetchFailedUpdate(step, total int, artist string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchArtist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, artist, err),
	}
}

func normalizeUpdate(step, total int, artist string, records int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   NormalizeRecords,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Normalizing %d records for %s...", step, total, records, artist),
	}
}

func commitUpdate(step, total int, artist string, songs int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CommitBatch,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d songs)", step, total, artist, songs),
	}
}

func exportTableUpdate(step, total int, table string, rows int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportTable,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Exported %s (%d rows)", step, total, table, rows),
	}
}

func writeManifestUpdate(path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteManifest,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Manifest written: %s", path),
	}
}
