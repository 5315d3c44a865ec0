package sync

import "time"

// SummaryResponse represents the outcome of a sync run
type SummaryResponse struct {
	RunID            string  `json:"run_id"`
	Mode             string  `json:"mode"`
	Resumed          bool    `json:"resumed"`
	ProcessedCount   int     `json:"processed_count"`
	ProcessedThisRun int     `json:"processed_this_run"`
	Saved            int     `json:"saved"`
	Skipped          int     `json:"skipped"`
	Pages            int     `json:"pages"`
	Completed        bool    `json:"completed"`
	DurationSeconds  float64 `json:"duration_seconds"`
	OutputDir        string  `json:"output_dir"`
}

// StatusResponse represents the saved resume state
type StatusResponse struct {
	HasSavedState  bool       `json:"has_saved_state"`
	Backend        string     `json:"backend"`
	Location       string     `json:"location"`
	Cursor         *string    `json:"cursor,omitempty"`
	ProcessedCount int        `json:"processed_count"`
	SavedAt        *time.Time `json:"saved_at,omitempty"`
	IndexedCount   *int64     `json:"indexed_count,omitempty"`
	MirroredCount  *int       `json:"mirrored_count,omitempty"`
}

// IndexedRecordingResponse represents one row of the export index
type IndexedRecordingResponse struct {
	RecordingID  string     `json:"recording_id"`
	Title        string     `json:"title"`
	Source       string     `json:"source"`
	URL          string     `json:"url"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	RelativePath string     `json:"relative_path"`
	RunID        string     `json:"run_id"`
	ExportedAt   time.Time  `json:"exported_at"`
}
