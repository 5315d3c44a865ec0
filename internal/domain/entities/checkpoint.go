package entities

import "time"

// Checkpoint is the persisted resume state. It is written only after every recording of a
// page has been saved, so Cursor always points at the first page not yet fully processed.
type Checkpoint struct {
	Cursor         *string   `json:"cursor"`
	ProcessedCount int       `json:"processed_count"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewCheckpoint creates a checkpoint for the given next-page cursor
func NewCheckpoint(cursor string, processedCount int) *Checkpoint {
	cp := &Checkpoint{
		ProcessedCount: processedCount,
		Timestamp:      time.Now(),
	}
	if cursor != "" {
		cp.Cursor = &cursor
	}
	return cp
}

// NextCursor returns the cursor to resume from, empty for the first page
func (c *Checkpoint) NextCursor() string {
	if c == nil || c.Cursor == nil {
		return ""
	}
	return *c.Cursor
}

// HasNextPage reports whether there is still a page to fetch
func (c *Checkpoint) HasNextPage() bool {
	return c.NextCursor() != ""
}
