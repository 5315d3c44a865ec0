package repositories

import (
	"context"

	"github.com/johnquangdev/grain-sync/internal/domain/entities"
)

// ExportIndexRepository defines the interface for the exported recordings index
type ExportIndexRepository interface {
	// Upsert creates or refreshes the index row of a recording
	Upsert(ctx context.Context, exported *entities.ExportedRecording) error

	// FindByRecordingID retrieves an index row, nil when absent
	FindByRecordingID(ctx context.Context, recordingID string) (*entities.ExportedRecording, error)

	// Count returns the number of indexed recordings
	Count(ctx context.Context) (int64, error)
}
