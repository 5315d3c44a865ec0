package repositories

import (
	"context"

	"github.com/johnquangdev/grain-sync/internal/domain/entities"
)

// CheckpointRepository defines the interface for resume state persistence
type CheckpointRepository interface {
	// Load returns the saved checkpoint, or nil when none exists
	Load(ctx context.Context) (*entities.Checkpoint, error)

	// Save overwrites the saved checkpoint
	Save(ctx context.Context, checkpoint *entities.Checkpoint) error

	// Clear removes the saved checkpoint. It is not an error if none exists.
	Clear(ctx context.Context) error
}
