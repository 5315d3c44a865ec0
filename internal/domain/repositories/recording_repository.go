package repositories

import (
	"context"

	"github.com/johnquangdev/grain-sync/internal/domain/entities"
)

// RecordingStore defines where exported recording documents are written
type RecordingStore interface {
	// RelativePath returns the location of a recording's document, relative to the output root.
	// It fails for recordings whose id cannot be used in a file name.
	RelativePath(recording *entities.Recording) (string, error)

	// Exists reports whether a document was already written at relativePath
	Exists(ctx context.Context, relativePath string) (bool, error)

	// Save writes a rendered document at relativePath
	Save(ctx context.Context, relativePath string, payload []byte) error
}

// RecordingMirror copies exported documents to secondary storage
type RecordingMirror interface {
	// Upload stores a rendered document under the given relative path
	Upload(ctx context.Context, relativePath string, payload []byte) error
}
