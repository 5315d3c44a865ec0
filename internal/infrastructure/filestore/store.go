package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/johnquangdev/grain-sync/internal/domain/entities"
)

// Store writes recording documents under a date-partitioned directory tree:
// {root}/{YYYY}/{MM}/{DD}/{id}_{title}.json
type Store struct {
	root   string
	logger *zap.Logger
}

// NewStore creates a store rooted at the given output directory
func NewStore(root string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{root: root, logger: logger}
}

// Root returns the output directory
func (s *Store) Root() string {
	return s.root
}

// RelativePath returns the slash-separated location of a recording's document. Recordings
// without a parsable start datetime are placed directly under the root.
func (s *Store) RelativePath(recording *entities.Recording) (string, error) {
	if err := recording.ValidateID(); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s_%s.json", recording.ID, recording.SafeTitle())

	relative := name
	started, err := recording.StartTime()
	if err != nil {
		s.logger.Warn("Could not parse start datetime, writing to output root",
			zap.String("recording_id", recording.ID),
			zap.String("start_datetime", recording.StartDatetime),
			zap.Error(err),
		)
	} else {
		relative = filepath.Join(started.Format("2006"), started.Format("01"), started.Format("02"), name)
	}

	if !filepath.IsLocal(relative) {
		return "", fmt.Errorf("%w: %q", entities.ErrRecordingIDUnsafe, recording.ID)
	}
	return filepath.ToSlash(relative), nil
}

// Exists reports whether a document is already on disk at relativePath
func (s *Store) Exists(ctx context.Context, relativePath string) (bool, error) {
	_, err := os.Stat(s.absolute(relativePath))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Save writes the payload atomically at relativePath
func (s *Store) Save(ctx context.Context, relativePath string, payload []byte) error {
	return WriteFileAtomic(s.absolute(relativePath), payload, 0o644)
}

func (s *Store) absolute(relative string) string {
	return filepath.Join(s.root, filepath.FromSlash(relative))
}

// WriteFileAtomic writes data to a temporary file in the target directory and renames it
// into place, so readers never observe a partially written file
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
