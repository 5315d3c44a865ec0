package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	apperrors "github.com/johnquangdev/grain-sync/errors"
	"github.com/johnquangdev/grain-sync/internal/adapter/repository"
	"github.com/johnquangdev/grain-sync/internal/domain/repositories"
	"github.com/johnquangdev/grain-sync/internal/infrastructure/cache"
	"github.com/johnquangdev/grain-sync/internal/infrastructure/database"
	"github.com/johnquangdev/grain-sync/internal/infrastructure/storage"
	usecaseErrors "github.com/johnquangdev/grain-sync/internal/usecase/errors"
	"github.com/johnquangdev/grain-sync/internal/usecase/export"
	"github.com/johnquangdev/grain-sync/pkg/config"
	"github.com/johnquangdev/grain-sync/pkg/grain"
)

// closeFunc releases a resource opened by a factory
type closeFunc func()

func noopClose() {}

// CheckpointHandle is an opened checkpoint repository plus a description of where it lives
type CheckpointHandle struct {
	Repository repositories.CheckpointRepository
	Backend    string
	Location   string
	Close      closeFunc
}

// Mirror is a recording mirror that can also report how many objects it holds
type Mirror interface {
	repositories.RecordingMirror
	CountObjects(ctx context.Context) (int, error)
}

// Factories build the infrastructure behind the commands
type Factories struct {
	Source      func(cfg *config.Config, logger *zap.Logger) (export.RecordingSource, error)
	Checkpoints func(ctx context.Context, cfg *config.Config, logger *zap.Logger, testMode bool) (*CheckpointHandle, error)
	Index       func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories.ExportIndexRepository, closeFunc, error)
	Mirror      func(ctx context.Context, cfg *config.Config) (Mirror, error)
	Migrate     func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (int, error)
}

// DefaultFactories wires the real Grain client, stores and databases
func DefaultFactories() Factories {
	return Factories{
		Source:      newGrainSource,
		Checkpoints: openCheckpoints,
		Index:       openIndex,
		Mirror:      openMirror,
		Migrate:     runMigrations,
	}
}

func (f Factories) withDefaults() Factories {
	defaults := DefaultFactories()
	if f.Source == nil {
		f.Source = defaults.Source
	}
	if f.Checkpoints == nil {
		f.Checkpoints = defaults.Checkpoints
	}
	if f.Index == nil {
		f.Index = defaults.Index
	}
	if f.Mirror == nil {
		f.Mirror = defaults.Mirror
	}
	if f.Migrate == nil {
		f.Migrate = defaults.Migrate
	}
	return f
}

func newGrainSource(cfg *config.Config, logger *zap.Logger) (export.RecordingSource, error) {
	client, err := grain.NewClient(&cfg.Grain, logger)
	if err != nil {
		return nil, apperrors.ErrInvalidConfig(err)
	}
	return client, nil
}

// openCheckpoints opens the configured checkpoint backend. The loop never touches checkpoints
// in test mode; the private in-memory store it gets here is only a guard, and it spares a
// redis connection for a one-recording trial run.
func openCheckpoints(ctx context.Context, cfg *config.Config, logger *zap.Logger, testMode bool) (*CheckpointHandle, error) {
	if testMode {
		return &CheckpointHandle{
			Repository: cache.NewKeyValueCheckpointStore(cache.NewMemoryStore(), cfg.Redis.CheckpointKey),
			Backend:    "memory",
			Location:   "test mode",
			Close:      noopClose,
		}, nil
	}

	switch cfg.Checkpoint.Backend {
	case config.CheckpointFile, "":
		return &CheckpointHandle{
			Repository: cache.NewFileCheckpointStore(cfg.Sync.StateFile),
			Backend:    string(config.CheckpointFile),
			Location:   cfg.Sync.StateFile,
			Close:      noopClose,
		}, nil
	case config.CheckpointRedis:
		client, err := cache.NewRedisClient(ctx, cfg, logger)
		if err != nil {
			return nil, apperrors.ErrCheckpointFailed("connect", err)
		}
		return &CheckpointHandle{
			Repository: cache.NewKeyValueCheckpointStore(cache.NewRedisStore(client), cfg.Redis.CheckpointKey),
			Backend:    string(config.CheckpointRedis),
			Location:   fmt.Sprintf("%s/%s", cfg.GetRedisAddr(), cfg.Redis.CheckpointKey),
			Close:      func() { client.Close() },
		}, nil
	}
	return nil, apperrors.ErrInvalidConfig(fmt.Errorf("%w: %q", usecaseErrors.ErrUnknownBackend, cfg.Checkpoint.Backend))
}

func openIndex(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories.ExportIndexRepository, closeFunc, error) {
	db, err := database.NewPostgresDB(cfg, logger)
	if err != nil {
		return nil, nil, apperrors.ErrIndexFailed("connect", err)
	}
	return repository.NewExportRepository(db), func() { database.CloseDB(db) }, nil
}

func openMirror(ctx context.Context, cfg *config.Config) (Mirror, error) {
	mirror, err := storage.NewMinIOMirror(ctx, &cfg.Storage)
	if err != nil {
		return nil, apperrors.ErrStorageFailed("connect", err)
	}
	return mirror, nil
}

func runMigrations(ctx context.Context, cfg *config.Config, logger *zap.Logger) (int, error) {
	db, err := database.NewPostgresDB(cfg, logger)
	if err != nil {
		return 0, apperrors.ErrIndexFailed("connect", err)
	}
	defer database.CloseDB(db)

	n, err := database.Migrate(db, logger)
	if err != nil {
		return 0, apperrors.ErrIndexFailed("migrate", err)
	}
	return n, nil
}
