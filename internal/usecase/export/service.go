package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/johnquangdev/grain-sync/errors"
	"github.com/johnquangdev/grain-sync/internal/domain/entities"
	"github.com/johnquangdev/grain-sync/internal/domain/repositories"
	usecaseErrors "github.com/johnquangdev/grain-sync/internal/usecase/errors"
	"github.com/johnquangdev/grain-sync/pkg/config"
	"github.com/johnquangdev/grain-sync/pkg/grain"
	"github.com/johnquangdev/grain-sync/pkg/runcontext"
	pkgvalidator "github.com/johnquangdev/grain-sync/pkg/validator"
)

// Run modes recorded on the run context
const (
	ModeFull = "full"
	ModeTest = "test"
)

// RecordingSource is the part of the Grain API the loop depends on
type RecordingSource interface {
	ListRecordings(ctx context.Context, cursor string) (*entities.RecordingPage, error)
	GetRecording(ctx context.Context, recordingID, transcriptFormat string) (*entities.Recording, error)
}

// Prompter asks the operator whether a saved checkpoint should be resumed
type Prompter interface {
	ConfirmResume(ctx context.Context, checkpoint *entities.Checkpoint) (bool, error)
}

// Service defines the interface for the export use case
type Service interface {
	// Run fetches recordings page by page and writes every one not yet on disk
	Run(ctx context.Context, opts Options) (*Summary, error)
}

// Ensure ExportService implements Service interface
var _ Service = (*ExportService)(nil)

// Options controls a single run
type Options struct {
	// TestMode stops after the first recording and leaves the persisted checkpoint untouched
	TestMode       bool
	Resume         config.ResumeMode
	RecordingDelay time.Duration
	PageDelay      time.Duration
}

// Summary describes the outcome of a run
type Summary struct {
	RunID          string
	Mode           string
	Resumed        bool
	StartingCount  int
	ProcessedCount int
	Saved          int
	Skipped        int
	Pages          int
	Completed      bool
	Duration       time.Duration
}

// ProcessedThisRun returns how many recordings this run looked at
func (s *Summary) ProcessedThisRun() int {
	return s.ProcessedCount - s.StartingCount
}

// ExportService runs the fetch-and-persist loop
type ExportService struct {
	source      RecordingSource
	store       repositories.RecordingStore
	checkpoints repositories.CheckpointRepository
	index       repositories.ExportIndexRepository
	mirror      repositories.RecordingMirror
	prompter    Prompter
	validator   *pkgvalidator.CustomValidator
	logger      *zap.Logger
	sleep       func(ctx context.Context, d time.Duration) error
}

// Option configures optional collaborators of ExportService
type Option func(*ExportService)

// WithExportIndex records every saved recording in the export index
func WithExportIndex(index repositories.ExportIndexRepository) Option {
	return func(s *ExportService) { s.index = index }
}

// WithMirror copies every saved document to secondary storage
func WithMirror(mirror repositories.RecordingMirror) Option {
	return func(s *ExportService) { s.mirror = mirror }
}

// WithPrompter sets the operator prompt used by ResumePrompt
func WithPrompter(prompter Prompter) Option {
	return func(s *ExportService) { s.prompter = prompter }
}

// NewExportService creates a new export service
func NewExportService(
	source RecordingSource,
	store repositories.RecordingStore,
	checkpoints repositories.CheckpointRepository,
	logger *zap.Logger,
	opts ...Option,
) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ExportService{
		source:      source,
		store:       store,
		checkpoints: checkpoints,
		validator:   pkgvalidator.New(),
		logger:      logger,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes the loop until the last page, the first recording in test mode, or the first error.
// The checkpoint is only written after every recording of a page has been saved.
func (s *ExportService) Run(ctx context.Context, opts Options) (*Summary, error) {
	mode := ModeFull
	if opts.TestMode {
		mode = ModeTest
	}
	ctx = runcontext.RunBegin(ctx, mode)

	meta := runcontext.GetRunMetadata(ctx)
	summary := &Summary{RunID: meta.RunID.String(), Mode: meta.Mode}

	s.logger.Info("Starting export", runcontext.Fields(ctx)...)

	cursor := ""
	if !opts.TestMode {
		resumed, err := s.resumePoint(ctx, opts.Resume)
		if err != nil {
			return summary, err
		}
		if resumed != nil {
			cursor = resumed.NextCursor()
			summary.Resumed = true
			summary.StartingCount = resumed.ProcessedCount
			summary.ProcessedCount = resumed.ProcessedCount
		}
	}

	err := s.loop(ctx, cursor, opts, summary)
	summary.Duration = time.Since(meta.StartTime)
	if err != nil {
		return summary, err
	}

	s.logger.Info("Export completed",
		append(runcontext.Fields(ctx),
			zap.Int("processed", summary.ProcessedCount),
			zap.Int("saved", summary.Saved),
			zap.Int("skipped", summary.Skipped),
			zap.Int("pages", summary.Pages),
			zap.Duration("duration", summary.Duration),
		)...,
	)
	return summary, nil
}

// resumePoint applies the resume mode to a saved checkpoint and returns the one to resume
// from, nil to start from the beginning
func (s *ExportService) resumePoint(ctx context.Context, mode config.ResumeMode) (*entities.Checkpoint, error) {
	checkpoint, err := s.checkpoints.Load(ctx)
	if errors.Is(err, entities.ErrCheckpointCorrupt) {
		s.logger.Warn("Saved checkpoint is unreadable, starting from the beginning",
			append(runcontext.Fields(ctx), zap.Error(err))...,
		)
		return nil, s.clearCheckpoint(ctx)
	}
	if err != nil {
		return nil, apperrors.ErrCheckpointFailed("load", err)
	}
	if checkpoint == nil {
		return nil, nil
	}

	s.logger.Info("Found saved checkpoint",
		append(runcontext.Fields(ctx),
			zap.Time("saved_at", checkpoint.Timestamp),
			zap.Int("processed_count", checkpoint.ProcessedCount),
		)...,
	)

	resume := false
	switch mode {
	case config.ResumeAlways:
		resume = true
	case config.ResumeNever:
		resume = false
	case config.ResumePrompt, "":
		if s.prompter == nil {
			return nil, apperrors.ErrInvalidArgument("resume mode prompt requires an interactive prompt").
				WithDetail("cause", usecaseErrors.ErrNoPrompter.Error())
		}
		resume, err = s.prompter.ConfirmResume(ctx, checkpoint)
		if err != nil {
			if ctx.Err() != nil {
				return nil, apperrors.ErrInterrupted(ctx.Err())
			}
			if errors.Is(err, usecaseErrors.ErrNoResumeAnswer) {
				// Unattended runs keep the checkpoint; SYNC_RESUME=true|false decides for them
				return nil, apperrors.ErrInvalidArgument("no answer to the resume prompt, set SYNC_RESUME to true or false").
					WithDetail("cause", err.Error())
			}
			return nil, apperrors.ErrInternal(fmt.Errorf("resume prompt: %w", err))
		}
	default:
		return nil, apperrors.ErrInvalidArgument(fmt.Sprintf("unknown resume mode %q", mode))
	}

	if resume {
		s.logger.Info("Resuming from saved checkpoint", runcontext.Fields(ctx)...)
		return checkpoint, nil
	}

	s.logger.Info("Discarding saved checkpoint", runcontext.Fields(ctx)...)
	return nil, s.clearCheckpoint(ctx)
}

func (s *ExportService) loop(ctx context.Context, cursor string, opts Options, summary *Summary) error {
	for page := 1; ; page++ {
		pageCtx := runcontext.SetPage(ctx, page)

		if err := ctx.Err(); err != nil {
			return apperrors.ErrInterrupted(err)
		}

		s.logger.Info("Fetching page", append(runcontext.Fields(pageCtx), zap.Bool("has_cursor", cursor != ""))...)
		resp, err := s.source.ListRecordings(pageCtx, cursor)
		if err != nil {
			return s.apiError(ctx, "list recordings", err)
		}
		summary.Pages++

		if len(resp.Recordings) == 0 {
			s.logger.Info("No recordings on page", runcontext.Fields(pageCtx)...)
			summary.Completed = true
			return s.finish(pageCtx, opts)
		}

		s.logger.Info("Processing page",
			append(runcontext.Fields(pageCtx), zap.Int("recordings", len(resp.Recordings)))...,
		)

		for i := range resp.Recordings {
			listed := &resp.Recordings[i]
			summary.ProcessedCount++

			saved, err := s.processRecording(pageCtx, listed, summary.ProcessedCount)
			if err != nil {
				return err
			}
			if saved {
				summary.Saved++
			} else {
				summary.Skipped++
			}

			if opts.TestMode {
				s.logger.Info("Test mode, stopping after first recording", runcontext.Fields(pageCtx)...)
				return nil
			}

			if saved && opts.RecordingDelay > 0 {
				if err := s.sleep(ctx, opts.RecordingDelay); err != nil {
					return apperrors.ErrInterrupted(err)
				}
			}
		}

		next := resp.NextCursor()
		if next == "" {
			summary.Completed = true
			return s.finish(pageCtx, opts)
		}

		if err := s.checkpoints.Save(ctx, entities.NewCheckpoint(next, summary.ProcessedCount)); err != nil {
			return apperrors.ErrCheckpointFailed("save", err)
		}
		s.logger.Info("Saved checkpoint",
			append(runcontext.Fields(pageCtx), zap.Int("processed_count", summary.ProcessedCount))...,
		)
		cursor = next

		if opts.PageDelay > 0 {
			if err := s.sleep(ctx, opts.PageDelay); err != nil {
				return apperrors.ErrInterrupted(err)
			}
		}
	}
}

// finish marks the run as complete and drops the checkpoint
func (s *ExportService) finish(ctx context.Context, opts Options) error {
	if opts.TestMode {
		return nil
	}
	if err := s.clearCheckpoint(ctx); err != nil {
		return err
	}
	s.logger.Info("No more pages, checkpoint cleared", runcontext.Fields(ctx)...)
	return nil
}

// processRecording saves one listed recording and reports whether it was written. A
// recording already on disk is skipped without any API call.
func (s *ExportService) processRecording(ctx context.Context, listed *entities.Recording, index int) (bool, error) {
	if err := s.validator.Validate(listed); err != nil {
		return false, apperrors.ErrGrainAPIFailed("list recordings", fmt.Errorf("%w: %v", entities.ErrRecordingIDMissing, err))
	}

	fields := append(runcontext.Fields(ctx),
		zap.Int("index", index),
		zap.String("recording_id", listed.ID),
		zap.String("title", listed.DisplayTitle()),
	)

	// The path comes from the listed recording so the next run's duplicate check matches it
	relative, err := s.store.RelativePath(listed)
	if err != nil {
		return false, apperrors.ErrGrainAPIFailed("list recordings", err)
	}
	fields = append(fields, zap.String("path", relative))

	exists, err := s.store.Exists(ctx, relative)
	if err != nil {
		return false, apperrors.ErrRecordingWriteFailed(listed.ID, err)
	}
	if exists {
		s.logger.Info("Already downloaded", fields...)
		return false, nil
	}

	full, err := s.source.GetRecording(ctx, listed.ID, grain.TranscriptFormatJSON)
	if err != nil {
		return false, s.apiError(ctx, "get recording", err)
	}
	if full.ID == "" {
		full.ID = listed.ID
	}

	payload, err := full.ToExportDocument().Render()
	if err != nil {
		return false, apperrors.ErrRecordingWriteFailed(listed.ID, err)
	}

	if err := s.store.Save(ctx, relative, payload); err != nil {
		return false, apperrors.ErrRecordingWriteFailed(listed.ID, err)
	}
	s.logger.Info("Saved recording", fields...)

	s.publish(ctx, full, relative, payload)
	return true, nil
}

// publish hands a saved document to the optional index and mirror. Their failures are logged only.
func (s *ExportService) publish(ctx context.Context, recording *entities.Recording, relative string, payload []byte) {
	if s.index != nil {
		runID, _ := runcontext.GetRunID(ctx)
		row, err := entities.NewExportedRecording(recording, relative, runID)
		if err == nil {
			err = s.index.Upsert(ctx, row)
		}
		if err != nil {
			s.logger.Warn("Failed to index recording",
				append(runcontext.Fields(ctx),
					zap.String("recording_id", recording.ID),
					zap.Error(apperrors.ErrIndexFailed("upsert", err)),
				)...,
			)
		}
	}

	if s.mirror != nil {
		if err := s.mirror.Upload(ctx, relative, payload); err != nil {
			s.logger.Warn("Failed to mirror recording",
				append(runcontext.Fields(ctx),
					zap.String("recording_id", recording.ID),
					zap.Error(apperrors.ErrStorageFailed("upload", err)),
				)...,
			)
		}
	}
}

func (s *ExportService) clearCheckpoint(ctx context.Context) error {
	if err := s.checkpoints.Clear(ctx); err != nil {
		return apperrors.ErrCheckpointFailed("clear", err)
	}
	return nil
}

// apiError classifies a Grain client error
func (s *ExportService) apiError(ctx context.Context, operation string, err error) error {
	if ctx.Err() != nil {
		return apperrors.ErrInterrupted(ctx.Err())
	}
	if errors.Is(err, grain.ErrUnauthorized) {
		return apperrors.ErrGrainUnauthenticated(err)
	}
	return apperrors.ErrGrainAPIFailed(operation, err)
}

// sleepContext waits for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
