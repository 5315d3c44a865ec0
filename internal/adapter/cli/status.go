package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	apperrors "github.com/johnquangdev/grain-sync/errors"
	"github.com/johnquangdev/grain-sync/internal/adapter/presenter"
	usecaseErrors "github.com/johnquangdev/grain-sync/internal/usecase/errors"
)

func NewStatusCmd(deps *Dependencies, root *rootOptions) *cobra.Command {
	var recordingID string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the saved resume checkpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			if recordingID != "" {
				return showIndexedRecording(cmd, deps, root, recordingID)
			}

			ctx := cmd.Context()
			cfg := deps.Config
			logger := deps.Logger
			factories := deps.Factories.withDefaults()

			checkpoints, err := factories.Checkpoints(ctx, cfg, logger, false)
			if err != nil {
				return err
			}
			defer checkpoints.Close()

			cp, err := checkpoints.Repository.Load(ctx)
			if err != nil {
				return apperrors.ErrCheckpointFailed("load", err)
			}
			status := presenter.ToStatusResponse(cp, checkpoints.Backend, checkpoints.Location)

			if cfg.Index.Enabled {
				index, closeIndex, err := factories.Index(ctx, cfg, logger)
				if err == nil {
					defer closeIndex()
					if count, err := index.Count(ctx); err == nil {
						status.IndexedCount = &count
					} else {
						logger.Warn("Failed to count indexed recordings", zap.Error(err))
					}
				} else {
					logger.Warn("Export index unavailable", zap.Error(err))
				}
			}

			if cfg.Storage.Enabled {
				mirror, err := factories.Mirror(ctx, cfg)
				if err == nil {
					if count, err := mirror.CountObjects(ctx); err == nil {
						status.MirroredCount = &count
					} else {
						logger.Warn("Failed to count mirrored recordings", zap.Error(err))
					}
				} else {
					logger.Warn("Object mirror unavailable", zap.Error(err))
				}
			}

			return root.printer(deps).Status(status)
		},
	}

	cmd.Flags().StringVar(&recordingID, "recording", "", "look up one recording in the export index")

	return cmd
}

// showIndexedRecording prints the export index row of one recording
func showIndexedRecording(cmd *cobra.Command, deps *Dependencies, root *rootOptions, recordingID string) error {
	if !deps.Config.Index.Enabled {
		return apperrors.ErrInvalidArgument("set INDEX_ENABLED=true to look up exported recordings").
			WithDetail("cause", usecaseErrors.ErrIndexDisabled.Error())
	}

	ctx := cmd.Context()
	index, closeIndex, err := deps.Factories.withDefaults().Index(ctx, deps.Config, deps.Logger)
	if err != nil {
		return err
	}
	defer closeIndex()

	row, err := index.FindByRecordingID(ctx, recordingID)
	if err != nil {
		return apperrors.ErrIndexFailed("find", err)
	}
	if row == nil {
		return apperrors.ErrNotFound(fmt.Sprintf("recording %s", recordingID)).
			WithDetail("cause", usecaseErrors.ErrNotIndexed.Error())
	}
	return root.printer(deps).IndexedRecording(presenter.ToIndexedRecordingResponse(row))
}
