package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/johnquangdev/grain-sync/internal/adapter/presenter"
	"github.com/johnquangdev/grain-sync/internal/infrastructure/filestore"
	"github.com/johnquangdev/grain-sync/internal/usecase/export"
	"github.com/johnquangdev/grain-sync/pkg/config"
)

func NewSyncCmd(deps *Dependencies, root *rootOptions) *cobra.Command {
	var (
		testMode  bool
		resume    string
		outputDir string
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Download recordings that are not on disk yet",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *deps.Config
			if cmd.Flags().Changed("test") {
				cfg.Sync.TestMode = testMode
			}
			if cmd.Flags().Changed("resume") {
				cfg.Sync.Resume = config.ResumeMode(resume)
			}
			if cmd.Flags().Changed("output") {
				cfg.Sync.OutputDir = outputDir
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.RequireAPIToken(); err != nil {
				return err
			}

			ctx := cmd.Context()
			logger := deps.Logger
			factories := deps.Factories.withDefaults()

			source, err := factories.Source(&cfg, logger)
			if err != nil {
				return err
			}

			checkpoints, err := factories.Checkpoints(ctx, &cfg, logger, cfg.Sync.TestMode)
			if err != nil {
				return err
			}
			defer checkpoints.Close()

			opts := []export.Option{
				export.WithPrompter(NewStdinPrompter(deps.Stdin, deps.Stderr)),
			}

			if cfg.Index.Enabled {
				index, closeIndex, err := factories.Index(ctx, &cfg, logger)
				if err != nil {
					logger.Warn("Export index unavailable, continuing without it", zap.Error(err))
				} else {
					defer closeIndex()
					opts = append(opts, export.WithExportIndex(index))
				}
			}

			if cfg.Storage.Enabled {
				mirror, err := factories.Mirror(ctx, &cfg)
				if err != nil {
					logger.Warn("Object mirror unavailable, continuing without it", zap.Error(err))
				} else {
					opts = append(opts, export.WithMirror(mirror))
				}
			}

			store := filestore.NewStore(cfg.Sync.OutputDir, logger)
			svc := export.NewExportService(source, store, checkpoints.Repository, logger, opts...)

			summary, err := svc.Run(ctx, export.Options{
				TestMode:       cfg.Sync.TestMode,
				Resume:         cfg.Sync.Resume,
				RecordingDelay: cfg.Sync.RecordingDelay,
				PageDelay:      cfg.Sync.PageDelay,
			})
			if err != nil {
				if summary != nil {
					logger.Error("Sync stopped, checkpoint kept at the last completed page",
						zap.String("run_id", summary.RunID),
						zap.Int("processed", summary.ProcessedCount),
						zap.Int("saved", summary.Saved),
					)
				}
				return err
			}

			return root.printer(deps).Summary(presenter.ToSummaryResponse(summary, cfg.Sync.OutputDir))
		},
	}

	cmd.Flags().BoolVar(&testMode, "test", false, "process only the first recording and leave the checkpoint untouched")
	cmd.Flags().StringVar(&resume, "resume", "", "what to do with a saved checkpoint: prompt, true or false")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory")

	return cmd
}
