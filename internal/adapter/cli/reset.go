package cli

import (
	"github.com/spf13/cobra"

	apperrors "github.com/johnquangdev/grain-sync/errors"
)

func NewResetCmd(deps *Dependencies, root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete the saved resume checkpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			checkpoints, err := deps.Factories.withDefaults().Checkpoints(ctx, deps.Config, deps.Logger, false)
			if err != nil {
				return err
			}
			defer checkpoints.Close()

			if err := checkpoints.Repository.Clear(ctx); err != nil {
				return apperrors.ErrCheckpointFailed("clear", err)
			}
			return root.printer(deps).Message("Removed saved state", map[string]interface{}{
				"backend":  checkpoints.Backend,
				"location": checkpoints.Location,
			})
		},
	}
}
