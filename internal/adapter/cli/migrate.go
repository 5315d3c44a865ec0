package cli

import (
	"github.com/spf13/cobra"

	apperrors "github.com/johnquangdev/grain-sync/errors"
	usecaseErrors "github.com/johnquangdev/grain-sync/internal/usecase/errors"
)

func NewMigrateCmd(deps *Dependencies, root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the export index migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !deps.Config.Index.Enabled {
				return apperrors.ErrInvalidArgument("set INDEX_ENABLED=true to use the export index").
					WithDetail("cause", usecaseErrors.ErrIndexDisabled.Error())
			}

			n, err := deps.Factories.withDefaults().Migrate(cmd.Context(), deps.Config, deps.Logger)
			if err != nil {
				return err
			}
			return root.printer(deps).Message("Applied migrations", map[string]interface{}{"count": n})
		},
	}
}
