package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/johnquangdev/grain-sync/internal/version"
)

func NewVersionCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(deps.Stdout, version.Full())
		},
	}
}
