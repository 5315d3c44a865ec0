package cli

import (
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/johnquangdev/grain-sync/internal/adapter/presenter"
	"github.com/johnquangdev/grain-sync/internal/version"
	"github.com/johnquangdev/grain-sync/pkg/config"
)

type Dependencies struct {
	Config *config.Config
	Logger *zap.Logger
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Factories are swapped out in tests
	Factories Factories
}

type rootOptions struct {
	json bool
}

func NewRootCmd(deps *Dependencies) *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "grainsync",
		Short:         "Export Grain recordings and transcripts to JSON files",
		Long:          "Pages through the recordings of a Grain workspace and writes each one, with its transcript, to recordings/YYYY/MM/DD/{id}_{title}.json. Progress is checkpointed after every page so an interrupted run can resume.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate(version.Full() + "\n")
	rootCmd.SetIn(deps.Stdin)
	rootCmd.SetOut(deps.Stdout)
	rootCmd.SetErr(deps.Stderr)

	rootCmd.PersistentFlags().BoolVar(&opts.json, "json", false, "print results as JSON")

	rootCmd.AddCommand(NewSyncCmd(deps, opts))
	rootCmd.AddCommand(NewStatusCmd(deps, opts))
	rootCmd.AddCommand(NewResetCmd(deps, opts))
	rootCmd.AddCommand(NewMigrateCmd(deps, opts))
	rootCmd.AddCommand(NewVersionCmd(deps))

	return rootCmd
}

func (o *rootOptions) printer(deps *Dependencies) *presenter.Printer {
	return presenter.NewPrinter(deps.Stdout, o.json)
}

// PrintError renders a command failure on stderr, as JSON when --json was given
func PrintError(deps *Dependencies, args []string, err error) {
	asJSON := false
	for _, arg := range args {
		if arg == "--json" || arg == "--json=true" {
			asJSON = true
		}
	}
	presenter.NewPrinter(deps.Stderr, asJSON).Error(err)
}
