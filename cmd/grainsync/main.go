package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	apperrors "github.com/johnquangdev/grain-sync/errors"
	"github.com/johnquangdev/grain-sync/internal/adapter/cli"
	"github.com/johnquangdev/grain-sync/pkg/config"
	"github.com/johnquangdev/grain-sync/pkg/logger"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return apperrors.ExitCodeOf(err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return apperrors.ExitConfig
	}
	defer log.Sync()

	// SIGINT/SIGTERM cancel the run; the checkpoint stays at the last completed page
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := &cli.Dependencies{
		Config:    cfg,
		Logger:    log,
		Stdin:     os.Stdin,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		Factories: cli.DefaultFactories(),
	}

	rootCmd := cli.NewRootCmd(deps)
	rootCmd.SetArgs(args)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		code := apperrors.ExitCodeOf(err)
		log.Debug("Command failed", zap.Error(err), zap.Int("exit_code", code))
		cli.PrintError(deps, args, err)
		return code
	}
	return 0
}
