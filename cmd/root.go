package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lightdark-study/internal/config"
	logger "lightdark-study/internal/logging"
)

// app carries what every subcommand needs once the root pre-run has loaded
// the configuration.
type app struct {
	root string
	log  *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{log: zap.NewNop()}

	rootCmd := &cobra.Command{
		Use:          "lightdark-study",
		Short:        "Local host for the light/dark mode interface study.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Logging settings come from the config, so read it once without a
			// logger, then install it with hot reload.
			initial, err := config.Load(a.root)
			if err != nil {
				return err
			}
			log, err := logger.Init(a.root, initial.Logging)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.log = log
			return config.Init(a.root, log)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.log.Sync()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.root, "root", ".", "project root holding config/, logs/ and the assets directory")

	rootCmd.AddCommand(newServeCmd(a))
	rootCmd.AddCommand(newArchiveCmd(a))
	return rootCmd
}

// Execute runs the command tree with a context cancelled on SIGINT/SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
