package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"netmon-dashboard/pkg/config"
	"netmon-dashboard/pkg/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfg *config.Config

	root := &cobra.Command{
		Use:           "netmon",
		Short:         "Network monitoring dashboard",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := logger.Init(os.Getenv("GO_ENV")); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			loaded, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			*cfg = *loaded
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}
	cfg = &config.Config{}

	root.AddCommand(
		newServeCmd(cfg),
		newLoginCmd(cfg),
		newLogoutCmd(cfg),
		newStatusCmd(cfg),
		newScanCmd(cfg),
		newResolveCmd(cfg),
		newReportCmd(cfg),
	)
	return root
}
