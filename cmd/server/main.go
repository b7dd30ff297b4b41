package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Thrusbalda/auto-work-log/internal/app"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts app.Options

	root := &cobra.Command{
		Use:           "worklog-server",
		Short:         "Track work sessions from location updates",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return app.Serve(ctx, opts)
		},
	}
	root.Flags().StringVar(&opts.ConfigPath, "config", "", "YAML config file (overrides CONFIG_FILE)")
	root.Flags().BoolVar(&opts.Ephemeral, "ephemeral", false, "keep state in memory only")
	root.SetContext(context.Background())
	return root
}
