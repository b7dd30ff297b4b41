package main

import (
	"fmt"
	"os"

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
		Use:           "worklog-migrate",
		Short:         "Apply pending database migrations",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			applied, err := app.Migrate(opts)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d migration(s) applied\n", len(applied))
			return nil
		},
	}
	root.Flags().StringVar(&opts.ConfigPath, "config", "", "YAML config file (overrides CONFIG_FILE)")
	return root
}
