package main

import (
	"github.com/spf13/cobra"

	"tunecrawl/internal/daemonrun"
)

func newRunCommands(ctx *commandContext) []*cobra.Command {
	var serveLogLevel string
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and periodic aggregation in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{Mode: daemonrun.ModeServe, LogLevel: serveLogLevel})
		},
	}
	serveCmd.Flags().StringVar(&serveLogLevel, "log-level", "", "Override logging.level")

	var jobLogLevel string
	jobCmd := &cobra.Command{
		Use:   "job",
		Short: "Aggregate immediately and then on scheduler.job_interval, without the API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{Mode: daemonrun.ModeJob, LogLevel: jobLogLevel})
		},
	}
	jobCmd.Flags().StringVar(&jobLogLevel, "log-level", "", "Override logging.level")

	return []*cobra.Command{serveCmd, jobCmd}
}
