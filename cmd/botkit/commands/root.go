package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/vulntor/botkit/cmd/botkit/internal/format"
	"github.com/vulntor/botkit/pkg/appctx"
	"github.com/vulntor/botkit/pkg/config"
	"github.com/vulntor/botkit/pkg/logging"
	"github.com/vulntor/botkit/pkg/paths"
)

const cliExecutable = "botkit"

type logCloserKey struct{}

// Execute runs cmd and closes the log output opened while running it, also
// when the command fails.
func Execute(cmd *cobra.Command) error {
	err := cmd.Execute()
	if ctx := cmd.Context(); ctx != nil {
		if closer, ok := ctx.Value(logCloserKey{}).(io.Closer); ok {
			if cerr := closer.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
	}
	return err
}

// NewCommand constructs the top-level botkit CLI command, wiring global
// flags, configuration loading and logging.
func NewCommand() *cobra.Command {
	var (
		configFile string
		outputMode string
	)

	cmd := &cobra.Command{
		Use:   cliExecutable,
		Short: "Send Bot API requests inline or through background jobs",
		Long: `botkit sends Bot API requests for the bots in its configuration.
A bot with async enabled hands each request to a job queue; "botkit worker"
performs queued requests, possibly in another process sharing a spool
directory.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := format.ValidateMode(outputMode); err != nil {
				return WithErrorCode(err, codeInvalidArgument)
			}

			if configFile == "" {
				configFile = paths.ConfigFile()
			}

			mgr := config.NewManager()
			if err := mgr.Load(cmd.Flags(), configFile); err != nil {
				return WithErrorCode(fmt.Errorf("load config: %w", err), codeInvalidConfig)
			}

			cfg := mgr.Get()
			closer, err := logging.Configure(logging.Options{
				Level:  cfg.Log.Level,
				Format: cfg.Log.Format,
				File:   cfg.Log.File,
			})
			if err != nil {
				return WithErrorCode(err, codeInvalidConfig)
			}

			ctx := context.WithValue(cmd.Context(), logCloserKey{}, closer)
			ctx = appctx.WithConfig(ctx, mgr)
			cmd.SetContext(ctx)
			if root := cmd.Root(); root != nil && root != cmd {
				root.SetContext(ctx)
			}
			return nil
		},
	}

	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Configuration file path (default: $XDG_CONFIG_HOME/botkit/config.yaml)")
	cmd.PersistentFlags().StringVarP(&outputMode, "output", "o", string(format.ModeTable), "Output format: table or json")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	cmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress summary messages")

	config.BindFlags(cmd.PersistentFlags())

	cmd.AddCommand(newSendCommand())
	cmd.AddCommand(newWorkerCommand())
	cmd.AddCommand(newBotsCommand())
	cmd.AddCommand(newConfigCommand())
	cmd.AddCommand(newVersionCommand())

	return cmd
}
