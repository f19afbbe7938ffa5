package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vulntor/botkit/cmd/botkit/internal/format"
	v "github.com/vulntor/botkit/pkg/version"
)

func newVersionCommand() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := v.Get()
			out := cmd.OutOrStdout()

			if f := format.FromCommand(cmd); f.IsJSON() {
				return f.PrintJSON(info)
			}

			fmt.Fprintf(out, "%s version: %s\n", cliExecutable, info.Version)
			if short {
				return nil
			}
			if !info.Release {
				fmt.Fprintln(out, "Development build")
			}
			fmt.Fprintf(out, "Commit: %s\n", info.Commit)
			fmt.Fprintf(out, "Build Date: %s\n", info.BuildDate)
			fmt.Fprintf(out, "Go Version: %s\n", info.GoVersion)
			fmt.Fprintf(out, "Platform: %s\n", info.Platform)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print only the version number")

	return cmd
}
