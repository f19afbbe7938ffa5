package commands

import (
	"errors"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vulntor/botkit/cmd/botkit/internal/format"
	"github.com/vulntor/botkit/pkg/appctx"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}
	cmd.AddCommand(newConfigShowCommand())
	return cmd
}

func newConfigShowCommand() *cobra.Command {
	var showSecrets bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long: `Print the configuration after merging defaults, the config file,
BOTKIT_* environment variables and flags. Bot tokens are masked unless
--show-secrets is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, ok := appctx.Config(cmd.Context())
			if !ok {
				return WithErrorCode(errors.New("configuration not loaded"), codeInvalidConfig)
			}
			cfg := mgr.Get()
			if !showSecrets {
				for id, b := range cfg.Bots {
					b.Token = maskToken(b.Token)
					cfg.Bots[id] = b
				}
			}

			f := format.FromCommand(cmd)
			if f.IsJSON() {
				return f.PrintJSON(cfg)
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}

	cmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "Print bot tokens unmasked")
	return cmd
}

// maskToken keeps the bot ID part of a "<id>:<secret>" token.
func maskToken(token string) string {
	if token == "" {
		return ""
	}
	for i := 0; i < len(token); i++ {
		if token[i] == ':' {
			return token[:i+1] + "****"
		}
	}
	return "****"
}
