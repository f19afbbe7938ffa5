package commands

import (
	"github.com/spf13/cobra"

	"github.com/vulntor/botkit/cmd/botkit/internal/format"
)

type botInfo struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
	Server   string `json:"server"`
	Mode     string `json:"mode"`
}

func newBotsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "bots",
		Short: "List configured bots and how their requests are dispatched",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := prepareRuntime(cmd)
			if err != nil {
				return err
			}

			infos := make([]botInfo, 0, len(rt.registry.IDs()))
			for _, id := range rt.registry.IDs() {
				c := rt.registry.MustLookup(id)
				infos = append(infos, botInfo{
					ID:       id,
					Username: c.Username(),
					Server:   c.Server(),
					Mode:     c.Mode().String(),
				})
			}

			f := format.FromCommand(cmd)
			if f.IsJSON() {
				return f.PrintJSON(infos)
			}
			if len(infos) == 0 {
				return f.PrintSummary("No bots configured")
			}

			rows := make([][]string, 0, len(infos))
			for _, b := range infos {
				rows = append(rows, []string{b.ID, b.Username, b.Server, b.Mode})
			}
			return f.PrintTable([]string{"id", "username", "server", "mode"}, rows)
		},
	}
}
