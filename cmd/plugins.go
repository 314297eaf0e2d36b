package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newListCmd(h *host) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List installed plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return h.app.ListPlugins(cmd.Context())
		},
	}
}

func newInfoCmd(h *host) *cobra.Command {
	return &cobra.Command{
		Use:   "info [plugin-name]",
		Short: "Show detailed information for an installed plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return h.app.ShowPluginInfo(cmd.Context(), args[0])
		},
	}
}

func newEnableCmd(h *host, enable bool) *cobra.Command {
	use, verb := "disable", "Disable"
	if enable {
		use, verb = "enable", "Enable"
	}
	return &cobra.Command{
		Use:   use + " [plugin-name]",
		Short: verb + " an installed plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := h.app.SetEnabled(cmd.Context(), args[0], enable); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%sd %s\n", verb, args[0])
			return nil
		},
	}
}
