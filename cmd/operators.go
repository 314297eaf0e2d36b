package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/pluginhost/internal/app"
)

func newOperatorsCmd(h *host) *cobra.Command {
	var builtinOnly bool
	cmd := &cobra.Command{
		Use:   "operators",
		Short: "List available operators",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !builtinOnly {
				if err := h.loadPlugins(cmd.Context(), ""); err != nil {
					return err
				}
			}
			h.app.ListOperators()
			return nil
		},
	}
	cmd.Flags().BoolVar(&builtinOnly, "builtin", false, "only list built-in operators")
	return cmd
}

func newResolveCmd(h *host) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve [operator] [--param=value ...]",
		Short: "Show the input form of an operator",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uri := args[0]
			params, err := app.ParseParamFlags(args[1:])
			if err != nil {
				return err
			}
			if err := h.loadPlugins(cmd.Context(), uri); err != nil {
				return err
			}
			return h.app.ShowOperatorForm(cmd.Context(), uri, params)
		},
	}
	// Stop parsing flags after the operator name
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func newRunCmd(h *host) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [operator] [--param=value ...]",
		Short: "Execute an operator",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uri := args[0]
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			if err := h.loadPlugins(ctx, uri); err != nil {
				return err
			}

			for _, arg := range args[1:] {
				if arg == "--help" || arg == "-h" {
					return h.app.ShowOperatorForm(ctx, uri, nil)
				}
			}

			params, err := app.ParseParamFlags(args[1:])
			if err != nil {
				return err
			}
			return h.app.RunOperator(ctx, uri, params)
		},
	}
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func signalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
}
