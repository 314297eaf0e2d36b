package cmd

import (
	"github.com/spf13/cobra"

	"github.com/example/pluginhost/internal/mcp"
	"github.com/example/pluginhost/internal/server"
	"github.com/example/pluginhost/pkg/grpc"
)

func newServeCmd(h *host) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the operator API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			if err := h.loadPlugins(ctx, ""); err != nil {
				return err
			}
			if addr == "" {
				addr = h.app.Config.Server.Addr
			}
			return server.New(h.app, h.app.Registry, h.app.Logger).ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to server.addr from the config)")
	return cmd
}

func newServeGRPCCmd(h *host) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve-grpc",
		Short: "Serve the built-in and plugin operators over gRPC",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			if err := h.loadPlugins(ctx, ""); err != nil {
				return err
			}
			if port == 0 {
				port = h.app.Config.Server.GRPCPort
			}
			return grpc.ListenAndServe(ctx, port, h.app.Registry, h.app.Logger)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "listen port (defaults to server.grpc_port from the config)")
	return cmd
}

func newMCPCmd(h *host) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve operators as MCP tools on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := h.loadPlugins(cmd.Context(), ""); err != nil {
				return err
			}
			return mcp.NewServer(h.app, h.app.Registry, Version, h.app.Logger).ServeStdio()
		},
	}
}
