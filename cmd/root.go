// Package cmd implements the pluginhost command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/pluginhost/internal/app"
	"github.com/example/pluginhost/internal/config"
	"github.com/example/pluginhost/internal/logging"
)

// Version is reported by the MCP server and the version command.
var Version = "dev"

// host holds the application shared by the sub-commands. app is built by
// the root command before any sub-command runs.
type host struct {
	configFile string
	logLevel   string
	app        *app.App
}

func (h *host) close() error {
	if h.app == nil {
		return nil
	}
	return h.app.Close()
}

// loadPlugins registers plugin operators when uri names one.
func (h *host) loadPlugins(ctx context.Context, uri string) error {
	if uri != "" && !strings.Contains(uri, "/") {
		return nil
	}
	_, err := h.app.LoadPlugins(ctx)
	return err
}

// NewRootCmd returns the pluginhost command tree. The returned close func
// stops plugin servers started by the command.
func NewRootCmd() (*cobra.Command, func() error) {
	h := &host{}
	root := &cobra.Command{
		Use:           "pluginhost",
		Short:         "A host for operator plugins",
		Long:          `pluginhost installs, manages and runs plugins that expose operators over gRPC.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logging.ParseLevel(h.logLevel)
			if err != nil {
				return err
			}
			logger := logging.New(level)

			cfg, err := config.Load(h.configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			a, err := app.New(cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize: %w", err)
			}
			a.Out = cmd.OutOrStdout()
			h.app = a
			return nil
		},
	}
	root.PersistentFlags().StringVar(&h.configFile, "config", "pluginhost.yaml", "config file")
	root.PersistentFlags().StringVar(&h.logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(h),
		newListCmd(h),
		newInfoCmd(h),
		newEnableCmd(h, true),
		newEnableCmd(h, false),
		newOperatorsCmd(h),
		newResolveCmd(h),
		newRunCmd(h),
		newServeCmd(h),
		newServeGRPCCmd(h),
		newMCPCmd(h),
	)
	return root, h.close
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the pluginhost version",
		Args:  cobra.NoArgs,
		// The version needs no config.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pluginhost %s (host API %s)\n", Version, config.HostVersion)
		},
	}
}

func newInitCmd(h *host) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:               "init",
		Short:             "Write a default config file",
		Args:              cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := os.Stat(h.configFile)
			if err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", h.configFile)
			}
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			if err := config.Save(config.Default(), h.configFile); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", h.configFile)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}
