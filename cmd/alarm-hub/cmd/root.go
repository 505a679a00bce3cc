package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/alarm-hub/internal/config"
	"github.com/oshokin/alarm-hub/internal/logger"
	"github.com/oshokin/alarm-hub/internal/service/server"
	"github.com/oshokin/alarm-hub/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// healthAddress overrides the gRPC health listen address.
	healthAddress string

	// rootCmd represents the base command for running the hub.
	rootCmd = &cobra.Command{
		Use:   "alarm-hub [listen-address]",
		Short: "Run the alarm hub and push active alarms to every connected client.",
		Long: `Starts the websocket alarm hub.

Clients send "start:<name>" and "stop:<name>" text messages and ping frames as
heartbeats. A client not heard from within client_expiry is dropped together
with its alarms. After every change the newest max_alarms alarms are pushed to
all live clients.

Listen address can be provided as argument to override config (e.g., :37813).
Prometheus metrics are served on /metrics of the same listener.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			defer logger.Sync()

			// Use listen address argument if provided, otherwise rely on config.
			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			return server.Run(ctx, &server.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
				HealthAddress: healthAddress,
			})
		},
	}
)

// Execute runs the alarm-hub CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVar(&healthAddress, "health-addr", "", "gRPC health listen address (disabled when empty)")
}
