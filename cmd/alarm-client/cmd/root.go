package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/alarm-hub/internal/config"
	"github.com/oshokin/alarm-hub/internal/logger"
	"github.com/oshokin/alarm-hub/internal/service/client"
	"github.com/oshokin/alarm-hub/internal/version"
)

var (
	// cfgPath stores the configuration file path.
	cfgPath string
	// serverURL overrides the hub URL.
	serverURL string
	// heartbeat overrides the ping interval.
	heartbeat time.Duration

	// rootCmd represents the base command for watching the hub.
	rootCmd = &cobra.Command{
		Use:   "alarm-client [alarm-name]",
		Short: "Connect to the alarm hub and print active alarms.",
		Long: `Connects to the alarm hub and prints every alarm list it pushes.

When an alarm name is given, the alarm is started on connect and stopped again
when the client exits (Ctrl+C). The connection is kept live with ping frames
sent one second inside the hub's client_expiry window.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			defer logger.Sync()

			var alarmName string
			if len(args) > 0 {
				alarmName = args[0]
			}

			return client.Run(ctx, &client.Options{
				ConfigPath:        cfgPath,
				ServerURL:         serverURL,
				AlarmName:         alarmName,
				HeartbeatInterval: heartbeat,
				Output:            cmd.OutOrStdout(),
			})
		},
	}
)

// Execute runs the alarm-client CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&serverURL, "server", "s", "", "hub websocket URL, overrides server_url")
	rootCmd.Flags().DurationVar(&heartbeat, "heartbeat", 0, "ping interval, derived from client_expiry when zero")
}
