package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/oshokin/alarm-hub/internal/config"
	"github.com/oshokin/alarm-hub/internal/logger"
	"github.com/oshokin/alarm-hub/internal/service/common"
)

// Options configures the alarm client.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string

	// ServerURL overrides the hub URL from config when specified.
	ServerURL string

	// AlarmName is started on connect and stopped on exit. Empty only watches.
	AlarmName string

	// HeartbeatInterval overrides the ping interval derived from client_expiry.
	HeartbeatInterval time.Duration

	// Output receives the pushed alarm lists, os.Stdout when nil.
	Output io.Writer
}

// minHeartbeatInterval keeps very short expiry windows from flooding the hub.
const minHeartbeatInterval = 100 * time.Millisecond

// errServerClosed is returned when the hub drops the connection.
var errServerClosed = errors.New("connection closed by hub")

// Run connects to the hub and prints alarm lists until ctx is canceled.
//
//nolint:cyclop // Flow is straightforward and readable; splitting would reduce clarity.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "alarm-client")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	serverURL := cfg.ServerURL
	if opts.ServerURL != "" {
		serverURL = opts.ServerURL
	}

	output := opts.Output
	if output == nil {
		output = os.Stdout
	}

	interval := heartbeatInterval(cfg.ClientExpiry, opts.HeartbeatInterval)

	client, err := common.Dial(ctx, serverURL, common.WithCallTimeout(cfg.WriteTimeout))
	if err != nil {
		return err
	}

	// Close connection on function exit.
	defer func() {
		_ = client.Close()
	}()

	logger.InfoKV(ctx, "Connected to alarm hub", "server_url", serverURL, "heartbeat", interval.String())

	updates := make(chan string)
	readErr := make(chan error, 1)

	go func() {
		for {
			update, err := client.ReadUpdate()
			if err != nil {
				readErr <- err

				return
			}

			select {
			case updates <- update:
			case <-ctx.Done():
				return
			}
		}
	}()

	if opts.AlarmName != "" {
		if err := client.StartAlarm(opts.AlarmName); err != nil {
			return err
		}

		logger.InfoKV(ctx, "Alarm started", "alarm", opts.AlarmName)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return stopAlarm(ctx, client, opts.AlarmName)
		case <-ticker.C:
			if err := client.Heartbeat(); err != nil {
				return err
			}
		case update := <-updates:
			if err := printUpdate(output, update); err != nil {
				return fmt.Errorf("print update: %w", err)
			}
		case err := <-readErr:
			logger.DebugKV(ctx, "Read loop ended", "error", err)

			return errServerClosed
		}
	}
}

// heartbeatInterval pings one second inside the expiry window unless overridden.
func heartbeatInterval(expiry, override time.Duration) time.Duration {
	interval := override
	if interval <= 0 {
		interval = expiry - time.Second
		if interval <= 0 {
			interval = expiry / 2
		}
	}

	return max(interval, minHeartbeatInterval)
}

// stopAlarm withdraws the alarm before disconnecting.
func stopAlarm(ctx context.Context, client *common.Client, name string) error {
	if name == "" {
		return nil
	}

	if err := client.StopAlarm(name); err != nil {
		logger.WarnKV(ctx, "Failed to stop alarm on exit", "alarm", name, "error", err)

		return nil
	}

	logger.InfoKV(ctx, "Alarm stopped", "alarm", name)

	return nil
}

// printUpdate writes one alarm list followed by a separator line.
func printUpdate(w io.Writer, update string) error {
	if update == "" {
		update = "(no active alarms)"
	}

	_, err := fmt.Fprintf(w, "%s\n---\n", update)

	return err
}
