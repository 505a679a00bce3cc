package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/oshokin/alarm-hub/internal/api/grpc/health"
	"github.com/oshokin/alarm-hub/internal/config"
	"github.com/oshokin/alarm-hub/internal/logger"
	"github.com/oshokin/alarm-hub/internal/version"
)

// Options controls the alarm-hub process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress overrides the websocket listen address from config.
	ListenAddress string
	// HealthAddress overrides the gRPC health listen address from config.
	HealthAddress string
}

const (
	// shutdownTimeout bounds the graceful stop of all listeners.
	shutdownTimeout = 5 * time.Second
	// readHeaderTimeout bounds the HTTP upgrade request.
	readHeaderTimeout = 10 * time.Second
)

// Run starts the hub and blocks until ctx is canceled or a listener fails.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "alarm-hub")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	// Command line arguments override the file.
	if opts.ListenAddress != "" {
		cfg.ListenAddress = opts.ListenAddress
	}

	if opts.HealthAddress != "" {
		cfg.HealthAddress = opts.HealthAddress
	}

	if level, ok := logger.ParseLogLevel(cfg.LogLevel); ok {
		logger.SetLevel(level)
	} else {
		logger.WarnKV(ctx, "Unknown log level, keeping default", "log_level", cfg.LogLevel)
	}

	return serve(ctx, cfg, newService(cfg, clockwork.NewRealClock()))
}

// serve runs the websocket listener and, if configured, the health listener.
func serve(ctx context.Context, cfg *config.Config, svc *service) error {
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.ListenAddress, err)
	}

	httpServer := &http.Server{
		Handler:           svc.handler(ctx),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	var (
		healthServer *health.Server
		healthLis    net.Listener
	)

	if cfg.HealthAddress != "" {
		healthLis, err = lc.Listen(ctx, "tcp", cfg.HealthAddress)
		if err != nil {
			_ = lis.Close()

			return fmt.Errorf("listen on %s: %w", cfg.HealthAddress, err)
		}

		healthServer = health.NewServer()
	}

	g, groupCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := httpServer.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve websocket: %w", err)
		}

		return nil
	})

	if healthServer != nil {
		g.Go(func() error {
			if err := healthServer.Serve(healthLis); err != nil {
				return fmt.Errorf("serve health: %w", err)
			}

			return nil
		})

		healthServer.SetServing(true)
	}

	g.Go(func() error {
		<-groupCtx.Done()

		return shutdown(ctx, httpServer, healthServer, svc)
	})

	logger.InfoKV(ctx, "Alarm hub listening",
		"listen_address", lis.Addr().String(),
		"health_address", cfg.HealthAddress,
		"client_expiry", cfg.ClientExpiry.String(),
		"max_alarms", cfg.MaxAlarms,
		"version", version.Short(),
	)

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info(ctx, "Alarm hub stopped")

	return nil
}

// shutdown stops listening first, then closes the open websocket connections.
func shutdown(ctx context.Context, httpServer *http.Server, healthServer *health.Server, svc *service) error {
	logger.Info(ctx, "Shutting down alarm hub")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if healthServer != nil {
		healthServer.Stop()
	}

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	if err := svc.transport.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("close websocket connections: %w", err)
	}

	return nil
}
