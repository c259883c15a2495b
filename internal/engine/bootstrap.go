package engine

import (
	"context"
	"fmt"

	"tablebridge/internal/config"
	"tablebridge/internal/host"
	"tablebridge/internal/host/kafka"
	"tablebridge/internal/host/plugins"
	"tablebridge/internal/logging"
	"tablebridge/internal/telemetry"
	"tablebridge/internal/transport"
	"tablebridge/plugin"
)

// Bootstrap builds the host runtime, registers every queued plugin, and
// starts listening. The runtime is marked ready only once all namespaces
// are in place.
func Bootstrap(ctx context.Context, cfg config.Config) (*Engine, error) {
	log := logging.With("engine")

	// 1. host runtime + namespaces
	rt := host.New()
	rt.Register(kafka.NewTools(kafka.WithIngestContext(ctx)))

	reg, err := plugins.NewRegistry(cfg.Host.PluginDir, plugins.WithLockTimeout(cfg.Host.LockTimeout))
	if err != nil {
		return nil, err
	}
	if cfg.Host.ResourceBase != "" {
		if err := reg.AddPreloaded(ctx, cfg.Host.ResourceBase); err != nil {
			return nil, fmt.Errorf("preloaded plugins: %w", err)
		}
	}
	if err := plugin.InitializeAllAndRegisterInto(reg); err != nil {
		return nil, fmt.Errorf("plugins: %w", err)
	}
	rt.Register(reg.Namespace())
	rt.MarkReady()

	// 2. transport server
	srv, err := transport.StartServer(cfg.Host.GRPCPort, rt)
	if err != nil {
		return nil, fmt.Errorf("transport: %w", err)
	}

	// 3. metrics
	if cfg.Host.MetricsPort > 0 {
		telemetry.Expose(cfg.Host.MetricsPort)
	}

	log.Info("bootstrapped", "grpc", srv.Addr().String(), "metrics_port", cfg.Host.MetricsPort, "plugins", reg.String())
	return &Engine{
		transport: srv,
		runtime:   rt,
		plugins:   reg,
	}, nil
}
