package engine

import (
	"context"
	"net"

	"tablebridge/internal/host"
	"tablebridge/internal/host/plugins"
	"tablebridge/internal/transport"
)

type Engine struct {
	transport *transport.Server
	runtime   *host.Runtime
	plugins   *plugins.Registry
}

func (e *Engine) Runtime() *host.Runtime { return e.runtime }

func (e *Engine) Plugins() *plugins.Registry { return e.plugins }

func (e *Engine) Addr() net.Addr { return e.transport.Addr() }

// Run serves until ctx is done. Stream tables stop with ctx as well.
func (e *Engine) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		e.transport.Stop()
	}()

	return e.transport.Serve()
}
