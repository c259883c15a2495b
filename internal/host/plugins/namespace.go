package plugins

import (
	"context"
	"fmt"

	"tablebridge/foreign"
)

const Namespace = "io.tablebridge.plugins.Registry"

// HostNamespace exposes a read-only view of r to foreign callers.
type HostNamespace struct{ r *Registry }

func (r *Registry) Namespace() HostNamespace { return HostNamespace{r: r} }

func (HostNamespace) Name() string { return Namespace }

func (HostNamespace) Constant(string) (any, bool) { return nil, false }

func (n HostNamespace) Call(_ context.Context, method string, args []any) (any, error) {
	if len(args) != 0 {
		return nil, fmt.Errorf("%s: takes no arguments, got %d", method, len(args))
	}
	switch method {
	case "objectTypes":
		names := n.r.Names()
		out := make([]any, len(names))
		for i, s := range names {
			out[i] = s
		}
		return out, nil
	case "jsPlugins":
		entries := n.r.Entries()
		out := make([]any, len(entries))
		for i, e := range entries {
			out[i] = foreign.Properties{"name": e.Name, "version": e.Version, "main": e.Main}
		}
		return out, nil
	case "summary":
		return n.r.String(), nil
	}
	return nil, fmt.Errorf("%w: method %s.%s", foreign.ErrNotFound, Namespace, method)
}
