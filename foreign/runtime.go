// Package foreign models the boundary to the runtime hosting the table
// engine. Callers never see the engine's types directly: everything crossing
// the boundary is one of the value kinds listed on Runtime.
package foreign

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotReady is returned by runtimes that are reachable but not yet
	// initialized.
	ErrNotReady = errors.New("foreign: runtime not initialized")
	// ErrNotFound is returned when a symbol, constant or method is absent.
	ErrNotFound = errors.New("foreign: not found")
)

// Runtime is the foreign side of the bridge.
//
// Values passed to Invoke and returned from Constant/Invoke are limited to
// nil, bool, string, int32, int64, float64, Handle, Properties, Array and
// []any of those.
//
// Every Handle returned by Constant or Invoke pins an object in the runtime
// until it is released. Releasing an unknown, zero, namespace or constant
// handle is a no-op.
type Runtime interface {
	Ready() bool
	Resolve(ctx context.Context, name string) (Handle, error)
	Constant(ctx context.Context, ns Handle, name string) (any, error)
	Invoke(ctx context.Context, ns Handle, method string, args ...any) (any, error)
	Release(ctx context.Context, h Handle) error
}

// Handle is an opaque reference to an object owned by the foreign runtime.
type Handle struct {
	ID   string
	Type string
}

func (h Handle) IsZero() bool { return h.ID == "" }

func (h Handle) String() string { return fmt.Sprintf("%s@%s", h.Type, h.ID) }

// Properties is a string-to-string configuration object.
type Properties map[string]string

// Clone returns an independent copy.
func (p Properties) Clone() Properties {
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
