package bridge

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"tablebridge/foreign"
	"tablebridge/internal/telemetry"
)

// Binding is a resolved foreign symbol. Its existence means the foreign
// runtime was ready when it was created.
type Binding struct {
	Symbol     string
	Namespace  foreign.Handle
	ResolvedAt time.Time
}

// Resolver resolves one foreign symbol on first use and caches it for its
// own lifetime. It is safe for concurrent use.
type Resolver struct {
	rt     foreign.Runtime
	symbol string

	mu          sync.Mutex // serializes resolution attempts
	bound       atomic.Pointer[Binding]
	resolutions atomic.Int64
}

func NewResolver(rt foreign.Runtime, symbol string) *Resolver {
	return &Resolver{rt: rt, symbol: symbol}
}

func (r *Resolver) Symbol() string { return r.symbol }

// EnsureBound returns the cached binding, resolving it first if needed.
func (r *Resolver) EnsureBound(ctx context.Context) (*Binding, error) {
	if b := r.bound.Load(); b != nil {
		return b, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if b := r.bound.Load(); b != nil {
		return b, nil
	}

	if !r.rt.Ready() {
		return nil, ErrEnvironmentNotReady
	}
	h, err := r.rt.Resolve(ctx, r.symbol)
	if err != nil {
		return nil, &SymbolError{Name: r.symbol, Err: err}
	}

	b := &Binding{Symbol: r.symbol, Namespace: h, ResolvedAt: time.Now()}
	r.bound.Store(b)
	r.resolutions.Add(1)
	telemetry.Resolutions.WithLabelValues(r.symbol).Inc()
	return b, nil
}

// Bound reports whether a binding exists without attempting resolution.
func (r *Resolver) Bound() bool { return r.bound.Load() != nil }

// Resolutions is the number of successful resolutions performed. It never
// exceeds one.
func (r *Resolver) Resolutions() int64 { return r.resolutions.Load() }
