// Package host is an in-process implementation of foreign.Runtime. It hosts
// named namespaces and keeps every non-primitive value it hands out in an
// object table, so callers only ever hold foreign.Handles.
package host

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"tablebridge/foreign"
	"tablebridge/internal/logging"
)

// Namespace is a named collection of constants and methods.
type Namespace interface {
	Name() string
	Constant(name string) (any, bool)
	Call(ctx context.Context, method string, args []any) (any, error)
}

// TypeNamer lets hosted objects choose the type recorded in their handle.
type TypeNamer interface {
	TypeName() string
}

type Runtime struct {
	ready atomic.Bool

	mu         sync.RWMutex
	namespaces map[string]Namespace // by name
	nsHandles  map[string]foreign.Handle
	objects    map[string]any // handle id → object
	constants  map[string]foreign.Handle
}

func New() *Runtime {
	return &Runtime{
		namespaces: make(map[string]Namespace),
		nsHandles:  make(map[string]foreign.Handle),
		objects:    make(map[string]any),
		constants:  make(map[string]foreign.Handle),
	}
}

// Register makes ns resolvable under ns.Name(), replacing any previous one.
func (r *Runtime) Register(ns Namespace) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.namespaces[ns.Name()] = ns
	h := foreign.Handle{ID: uuid.NewString(), Type: ns.Name()}
	r.nsHandles[ns.Name()] = h
	r.objects[h.ID] = ns
}

// MarkReady flips the runtime into the initialized state.
func (r *Runtime) MarkReady() {
	r.ready.Store(true)
	logging.With("host").Info("runtime ready", "namespaces", r.namespaceCount())
}

func (r *Runtime) Ready() bool { return r.ready.Load() }

func (r *Runtime) namespaceCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.namespaces)
}

func (r *Runtime) Resolve(_ context.Context, name string) (foreign.Handle, error) {
	if !r.Ready() {
		return foreign.Handle{}, foreign.ErrNotReady
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.nsHandles[name]
	if !ok {
		return foreign.Handle{}, fmt.Errorf("%w: symbol %q", foreign.ErrNotFound, name)
	}
	return h, nil
}

func (r *Runtime) namespace(h foreign.Handle) (Namespace, error) {
	if !r.Ready() {
		return nil, foreign.ErrNotReady
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	ns, ok := r.objects[h.ID].(Namespace)
	if !ok {
		return nil, fmt.Errorf("%w: namespace %s", foreign.ErrNotFound, h)
	}
	return ns, nil
}

func (r *Runtime) Constant(_ context.Context, h foreign.Handle, name string) (any, error) {
	ns, err := r.namespace(h)
	if err != nil {
		return nil, err
	}
	key := ns.Name() + "." + name

	r.mu.Lock()
	defer r.mu.Unlock()
	if ch, ok := r.constants[key]; ok {
		return ch, nil
	}
	v, ok := ns.Constant(name)
	if !ok {
		return nil, fmt.Errorf("%w: constant %s", foreign.ErrNotFound, key)
	}
	out := r.exportLocked(v)
	if ch, ok := out.(foreign.Handle); ok {
		r.constants[key] = ch
	}
	return out, nil
}

func (r *Runtime) Invoke(ctx context.Context, h foreign.Handle, method string, args ...any) (any, error) {
	ns, err := r.namespace(h)
	if err != nil {
		return nil, err
	}
	local, err := r.deref(args)
	if err != nil {
		return nil, err
	}
	v, err := ns.Call(ctx, method, local)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.exportLocked(v), nil
}

// Object returns the hosted object behind h.
func (r *Runtime) Object(h foreign.Handle) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.objects[h.ID]
	return v, ok
}

// Release forgets the object behind h and closes it if it is an io.Closer.
// Namespace and constant handles are never released.
func (r *Runtime) Release(_ context.Context, h foreign.Handle) error {
	if h.IsZero() {
		return nil
	}
	r.mu.Lock()
	obj, ok := r.objects[h.ID]
	if !ok || r.pinnedLocked(h, obj) {
		r.mu.Unlock()
		return nil
	}
	delete(r.objects, h.ID)
	r.mu.Unlock()

	if c, ok := obj.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("release %s: %w", h, err)
		}
	}
	return nil
}

func (r *Runtime) pinnedLocked(h foreign.Handle, obj any) bool {
	if _, ok := obj.(Namespace); ok {
		return true
	}
	for _, ch := range r.constants {
		if ch.ID == h.ID {
			return true
		}
	}
	return false
}

// Live is the number of objects currently held, namespaces included.
func (r *Runtime) Live() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.objects)
}

func (r *Runtime) deref(args []any) ([]any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]any, len(args))
	for i, a := range args {
		h, ok := a.(foreign.Handle)
		if !ok {
			out[i] = a
			continue
		}
		obj, ok := r.objects[h.ID]
		if !ok {
			return nil, fmt.Errorf("%w: argument %d references unknown object %s", foreign.ErrNotFound, i, h)
		}
		out[i] = obj
	}
	return out, nil
}

// exportLocked returns v unchanged when it can cross the boundary by value and
// a handle to it otherwise. r.mu must be held for writing.
func (r *Runtime) exportLocked(v any) any {
	switch x := v.(type) {
	case nil, bool, string, int32, int64, float64, foreign.Handle, foreign.Properties, foreign.Array:
		return v
	case []any:
		out := make([]any, len(x))
		for i, it := range x {
			out[i] = r.exportLocked(it)
		}
		return out
	}
	typ := fmt.Sprintf("%T", v)
	if tn, ok := v.(TypeNamer); ok {
		typ = tn.TypeName()
	}
	h := foreign.Handle{ID: uuid.NewString(), Type: typ}
	r.objects[h.ID] = v
	return h
}
