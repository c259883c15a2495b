package bridge

import (
	"context"
	"sync"

	"tablebridge/foreign"
)

type invocation struct {
	method string
	args   []any
}

// fakeRuntime records every call crossing the boundary.
type fakeRuntime struct {
	mu        sync.Mutex
	ready     bool
	missing   bool
	resolves  int
	constants map[string]any
	calls     []invocation
	released  []foreign.Handle
}

func newFakeRuntime(ready bool) *fakeRuntime {
	return &fakeRuntime{
		ready: ready,
		constants: map[string]any{
			AllPartitions:                foreign.Handle{ID: "c-all", Type: "IntPredicate"},
			AllPartitionsDontSeek:        foreign.Handle{ID: "c-dont-seek", Type: "IntToLongFunction"},
			AllPartitionsSeekToBeginning: foreign.Handle{ID: "c-begin", Type: "IntToLongFunction"},
			AllPartitionsSeekToEnd:       foreign.Handle{ID: "c-end", Type: "IntToLongFunction"},
			DirectMapping:                foreign.Handle{ID: "c-direct", Type: "Function"},
		},
	}
}

func (f *fakeRuntime) setReady(v bool) {
	f.mu.Lock()
	f.ready = v
	f.mu.Unlock()
}

func (f *fakeRuntime) Ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready
}

func (f *fakeRuntime) Resolve(_ context.Context, name string) (foreign.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.missing {
		return foreign.Handle{}, foreign.ErrNotFound
	}
	f.resolves++
	return foreign.Handle{ID: "ns", Type: name}, nil
}

func (f *fakeRuntime) Constant(_ context.Context, _ foreign.Handle, name string) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.constants[name]
	if !ok {
		return nil, foreign.ErrNotFound
	}
	return v, nil
}

func (f *fakeRuntime) Invoke(_ context.Context, _ foreign.Handle, method string, args ...any) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, invocation{method: method, args: args})
	return foreign.Handle{ID: method, Type: method}, nil
}

func (f *fakeRuntime) Release(_ context.Context, h foreign.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = append(f.released, h)
	return nil
}

func (f *fakeRuntime) releasedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, h := range f.released {
		out = append(out, h.ID)
	}
	return out
}

func (f *fakeRuntime) resolveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resolves
}

func (f *fakeRuntime) invocations(method string) []invocation {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []invocation
	for _, c := range f.calls {
		if c.method == method {
			out = append(out, c)
		}
	}
	return out
}
