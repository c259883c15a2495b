// Package plugins is the host side of plugin registration: it records
// object types handed over by plugin.RegistrationAdapter and serves the JS
// assets some of them ship from a manifest-described directory.
package plugins

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"tablebridge/internal/logging"
	"tablebridge/plugin"
)

var ErrDuplicateObjectType = errors.New("plugins: object type already registered")

// JSPluginInfo is a UI asset descriptor received at registration.
type JSPluginInfo struct {
	Name    string
	Version string
	Main    string
	Path    string
}

func infoFromMap(m map[string]string) JSPluginInfo {
	return JSPluginInfo{Name: m["name"], Version: m["version"], Main: m["main"], Path: m["path"]}
}

// served reports whether the descriptor points at assets on disk.
func (i JSPluginInfo) served() bool { return i.Path != "" && i.Path != "None" }

// Registry implements plugin.Callback.
type Registry struct {
	root        string
	lockTimeout time.Duration
	log         *slog.Logger

	mu      sync.RWMutex
	types   []*plugin.ObjectTypeAdapter
	byName  map[string]*plugin.ObjectTypeAdapter
	entries []ManifestEntry
}

type Option func(*Registry)

func WithLockTimeout(d time.Duration) Option { return func(r *Registry) { r.lockTimeout = d } }

// NewRegistry serves JS plugins from root, creating it if needed. An empty
// root keeps JS plugin descriptors in memory only.
func NewRegistry(root string, opts ...Option) (*Registry, error) {
	r := &Registry{
		root:        root,
		lockTimeout: 5 * time.Second,
		log:         logging.With("plugins"),
		byName:      make(map[string]*plugin.ObjectTypeAdapter),
	}
	for _, o := range opts {
		o(r)
	}
	if root != "" {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, fmt.Errorf("plugins: create %s: %w", root, err)
		}
	}
	return r, nil
}

func (r *Registry) Root() string { return r.root }

func (r *Registry) RegisterObjectType(name string, a *plugin.ObjectTypeAdapter, jsInfo map[string]string) error {
	info := infoFromMap(jsInfo)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byName[name]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateObjectType, name)
	}
	if info.served() {
		if err := r.addLocked(context.Background(), info); err != nil {
			return err
		}
	}
	r.types = append(r.types, a)
	r.byName[name] = a
	r.log.Info("object type registered", "name", name, "js", info.served())
	return nil
}

// addLocked links the plugin's asset directory under root and lists it in
// the manifest as <dir>/plugin/<name>. Nothing is kept if the manifest
// cannot be written.
func (r *Registry) addLocked(ctx context.Context, info JSPluginInfo) error {
	entryName := info.Name
	var dir string
	if r.root != "" {
		src, err := filepath.Abs(info.Path)
		if err != nil {
			return err
		}
		if dir, err = os.MkdirTemp(r.root, "plugin"); err != nil {
			return fmt.Errorf("plugins: %w", err)
		}
		if err := os.Symlink(src, filepath.Join(dir, pluginLink)); err != nil {
			_ = os.RemoveAll(dir)
			return fmt.Errorf("plugins: link %s: %w", src, err)
		}
		entryName = filepath.ToSlash(filepath.Join(filepath.Base(dir), pluginLink, info.Name))
	}
	next := append(slices.Clone(r.entries), ManifestEntry{Name: entryName, Version: info.Version, Main: info.Main})
	if err := r.flushLocked(ctx, next); err != nil {
		if dir != "" {
			_ = os.RemoveAll(dir)
		}
		return err
	}
	r.entries = next
	return nil
}

// AddPreloaded serves the plugins listed in resourceBase/manifest.json under
// the preloaded-plugins prefix.
func (r *Registry) AddPreloaded(ctx context.Context, resourceBase string) error {
	m, err := ReadManifest(ctx, resourceBase, r.lockTimeout)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.root != "" {
		src, err := filepath.Abs(resourceBase)
		if err != nil {
			return err
		}
		link := filepath.Join(r.root, PreloadedPrefix)
		if err := os.Symlink(src, link); err != nil && !errors.Is(err, os.ErrExist) {
			r.log.Warn("cannot link preloaded plugins", "from", src, "err", err)
		}
	}
	next := slices.Clone(r.entries)
	for _, e := range m.Plugins {
		e.Name = PreloadedPrefix + "/" + e.Name
		next = append(next, e)
	}
	if err := r.flushLocked(ctx, next); err != nil {
		return err
	}
	r.entries = next
	r.log.Info("preloaded plugins added", "count", len(m.Plugins), "from", resourceBase)
	return nil
}

func (r *Registry) flushLocked(ctx context.Context, entries []ManifestEntry) error {
	if r.root == "" {
		return nil
	}
	return WriteManifest(ctx, r.root, Manifest{Plugins: entries}, r.lockTimeout)
}

// Lookup finds an object type by name.
func (r *Registry) Lookup(name string) (*plugin.ObjectTypeAdapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byName[name]
	return a, ok
}

// Find returns the first registered object type that accepts obj.
func (r *Registry) Find(obj any) (*plugin.ObjectTypeAdapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.types {
		if a.IsType(obj) {
			return a, true
		}
	}
	return nil, false
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.types))
	for i, a := range r.types {
		out[i] = a.Name()
	}
	return out
}

// Entries returns the JS plugins currently listed in the manifest.
func (r *Registry) Entries() []ManifestEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]ManifestEntry(nil), r.entries...)
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.types)
}

func (r *Registry) String() string { return fmt.Sprintf("objectType=%d", r.Count()) }
