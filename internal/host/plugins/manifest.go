package plugins

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const (
	ManifestFile = "manifest.json"

	// PreloadedPrefix is the directory preloaded plugins are served under.
	PreloadedPrefix = "preloaded-plugins"

	pluginLink = "plugin"
)

var ErrLockTimeout = errors.New("plugins: timeout acquiring manifest lock")

// ManifestEntry describes one JS plugin served from the plugin directory.
type ManifestEntry struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Main    string `json:"main"`
}

type Manifest struct {
	Plugins []ManifestEntry `json:"plugins"`
}

// ReadManifest reads dir/manifest.json under a shared lock.
func ReadManifest(ctx context.Context, dir string, timeout time.Duration) (Manifest, error) {
	var m Manifest
	path := filepath.Join(dir, ManifestFile)
	unlock, err := lockFile(ctx, path, timeout, true)
	if err != nil {
		return m, err
	}
	defer unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("plugins: decode %s: %w", path, err)
	}
	return m, nil
}

// WriteManifest replaces dir/manifest.json atomically under an exclusive lock.
func WriteManifest(ctx context.Context, dir string, m Manifest, timeout time.Duration) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("plugins: create %s: %w", dir, err)
	}
	path := filepath.Join(dir, ManifestFile)
	unlock, err := lockFile(ctx, path, timeout, false)
	if err != nil {
		return err
	}
	defer unlock()

	if m.Plugins == nil {
		m.Plugins = []ManifestEntry{}
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	tmp := fmt.Sprintf("%s.%d.%d.tmp", path, os.Getpid(), time.Now().UnixNano())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("plugins: write temp manifest: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("plugins: replace manifest: %w", err)
	}
	return nil
}

func lockFile(ctx context.Context, path string, timeout time.Duration, shared bool) (func(), error) {
	lock := flock.New(path + ".lock")
	lockCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	try := lock.TryLockContext
	if shared {
		try = lock.TryRLockContext
	}
	locked, err := try(lockCtx, 50*time.Millisecond)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrLockTimeout
		}
		return nil, fmt.Errorf("plugins: lock %s: %w", path, err)
	}
	if !locked {
		return nil, ErrLockTimeout
	}
	return func() { _ = lock.Unlock() }, nil
}
