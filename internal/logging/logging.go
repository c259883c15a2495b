package logging

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
)

type Options struct {
	Level string
	JSON  bool
	// Output defaults to stderr.
	Output io.Writer
}

var def atomic.Value

func init() {
	cfg := &slog.HandlerOptions{Level: slog.LevelInfo}
	h := slog.NewTextHandler(os.Stderr, cfg)
	def.Store(slog.New(h))
}

func Configure(opts Options) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	cfg := &slog.HandlerOptions{Level: parseLevel(opts.Level)}
	var h slog.Handler
	if opts.JSON {
		h = slog.NewJSONHandler(out, cfg)
	} else {
		h = slog.NewTextHandler(out, cfg)
	}
	def.Store(slog.New(h))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func L() *slog.Logger {
	l, _ := def.Load().(*slog.Logger)
	return l
}

// With returns the process logger scoped to a component.
func With(component string) *slog.Logger {
	return L().With("component", component)
}

// InitFromEnv reconfigures the logger when TABLEBRIDGE_LOG_LEVEL or
// TABLEBRIDGE_LOG_JSON is set and leaves it alone otherwise.
func InitFromEnv() {
	lvl, hasLvl := os.LookupEnv("TABLEBRIDGE_LOG_LEVEL")
	rawJSON, hasJSON := os.LookupEnv("TABLEBRIDGE_LOG_JSON")
	if !hasLvl && !hasJSON {
		return
	}
	json := false
	if b, err := strconv.ParseBool(strings.TrimSpace(rawJSON)); err == nil {
		json = b
	}
	Configure(Options{Level: lvl, JSON: json})
}
