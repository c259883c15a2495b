package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	SupportedSchema = "v1"
	EnvPrefix       = "TABLEBRIDGE__"
)

// RuntimeCfg says where bridgectl finds the foreign runtime.
type RuntimeCfg struct {
	Address      string        `koanf:"address"`
	Symbol       string        `koanf:"symbol"`
	ReadyTimeout time.Duration `koanf:"ready_timeout"`
	CallTimeout  time.Duration `koanf:"call_timeout"`
}

// HostCfg configures the bridgehost daemon.
type HostCfg struct {
	GRPCPort     int           `koanf:"grpc_port"`
	MetricsPort  int           `koanf:"metrics_port"` // 0 disables /metrics
	PluginDir    string        `koanf:"plugin_dir"`   // served JS plugins; empty keeps them in memory
	ResourceBase string        `koanf:"resource_base"`
	LockTimeout  time.Duration `koanf:"lock_timeout"`
}

type LogCfg struct {
	Level string `koanf:"level"`
	JSON  bool   `koanf:"json"`
}

type Config struct {
	SchemaVersion string     `koanf:"schema_version"`
	Runtime       RuntimeCfg `koanf:"runtime"`
	Host          HostCfg    `koanf:"host"`
	Log           LogCfg     `koanf:"log"`
}

// Load merges YAML (if present) with env-vars
// (prefix `TABLEBRIDGE__`, delimiter `__`, e.g. TABLEBRIDGE__HOST__GRPC_PORT).
func Load(path string) (Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil &&
			!errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}
	sv := k.String("schema_version")
	if sv != "" && sv != SupportedSchema {
		return Config{}, fmt.Errorf("config schema_version %q not supported (want %s)", sv, SupportedSchema)
	}

	envKey := func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}
	if err := k.Load(env.Provider(EnvPrefix, "__", envKey), nil); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, err
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(c *Config) {
	if c.SchemaVersion == "" {
		c.SchemaVersion = SupportedSchema
	}
	if c.Runtime.Address == "" {
		c.Runtime.Address = "localhost:7070"
	}
	if c.Runtime.Symbol == "" {
		c.Runtime.Symbol = "io.tablebridge.kafka.KafkaTools"
	}
	if c.Runtime.ReadyTimeout == 0 {
		c.Runtime.ReadyTimeout = 2 * time.Second
	}
	if c.Runtime.CallTimeout == 0 {
		c.Runtime.CallTimeout = 30 * time.Second
	}
	if c.Host.GRPCPort == 0 {
		c.Host.GRPCPort = 7070
	}
	if c.Host.LockTimeout == 0 {
		c.Host.LockTimeout = 5 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}
