package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigure_JSONWithComponent(t *testing.T) {
	var buf bytes.Buffer
	Configure(Options{Level: "debug", JSON: true, Output: &buf})
	t.Cleanup(func() { Configure(Options{}) })

	With("bridge").Debug("binding deferred", "symbol", "io.tablebridge.kafka.KafkaTools")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "DEBUG", rec["level"])
	assert.Equal(t, "bridge", rec["component"])
	assert.Equal(t, "io.tablebridge.kafka.KafkaTools", rec["symbol"])
}

func TestConfigure_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	Configure(Options{Level: "warn", Output: &buf})
	t.Cleanup(func() { Configure(Options{}) })

	L().Info("dropped")
	assert.Zero(t, buf.Len())
	L().Warn("kept")
	assert.Contains(t, buf.String(), "msg=kept")
}

func TestInitFromEnv_NoVarsKeepsLogger(t *testing.T) {
	var buf bytes.Buffer
	Configure(Options{Level: "error", Output: &buf})
	t.Cleanup(func() { Configure(Options{}) })
	before := L()

	InitFromEnv()
	assert.Same(t, before, L())
}

func TestInitFromEnv_Overrides(t *testing.T) {
	Configure(Options{Level: "error"})
	t.Cleanup(func() { Configure(Options{}) })
	before := L()
	t.Setenv("TABLEBRIDGE_LOG_LEVEL", "debug")

	InitFromEnv()
	assert.NotSame(t, before, L())
	assert.True(t, L().Enabled(context.Background(), slog.LevelDebug))
}
