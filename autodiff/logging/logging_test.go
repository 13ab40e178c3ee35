package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"znkr.io/datasource/autodiff/config"
)

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stderr) })
	require.NoError(t, Configure(config.Log{Level: "debug", Format: "json"}))
	t.Cleanup(func() { Configure(config.Default().Log) })

	log := New("watch")
	require.Same(t, log, New("watch"))

	log.WithField("kind", "MoveItem").Debug("change")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "watch", entry["component"])
	require.Equal(t, "MoveItem", entry["kind"])
	require.Equal(t, "change", entry["msg"])
	require.Equal(t, "debug", entry["level"])
}

func TestConfigureLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stderr) })
	require.NoError(t, Configure(config.Log{Level: "warn", Format: "text"}))
	t.Cleanup(func() { Configure(config.Default().Log) })

	New("test").Info("hidden")
	require.Empty(t, buf.String())

	New("test").Warn("shown")
	require.Contains(t, buf.String(), "shown")
	require.Contains(t, buf.String(), "component=test")

	require.Error(t, Configure(config.Log{Level: "loud"}))
}
