package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zwave-go-home/internal/commandclass"
	"zwave-go-home/internal/option"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, "zwave:\n  device: auto\nmanager:\n  fixture: demo.yaml\n"))
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Manager.Type)
	assert.Equal(t, "127.0.0.1:8080", cfg.Web.Listen)
	assert.Equal(t, "zwave-home.db", cfg.Store.Path)
	assert.Equal(t, "scripts", cfg.ScriptsDir)
	assert.Equal(t, "zwave2mqtt", cfg.MQTT.TopicPrefix)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.NoError(t, cfg.validate())
}

func TestLoadConfigExample(t *testing.T) {
	cfg, err := loadConfig(filepath.Join("..", "..", "config.example.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.validate())

	assert.Equal(t, uint32(0x014D0EF5), cfg.Manager.HomeID)
	require.NotNil(t, cfg.ZWave.Options.SaveLogLevel)
	assert.Equal(t, option.LogDetail, *cfg.ZWave.Options.SaveLogLevel)
	require.NotNil(t, cfg.ZWave.Options.PollInterval)
	assert.Equal(t, int32(30), *cfg.ZWave.Options.PollInterval)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = loadConfig(writeConfig(t, "zwave: [\n"))
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no device", "manager:\n  fixture: demo.yaml\n"},
		{"no fixture", "zwave:\n  device: auto\n"},
		{"unknown manager", "zwave:\n  device: auto\nmanager:\n  type: native\n  fixture: demo.yaml\n"},
		{"mqtt without broker", "zwave:\n  device: auto\nmanager:\n  fixture: demo.yaml\nmqtt:\n  enabled: true\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := loadConfig(writeConfig(t, tt.body))
			require.NoError(t, err)
			assert.Error(t, cfg.validate())
		})
	}
}

func TestCreateManagerOverridesHomeID(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, "zwave:\n  device: auto\nmanager:\n  fixture: ../../fixtures/demo.yaml\n  home_id: 0x0000BEEF\n"))
	require.NoError(t, err)

	logger := newLogger(cfg)
	mgr, err := createManager(cfg, commandclass.NewStandardRegistry(logger), logger)
	require.NoError(t, err)
	defer mgr.Close()
	assert.Equal(t, uint8(1), mgr.GetControllerNodeID(0x0000BEEF))
	assert.Equal(t, uint8(0), mgr.GetControllerNodeID(0x014D0EF5))
}
