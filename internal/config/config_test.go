package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "python3", cfg.PythonPath)
	assert.Equal(t, "server/ml_model.py", cfg.EngineScript)
	assert.Equal(t, 30*time.Second, cfg.EngineTimeout)
	assert.Equal(t, 4, cfg.EngineMaxConcurrency)
	assert.Equal(t, StorageMemory, cfg.StorageDriver)
	assert.Zero(t, cfg.EngineRPS)
	assert.False(t, cfg.TelegramEnabled())
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "housepricer.yaml")
	data := []byte("port: \"9000\"\nengine_timeout: 5s\nstorage_driver: redis\nrate_limit_rps: 2.5\n")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "9100")
	t.Setenv("ENGINE_MAX_CONCURRENCY", "8")
	t.Setenv("PERSIST_TIMEOUT", "3")
	t.Setenv("ENGINE_RPS", "40")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.EngineTimeout)
	assert.Equal(t, StorageRedis, cfg.StorageDriver)
	assert.Equal(t, 2.5, cfg.RateLimitRPS)
	assert.Equal(t, 8, cfg.EngineMaxConcurrency)
	assert.Equal(t, 3*time.Second, cfg.PersistTimeout)
	assert.Equal(t, 40, cfg.EngineRPS)
}

func TestLoadRejectsBadSettings(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown engine mode", map[string]string{"ENGINE_MODE": "grpc"}},
		{"http mode without url", map[string]string{"ENGINE_MODE": "http", "ENGINE_URL": ""}},
		{"unknown storage", map[string]string{"STORAGE_DRIVER": "sqlite"}},
		{"zero concurrency", map[string]string{"ENGINE_MAX_CONCURRENCY": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CONFIG_FILE", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestMissingConfigFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
	_, err := Load()
	assert.Error(t, err)
}

func TestTelegramEnabled(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_OPS_CHAT_ID", "-100200300")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.TelegramEnabled())
	assert.Equal(t, int64(-100200300), cfg.TelegramOpsChatID)
}
