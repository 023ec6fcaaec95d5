package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults_NoConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test.yaml")

	cfg, err := Load("test.yaml", configPath)
	require.NoError(t, err)
	assert.Equal(t, DefaultHAPListenAddress, cfg.Server.ListenAddress)
	assert.Equal(t, DefaultAPIListenAddress, cfg.API.ListenAddress)
	assert.Equal(t, StorageBackendFile, cfg.Storage.Backend)
	assert.Equal(t, CategoryBridge, cfg.Server.Category)
	assert.True(t, cfg.Discovery.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_FromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "hapd.yaml")
	content := `
server:
  name: Living Room Bridge
  setup_code: "246-80-135"
storage:
  backend: redis
  redis_addr: redis:6379
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	cfg, err := Load("hapd.yaml", configPath)
	require.NoError(t, err)
	assert.Equal(t, "Living Room Bridge", cfg.Server.Name)
	assert.Equal(t, "246-80-135", cfg.Server.SetupCode)
	assert.Equal(t, StorageBackendRedis, cfg.Storage.Backend)
	assert.Equal(t, "redis:6379", cfg.Storage.RedisAddr)
	assert.Equal(t, LogLevelDebug, cfg.Logging.Level)
	// untouched keys keep their defaults
	assert.Equal(t, DefaultHAPListenAddress, cfg.Server.ListenAddress)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("HAPD_SERVER_NAME", "From Env")
	configPath := filepath.Join(t.TempDir(), "hapd.yaml")

	cfg, err := Load("hapd.yaml", configPath)
	require.NoError(t, err)
	assert.Equal(t, "From Env", cfg.Server.Name)
}

func TestSaveAndLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)
	cfg := New(v)
	cfg.API.Token = "abc123"
	cfg.MQTT.Broker = "tcp://broker:1883"
	cfg.Server.ConfigNumber = 7

	require.NoError(t, cfg.Save())

	cfg2, err := Load("test.yaml", configPath)
	require.NoError(t, err)
	assert.Equal(t, "abc123", cfg2.API.Token)
	assert.Equal(t, "tcp://broker:1883", cfg2.MQTT.Broker)
	assert.Equal(t, 7, cfg2.Server.ConfigNumber)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "bad.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("not: [valid: yaml"), 0644))

	_, err := Load("bad.yaml", configPath)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := New(viper.New())
	require.NoError(t, cfg.Validate())

	cfg.Storage.Backend = "sqlite"
	assert.Error(t, cfg.Validate())

	cfg.Storage.Backend = StorageBackendFile
	cfg.Server.SetupCode = "000-00-000"
	assert.Error(t, cfg.Validate())
}

func TestSet_RefreshesTypedView(t *testing.T) {
	cfg := New(viper.New())
	cfg.Set("logging.level", "warn")
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "warn", cfg.Get("logging.level"))
}

func TestWatch_AppliesChanges(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "hapd.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("logging:\n  level: info\n"), 0644))

	cfg, err := Load("hapd.yaml", configPath)
	require.NoError(t, err)

	changed := make(chan string, 4)
	cfg.Watch(nil, func(c *Config) { changed <- c.Logging.Level })

	require.NoError(t, os.WriteFile(configPath, []byte("logging:\n  level: debug\n"), 0644))

	assert.Eventually(t, func() bool {
		select {
		case lvl := <-changed:
			return lvl == LogLevelDebug
		default:
			return false
		}
	}, 5*time.Second, 20*time.Millisecond)
}
