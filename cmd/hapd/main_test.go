package main

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/hapd/internal/config"
)

func TestNewFlagSet_Defaults(t *testing.T) {
	fs := newFlagSet()
	require.NoError(t, fs.Parse(nil))

	level, err := fs.GetString("log-level")
	require.NoError(t, err)
	assert.Equal(t, config.LogLevelInfo, level)

	listen, err := fs.GetString("listen")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultHAPListenAddress, listen)

	for name := range flagKeys {
		assert.NotNil(t, fs.Lookup(name), "flag %s is declared", name)
	}
}

func TestApplyFlags_OnlyChangedFlagsOverride(t *testing.T) {
	v := viper.New()
	v.Set("logging.level", config.LogLevelWarn)
	v.Set("server.name", "From File")
	cfg := config.New(v)

	fs := newFlagSet()
	require.NoError(t, fs.Parse([]string{"--listen", "127.0.0.1:0", "--log-format", "json"}))
	applyFlags(cfg, fs)

	assert.Equal(t, "127.0.0.1:0", cfg.Server.ListenAddress)
	assert.Equal(t, config.LogFormatJSON, cfg.Logging.Format)
	assert.Equal(t, config.LogLevelWarn, cfg.Logging.Level, "unset flags keep file values")
	assert.Equal(t, "From File", cfg.Server.Name)
}

func TestApplyFlags_NoDiscovery(t *testing.T) {
	v := viper.New()
	v.Set("discovery.enabled", true)
	cfg := config.New(v)

	fs := newFlagSet()
	require.NoError(t, fs.Parse([]string{"--no-discovery"}))
	applyFlags(cfg, fs)

	assert.False(t, cfg.Discovery.Enabled)
}

func TestRun_VersionAndHelp(t *testing.T) {
	assert.Equal(t, 0, run([]string{"--version"}))
	assert.Equal(t, 0, run([]string{"--help"}))
	assert.Equal(t, 2, run([]string{"--no-such-flag"}))
}
