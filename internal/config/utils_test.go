package config

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetConfigBaseDir(t *testing.T) {
	tests := []struct {
		name          string
		xdgConfigHome string
		want          string
		wantSuffix    string
	}{
		{name: "system_service", xdgConfigHome: "/etc/hapd", want: "/etc/hapd"},
		{name: "user_default", xdgConfigHome: "", wantSuffix: "/.config/hapd"},
		{name: "user_custom_xdg", xdgConfigHome: "/home/user/myconfigs", want: "/home/user/myconfigs/hapd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("XDG_CONFIG_HOME", tt.xdgConfigHome)

			result := GetConfigBaseDir()
			if tt.want != "" {
				assert.Equal(t, tt.want, result)
				return
			}
			assert.True(t, filepath.IsAbs(result))
			assert.True(t, strings.HasSuffix(result, tt.wantSuffix), "got %s", result)
		})
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/etc/hapd")
	assert.Equal(t, "/etc/hapd/hapd.yaml", GetDaemonConfigPath())

	t.Setenv("XDG_CONFIG_HOME", "")
	assert.True(t, strings.HasSuffix(GetClientConfigPath(), "/.config/hapd/hapctl.yaml"))
}

func TestGetDataDir(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/var/lib/data")
	assert.Equal(t, "/var/lib/data/hapd", GetDataDir())
}

func TestNormalizeSetupCode(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "031-45-154", want: "031-45-154"},
		{in: "03145154", want: "031-45-154"},
		{in: "031-45-15", wantErr: true},
		{in: "03a-45-154", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeSetupCode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateSetupCode(t *testing.T) {
	assert.NoError(t, ValidateSetupCode("031-45-154"))
	assert.Error(t, ValidateSetupCode("123-45-678"))
	assert.Error(t, ValidateSetupCode("11111111"))
	assert.Error(t, ValidateSetupCode(""))
}
