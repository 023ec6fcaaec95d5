package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// GetConfigBaseDir returns the base directory for configuration files
func GetConfigBaseDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		// For system service, XDG_CONFIG_HOME is set to /etc/hapd
		if dir == "/etc/hapd" {
			return dir
		}
		return filepath.Join(dir, ConfigDirName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", ConfigDirName)
}

// GetDataDir returns the directory holding pairing state for the file store
func GetDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, ConfigDirName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", ConfigDirName)
}

// GetConfigPath returns the full path to a configuration file
func GetConfigPath(filename string) string {
	return filepath.Join(GetConfigBaseDir(), filename)
}

// GetDaemonConfigPath returns the full path to the daemon configuration file
func GetDaemonConfigPath() string {
	return GetConfigPath(DaemonConfigFilename)
}

// GetClientConfigPath returns the full path to the client configuration file
func GetClientConfigPath() string {
	return GetConfigPath(ClientConfigFilename)
}

// Setup codes controllers refuse to accept.
var disallowedSetupCodes = map[string]bool{
	"000-00-000": true, "111-11-111": true, "222-22-222": true,
	"333-33-333": true, "444-44-444": true, "555-55-555": true,
	"666-66-666": true, "777-77-777": true, "888-88-888": true,
	"999-99-999": true, "123-45-678": true, "876-54-321": true,
}

// NormalizeSetupCode accepts "XXX-XX-XXX" or eight bare digits and returns
// the dashed form.
func NormalizeSetupCode(code string) (string, error) {
	digits := strings.ReplaceAll(code, "-", "")
	if len(digits) != 8 {
		return "", fmt.Errorf("setup code %q must have 8 digits", code)
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("setup code %q must be numeric", code)
		}
	}
	return digits[:3] + "-" + digits[3:5] + "-" + digits[5:], nil
}

// ValidateSetupCode checks the format and rejects trivial codes
func ValidateSetupCode(code string) error {
	normalized, err := NormalizeSetupCode(code)
	if err != nil {
		return err
	}
	if disallowedSetupCodes[normalized] {
		return fmt.Errorf("setup code %s is not allowed", normalized)
	}
	return nil
}
