package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Storage     StorageConfig     `mapstructure:"storage"`
	API         APIConfig         `mapstructure:"api"`
	Discovery   DiscoveryConfig   `mapstructure:"discovery"`
	MQTT        MQTTConfig        `mapstructure:"mqtt"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Accessories AccessoriesConfig `mapstructure:"accessories"`

	// Internal viper instance
	v *viper.Viper
}

// ServerConfig describes the accessory server and how it presents itself
type ServerConfig struct {
	ListenAddress string `mapstructure:"listen_address"`
	Name          string `mapstructure:"name"`
	Model         string `mapstructure:"model"`
	Manufacturer  string `mapstructure:"manufacturer"`
	SerialNumber  string `mapstructure:"serial_number"`
	Firmware      string `mapstructure:"firmware"`
	Category      int    `mapstructure:"category"`
	SetupCode     string `mapstructure:"setup_code"`
	SetupID       string `mapstructure:"setup_id"`
	ConfigNumber  int    `mapstructure:"config_number"`
}

// StorageConfig selects the durable key-value backend
type StorageConfig struct {
	Backend   string `mapstructure:"backend"`
	Directory string `mapstructure:"directory"`
	RedisAddr string `mapstructure:"redis_addr"`
	RedisDB   int    `mapstructure:"redis_db"`
	RedisPass string `mapstructure:"redis_password"`
	Prefix    string `mapstructure:"prefix"`
}

// APIConfig represents the admin HTTP API configuration
type APIConfig struct {
	ListenAddress string `mapstructure:"listen_address"`
	Token         string `mapstructure:"token"`
}

// DiscoveryConfig represents the mDNS advertisement configuration
type DiscoveryConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Interface string `mapstructure:"interface"`
}

// MQTTConfig represents the optional event bridge
type MQTTConfig struct {
	Broker      string `mapstructure:"broker"`
	ClientID    string `mapstructure:"client_id"`
	TopicPrefix string `mapstructure:"topic_prefix"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
}

// LoggingConfig represents the logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// AccessoriesConfig points at the accessory definition file
type AccessoriesConfig struct {
	Path string `mapstructure:"path"`
}

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.listen_address", DefaultHAPListenAddress)
	v.SetDefault("server.name", DefaultAccessoryName)
	v.SetDefault("server.model", DefaultModel)
	v.SetDefault("server.manufacturer", DefaultManufacturer)
	v.SetDefault("server.serial_number", "0000001")
	v.SetDefault("server.firmware", "1.0.0")
	v.SetDefault("server.category", CategoryBridge)
	v.SetDefault("server.setup_code", DefaultSetupCode)
	v.SetDefault("server.setup_id", "")
	v.SetDefault("server.config_number", 1)
	v.SetDefault("storage.backend", StorageBackendFile)
	v.SetDefault("storage.directory", GetDataDir())
	v.SetDefault("storage.redis_addr", "localhost:6379")
	v.SetDefault("storage.redis_db", 0)
	v.SetDefault("storage.prefix", "hapd:")
	v.SetDefault("api.listen_address", DefaultAPIListenAddress)
	v.SetDefault("api.token", "")
	v.SetDefault("discovery.enabled", true)
	v.SetDefault("discovery.interface", "")
	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.client_id", "hapd")
	v.SetDefault("mqtt.topic_prefix", "hapd")
	v.SetDefault("logging.level", LogLevelInfo)
	v.SetDefault("logging.format", LogFormatText)
	v.SetDefault("logging.file", "")
	v.SetDefault("accessories.path", "")
}

// New creates a Config from an already prepared viper instance.
func New(v *viper.Viper) *Config {
	SetDefaults(v)
	cfg := &Config{v: v}
	cfg.reload()
	return cfg
}

// Load loads configuration from a file and environment variables
func Load(configName, configFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType("yaml")

	if configFile != "" {
		v.SetConfigFile(configFile)
		slog.Info("Using config file from command line", "path", configFile)
	} else {
		configPath := GetConfigPath(configName)
		v.SetConfigFile(configPath)

		if err := os.MkdirAll(GetConfigBaseDir(), 0755); err != nil {
			return nil, fmt.Errorf("error creating config directory: %w", err)
		}
		if _, err := os.Stat(configPath); err == nil {
			slog.Info("Using default config file", "path", configPath)
		}
	}

	// A missing file leaves the defaults in place; a broken one is an error.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return New(v), nil
}

func (c *Config) reload() {
	v := c.v
	c.Server = ServerConfig{
		ListenAddress: v.GetString("server.listen_address"),
		Name:          v.GetString("server.name"),
		Model:         v.GetString("server.model"),
		Manufacturer:  v.GetString("server.manufacturer"),
		SerialNumber:  v.GetString("server.serial_number"),
		Firmware:      v.GetString("server.firmware"),
		Category:      v.GetInt("server.category"),
		SetupCode:     v.GetString("server.setup_code"),
		SetupID:       v.GetString("server.setup_id"),
		ConfigNumber:  v.GetInt("server.config_number"),
	}
	c.Storage = StorageConfig{
		Backend:   v.GetString("storage.backend"),
		Directory: v.GetString("storage.directory"),
		RedisAddr: v.GetString("storage.redis_addr"),
		RedisDB:   v.GetInt("storage.redis_db"),
		RedisPass: v.GetString("storage.redis_password"),
		Prefix:    v.GetString("storage.prefix"),
	}
	c.API = APIConfig{
		ListenAddress: v.GetString("api.listen_address"),
		Token:         v.GetString("api.token"),
	}
	c.Discovery = DiscoveryConfig{
		Enabled:   v.GetBool("discovery.enabled"),
		Interface: v.GetString("discovery.interface"),
	}
	c.MQTT = MQTTConfig{
		Broker:      v.GetString("mqtt.broker"),
		ClientID:    v.GetString("mqtt.client_id"),
		TopicPrefix: v.GetString("mqtt.topic_prefix"),
		Username:    v.GetString("mqtt.username"),
		Password:    v.GetString("mqtt.password"),
	}
	c.Logging = LoggingConfig{
		Level:  v.GetString("logging.level"),
		Format: v.GetString("logging.format"),
		File:   v.GetString("logging.file"),
	}
	c.Accessories = AccessoriesConfig{
		Path: v.GetString("accessories.path"),
	}
}

// Validate checks values that would make the server misbehave at runtime.
func (c *Config) Validate() error {
	if err := ValidateSetupCode(c.Server.SetupCode); err != nil {
		return err
	}
	switch c.Storage.Backend {
	case StorageBackendFile, StorageBackendRedis:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Server.Category < 1 {
		return fmt.Errorf("invalid accessory category %d", c.Server.Category)
	}
	return nil
}

// Save writes the configuration back to its file
func (c *Config) Save() error {
	logger := slog.Default()
	configPath := c.v.ConfigFileUsed()
	if configPath == "" {
		configPath = GetConfigPath(DaemonConfigFilename)
		c.v.SetConfigFile(configPath)
	}

	logger.Info("Saving configuration", "path", configPath)

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	for key, value := range c.values() {
		c.v.Set(key, value)
	}

	if err := c.v.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	logger.Info("Configuration saved successfully", "path", configPath)
	return nil
}

// values flattens the typed sections back into viper keys.
func (c *Config) values() map[string]any {
	return map[string]any{
		"server.listen_address":  c.Server.ListenAddress,
		"server.name":            c.Server.Name,
		"server.model":           c.Server.Model,
		"server.manufacturer":    c.Server.Manufacturer,
		"server.serial_number":   c.Server.SerialNumber,
		"server.firmware":        c.Server.Firmware,
		"server.category":        c.Server.Category,
		"server.setup_code":      c.Server.SetupCode,
		"server.setup_id":        c.Server.SetupID,
		"server.config_number":   c.Server.ConfigNumber,
		"storage.backend":        c.Storage.Backend,
		"storage.directory":      c.Storage.Directory,
		"storage.redis_addr":     c.Storage.RedisAddr,
		"storage.redis_db":       c.Storage.RedisDB,
		"storage.redis_password": c.Storage.RedisPass,
		"storage.prefix":         c.Storage.Prefix,
		"api.listen_address":     c.API.ListenAddress,
		"api.token":              c.API.Token,
		"discovery.enabled":      c.Discovery.Enabled,
		"discovery.interface":    c.Discovery.Interface,
		"mqtt.broker":            c.MQTT.Broker,
		"mqtt.client_id":         c.MQTT.ClientID,
		"mqtt.topic_prefix":      c.MQTT.TopicPrefix,
		"mqtt.username":          c.MQTT.Username,
		"mqtt.password":          c.MQTT.Password,
		"logging.level":          c.Logging.Level,
		"logging.format":         c.Logging.Format,
		"logging.file":           c.Logging.File,
		"accessories.path":       c.Accessories.Path,
	}
}

// Watch reloads the configuration whenever its file changes on disk and
// calls onChange with the refreshed values.
func (c *Config) Watch(logger *slog.Logger, onChange func(*Config)) {
	if logger == nil {
		logger = slog.Default()
	}
	c.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		logger.Info("Configuration file changed", "path", e.Name)
		c.reload()
		if onChange != nil {
			onChange(c)
		}
	})
	c.v.WatchConfig()
}

// Viper returns the underlying viper instance for flag binding.
func (c *Config) Viper() *viper.Viper {
	return c.v
}

// Get retrieves a value from the configuration
func (c *Config) Get(key string) any {
	if c.v == nil {
		return nil
	}
	return c.v.Get(key)
}

// Set sets a value in the configuration
func (c *Config) Set(key string, value any) {
	if c.v == nil {
		return
	}
	c.v.Set(key, value)
	c.reload()
}
