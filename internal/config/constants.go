package config

// Common constants shared between daemon and client
const (
	// ConfigDirName is the name of the config directory within XDG_CONFIG_HOME
	ConfigDirName = "hapd"

	// DaemonConfigFilename is the base filename for daemon config
	DaemonConfigFilename = "hapd.yaml"

	// ClientConfigFilename is the base filename for client config
	ClientConfigFilename = "hapctl.yaml"

	// EnvPrefix is the prefix for environment overrides (HAPD_SERVER_NAME etc.)
	EnvPrefix = "HAPD"

	// DefaultHAPListenAddress is where controllers connect
	DefaultHAPListenAddress = ":51826"

	// DefaultAPIListenAddress is the default admin HTTP API listen address
	DefaultAPIListenAddress = ":9123"

	// DefaultAPIURL is what hapctl talks to when nothing else is configured
	DefaultAPIURL = "http://localhost:9123"
)

// Accessory defaults
const (
	DefaultAccessoryName = "hapd Bridge"
	DefaultModel         = "hapd"
	DefaultManufacturer  = "hapd"

	// DefaultSetupCode is only suitable for development setups
	DefaultSetupCode = "031-45-154"

	// CategoryBridge is the accessory category advertised for a bridge
	CategoryBridge = 2
)

// Storage backends
const (
	StorageBackendFile  = "file"
	StorageBackendRedis = "redis"
)

// Logging constants
const (
	// LogLevelDebug represents debug log level
	LogLevelDebug = "debug"

	// LogLevelInfo represents info log level
	LogLevelInfo = "info"

	// LogLevelWarn represents warning log level
	LogLevelWarn = "warn"

	// LogLevelError represents error log level
	LogLevelError = "error"

	// LogFormatText represents text log format
	LogFormatText = "text"

	// LogFormatJSON represents JSON log format
	LogFormatJSON = "json"
)
