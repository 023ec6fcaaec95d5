package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/jmylchreest/hapd/internal/config"
	"github.com/jmylchreest/hapd/internal/http/api"
	"github.com/jmylchreest/hapd/internal/logging"
	"github.com/jmylchreest/hapd/internal/server"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// flagKeys maps daemon flags onto configuration keys.
var flagKeys = map[string]string{
	"log-level":     "logging.level",
	"log-format":    "logging.format",
	"log-file":      "logging.file",
	"listen":        "server.listen_address",
	"api-listen":    "api.listen_address",
	"storage-dir":   "storage.directory",
	"accessories":   "accessories.path",
	"setup-code":    "server.setup_code",
	"no-discovery":  "discovery.enabled",
	"mqtt-broker":   "mqtt.broker",
	"mqtt-topic":    "mqtt.topic_prefix",
	"discovery-nic": "discovery.interface",
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("hapd", pflag.ContinueOnError)
	fs.String("config", "", "Path to config file")
	fs.String("log-level", config.LogLevelInfo, "Log level (debug, info, warn, error)")
	fs.String("log-format", config.LogFormatText, "Log format (text, json)")
	fs.String("log-file", "", "Write logs to this file with rotation")
	fs.String("listen", config.DefaultHAPListenAddress, "HAP listen address")
	fs.String("api-listen", config.DefaultAPIListenAddress, "Admin API listen address (empty disables it)")
	fs.String("storage-dir", "", "Directory for pairings and identity")
	fs.String("accessories", "", "Path to the accessory definition file")
	fs.String("setup-code", "", "Setup code in XXX-XX-XXX form")
	fs.Bool("no-discovery", false, "Disable mDNS advertisement")
	fs.String("mqtt-broker", "", "MQTT broker URL for the event bridge")
	fs.String("mqtt-topic", "", "MQTT topic prefix")
	fs.String("discovery-nic", "", "Network interface to advertise on")
	fs.Bool("version", false, "Print version and exit")
	return fs
}

// applyFlags copies explicitly set flags over the file and environment
// values, so flags take precedence.
func applyFlags(cfg *config.Config, fs *pflag.FlagSet) {
	fs.Visit(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return
		}
		if f.Name == "no-discovery" {
			disabled, _ := fs.GetBool("no-discovery")
			cfg.Set(key, !disabled)
			return
		}
		cfg.Set(key, f.Value.String())
	})
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	if v, _ := fs.GetBool("version"); v {
		fmt.Printf("hapd %s (commit %s, built %s)\n", version, commit, buildDate)
		return 0
	}

	configFile, _ := fs.GetString("config")
	cfg, err := config.Load(config.DaemonConfigFilename, configFile)
	if err != nil {
		logging.SetupErrorLogger().Error("failed to load configuration", "error", err)
		return 1
	}
	applyFlags(cfg, fs)
	if err := cfg.Validate(); err != nil {
		logging.SetupErrorLogger().Error("invalid configuration", "error", err)
		return 1
	}
	if errs := logging.ValidateConfig(cfg.Logging); len(errs) > 0 {
		logging.SetupErrorLogger().Error("invalid logging configuration", "error", logging.FormatErrors(errs))
		return 1
	}

	logger, closeLog, err := logging.SetupLogger(cfg.Logging)
	if err != nil {
		logging.SetupErrorLogger().Error("failed to set up logging", "error", err)
		return 1
	}
	defer func() { _ = closeLog() }()
	logging.SetAsDefaultLogger(logger)

	logger.Info("Starting hapd",
		"version", version,
		"commit", commit,
		"buildDate", buildDate,
	)

	cfg.Watch(logger, func(c *config.Config) {
		if c.Logging.Level != logging.Level() {
			logging.SetLevel(c.Logging.Level)
			logger.Info("Log level changed", "level", logging.Level())
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(ctx, logger, cfg, api.VersionInfo{
		Version:   version,
		Commit:    commit,
		BuildDate: buildDate,
	})
	if err != nil {
		logger.Error("Failed to create server", "error", err)
		return 1
	}
	if err := srv.Start(); err != nil {
		logger.Error("Failed to start server", "error", err)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Stop(shutdownCtx)
		return 1
	}

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping server", "error", err)
		return 1
	}
	return 0
}

