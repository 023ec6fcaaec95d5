package main

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/hapd/cmd/hapctl/commands"
	"github.com/jmylchreest/hapd/internal/config"
	"github.com/jmylchreest/hapd/internal/logging"
	"github.com/jmylchreest/hapd/pkg/client"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// loadClientConfig reads hapctl.yaml and HAPD_* environment overrides.
func loadClientConfig() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(config.GetClientConfigPath())
	v.SetConfigType("yaml")
	v.SetDefault("api.url", config.DefaultAPIURL)
	v.SetDefault("logging.level", config.LogLevelWarn)
	v.SetDefault("logging.format", config.LogFormatText)
	v.SetEnvPrefix(config.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, err
		}
	}
	return v, nil
}

func main() {
	v, err := loadClientConfig()
	if err != nil {
		logging.SetupErrorLogger().Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stderr, logging.ValidateLogFormat(v.GetString("logging.format")))
	logging.SetLevel(v.GetString("logging.level"))
	logging.SetAsDefaultLogger(logger)

	rootCmd := commands.NewRootCommand(logger, version, commit, buildDate)
	_ = v.BindPFlag("api.url", rootCmd.PersistentFlags().Lookup("api-url"))
	_ = v.BindPFlag("api.token", rootCmd.PersistentFlags().Lookup("api-token"))
	_ = v.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))

	// Flags are only parsed once the command runs, so the client is built here.
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("log-level") {
			logging.SetLevel(v.GetString("logging.level"))
		}
		apiClient := client.NewHTTP(logger, v.GetString("api.url"), v.GetString("api.token"))
		cmd.SetContext(commands.WithClient(cmd.Context(), apiClient))
	}

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}
