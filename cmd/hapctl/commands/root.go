package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

// NewRootCommand creates the root command
func NewRootCommand(logger *slog.Logger, version, commit, buildDate string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "hapctl",
		Short:         "Manage a running hapd accessory server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add global flags
	cmd.PersistentFlags().String("api-url", "", "hapd admin API URL")
	cmd.PersistentFlags().String("api-token", "", "hapd admin API token")
	cmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", "text", "Log format (text, json)")

	cmd.AddCommand(newVersionCommand(version, commit, buildDate))
	cmd.AddCommand(NewStatusCommand())
	cmd.AddCommand(NewAccessoriesCommand())
	cmd.AddCommand(NewCharCommand(logger))
	cmd.AddCommand(NewPairingsCommand(logger))
	cmd.AddCommand(NewLogLevelCommand())

	if logger != nil {
		cmd.SetContext(context.WithValue(context.Background(), loggerContextKey{}, logger))
	}

	return cmd
}

// newVersionCommand creates the version command
func newVersionCommand(version, commit, buildDate string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Client:\n")
			fmt.Printf("  Version:    %s\n", version)
			fmt.Printf("  Commit:     %s\n", commit)
			fmt.Printf("  Build Date: %s\n", buildDate)

			// Try to query the daemon for its version
			c, err := clientFromCmd(cmd)
			if err != nil {
				return
			}
			resp, err := c.GetVersion()
			if err != nil {
				fmt.Printf("\nDaemon: not reachable\n")
				return
			}
			fmt.Printf("\nDaemon:\n")
			if v, ok := resp["version"].(string); ok {
				fmt.Printf("  Version:    %s\n", v)
			}
			if c, ok := resp["commit"].(string); ok {
				fmt.Printf("  Commit:     %s\n", c)
			}
			if d, ok := resp["build_date"].(string); ok {
				fmt.Printf("  Build Date: %s\n", d)
			}
		},
	}
}
