package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// NewLogLevelCommand creates the log-level command. Without an argument it
// prints the daemon's level.
func NewLogLevelCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "log-level [level]",
		Short:     "Show or change the daemon's log level",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"debug", "info", "warn", "error"},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromCmd(cmd)
			if err != nil {
				return err
			}
			if len(args) == 0 {
				level, err := c.GetLogLevel()
				if err != nil {
					return fmt.Errorf("failed to get log level: %w", err)
				}
				fmt.Println(level)
				return nil
			}
			level, err := c.SetLogLevel(args[0])
			if err != nil {
				return fmt.Errorf("failed to set log level: %w", err)
			}
			pterm.Success.Printf("Log level set to %s\n", level)
			return nil
		},
	}
}
