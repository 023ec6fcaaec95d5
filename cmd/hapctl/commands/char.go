package commands

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// NewCharCommand creates the char command
func NewCharCommand(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "char",
		Short: "Read and write characteristics",
	}
	cmd.AddCommand(newCharSetCommand(logger))
	return cmd
}

// ParseValue turns a command line argument into the JSON value sent to the
// daemon: booleans, then integers, then floats, otherwise a string.
func ParseValue(s string) any {
	switch strings.ToLower(s) {
	case "true", "on":
		return true
	case "false", "off":
		return false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

func parseIDs(aidArg, iidArg string) (uint64, uint64, error) {
	aid, err := strconv.ParseUint(aidArg, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid accessory id %q", aidArg)
	}
	iid, err := strconv.ParseUint(iidArg, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid instance id %q", iidArg)
	}
	return aid, iid, nil
}

func newCharSetCommand(logger *slog.Logger) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "set <aid> <iid> <value>",
		Short: "Set a characteristic value",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromCmd(cmd)
			if err != nil {
				return err
			}
			aid, iid, err := parseIDs(args[0], args[1])
			if err != nil {
				return err
			}

			var value any = args[2]
			if !raw {
				value = ParseValue(args[2])
			}
			if logger != nil {
				logger.Debug("Setting characteristic", "aid", aid, "iid", iid, "value", value)
			}
			if err := c.SetCharacteristic(aid, iid, value); err != nil {
				return fmt.Errorf("failed to set characteristic: %w", err)
			}
			pterm.Success.Printf("Set %d.%d to %v\n", aid, iid, value)
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "string", false, "Send the value as a string without conversion")
	return cmd
}
