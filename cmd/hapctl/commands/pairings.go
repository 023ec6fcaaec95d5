package commands

import (
	"fmt"
	"log/slog"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// NewPairingsCommand creates the pairings command
func NewPairingsCommand(logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pairings",
		Short: "Manage paired controllers",
	}
	cmd.AddCommand(
		newPairingsListCommand(),
		newPairingsRemoveCommand(logger),
	)
	return cmd
}

func newPairingsListCommand() *cobra.Command {
	var parseable bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List paired controllers",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromCmd(cmd)
			if err != nil {
				return err
			}
			pairings, err := c.GetPairings()
			if err != nil {
				return fmt.Errorf("failed to list pairings: %w", err)
			}

			if len(pairings) == 0 {
				if !parseable {
					pterm.Info.Println("Not paired")
				}
				return nil
			}

			if parseable {
				for _, p := range pairings {
					fmt.Println(PairingParseable(p))
				}
				return nil
			}

			data := pterm.TableData{{"ID", "Admin", "Public Key"}}
			for _, p := range pairings {
				data = append(data, []string{p.ID, fmt.Sprintf("%t", p.Admin), p.PublicKey})
			}
			return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
		},
	}
	cmd.Flags().BoolVarP(&parseable, "parseable", "p", false, "Output in parseable format (key=value)")
	return cmd
}

func newPairingsRemoveCommand(logger *slog.Logger) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "remove <id>",
		Short:   "Unpair a controller and drop its connections",
		Aliases: []string{"rm"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromCmd(cmd)
			if err != nil {
				return err
			}
			id := args[0]

			if !yes {
				ok, err := pterm.DefaultInteractiveConfirm.Show(fmt.Sprintf("Remove pairing %s?", id))
				if err != nil {
					return fmt.Errorf("failed to confirm: %w", err)
				}
				if !ok {
					pterm.Info.Println("Cancelled")
					return nil
				}
			}

			if logger != nil {
				logger.Debug("Removing pairing", "id", id)
			}
			if err := c.RemovePairing(id); err != nil {
				return fmt.Errorf("failed to remove pairing: %w", err)
			}
			pterm.Success.Printf("Removed pairing %s\n", id)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}
