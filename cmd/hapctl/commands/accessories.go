package commands

import (
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/hapd/pkg/client"
)

// NewAccessoriesCommand creates the accessories command
func NewAccessoriesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "accessories",
		Short:   "Inspect the accessory database",
		Aliases: []string{"acc"},
	}
	cmd.AddCommand(newAccessoriesListCommand())
	return cmd
}

func newAccessoriesListCommand() *cobra.Command {
	var parseable bool
	cmd := &cobra.Command{
		Use:   "list [aid]",
		Short: "List accessories and their characteristics",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromCmd(cmd)
			if err != nil {
				return err
			}

			var accessories []client.Accessory
			if len(args) == 1 {
				aid, err := strconv.ParseUint(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid accessory id %q", args[0])
				}
				a, err := c.GetAccessory(aid)
				if err != nil {
					return fmt.Errorf("failed to get accessory: %w", err)
				}
				accessories = []client.Accessory{*a}
			} else {
				accessories, err = c.GetAccessories()
				if err != nil {
					return fmt.Errorf("failed to get accessories: %w", err)
				}
			}

			if len(accessories) == 0 {
				if !parseable {
					pterm.Info.Println("No accessories")
				}
				return nil
			}

			for _, a := range accessories {
				if parseable {
					for _, s := range a.Services {
						for _, ch := range s.Characteristics {
							fmt.Println(CharacteristicParseable(a.AID, ch))
						}
					}
					continue
				}
				pterm.DefaultSection.Printf("%d: %s", a.AID, a.Name)
				if err := pterm.DefaultTable.WithHasHeader().WithData(AccessoryTableData(a)).Render(); err != nil {
					return err
				}
				pterm.Println()
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&parseable, "parseable", "p", false, "Output in parseable format (key=value)")
	return cmd
}
