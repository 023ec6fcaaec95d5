package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// NewStatusCommand creates the status command
func NewStatusCommand() *cobra.Command {
	var parseable bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the daemon's runtime status",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFromCmd(cmd)
			if err != nil {
				return err
			}
			st, err := c.GetStatus()
			if err != nil {
				return fmt.Errorf("failed to get status: %w", err)
			}

			if parseable {
				fmt.Printf("name=%q paired=%t pairings=%d sessions=%d listeners=%d subscriptions=%d accessories=%d uptime=%q\n",
					st.Name, st.Paired, st.Pairings, st.Sessions, st.Listeners, st.Subscriptions, st.Accessories, st.Uptime)
				return nil
			}

			return pterm.DefaultTable.WithData(pterm.TableData{
				[]string{pterm.Bold.Sprint("Name"), pterm.Bold.Sprint(st.Name)},
				[]string{"Paired", fmt.Sprintf("%t", st.Paired)},
				[]string{"Pairings", fmt.Sprintf("%d", st.Pairings)},
				[]string{"Sessions", fmt.Sprintf("%d", st.Sessions)},
				[]string{"Listeners", fmt.Sprintf("%d", st.Listeners)},
				[]string{"Subscriptions", fmt.Sprintf("%d", st.Subscriptions)},
				[]string{"Accessories", fmt.Sprintf("%d", st.Accessories)},
				[]string{"Uptime", st.Uptime},
			}).Render()
		},
	}
	cmd.Flags().BoolVarP(&parseable, "parseable", "p", false, "Output in parseable format (key=value)")
	return cmd
}
