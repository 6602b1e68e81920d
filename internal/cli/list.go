package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowforge/internal/config"
	"github.com/matzehuels/flowforge/pkg/client"
)

// newListCmd creates the list command, which fetches all automations
// from a running server and prints a table.
func newListCmd(configPath *string) *cobra.Command {
	var baseURL string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List automations stored on a server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if baseURL == "" {
				baseURL = cfg.Client.BaseURL
			}

			c := client.New(baseURL, client.WithTimeout(cfg.Client.Timeout))
			list, err := c.List(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tNODES\tUPDATED")
			for _, a := range list {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n",
					a.ID, a.Name, len(a.FlowData.Nodes), a.UpdatedAt.Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&baseURL, "server", "", "server base URL (overrides config)")
	return cmd
}
