package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pendergraft/deployctl/internal/networks"
)

func createNetworksCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "networks",
		Short: "List known networks",
		Long: `List the network registry: built-in networks merged with NETWORKS_FILE.

Development networks are never verified.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadRuntime()
			if err != nil {
				return err
			}
			registry, err := networks.Load(cfg.NetworksFile)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			list := registry.Networks()

			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"networks":          list,
					"developmentChains": registry.DevelopmentChains(),
				})
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CHAIN ID\tNAME\tDEVELOPMENT\tEXPLORER")
			for _, n := range list {
				fmt.Fprintf(w, "%d\t%s\t%t\t%s\n", n.ChainID, n.Name, registry.IsDevelopment(n.Name), n.ExplorerAPIURL)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}
