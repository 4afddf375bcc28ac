package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pendergraft/deployctl/internal/observability/metrics"
	"github.com/pendergraft/deployctl/internal/validation"
	"github.com/pendergraft/deployctl/internal/verification/etherscan"
)

func createVerifyCmd() *cobra.Command {
	var contract string

	cmd := &cobra.Command{
		Use:   "verify <address>",
		Short: "Verify an already deployed contract",
		Long: `Register the source of a deployed contract with the block explorer.

The constructor arguments are the same as for deploy. Running it again on a
verified contract is a no-op.

EXAMPLES:
  ETHERSCAN_API_KEY=... deployctl verify 0x5FbDB2315678afecb367f032d93F642f64180aa3
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, logger, err := loadRuntime()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("contract") {
				cfg.Deploy.Contract = contract
			}
			if err := validation.ValidateContractName(cfg.Deploy.Contract); err != nil {
				return err
			}
			if cfg.Explorer.APIKey == "" {
				return fmt.Errorf("%w: set ETHERSCAN_API_KEY", etherscan.ErrNoAPIKey)
			}

			metrics.Init(cfg.Metrics.Enabled, serviceName)
			defer pushMetrics(cfg, logger)

			orch, closeFn, err := newOrchestrator(ctx, cfg, false, logger)
			if err != nil {
				return err
			}
			defer closeFn()

			outcome, err := orch.Verify(ctx, args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "Verification: %s\n", outcome)
			return err
		},
	}

	cmd.Flags().StringVar(&contract, "contract", "", "contract name (default: Exchange)")

	return cmd
}
