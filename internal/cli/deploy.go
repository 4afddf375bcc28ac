package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/pendergraft/deployctl/internal/chains"
	"github.com/pendergraft/deployctl/internal/chains/evm"
	"github.com/pendergraft/deployctl/internal/config"
	deployments "github.com/pendergraft/deployctl/internal/deployments/domain"
	"github.com/pendergraft/deployctl/internal/deployer"
	"github.com/pendergraft/deployctl/internal/networks"
	"github.com/pendergraft/deployctl/internal/observability/metrics"
	"github.com/pendergraft/deployctl/internal/orchestrator"
	"github.com/pendergraft/deployctl/internal/storage"
	"github.com/pendergraft/deployctl/internal/validation"
	verification "github.com/pendergraft/deployctl/internal/verification/domain"
	"github.com/pendergraft/deployctl/internal/verification/etherscan"
)

const serviceName = "deployctl"

type deployFlags struct {
	network           string
	contract          string
	confirmations     int
	failOnVerifyError bool
}

func createDeployCmd() *cobra.Command {
	var flags deployFlags

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy the contract and verify it",
		Long: `Deploy the contract, wait for confirmations and verify the source on
the block explorer.

The contract is instantiated with CRYPTO_DEV_TOKEN_CONTRACT_ADDRESS as its
only constructor argument. Verification is skipped on development networks
(hardhat, localhost) and when ETHERSCAN_API_KEY is not set.

EXAMPLES:
  # Deploy with settings from the environment
  RPC_URL=https://rpc.sepolia.org PRIVATE_KEY=... deployctl deploy

  # Override the network name used for the verification decision
  deployctl deploy --network sepolia

  # Treat verification failures as fatal
  deployctl deploy --fail-on-verify-error
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeploy(cmd, flags)
		},
	}

	bindDeployFlags(cmd, &flags)

	return cmd
}

func bindDeployFlags(cmd *cobra.Command, flags *deployFlags) {
	cmd.Flags().StringVar(&flags.network, "network", "", "network name (default: resolved from chain ID)")
	cmd.Flags().StringVar(&flags.contract, "contract", "", "contract name (default: Exchange)")
	cmd.Flags().IntVar(&flags.confirmations, "confirmations", 0, "blocks to wait for (default: 10)")
	cmd.Flags().BoolVar(&flags.failOnVerifyError, "fail-on-verify-error", false, "exit non-zero when verification fails")
}

// applyDeployFlags overlays explicitly set flags on cfg and checks the
// resulting contract name.
func applyDeployFlags(cmd *cobra.Command, cfg *config.Config, flags deployFlags) error {
	f := cmd.Flags()
	if f.Changed("network") {
		cfg.Chain.Network = flags.network
	}
	if f.Changed("contract") {
		cfg.Deploy.Contract = flags.contract
	}
	if f.Changed("confirmations") {
		cfg.Deploy.Confirmations = flags.confirmations
	}
	if f.Changed("fail-on-verify-error") {
		cfg.Deploy.FailOnVerifyError = flags.failOnVerifyError
	}
	return validation.ValidateContractName(cfg.Deploy.Contract)
}

func runDeploy(cmd *cobra.Command, flags deployFlags) error {
	ctx := cmd.Context()

	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	if err := applyDeployFlags(cmd, cfg, flags); err != nil {
		return err
	}

	metrics.Init(cfg.Metrics.Enabled, serviceName)
	defer pushMetrics(cfg, logger)

	orch, closeFn, err := newOrchestrator(ctx, cfg, true, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	report, err := orch.Run(ctx)
	if report != nil {
		printReport(cmd.OutOrStdout(), report)
	}
	return err
}

// newOrchestrator wires the toolchain, verifier and history for cfg. The
// returned func releases the RPC connection and history store.
func newOrchestrator(ctx context.Context, cfg *config.Config, withSigner bool, logger *slog.Logger) (*orchestrator.Orchestrator, func(), error) {
	registry, err := networks.Load(cfg.NetworksFile)
	if err != nil {
		return nil, nil, err
	}

	builder, err := evm.NewChain().DetectBuilder(cfg.Deploy.ProjectDir)
	if err != nil {
		return nil, nil, err
	}

	opts := deployer.Options{
		ProjectDir: cfg.Deploy.ProjectDir,
		Builder:    builder,
	}
	if withSigner {
		opts.PrivateKey = cfg.Chain.PrivateKey
	}
	toolchain, ec, err := deployer.Dial(ctx, cfg.Chain.RPCURL, opts, logger)
	if err != nil {
		return nil, nil, err
	}

	orchOpts := []orchestrator.Option{
		orchestrator.WithVerifier(newVerifierFactory(cfg, registry, builder, logger)),
	}

	store := openHistoryStore(ctx, cfg, logger)
	if store != nil {
		orchOpts = append(orchOpts, orchestrator.WithHistory(deployments.NewService(store)))
	}

	settings := orchestrator.Settings{
		Contract:          cfg.Deploy.Contract,
		Confirmations:     cfg.Deploy.Confirmations,
		Network:           cfg.Chain.Network,
		ExplorerAPIKey:    cfg.Explorer.APIKey,
		FailOnVerifyError: cfg.Deploy.FailOnVerifyError,
	}
	orch := orchestrator.New(toolchain, registry, cfg.Constants, settings, logger, orchOpts...)

	closeFn := func() {
		ec.Close()
		if store != nil {
			store.Close()
		}
	}
	return orch, closeFn, nil
}

func newVerifierFactory(cfg *config.Config, registry *networks.Registry, builder chains.Builder, logger *slog.Logger) orchestrator.VerifierFactory {
	return func(f *deployer.Factory, chainID int64) orchestrator.Verifier {
		explorer := etherscan.New(
			explorerURL(cfg, registry, chainID),
			cfg.Explorer.APIKey,
			etherscan.WithRateLimit(cfg.Explorer.RequestsPerSec),
			etherscan.WithPolling(cfg.Explorer.PollInterval, cfg.Explorer.MaxPolls),
		)
		sources := verification.NewArtifactSources(cfg.Deploy.ProjectDir, builder, f, chainID)
		return verification.NewHelper(explorer, sources, logger)
	}
}

// explorerURL picks the explorer endpoint: explicit config, then the
// network's own endpoint, then Etherscan V2.
func explorerURL(cfg *config.Config, registry *networks.Registry, chainID int64) string {
	if cfg.Explorer.APIURL != "" {
		return cfg.Explorer.APIURL
	}
	if n, ok := registry.Lookup(chainID); ok && n.ExplorerAPIURL != "" {
		return n.ExplorerAPIURL
	}
	return etherscan.DefaultAPIURL
}

// openHistoryStore opens the history store. History is best-effort, so
// failures are logged and yield nil.
func openHistoryStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) storage.Store {
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		if !errors.Is(err, storage.ErrDisabled) {
			logger.Warn("deployment history unavailable", "error", err)
		}
		return nil
	}
	return store
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	store, err := storage.New(cfg.Storage, logger)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return store, nil
}

func pushMetrics(cfg *config.Config, logger *slog.Logger) {
	if cfg.Metrics.PushgatewayURL == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metrics.Push(ctx, cfg.Metrics.PushgatewayURL); err != nil {
		logger.Warn("failed to push metrics", "error", err)
	}
}

func printReport(w io.Writer, r *orchestrator.Report) {
	d := r.Deployment
	network := r.Network
	if network == "" {
		network = "unknown"
	}

	fmt.Fprintf(w, "Deployed %s\n", d.ContractName)
	fmt.Fprintf(w, "  Network:      %s (chain %d)\n", network, d.ChainID)
	fmt.Fprintf(w, "  Address:      %s\n", d.Address.Hex())
	fmt.Fprintf(w, "  Tx:           %s\n", d.TxHash.Hex())
	fmt.Fprintf(w, "  Block:        %d\n", d.BlockNumber)
	if r.Bytecode != nil {
		fmt.Fprintf(w, "  Bytecode:     %s\n", r.Bytecode.MatchType)
	}
	fmt.Fprintf(w, "  Verification: %s\n", r.Verification)
}
