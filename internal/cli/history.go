package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	deployments "github.com/pendergraft/deployctl/internal/deployments/domain"
	"github.com/pendergraft/deployctl/internal/middleware/ratelimit"
	"github.com/pendergraft/deployctl/internal/observability/metrics"
	"github.com/pendergraft/deployctl/internal/server"
	"github.com/pendergraft/deployctl/pkg/client"
)

// historySource reads deployment history, either from the local store or
// from a remote history API.
type historySource interface {
	List(ctx context.Context, opts client.ListOptions) (*client.ListDeploymentsResponse, error)
	Get(ctx context.Context, chainID int64, address string) (*client.Deployment, error)
}

type remoteHistory struct {
	c *client.Client
}

func (r remoteHistory) List(ctx context.Context, opts client.ListOptions) (*client.ListDeploymentsResponse, error) {
	return r.c.ListDeployments(ctx, opts)
}

func (r remoteHistory) Get(ctx context.Context, chainID int64, address string) (*client.Deployment, error) {
	d, err := r.c.GetDeployment(ctx, chainID, address)
	if client.IsNotFound(err) {
		return nil, deployments.ErrNotFound
	}
	return d, err
}

type localHistory struct {
	svc deployments.Service
}

func (l localHistory) List(ctx context.Context, opts client.ListOptions) (*client.ListDeploymentsResponse, error) {
	result, err := l.svc.List(ctx, deployments.ListFilter{
		ChainID:            opts.ChainID,
		Network:            opts.Network,
		Contract:           opts.Contract,
		VerificationStatus: opts.Status,
	}, deployments.PaginationParams{Limit: opts.Limit, Cursor: opts.Cursor})
	if err != nil {
		return nil, err
	}

	resp := &client.ListDeploymentsResponse{
		Data: make([]client.Deployment, len(result.Deployments)),
		Pagination: client.Pagination{
			Limit:      opts.Limit,
			HasMore:    result.HasMore,
			NextCursor: result.NextCursor,
		},
	}
	for i := range result.Deployments {
		resp.Data[i] = toClientDeployment(&result.Deployments[i])
	}
	return resp, nil
}

func (l localHistory) Get(ctx context.Context, chainID int64, address string) (*client.Deployment, error) {
	d, err := l.svc.Get(ctx, chainID, address)
	if err != nil {
		return nil, err
	}
	out := toClientDeployment(d)
	return &out, nil
}

func toClientDeployment(d *deployments.Deployment) client.Deployment {
	return client.Deployment{
		ID:                  d.ID,
		ChainID:             d.ChainID,
		Network:             d.Network,
		Address:             d.Address,
		ContractName:        d.ContractName,
		DeployerAddress:     d.DeployerAddress,
		TxHash:              d.TxHash,
		BlockNumber:         d.BlockNumber,
		ConstructorArgs:     d.ConstructorArgs,
		VerificationStatus:  d.VerificationStatus,
		VerificationMessage: d.VerificationMessage,
		CreatedAt:           d.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// withHistory runs fn against the remote API when serverURL is set, else
// against the local store.
func withHistory(ctx context.Context, serverURL string, fn func(historySource) error) error {
	if serverURL != "" {
		return fn(remoteHistory{c: client.New(serverURL)})
	}

	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("opening deployment history: %w", err)
	}
	defer store.Close()

	return fn(localHistory{svc: deployments.NewService(store)})
}

func createHistoryCmd() *cobra.Command {
	var serverURL string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded deployments",
	}

	cmd.PersistentFlags().StringVar(&serverURL, "server", "", "history API URL (default: read the local store)")

	cmd.AddCommand(createHistoryListCmd(&serverURL))
	cmd.AddCommand(createHistoryInfoCmd(&serverURL))
	cmd.AddCommand(createHistoryServeCmd())

	return cmd
}

func createHistoryListCmd(serverURL *string) *cobra.Command {
	var opts client.ListOptions
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded deployments",
		Long: `List recorded deployments, newest first.

EXAMPLES:
  deployctl history list
  deployctl history list --network sepolia --status failed
  deployctl history list --server http://127.0.0.1:8090 --json
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd.Context(), *serverURL, func(h historySource) error {
				resp, err := h.List(cmd.Context(), opts)
				if err != nil {
					return fmt.Errorf("failed to list deployments: %w", err)
				}
				return printDeployments(cmd.OutOrStdout(), resp, jsonOutput)
			})
		},
	}

	cmd.Flags().Int64Var(&opts.ChainID, "chain-id", 0, "filter by chain ID")
	cmd.Flags().StringVar(&opts.Network, "network", "", "filter by network name")
	cmd.Flags().StringVar(&opts.Contract, "contract", "", "filter by contract name")
	cmd.Flags().StringVar(&opts.Status, "status", "", "filter by verification status")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "number of items to show")
	cmd.Flags().StringVar(&opts.Cursor, "cursor", "", "pagination cursor from a previous page")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func printDeployments(w io.Writer, resp *client.ListDeploymentsResponse, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	if len(resp.Data) == 0 {
		fmt.Fprintln(w, "No deployments found")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CHAIN ID\tNETWORK\tCONTRACT\tADDRESS\tVERIFICATION\tCREATED")
	for _, d := range resp.Data {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			d.ChainID, d.Network, d.ContractName, d.Address, d.VerificationStatus, d.CreatedAt)
	}
	tw.Flush()

	if resp.Pagination.HasMore {
		fmt.Fprintf(w, "\n(more available, use --cursor %s)\n", resp.Pagination.NextCursor)
	}
	return nil
}

func createHistoryInfoCmd(serverURL *string) *cobra.Command {
	return &cobra.Command{
		Use:   "info <chain-id> <address>",
		Short: "Show one recorded deployment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			chainID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid chain ID %q", args[0])
			}

			return withHistory(cmd.Context(), *serverURL, func(h historySource) error {
				d, err := h.Get(cmd.Context(), chainID, args[1])
				if err != nil {
					if errors.Is(err, deployments.ErrNotFound) {
						return fmt.Errorf("no deployment of %s on chain %d", args[1], chainID)
					}
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Contract:     %s\n", d.ContractName)
				fmt.Fprintf(out, "Network:      %s (chain %d)\n", d.Network, d.ChainID)
				fmt.Fprintf(out, "Address:      %s\n", d.Address)
				fmt.Fprintf(out, "Deployer:     %s\n", d.DeployerAddress)
				fmt.Fprintf(out, "Tx:           %s\n", d.TxHash)
				fmt.Fprintf(out, "Block:        %d\n", d.BlockNumber)
				fmt.Fprintf(out, "Args:         %s\n", d.ConstructorArgs)
				fmt.Fprintf(out, "Verification: %s\n", d.VerificationStatus)
				if d.VerificationMessage != "" {
					fmt.Fprintf(out, "              %s\n", d.VerificationMessage)
				}
				fmt.Fprintf(out, "Recorded:     %s\n", d.CreatedAt)
				return nil
			})
		},
	}
}

func createHistoryServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the deployment history over HTTP",
		Long: `Serve the read-only history API:

  GET /api/v1/deployments
  GET /api/v1/deployments/{chainId}/{address}
  GET /health
  GET /metrics
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, logger, err := loadRuntime()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.History.Addr = addr
			}

			metrics.Init(cfg.Metrics.Enabled, serviceName)

			store, err := openStore(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("opening deployment history: %w", err)
			}
			defer store.Close()

			var opts []server.Option
			if cfg.History.RateLimitPerMin > 0 {
				opts = append(opts, server.WithRateLimit(ratelimit.New(cfg.History.RateLimitPerMin, cfg.History.RateLimitBurst)))
			}
			return server.New(store, logger, opts...).ListenAndServe(ctx, cfg.History.Addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: HISTORY_ADDR or 127.0.0.1:8090)")

	return cmd
}
