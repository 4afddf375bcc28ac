// Package orchestrator runs the deploy flow: instantiate the contract, wait
// for confirmations, then verify it on the block explorer when the network
// allows it.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/pendergraft/deployctl/internal/chains"
	"github.com/pendergraft/deployctl/internal/chains/evm"
	"github.com/pendergraft/deployctl/internal/config"
	deployments "github.com/pendergraft/deployctl/internal/deployments/domain"
	"github.com/pendergraft/deployctl/internal/deployer"
	"github.com/pendergraft/deployctl/internal/networks"
	"github.com/pendergraft/deployctl/internal/observability/metrics"
	verification "github.com/pendergraft/deployctl/internal/verification/domain"
)

// ErrVerificationFailed is returned by Run when verification fails and
// FailOnVerifyError is set.
var ErrVerificationFailed = errors.New("contract verification failed")

// Verifier verifies a deployed contract. *verification.Helper implements it.
type Verifier interface {
	Verify(ctx context.Context, address string, args []any) verification.Outcome
}

// VerifierFactory builds a Verifier for a deployed factory on chainID.
type VerifierFactory func(f *deployer.Factory, chainID int64) Verifier

// History is the subset of the deployments service used to record runs.
type History interface {
	Record(ctx context.Context, req deployments.RecordRequest) (*deployments.Deployment, error)
	UpdateVerificationStatus(ctx context.Context, chainID int64, address, status, message string) error
}

// Settings are the per-run knobs.
type Settings struct {
	Contract          string
	Confirmations     int
	Network           string // overrides the registry name when set
	ExplorerAPIKey    string
	FailOnVerifyError bool
}

// Report summarizes a completed run.
type Report struct {
	Network      string
	Deployment   *deployer.DeploymentResult
	Args         []any
	Verification verification.Outcome
	Bytecode     *chains.VerifyResult
}

// Orchestrator wires the toolchain, network registry and verifier together.
type Orchestrator struct {
	toolchain   deployer.Toolchain
	registry    *networks.Registry
	constants   config.Constants
	settings    Settings
	newVerifier VerifierFactory
	history     History
	logger      *slog.Logger
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithVerifier sets how verifiers are built. Without one, verification is
// always skipped.
func WithVerifier(f VerifierFactory) Option {
	return func(o *Orchestrator) {
		o.newVerifier = f
	}
}

// WithHistory records every run in h.
func WithHistory(h History) Option {
	return func(o *Orchestrator) {
		o.history = h
	}
}

// New creates an Orchestrator.
func New(toolchain deployer.Toolchain, registry *networks.Registry, constants config.Constants, settings Settings, logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		toolchain: toolchain,
		registry:  registry,
		constants: constants,
		settings:  settings,
		logger:    logger,
	}
	if o.settings.Contract == "" {
		o.settings.Contract = "Exchange"
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ShouldVerify reports whether a contract deployed on the named network is
// submitted for verification: never on development chains, and only with an
// explorer API key.
func (o *Orchestrator) ShouldVerify(name, apiKey string) bool {
	return !o.registry.IsDevelopment(name) && apiKey != ""
}

// NetworkName resolves the network name for chainID. An explicit override
// wins; unlisted chains resolve to "".
func (o *Orchestrator) NetworkName(chainID int64) string {
	if o.settings.Network != "" {
		return o.settings.Network
	}
	return o.registry.NameFor(chainID)
}

// ConstructorArgs returns the constructor arguments of the deployed contract.
// A missing token address is passed through as "".
func (o *Orchestrator) ConstructorArgs() []any {
	token, _ := o.constants.Get(config.TokenAddressKey)
	return []any{token}
}

// Run deploys the contract, waits for confirmations and verifies it when
// the network allows. Only deployment failures, and verification failures
// with FailOnVerifyError set, are returned as errors.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	name := o.settings.Contract
	args := o.ConstructorArgs()

	chainID, err := o.toolchain.ChainID(ctx)
	if err != nil {
		metrics.DeployRun(o.settings.Network, name, "failure")
		return nil, err
	}
	network := o.NetworkName(chainID)

	result, factory, err := o.deploy(ctx, name, args, network)
	if err != nil {
		metrics.DeployRun(network, name, "failure")
		return nil, err
	}
	metrics.DeployRun(network, name, "success")

	report := &Report{
		Network:    network,
		Deployment: result,
		Args:       args,
	}
	report.Bytecode = o.checkBytecode(ctx, factory, result.Address)

	report.Verification = o.verify(ctx, factory, chainID, network, result.Address.Hex(), args)
	metrics.Verification(network, string(report.Verification.Status))

	o.record(ctx, report)

	if report.Verification.IsFailed() && o.settings.FailOnVerifyError {
		return report, fmt.Errorf("%w: %s", ErrVerificationFailed, report.Verification.Reason)
	}
	return report, nil
}

// Verify runs only the verification step against an existing deployment.
// Re-running it on a verified contract yields AlreadyVerified.
func (o *Orchestrator) Verify(ctx context.Context, address string) (verification.Outcome, error) {
	if o.newVerifier == nil {
		return verification.Outcome{}, errors.New("no verifier configured")
	}

	chainID, err := o.toolchain.ChainID(ctx)
	if err != nil {
		return verification.Outcome{}, err
	}
	factory, err := o.toolchain.Factory(o.settings.Contract)
	if err != nil {
		return verification.Outcome{}, err
	}

	outcome := o.newVerifier(factory, chainID).Verify(ctx, address, o.ConstructorArgs())
	network := o.NetworkName(chainID)
	metrics.Verification(network, string(outcome.Status))

	if o.history != nil {
		err := o.history.UpdateVerificationStatus(ctx, chainID, address, string(outcome.Status), outcome.Reason)
		if err != nil && !errors.Is(err, deployments.ErrNotFound) {
			o.logger.Warn("failed to update deployment history", "error", err)
		}
	}

	if outcome.IsFailed() && o.settings.FailOnVerifyError {
		return outcome, fmt.Errorf("%w: %s", ErrVerificationFailed, outcome.Reason)
	}
	return outcome, nil
}

func (o *Orchestrator) deploy(ctx context.Context, name string, args []any, network string) (*deployer.DeploymentResult, *deployer.Factory, error) {
	o.logger.Info(fmt.Sprintf("Deploying %s contract", name), "network", network)

	factory, err := o.toolchain.Factory(name)
	if err != nil {
		return nil, nil, fmt.Errorf("loading %s: %w", name, err)
	}

	start := time.Now()
	pending, err := o.toolchain.Deploy(ctx, factory, args)
	if err != nil {
		return nil, nil, fmt.Errorf("deploying %s: %w", name, err)
	}

	o.logger.Info("waiting for confirmations",
		"tx", pending.Tx.Hash().Hex(),
		"confirmations", o.settings.Confirmations,
	)
	result, err := o.toolchain.Wait(ctx, pending, o.settings.Confirmations)
	if err != nil {
		return nil, nil, fmt.Errorf("waiting for %s: %w", name, err)
	}
	metrics.DeployDuration(network, time.Since(start))

	o.logger.Info(fmt.Sprintf("%s Contract Address", name),
		"address", result.Address.Hex(),
		"block", result.BlockNumber,
	)
	return result, factory, nil
}

func (o *Orchestrator) verify(ctx context.Context, factory *deployer.Factory, chainID int64, network, address string, args []any) verification.Outcome {
	if !o.ShouldVerify(network, o.settings.ExplorerAPIKey) {
		if o.registry.IsDevelopment(network) {
			o.logger.Info("skipping verification on development network", "network", network)
			return verification.Skipped("development network")
		}
		o.logger.Info("skipping verification, no explorer API key")
		return verification.Skipped("no explorer API key")
	}
	if o.newVerifier == nil {
		return verification.Skipped("no verifier configured")
	}

	o.logger.Info("Verifying on block explorer...", "network", network, "address", address)
	return o.newVerifier(factory, chainID).Verify(ctx, address, args)
}

// checkBytecode compares on-chain code with the artifact. Mismatches are
// logged, never fatal.
func (o *Orchestrator) checkBytecode(ctx context.Context, factory *deployer.Factory, address common.Address) *chains.VerifyResult {
	if factory.Artifact == nil || factory.Artifact.EVM == nil || factory.Artifact.EVM.DeployedBytecode == "" {
		return nil
	}

	res, err := evm.NewChain().VerifyDeployment(ctx, codeReader{o.toolchain}, address, factory.Artifact, nil)
	if err != nil {
		o.logger.Warn("could not check deployed code", "address", address.Hex(), "error", err)
		return nil
	}
	if res.Match {
		o.logger.Debug("deployed bytecode matches artifact", "match", res.MatchType)
	} else {
		o.logger.Warn("deployed bytecode differs from artifact", "address", address.Hex(), "detail", res.Message)
	}
	return res
}

// codeReader adapts a Toolchain to evm.CodeReader.
type codeReader struct {
	tc deployer.Toolchain
}

func (r codeReader) CodeAt(ctx context.Context, account common.Address, _ *big.Int) ([]byte, error) {
	return r.tc.DeployedCode(ctx, account)
}

func (o *Orchestrator) record(ctx context.Context, r *Report) {
	if o.history == nil {
		return
	}

	d := r.Deployment
	_, err := o.history.Record(ctx, deployments.RecordRequest{
		Contract:            d.ContractName,
		Network:             r.Network,
		ChainID:             d.ChainID,
		Address:             d.Address.Hex(),
		TxHash:              d.TxHash.Hex(),
		DeployerAddress:     d.Deployer.Hex(),
		BlockNumber:         int64(d.BlockNumber),
		ConstructorArgs:     r.Args,
		VerificationStatus:  string(r.Verification.Status),
		VerificationMessage: r.Verification.Reason,
	})
	if err != nil {
		metrics.HistoryRecord("error")
		o.logger.Warn("failed to record deployment history", "error", err)
		return
	}
	metrics.HistoryRecord("ok")
}
