// Package evm provides the EVM chain module for Ethereum and compatible chains.
package evm

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/pendergraft/deployctl/internal/chains"
)

// CodeReader fetches deployed code. *ethclient.Client satisfies it.
type CodeReader interface {
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
}

// Chain bundles the EVM builders with on-chain bytecode checks
type Chain struct {
	builders *chains.Registry
}

// NewChain creates a new EVM chain module
func NewChain() *Chain {
	return &Chain{
		builders: chains.NewRegistry(
			NewHardhatBuilder(),
			NewFoundryBuilder(),
		),
	}
}

// Name returns the chain identifier
func (c *Chain) Name() string {
	return "evm"
}

// Builders returns the builder registry for this chain
func (c *Chain) Builders() *chains.Registry {
	return c.builders
}

// DetectBuilder detects which builder is used in the given directory
func (c *Chain) DetectBuilder(dir string) (chains.Builder, error) {
	b, err := c.builders.Detect(dir)
	if err != nil {
		return nil, fmt.Errorf("no EVM builder detected in %s", dir)
	}
	return b, nil
}

// VerifyDeployment compares the code at address with the artifact's deployed bytecode
func (c *Chain) VerifyDeployment(ctx context.Context, reader CodeReader, address common.Address, artifact *chains.Artifact, libraries map[string]string) (*chains.VerifyResult, error) {
	if artifact.EVM == nil {
		return nil, fmt.Errorf("artifact %s has no EVM data", artifact.Name)
	}

	deployed, err := reader.CodeAt(ctx, address, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get deployed bytecode: %w", err)
	}
	if len(deployed) == 0 {
		return &chains.VerifyResult{
			Match:     false,
			MatchType: "none",
			Message:   "No code at address",
		}, nil
	}

	expected := artifact.EVM.DeployedBytecode
	if !strings.HasPrefix(expected, "0x") {
		expected = "0x" + expected
	}
	return CompareBytecode(deployed, []byte(expected), libraries), nil
}
