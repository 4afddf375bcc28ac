// Package deployer instantiates compiled contracts on an EVM chain and waits
// for the creation transaction to gather confirmations.
package deployer

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/pendergraft/deployctl/internal/chains"
)

var (
	ErrNoSigner            = errors.New("no deployer private key configured")
	ErrInvalidContractName = errors.New("invalid contract name")
	ErrInvalidArgument     = errors.New("invalid constructor argument")
	ErrArgumentCount       = errors.New("constructor argument count mismatch")
	ErrUnlinkedLibraries   = errors.New("bytecode has unlinked library placeholders")
	ErrDeploymentReverted  = errors.New("contract deployment reverted")
)

// Toolchain is everything the deploy flow needs from the chain. The default
// implementation is *Client.
type Toolchain interface {
	ChainID(ctx context.Context) (int64, error)
	Factory(name string) (*Factory, error)
	Deploy(ctx context.Context, f *Factory, args []any) (*Pending, error)
	Wait(ctx context.Context, p *Pending, confirmations int) (*DeploymentResult, error)
	EncodeArgs(f *Factory, args []any) ([]byte, error)
	DeployedCode(ctx context.Context, address common.Address) ([]byte, error)
}

// Backend is the subset of *ethclient.Client used by Client.
type Backend interface {
	ethereum.ChainIDReader
	ethereum.BlockNumberReader
	ethereum.GasEstimator
	ethereum.GasPricer
	ethereum.PendingStateReader
	ethereum.TransactionSender
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
}

// Factory is a deployable contract: its artifact plus decoded creation code.
type Factory struct {
	Name     string
	Artifact *chains.Artifact
	ABI      abi.ABI
	Bytecode []byte
}

// Pending is a sent but unconfirmed creation transaction.
type Pending struct {
	Factory *Factory
	Tx      *types.Transaction
	From    common.Address
	Address common.Address // derived from sender and nonce
}

// DeploymentResult describes a confirmed deployment.
type DeploymentResult struct {
	ContractName string
	Address      common.Address
	TxHash       common.Hash
	BlockNumber  uint64
	Deployer     common.Address
	ChainID      int64
}
