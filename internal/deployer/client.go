package deployer

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/pendergraft/deployctl/internal/chains"
	"github.com/pendergraft/deployctl/internal/chains/evm"
	"github.com/pendergraft/deployctl/internal/validation"
)

const (
	// defaultGasLimit is used when estimation fails, common for large creations
	defaultGasLimit     = 10_000_000
	gasBufferPercent    = 120
	defaultPollInterval = 2 * time.Second
)

// Options configures a Client.
type Options struct {
	ProjectDir   string
	Builder      chains.Builder // nil = detect from ProjectDir
	PrivateKey   string         // hex, optional 0x prefix
	PollInterval time.Duration  // block polling while waiting for confirmations
}

// Client is the go-ethereum backed Toolchain.
type Client struct {
	backend      Backend
	builder      chains.Builder
	projectDir   string
	key          *ecdsa.PrivateKey
	pollInterval time.Duration
	logger       *slog.Logger
}

// Dial connects to an RPC endpoint and builds a Client on top of it.
func Dial(ctx context.Context, rpcURL string, opts Options, logger *slog.Logger) (*Client, *ethclient.Client, error) {
	ec, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to %s: %w", rpcURL, err)
	}
	c, err := New(ec, opts, logger)
	if err != nil {
		ec.Close()
		return nil, nil, err
	}
	return c, ec, nil
}

// New creates a Client. The builder is detected lazily when not given so
// commands that never load artifacts work outside a project.
func New(backend Backend, opts Options, logger *slog.Logger) (*Client, error) {
	c := &Client{
		backend:      backend,
		builder:      opts.Builder,
		projectDir:   opts.ProjectDir,
		pollInterval: opts.PollInterval,
		logger:       logger,
	}
	if c.pollInterval <= 0 {
		c.pollInterval = defaultPollInterval
	}
	if c.projectDir == "" {
		c.projectDir = "."
	}

	if opts.PrivateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(opts.PrivateKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("parsing private key: %w", err)
		}
		c.key = key
	}
	return c, nil
}

// ChainID returns the chain ID reported by the RPC endpoint.
func (c *Client) ChainID(ctx context.Context) (int64, error) {
	id, err := c.backend.ChainID(ctx)
	if err != nil {
		return 0, fmt.Errorf("getting chain ID: %w", err)
	}
	return id.Int64(), nil
}

// Factory loads the artifact for name from the project's build output.
func (c *Client) Factory(name string) (*Factory, error) {
	if validation.ValidateContractName(name) != nil {
		return nil, fmt.Errorf("%w %q", ErrInvalidContractName, name)
	}

	builder := c.builder
	if builder == nil {
		b, err := evm.NewChain().DetectBuilder(c.projectDir)
		if err != nil {
			return nil, err
		}
		builder = b
		c.builder = b
	}

	path, err := builder.FindArtifact(c.projectDir, name)
	if err != nil {
		return nil, err
	}
	artifact, err := builder.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return NewFactory(artifact)
}

// NewFactory decodes an artifact's ABI and creation code.
func NewFactory(artifact *chains.Artifact) (*Factory, error) {
	if artifact.EVM == nil {
		return nil, fmt.Errorf("artifact %s has no EVM data", artifact.Name)
	}
	if evm.HasLibraryPlaceholders([]byte(artifact.EVM.Bytecode)) {
		return nil, fmt.Errorf("%s: %w", artifact.Name, ErrUnlinkedLibraries)
	}

	parsed, err := abi.JSON(bytes.NewReader(artifact.EVM.ABI))
	if err != nil {
		return nil, fmt.Errorf("parsing ABI for %s: %w", artifact.Name, err)
	}

	code := artifact.EVM.Bytecode
	if !strings.HasPrefix(code, "0x") {
		code = "0x" + code
	}
	bytecode, err := hexutil.Decode(code)
	if err != nil {
		return nil, fmt.Errorf("decoding bytecode for %s: %w", artifact.Name, err)
	}

	return &Factory{
		Name:     artifact.Name,
		Artifact: artifact,
		ABI:      parsed,
		Bytecode: bytecode,
	}, nil
}

// EncodeArgs ABI-encodes args against the factory's constructor.
func (c *Client) EncodeArgs(f *Factory, args []any) ([]byte, error) {
	return EncodeArgs(f.ABI, args)
}

// Deploy signs and sends the contract-creation transaction.
func (c *Client) Deploy(ctx context.Context, f *Factory, args []any) (*Pending, error) {
	if c.key == nil {
		return nil, ErrNoSigner
	}

	encoded, err := c.EncodeArgs(f, args)
	if err != nil {
		return nil, err
	}
	data := append(append([]byte{}, f.Bytecode...), encoded...)

	from := crypto.PubkeyToAddress(c.key.PublicKey)
	chainID, err := c.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting chain ID: %w", err)
	}
	nonce, err := c.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("getting nonce: %w", err)
	}
	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting gas price: %w", err)
	}

	gasLimit, err := c.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:     from,
		GasPrice: gasPrice,
		Value:    big.NewInt(0),
		Data:     data,
	})
	if err != nil {
		gasLimit = defaultGasLimit
		c.logger.Warn("gas estimation failed, using default",
			slog.Uint64("gas_limit", gasLimit),
			slog.String("error", err.Error()),
		)
	}
	gasLimit = gasLimit * gasBufferPercent / 100

	tx := types.NewContractCreation(nonce, big.NewInt(0), gasLimit, gasPrice, data)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), c.key)
	if err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}
	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("sending transaction: %w", err)
	}

	c.logger.Debug("creation transaction sent",
		"contract", f.Name,
		"tx", signed.Hash().Hex(),
		"nonce", nonce,
		"gas_limit", gasLimit,
	)

	return &Pending{
		Factory: f,
		Tx:      signed,
		From:    from,
		Address: crypto.CreateAddress(from, nonce),
	}, nil
}

// Wait blocks until the creation transaction is mined and buried under
// enough blocks that head - receiptBlock + 1 >= confirmations.
func (c *Client) Wait(ctx context.Context, p *Pending, confirmations int) (*DeploymentResult, error) {
	receipt, err := bind.WaitMined(ctx, c.backend, p.Tx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("waiting for receipt: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%s (tx %s): %w", p.Factory.Name, p.Tx.Hash().Hex(), ErrDeploymentReverted)
	}

	mined := receipt.BlockNumber.Uint64()
	if confirmations > 1 {
		target := mined + uint64(confirmations) - 1

		ticker := time.NewTicker(c.pollInterval)
		defer ticker.Stop()
		for {
			head, err := c.backend.BlockNumber(ctx)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				return nil, fmt.Errorf("getting block number: %w", err)
			}
			if head >= target {
				break
			}
			c.logger.Debug("waiting for confirmations",
				"have", head-mined+1,
				"want", confirmations,
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-ticker.C:
			}
		}
	}

	var chainID int64
	if id := p.Tx.ChainId(); id != nil {
		chainID = id.Int64()
	}
	return &DeploymentResult{
		ContractName: p.Factory.Name,
		Address:      receipt.ContractAddress,
		TxHash:       p.Tx.Hash(),
		BlockNumber:  mined,
		Deployer:     p.From,
		ChainID:      chainID,
	}, nil
}

// DeployedCode returns the runtime code at address.
func (c *Client) DeployedCode(ctx context.Context, address common.Address) ([]byte, error) {
	return c.backend.CodeAt(ctx, address, nil)
}
